// Package cleaner turns raw HTML into normalised plain text.
//
// The pipeline: parse → pick the main content region → prune noise subtrees
// by selector → apply the pattern catalogue to the serialised HTML → strip
// residual banner/copyright text nodes → extract text → text-level cleanup.
// Cleaning is idempotent: running it on its own output is a no-op.
package cleaner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hazyhaar/webchunk/pattern"
)

// mainContentSelectors are tried in order; the first match becomes the
// content root. Falls through to <body>, then the whole document.
var mainContentSelectors = []string{
	"main", "article", `section[class*="content"]`,
	`div[class*="main-content"]`, `div[class*="content-section"]`, `div[class*="text-block"]`,
	`div[id="content"]`, `div[id="main"]`, `div[id="bodyContent"]`,
	`div[class*="content"]`, `div[class*="text"]`, `div[class*="body"]`,
	`div[class*="page"]`, `div[class*="container"]`, "center",
}

// noiseSelectors name subtrees that never carry body text on the target
// estate: menu shells, CMS list items, social/legal anchors, print-only
// blocks, cookie bars.
var noiseSelectors = []string{
	`div[id="overall"]`, `div[class="wrapper"]`, `header[id="header"]`,
	`div[id="mobile_menu_header"]`, `div[id="mobile_menu"]`, `div[id="mobile_dropdown"]`,
	`div[id="top"]`, `div[id="logoarea"]`, `div[id="topleft"]`, `div[id="topright"]`,
	`div[id="topmenu"]`, `nav[id="menu"]`, `ul[id="main_menu"]`,
	"nav", `ul[id*="menu" i]`, `ol[id*="menu" i]`,
	`div[id="icons"]`, `div[class="topright_button"]`,
	`li[class*="ZMS"]`, `a[class*="ZMS"]`,
	`img[class="imgNoborder"]`, `img[id*="logo"]`, `img[id*="icon"]`,
	`a[target="_blank"]`, `a[href*="doi.org"]`, `a[href*="DOI"]`,
	`a[href*="journals.aps.org"]`, `a[href*="dx.doi.org"]`, `a[href*="doi:"]`,
	`a[href*="abstract"]`, `a[href*="citation"]`,
	`div[class="clear"]`, `div[class="loading"]`,
	"footer", `div[id*="footer" i]`, `div[class*="footer" i]`, `div[class*="copyright" i]`,
	`div[class*="teaser" i]`, `div[class*="LinkElement" i]`, `div[class*="quicklinks" i]`,
	`div[class*="ZMS" i]`, `div[id*="teaser" i]`, `div[id*="quicklinks" i]`,
	`[data-cookie]`, `[data-consent]`, `[class*="cookie" i]`, `[class*="consent" i]`,
	`[style*="display:none" i]`, `[style*="visibility:hidden" i]`,
	`div[id="quick_nav_container"]`,
	`a[href*="data_privacy_policy"]`, `a[href*="declaration_of_accessibility"]`,
	`ul[style*="padding-bottom"]`,
	`button[class*="btt"]`, `div[class*="btt"]`,
	`ul[class*="footer__links"]`, `div[class*="footer__logos"]`,
	`img[alt*="Logo"]`, `a[href*="linkedin"]`, `a[href*="twitter"]`,
	`li[class*="ZMSFolder"]`, `li[class*="ZMSDocument"]`,
	`a[class*="ZMSFolder"]`, `a[class*="ZMSDocument"]`,
	"p.hidden.showforprint",
	`[class*="showforprint" i]`, `[class*="show-for-print" i]`,
	`[class~="showforprint"]`, `[class~="hidden"]`,
	`a[class*="print" i]`, `a[class*="changelang" i]`,
	"header",
	`div[class*="nav" i]`, `div[id*="nav" i]`,
	`div[class*="menu" i]`, `div[id*="menu" i]`,
	`ul[class*="menu" i]`, `ul[id*="menu" i]`,
	`li[class*="menu" i]`, `li[id*="menu" i]`,
	`a[class*="menu" i]`, `a[id*="menu" i]`,
	`section[class*="nav" i]`, `section[class*="menu" i]`,
	`ul[class*="nav" i]`, `ul[id*="nav" i]`,
	`div[id*="content-nav" i]`,
	`div[id="page-footer"]`, `ul[id="footer-nav"]`,
}

// wrapperSelectors are generic page wrappers removed only when they do not
// themselves contain <main> or <article>.
var wrapperSelectors = []string{
	`div[class*="wrapper" i]`, `div[class*="container" i]`,
	`div[class*="main-container" i]`, `div[class*="page-wrapper" i]`,
	`div[class*="site-wrapper" i]`,
	`section[class*="wrapper" i]`, `section[class*="container" i]`,
}

var doiHrefRe = regexp.MustCompile(`(?i)(doi\.org|journals\.aps\.org|dx\.doi\.org|DOI:)`)

// Clean converts an HTML string into whitespace-normalised plain text.
// A parse failure degrades to a bare tag strip; the pattern passes still run.
func Clean(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}

	text := pruneDocument(rawHTML)

	text = pattern.ApplyHTML(text)

	if strings.Contains(text, "<") && strings.Contains(text, ">") {
		text = stripResidualNodes(text)
	}

	text = pattern.ApplyText(text)
	text = pattern.DedupDOIs(text)
	return pattern.CollapseWhitespace(text)
}

// pruneDocument parses the HTML, picks the main content region, removes
// noise subtrees, and returns the serialised remainder.
func pruneDocument(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return pattern.StripTags(rawHTML)
	}

	main := doc.Selection
	for _, sel := range mainContentSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			main = found
			break
		}
	}
	if main == doc.Selection {
		if body := doc.Find("body").First(); body.Length() > 0 {
			main = body
		}
	}

	for _, sel := range noiseSelectors {
		main.Find(sel).Remove()
		doc.Find(sel).Remove()
	}

	for _, sel := range wrapperSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if s.Find("main, article").Length() == 0 && !s.Is("#content") {
				s.Remove()
			}
		})
	}

	// List items survive only under the #content region.
	main.Find("li").Each(func(_ int, s *goquery.Selection) {
		if s.Closest("#content").Length() == 0 {
			s.Remove()
		}
	})

	main.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && doiHrefRe.MatchString(href) {
			s.Remove()
		}
	})

	out, err := goquery.OuterHtml(main)
	if err != nil {
		return pattern.StripTags(rawHTML)
	}
	return out
}

// stripResidualNodes re-parses partially cleaned HTML, drops copyright text
// nodes and the block containers around cookie-banner phrases, then extracts
// text with single-space node separation.
func stripResidualNodes(s string) string {
	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return pattern.StripTags(s)
	}

	var removeCopyright func(*html.Node)
	removeCopyright = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.TextNode && pattern.Copyright.MatchString(c.Data) {
				n.RemoveChild(c)
			} else {
				removeCopyright(c)
			}
			c = next
		}
	}
	removeCopyright(root)

	// For every text node matching a cookie phrase, ascend up to four
	// ancestors to the nearest block container and remove it.
	var doomed []*html.Node
	var findBanners func(*html.Node)
	findBanners = func(n *html.Node) {
		if n.Type == html.TextNode && matchesCookiePhrase(n.Data) {
			anc := n.Parent
			for i := 0; i < 4 && anc != nil; i++ {
				if isBlockContainer(anc) {
					doomed = append(doomed, anc)
					break
				}
				anc = anc.Parent
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findBanners(c)
		}
	}
	findBanners(root)
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	return collectText(root)
}

func matchesCookiePhrase(s string) bool {
	lower := strings.ToLower(s)
	for _, re := range pattern.CookiePhrases {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func isBlockContainer(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "div", "section", "aside", "p", "span":
		return true
	}
	return false
}

// collectText extracts visible text with single-space separation between
// nodes, skipping script/style/noscript subtrees.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
