// Package extract selects semantically meaningful blocks from a parsed page,
// de-duplicates them by content fingerprint, and emits the page's full body
// text plus a sample for language detection.
//
// Block ordering matters: fine-grained tags come before coarse wrappers in
// the tag list, and the ancestor-processed guard keeps a wrapper from
// re-emitting text a finer block already produced.
package extract

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hazyhaar/webchunk/cleaner"
	"github.com/hazyhaar/webchunk/pattern"
)

// MinChunkChars is the floor below which a cleaned block is discarded.
const MinChunkChars = 30

// prePruneSelectors drop navigation, legal, social, and sharing containers
// from the whole document before block iteration.
var prePruneSelectors = []string{
	`[id*="nav" i]`, `[class*="nav" i]`,
	`[id*="menu" i]`, `[class*="menu" i]`,
	`[id*="sidebar" i]`, `[class*="sidebar" i]`,
	`[id*="quicklinks" i]`, `[class*="quicklinks" i]`,
	"p.copyright", "div.copyright", "footer",
	`[class*="footer" i]`, `[id*="footer" i]`,
	`[class*="impressum" i]`, `[id*="impressum" i]`,
	`[class*="datenschutz" i]`, `[id*="datenschutz" i]`,
	`[class*="legal" i]`, `[id*="legal" i]`,
	`[class*="social" i]`, `[id*="social" i]`,
	`[class*="share" i]`, `[id*="share" i]`,
	`[class*="links" i]`, `[id*="links" i]`,
	`[class*="bottom" i]`, `[id*="bottom" i]`,
	`[class*="contact" i]`, `[id*="contact" i]`,
	`[class*="mastodon" i]`, `[class*="facebook" i]`,
	`[class*="instagram" i]`, `[class*="linkedin" i]`,
	`[class*="twitter" i]`, `[class*="rss" i]`,
	`a[href*="impressum"]`, `a[href*="datenschutz"]`,
	`a[href*="privacy"]`, `a[href*="accessibility"]`,
	`a[href*="kontakt"]`, `a[href*="contact"]`,
	`a[href*="social"]`, `a[href*="linkedin"]`,
	`a[href*="twitter"]`, `a[href*="facebook"]`,
	`a[href*="instagram"]`, `a[href*="mastodon"]`,
	`a[href*="rss"]`,
}

// DefaultContentTags are the user-tunable middle section of the block tag
// list, covering the estate's CMS content classes.
var DefaultContentTags = []string{
	"p", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol",
	"td", "th", "tr", "table", "caption", "dt", "dd", "span",
	"article", "section", "main", "div",
	"div.teaser-text", "div.content", "div.text-block",
	"div.publication-item", "div.news-item", "div.portlet-body",
	"div.event-details", "div.indico-content", "div.publication-list",
	"div.event-description", "div.news-content", "div.status-report",
	"div.status", "div.monitor", "div.experiment", "div.results",
	"p[id]", "table.i-table", "div.timetable",
}

var skipClasses = map[string]bool{
	"cookie-bar": true, "LinkElementTitle": true, "ZMSTeaserContainer": true,
	"footer": true, "copyright": true, "link": true, "site-footer": true,
	"ZMSDocument0": true,
}

var skipIDs = map[string]bool{
	"cookie-bar": true, "footer": true, "page-footer": true, "site-footer": true,
}

var footerIDRe = regexp.MustCompile(`(?i)(footer|page-footer|site-footer)`)

// Extractor walks a parsed document and gathers deduplicated content blocks.
type Extractor struct {
	// ContentTags extends the block tag list. Defaults to DefaultContentTags.
	ContentTags []string
}

// Extract returns the page's full cleaned content and a language-detection
// sample. The two values are equal; the symmetry is part of the contract.
func (e *Extractor) Extract(doc *goquery.Document) (content, sample string) {
	if doc == nil {
		return "", ""
	}

	// Pre-prune on a detached clone so the caller's document survives.
	work := cloneDocument(doc)
	for _, sel := range prePruneSelectors {
		work.Find(sel).Remove()
	}

	contentTags := e.ContentTags
	if contentTags == nil {
		contentTags = DefaultContentTags
	}

	tags := make([]string, 0, len(contentTags)+32)
	tags = append(tags,
		"p[id]", "p", "h1", "h2", "h3", "h4", "h5", "h6",
		"div.content-section", "div.module", "div.text", "div.content",
		"div.text-block", "div.main-content", "div.publication-item",
		"div.news-item", "div.event-details", "div.news-content",
		"div.status-report", "div.status", "div.monitor",
	)
	tags = append(tags, contentTags...)
	tags = append(tags,
		"table", "table.i-table", "caption", "td", "th", "tr",
		"section", "article", "main", "span", "div",
	)

	processed := make(map[*html.Node]bool)
	seenHashes := make(map[string]bool)
	var parts []string

	for _, tag := range tags {
		work.Find(tag).Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			if processed[node] || shouldSkipElement(s) {
				return
			}
			if hasProcessedAncestor(node, processed) || hasProcessedDescendant(node, processed) {
				return
			}
			raw, err := goquery.OuterHtml(s)
			if err != nil {
				return
			}
			text := cleaner.Clean(raw)
			text = pattern.ApplyHTML(text)
			if len(text) < MinChunkChars {
				return
			}
			h := fingerprint(text)
			if seenHashes[h] {
				return
			}
			seenHashes[h] = true
			markProcessed(node, processed)
			parts = append(parts, text)
		})
	}

	joined := strings.Join(parts, "\n")
	joined = pattern.Copyright.ReplaceAllString(joined, "")
	joined = pattern.ApplyText(joined)
	joined = pattern.DedupDOIs(joined)
	joined = pattern.CollapseWhitespace(joined)
	return joined, joined
}

// fingerprint is the MD5 of the lowercase whitespace-normalised text.
func fingerprint(text string) string {
	sum := md5.Sum([]byte(pattern.Normalize(text)))
	return hex.EncodeToString(sum[:])
}

func shouldSkipElement(s *goquery.Selection) bool {
	if id, ok := s.Attr("id"); ok && skipIDs[id] {
		return true
	}
	for _, cls := range strings.Fields(s.AttrOr("class", "")) {
		if skipClasses[cls] {
			return true
		}
	}
	if goquery.NodeName(s) == "li" {
		return true
	}
	if s.ParentsFiltered("li").Length() > 0 {
		return true
	}
	skip := false
	s.Parents().EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if id, ok := p.Attr("id"); ok && footerIDRe.MatchString(id) {
			skip = true
			return false
		}
		return true
	})
	return skip
}

func hasProcessedAncestor(n *html.Node, processed map[*html.Node]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if processed[p] {
			return true
		}
	}
	return false
}

func hasProcessedDescendant(n *html.Node, processed map[*html.Node]bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && processed[c] {
			return true
		}
		if hasProcessedDescendant(c, processed) {
			return true
		}
	}
	return false
}

func markProcessed(n *html.Node, processed map[*html.Node]bool) {
	processed[n] = true
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			markProcessed(c, processed)
		}
	}
}

// cloneDocument deep-copies a parsed document so destructive pruning does
// not mutate the caller's tree.
func cloneDocument(doc *goquery.Document) *goquery.Document {
	htmlStr, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return doc
	}
	clone, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return doc
	}
	return clone
}

// Title returns the trimmed <title> text, or "No title".
func Title(doc *goquery.Document) string {
	t := strings.TrimSpace(doc.Find("title").First().Text())
	if t == "" {
		return "No title"
	}
	return t
}

// VisibleText returns the document's visible text with whitespace collapsed.
func VisibleText(doc *goquery.Document) string {
	return pattern.CollapseWhitespace(doc.Text())
}
