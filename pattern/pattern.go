// Package pattern holds the compiled noise catalogue for research-centre
// web pages: navigation shells, cookie banners, CMS (ZMS) markers, legal
// boilerplate, DOI links, and whitespace.
//
// Patterns are grouped by priority and applied in group order; later groups
// see the output of earlier groups. The first six groups operate on raw HTML
// strings, TextCleanup and the whitespace collapse operate on extracted text.
package pattern

import (
	"regexp"
	"strings"
)

// Group identifies a priority tier of the catalogue.
type Group int

const (
	Critical Group = iota
	High
	Medium
	Low
	Specialized
	Cleanup
	TextCleanup
)

// String returns the group name used in logs.
func (g Group) String() string {
	switch g {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	case Specialized:
		return "specialized"
	case Cleanup:
		return "cleanup"
	case TextCleanup:
		return "text-cleanup"
	}
	return "unknown"
}

// blockOf builds one element-block pattern per tag name. Go's regexp has no
// backreferences, so matching an open/close pair of the same tag is expanded
// into a separate pattern for each tag.
func blockOf(attrExpr string, tags ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(tags))
	for _, tag := range tags {
		out = append(out, regexp.MustCompile(
			`(?is)<`+tag+`\b[^>]*`+attrExpr+`[^>]*>.*?</`+tag+`>`))
	}
	return out
}

// classOrID matches a class or id attribute containing one of the words.
func classOrID(words string) string {
	return `(?:class|id)\s*=\s*['"][^'"]*\b(?:` + words + `)\b[^'"]*['"]`
}

var criticalPatterns = flatten(
	blockOf(``, "script", "style", "nav", "form", "header", "footer"),
	blockOf(`id\s*=\s*['"](?:footer|overall|wrapper|icons|search_icon|phone_icon|close_gcs|mobile_menu_header|mobile_menu|mobile_dropdown|mobile_loading|mobile_dropdown_content|top|logoarea|topleft|topright|topmenu|menu|main_menu|header|leftmenu|rightmenu)\b[^'"]*['"]`,
		"div", "section", "nav", "ul", "header"),
	blockOf(`id\s*=\s*['"]?[^'">]*\b(?:cookie|consent|privacy|banner|notice|preferences)\b[^'">]*['"]?`,
		"div", "section", "aside", "footer"),
	blockOf(`class\s*=\s*['"][^'">]*\b(?:cookie|consent|banner|popup|notice|preferences|privacy|cookie-consent-wrapper|cookie-bar-wrapper)\b[^'">]*['"]`,
		"div", "section", "aside", "footer"),
	blockOf(`style\s*=\s*['"][^'"]*display\s*:\s*none[^'"]*['"]`,
		"div", "section", "aside", "footer"),
	[]*regexp.Regexp{
		regexp.MustCompile(`(?is)<[^>]+class=['"][^'">]*\bcookie-bar__inner\b[^'">]*['"][^>]*>.*?</[^>]+>`),
		regexp.MustCompile(`(?is)<!--\s*Cookie\s+Bar\s*-->.*?<!--\s*End\s+Cookie\s+Bar\s*-->`),
		regexp.MustCompile(`(?is)<div[^>]*id=['"]?cookie-bar['"]?[^>]*>.*?</div>`),
	},
	blockOf(`id\s*=\s*['"](?:leftmenu|topmenu|menu)[^'"]*['"]`, "nav"),
	blockOf(`id\s*=\s*['"](?:main_menu|menu)[^'"]*['"]`, "ul"),
	blockOf(`class\s*=\s*['"][^'"]*\b(?:inactive|active|ZMSFolder\d*|ZMSDocument\d*)\b[^'"]*['"]`, "li"),
)

var highPatterns = flatten(
	blockOf(classOrID(`breadcrumb|bread[-_]?nav|nav|navigation|tagline|menu[-_]?bar|top[-_]?nav|site[-_]?nav|main[-_]?navigation|nav[-_]?container|sub[-_]?nav|menu[-_]?container|menu|sub[-_]?menu|nav[-_]?menu|quick[-_]?nav|quick[-_]?links`),
		"div", "ul", "ol", "section"),
	blockOf(classOrID(`breadcrumb|bread[-_]?nav|nav|navigation|tagline|menu[-_]?bar|top[-_]?nav|site[-_]?nav|main[-_]?navigation|nav[-_]?container|sub[-_]?nav|menu[-_]?container|menu|sub[-_]?menu|nav[-_]?menu|quick[-_]?nav|quick[-_]?links|topright[-_]?button|wrapper`),
		"li"),
	blockOf(``, "header", "footer"),
	blockOf(classOrID(`header|footer|site[-_]?footer|page[-_]?footer|site[-_]?header|nav[-_]?footer|group[-_]?header|banner[-_]?header|wrapper`),
		"div"),
	blockOf(classOrID(`cookies?|consent|banner|popup|modal|cookie[-_]?notices?|cookie[-_]?consents?|cookie[-_]?policys?|gdpr|privacy[-_]?banner`),
		"div", "section", "aside"),
	blockOf(classOrID(`sidebar|left|right|side[-_]?nav|widget[-_]?area|nav[-_]?panel`),
		"div", "aside", "section"),
)

var mediumPatterns = flatten(
	blockOf(classOrID(`search|search[-_]?form|search[-_]?box|search[-_]?bar|cse[-_]?search[-_]?form`), "div"),
	blockOf(classOrID(`mobile(?:[-_]?(?:nav|menu|back|toggle|dropdown|loading))?`), "div", "nav", "ul"),
	blockOf(classOrID(`lang|language|lang[-_]?switch`), "div", "ul", "select"),
	blockOf(classOrID(`overlay|modal[-_]?overlay|popup[-_]?overlay`), "div", "section"),
	blockOf(classOrID(`btns?|buttons?|btt|topright[-_]?button`), "button", "div"),
	[]*regexp.Regexp{
		regexp.MustCompile(`(?i)<input\b[^>]*(?:class|id)\s*=\s*['"][^'"]*\b(?:btns?|buttons?|btt|topright[-_]?button)\b[^'"]*['"][^>]*/?>`),
		regexp.MustCompile(`(?is)<a\b[^>]*href\s*=\s*['"][^'"]*(?:doi\.org|journals\.aps\.org|dx\.doi\.org|DOI:)[^'"]*['"][^>]*>.*?</a>`),
	},
)

var lowPatterns = flatten(
	blockOf(`class\s*=\s*['"][^'"]*\b(?:inactive|folder|nav[-_]?item|menu[-_]?item|ZMSFolder\d*|ZMSDocument\d*)\b[^'"]*['"]`, "li"),
	blockOf(classOrID(`footnotes?|foot[-_]?notes?|references?|citations?|endnotes?`),
		"div", "section", "aside", "span"),
	[]*regexp.Regexp{
		regexp.MustCompile(`(?is)<a\b[^>]*id\s*=\s*['"](?:mobile_back_to_desy|mobile[-_]?nav[-_]?toggle|search|phone)['"][^>]*>.*?</a>`),
		regexp.MustCompile(`(?is)<a\b[^>]*(?:class|id)\s*=\s*['"][^'"]*\b(?:inactive|ZMSFolder\d*|ZMSDocument\d*)\b[^'"]*['"][^>]*>.*?</a>`),
		regexp.MustCompile(`(?is)<a\b[^>]*href\s*=\s*['"][^'"]*(?:index_print|desy\.de|testbeam\.desy\.de)[^'"]*['"][^>]*>.*?</a>`),
		regexp.MustCompile(`(?is)<a\b[^>]*title\s*=\s*['"][^'"]*(?:Change\s+language|DESY\s+Homepage)[^'"]*['"][^>]*>.*?</a>`),
		regexp.MustCompile(`(?i)<img\b[^>]*id\s*=\s*['"][^'"]*(?:phonebook_icon|print_icon|lang_icon|desylogo)[^'"]*['"][^>]*/?>`),
		regexp.MustCompile(`(?i)<img\b[^>]*alt\s*=\s*['"][^'"]*(?:phone\s+book|Diese\s+Seite\s+drucken|loading|DESY\s+Logo)[^'"]*['"][^>]*/?>`),
		regexp.MustCompile(`(?i)<img\b[^>]*src\s*=\s*['"][^'"]*(?:loading\.gif|logo_desy\.gif|arrow_large_white\.png)[^'"]*['"][^>]*/?>`),
		regexp.MustCompile(`(?is)<[^>]+role\s*=\s*['"]navigation['"][^>]*>.*?</[^>]+>`),
		regexp.MustCompile(`(?is)<ul\b[^>]*>(?:\s*<li\b[^>]*(?:class|id)\s*=\s*['"][^'"]*\b(?:inactive|ZMSFolder\d*|ZMSDocument\d*)\b[^'"]*['"][^>]*>.*?</li>\s*)+</ul>`),
	},
)

// boilerplatePhrases are verbatim strings of the target estate, removed
// wherever they appear (HTML or text).
var boilerplatePhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Deutsches\s+Elektronen-Synchrotron\s+DESY\s+A\s+Research\s+Centre\s+of\s+the\s+Helmholtz\s+Association`),
	regexp.MustCompile(`(?i)Data\s+Privacy\s+Policy\s*\|\s*Declaration\s+of\s+Accessibility\s*\|\s*Imprint\s*©[^.]*`),
	regexp.MustCompile(`(?i)A\s+Research\s+Centre\s+of\s+the\s+Helmholtz\s+Association`),
	regexp.MustCompile(`(?i)©\s*\d{4}\s*Deutsches\s+Elektronen-Synchrotron\s+DESY[^<.]*`),
	regexp.MustCompile(`(?i)Deutsches\s*Elektronen-Synchrotron`),
	regexp.MustCompile(`(?i)Data\s+Privacy\s+Policy\s*\|[^|]*?(?:Imprint|©)`),
	regexp.MustCompile(`(?i)Impressum\s*/\s*Datenschutz\s*/\s*Erklärung\s+zur\s+Barrierefreiheit`),
	regexp.MustCompile(`(?i)\bSprungnavigation\b`),
	regexp.MustCompile(`(?i)\bZielgruppennavigation\b`),
	regexp.MustCompile(`(?i)\bServicefunktionen\b`),
	regexp.MustCompile(`(?i)\bBreadcrumb\b`),
	regexp.MustCompile(`(?i)\bFooter\b`),
	regexp.MustCompile(`(?i)\bDesy\s+Global\b`),
	regexp.MustCompile(`(?i)\bZum\s+Untermenü\b`),
	regexp.MustCompile(`(?i)\bZum\s+Inhalt\b`),
	regexp.MustCompile(`(?i)\bZum\s+Hauptmenu\b`),
	regexp.MustCompile(`(?i)\bInfos\s*&\s*Services\b`),
	regexp.MustCompile(`(?i)\bLeichte\s+Sprache\b`),
	regexp.MustCompile(`(?i)\bGebärdensprache\b`),
}

var cleanupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<!--\s*(?://wrapper\s*//\s*-->.*?<!--\s*/standard_html_header\s*--|/?\s*standard_html_header\s*-->)`),
	regexp.MustCompile(`(?is)<!--[^>]*(?:wrapper|overall|standard_html)[^>]*-->`),
	regexp.MustCompile(`(?i)<!--[^>]*tal:attributes[^>]*-->`),
	regexp.MustCompile(`(?is)<!--a\s+tal:.*?</a-->`),
	regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
	regexp.MustCompile(`(?i)title\s*=\s*['"][^'"]*(?:Aktuelle|Seminare|Events)[^'"]*['"]`),
	regexp.MustCompile(`(?i)<[^>]*style\s*=\s*['"][^'"]*(?:display\s*:\s*block|text-align\s*:\s*right|margin|opacity)[^'"]*['"][^>]*>`),
}

var textCleanupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bNavigation\b`),
	regexp.MustCompile(`(?i)\bDatenschutzerklärung\b`),
	regexp.MustCompile(`(?i)\bErklärung\s+zur\s+Barrierefreiheit\b`),
	regexp.MustCompile(`(?i)\bBack\s+to\s+Top\b`),
	regexp.MustCompile(`(?i)\b(?:nav|menu|breadcrumb|navigation)\s*[:\-|]\s*`),
	regexp.MustCompile(`(?i)\b(?:Home|Startseite|Kontakt|Suche|Login|Anmelden)\b`),
	regexp.MustCompile(`(?i)\b(?:Archiv|Archive)\s*\d{4}`),
	regexp.MustCompile(`(?i)\b(?:Page\s+\d+|Seite\s+\d+|\d+\s+of\s+\d+)\b`),
	regexp.MustCompile(`(?i)\b(?:cookie|gdpr|popup|consent)\b`),
}

// CookiePhrases match cookie-banner wording inside text nodes. The cleaner
// removes the enclosing block container for any text node that matches.
var CookiePhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)cookie[- ]?banner`),
	regexp.MustCompile(`(?i)cookie[- ]?consent`),
	regexp.MustCompile(`(?i)diese website verwendet cookies`),
	regexp.MustCompile(`(?i)we use cookies`),
	regexp.MustCompile(`(?i)accept all cookies`),
	regexp.MustCompile(`(?i)cookie einstellungen`),
	regexp.MustCompile(`(?i)cookie policy`),
	regexp.MustCompile(`(?i)consent to cookies`),
	regexp.MustCompile(`(?i)diese seite nutzt cookies`),
	regexp.MustCompile(`(?i)cookie notice`),
	regexp.MustCompile(`(?i)cookie preferences`),
	regexp.MustCompile(`(?i)cookie declaration`),
	regexp.MustCompile(`(?i)cookie information`),
	regexp.MustCompile(`(?i)cookie settings`),
	regexp.MustCompile(`(?i)cookie usage`),
}

// Copyright matches "© YYYY … DESY" residues in text nodes.
var Copyright = regexp.MustCompile(`(?i)©\s*\d{4}\s*Deutsches\s*Elektronen-Synchrotron\s*DESY`)

var (
	whitespaceRe = regexp.MustCompile(`[\x{00a0}\x{202f}\s]+`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
	doiRe        = regexp.MustCompile(`(?i)\b10\.\d{4,9}/[-._;()/:A-Z0-9]+\b`)
)

var htmlGroups = [][]*regexp.Regexp{
	criticalPatterns,
	highPatterns,
	mediumPatterns,
	lowPatterns,
	boilerplatePhrases,
	cleanupPatterns,
}

func flatten(groups ...[]*regexp.Regexp) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func applyAll(s string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		s = p.ReplaceAllString(s, "")
	}
	return s
}

// ApplyHTML runs the six HTML-phase groups in priority order.
func ApplyHTML(s string) string {
	for _, g := range htmlGroups {
		s = applyAll(s, g)
	}
	return s
}

// ApplyGroup runs a single group.
func ApplyGroup(s string, g Group) string {
	switch g {
	case Critical:
		return applyAll(s, criticalPatterns)
	case High:
		return applyAll(s, highPatterns)
	case Medium:
		return applyAll(s, mediumPatterns)
	case Low:
		return applyAll(s, lowPatterns)
	case Specialized:
		return applyAll(s, boilerplatePhrases)
	case Cleanup:
		return applyAll(s, cleanupPatterns)
	case TextCleanup:
		return applyAll(s, textCleanupPatterns)
	}
	return s
}

// ApplyText runs the text-phase cleanup and collapses whitespace to single
// ASCII spaces.
func ApplyText(s string) string {
	s = applyAll(s, textCleanupPatterns)
	return CollapseWhitespace(s)
}

// CollapseWhitespace folds all whitespace runs, including NBSP and
// narrow-NBSP, into one ASCII space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Normalize folds whitespace and lowercases, the canonical form used for
// content fingerprints.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " ")))
}

// DedupDOIs keeps only the first occurrence of each DOI identifier
// (10.NNNN/...) in the text.
func DedupDOIs(s string) string {
	seen := make(map[string]bool)
	return doiRe.ReplaceAllStringFunc(s, func(doi string) string {
		if seen[doi] {
			return ""
		}
		seen[doi] = true
		return doi
	})
}

// StripTags is the degraded cleaning path used when HTML parsing fails:
// every tag becomes a space.
var tagRe = regexp.MustCompile(`<[^>]+>`)

func StripTags(s string) string {
	return tagRe.ReplaceAllString(s, " ")
}
