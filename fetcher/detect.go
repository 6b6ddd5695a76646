package fetcher

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/webchunk/extract"
)

// nonHTMLExtensions lists URL path suffixes that never carry page text.
// XML is included: feeds and sitemaps are routed elsewhere, not chunked.
var nonHTMLExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".odt": true, ".rtf": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".rar": true, ".7z": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".svg": true, ".webp": true, ".ico": true, ".tif": true, ".tiff": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true,
	".flv": true, ".wav": true, ".ogg": true, ".webm": true,
	".css": true, ".js": true, ".xml": true, ".json": true,
	".exe": true, ".dmg": true, ".iso": true, ".bin": true,
}

// ShouldSkip reports whether the URL points at a non-HTML resource, judged
// by the path extension alone. Query strings and fragments are ignored.
func ShouldSkip(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return nonHTMLExtensions[ext]
}

// blockPhrases appear in the short interstitial bodies some hosts serve
// instead of content.
var blockPhrases = []string{
	"access denied",
	"javascript required",
	"enable javascript",
	"please enable cookies",
	"checking your browser",
}

// looksBlocked flags suspiciously short responses and responses carrying a
// known block phrase.
func looksBlocked(body string) bool {
	if len(strings.TrimSpace(body)) < 500 {
		return true
	}
	lower := strings.ToLower(body)
	for _, p := range blockPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// cmsScriptMarkers identify script URLs of CMSes that build the page
// client-side; more than one of them means the static HTML is a shell.
var cmsScriptMarkers = []string{"zmi.js", "++resource++"}

// NeedsRender inspects a parsed static response for signs that the real
// content only exists after script execution.
func NeedsRender(doc *goquery.Document) bool {
	if doc == nil {
		return true
	}
	visible := extract.VisibleText(doc)
	if len(visible) < 200 {
		return true
	}
	if doc.Find("p, div, section, article").Length() < 5 {
		return true
	}
	if doc.Find("noscript").Length() > 0 {
		return true
	}
	cms := 0
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		for _, m := range cmsScriptMarkers {
			if strings.Contains(src, m) {
				cms++
				return
			}
		}
	})
	return cms > 1
}

// classifyPage returns a failure reason for login and error pages, or ""
// for a processable page. postJS selects the rendered-DOM reason variants.
func classifyPage(doc *goquery.Document, postJS bool) string {
	if extract.IsLoginPage(doc) {
		if postJS {
			return ReasonLoginPostJS
		}
		return ReasonLoginPage
	}
	if extract.IsErrorPage(doc) {
		if postJS {
			return ReasonErrorPostJS
		}
		return ReasonErrorPage
	}
	return ""
}
