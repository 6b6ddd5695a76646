package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MinTextSampleLength is the visible-text floor below which a page is
// treated as an error page.
const MinTextSampleLength = 50

var loginTextRe = regexp.MustCompile(`(?i)log\s*in|sign\s*in`)
var loginAnchorRe = regexp.MustCompile(`(?i)log\s*in|sign\s*in|authenticate`)

var errorPhrases = []string{
	"not found", "page doesn't exist", "404", "page not found", "does not exist",
	"could not be found", "site error", "error was encountered", "error occurred",
}

var publishErrorRe = regexp.MustCompile(`(?i)error.*encountered.*publishing`)

// IsLoginPage reports whether the page is an authentication gate: a
// login-typed form, a password input, or login-intent controls.
func IsLoginPage(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	if loginTextRe.MatchString(doc.Find("title").Text()) {
		return true
	}
	if doc.Find(`form[id*="login" i], form[action*="login" i]`).Length() > 0 {
		return true
	}
	if doc.Find(`input[name="username"], input[name="password"][type="password"]`).Length() > 0 {
		return true
	}
	if doc.Find("div.login-box, div.auth-form").Length() > 0 {
		return true
	}
	found := false
	doc.Find("button, a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if loginAnchorRe.MatchString(s.Text()) {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}
	doc.Find("input[value]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if loginTextRe.MatchString(s.AttrOr("value", "")) {
			found = true
			return false
		}
		return true
	})
	return found
}

// IsErrorPage reports whether the page is a not-found or server-error page:
// error phrasing in the title, headings, or body, or a near-empty body.
func IsErrorPage(doc *goquery.Document) bool {
	if doc == nil {
		return true
	}
	title := strings.ToLower(doc.Find("title").Text())
	for _, phrase := range errorPhrases {
		if strings.Contains(title, phrase) {
			return true
		}
	}
	pageText := strings.ToLower(VisibleText(doc))
	if publishErrorRe.MatchString(pageText) {
		return true
	}
	errHeading := false
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h := strings.ToLower(strings.TrimSpace(s.Text()))
		for _, phrase := range errorPhrases {
			if strings.Contains(h, phrase) {
				errHeading = true
				return false
			}
		}
		return true
	})
	if errHeading {
		return true
	}
	for _, phrase := range errorPhrases {
		if strings.Contains(pageText, phrase) {
			return true
		}
	}
	return len(pageText) < MinTextSampleLength
}
