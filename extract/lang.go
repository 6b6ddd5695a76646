package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/pemistahl/lingua-go"
)

// minSampleForDetection is the sample floor for statistical detection.
const minSampleForDetection = 50

// maxSampleRunes caps how much text feeds the statistical detector.
const maxSampleRunes = 1000

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func langDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllSpokenLanguages().
			Build()
	})
	return detector
}

var nonLetterRe = regexp.MustCompile(`[^a-z]`)

// DetectLanguage resolves the page language as a two-letter ISO-639-1 code.
// Order: the estate's "_ger.html" URL convention, statistical detection on a
// sufficient sample, declared language attributes, then "en".
func DetectLanguage(doc *goquery.Document, sample, pageURL string) string {
	if strings.HasSuffix(strings.ToLower(pageURL), "_ger.html") {
		return "de"
	}

	if len(sample) >= minSampleForDetection {
		runes := []rune(sample)
		if len(runes) > maxSampleRunes {
			runes = runes[:maxSampleRunes]
		}
		if lang, ok := langDetector().DetectLanguageOf(string(runes)); ok {
			return strings.ToLower(lang.IsoCode639_1().String())
		}
	}

	if doc != nil {
		if code := declaredLanguage(doc); code != "" {
			return code
		}
	}
	return "en"
}

// declaredLanguage checks <html lang>, xml:lang, the content-language meta
// tag, and og:locale, trimmed to a two-letter prefix.
func declaredLanguage(doc *goquery.Document) string {
	candidates := []string{
		doc.Find("html").AttrOr("lang", ""),
		doc.Find("html").AttrOr("xml:lang", ""),
		doc.Find(`meta[http-equiv="content-language" i]`).AttrOr("content", ""),
		doc.Find(`meta[property="og:locale"]`).AttrOr("content", ""),
	}
	for _, raw := range candidates {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		code := nonLetterRe.ReplaceAllString(strings.SplitN(raw, "-", 2)[0], "")
		if len(code) == 2 {
			return code
		}
	}
	return ""
}
