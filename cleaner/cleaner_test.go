package cleaner

import (
	"strings"
	"testing"
)

func TestCleanKeepsMainDropsChrome(t *testing.T) {
	in := `<html><body>
		<nav><a href="/one">One</a><a href="/two">Two</a></nav>
		<main><p>The new undulator reached design field strength.</p></main>
		<footer>Imprint and legal text</footer>
	</body></html>`
	got := Clean(in)
	if !strings.Contains(got, "undulator reached design field strength") {
		t.Fatalf("main content lost: %q", got)
	}
	for _, bad := range []string{"One", "Two", "Imprint"} {
		if strings.Contains(got, bad) {
			t.Errorf("chrome text %q survived: %q", bad, got)
		}
	}
}

func TestCleanPlainTextPassthrough(t *testing.T) {
	in := "Measurements of the beam emittance were repeated in spring."
	got := Clean(in)
	if got != in {
		t.Errorf("Clean(plain) = %q, want %q", got, in)
	}
}

func TestCleanIdempotent(t *testing.T) {
	in := `<main><p>Detector calibration finished ahead of schedule.</p></main>`
	once := Clean(in)
	twice := Clean(once)
	if once != twice {
		t.Errorf("not idempotent: %q vs %q", once, twice)
	}
}

func TestCleanRemovesCookieBannerContainer(t *testing.T) {
	in := `<body><div><p>We use cookies to personalise content.</p></div>
		<p>Accelerator operation resumed after the winter shutdown.</p></body>`
	got := Clean(in)
	if strings.Contains(strings.ToLower(got), "cookies") {
		t.Errorf("cookie banner survived: %q", got)
	}
	if !strings.Contains(got, "Accelerator operation resumed") {
		t.Errorf("content removed with banner: %q", got)
	}
}

func TestCleanRemovesDOIAnchorsAndDedups(t *testing.T) {
	in := `<main><p>Published results: <a href="https://doi.org/10.1000/x1">link</a></p>
		<p>Cited as 10.1000/abc and 10.1000/abc again.</p></main>`
	got := Clean(in)
	if strings.Contains(got, "link") {
		t.Errorf("DOI anchor text survived: %q", got)
	}
	if n := strings.Count(got, "10.1000/abc"); n != 1 {
		t.Errorf("DOI occurrences = %d, want 1 in %q", n, got)
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	in := "<main><p>alpha beta\n\n  gamma</p></main>"
	got := Clean(in)
	if want := "alpha beta gamma"; got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
}

func TestCleanEmpty(t *testing.T) {
	if got := Clean(""); got != "" {
		t.Errorf("Clean(\"\") = %q, want empty", got)
	}
}
