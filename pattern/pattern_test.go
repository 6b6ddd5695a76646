package pattern

import (
	"strings"
	"testing"
)

func TestApplyHTMLRemovesScriptAndNav(t *testing.T) {
	in := `<p>Beam lifetime improved.</p><script>var x = 1;</script><nav><a href="/a">A</a></nav><style>p{}</style>`
	got := ApplyHTML(in)
	if !strings.Contains(got, "Beam lifetime improved.") {
		t.Fatalf("content paragraph lost: %q", got)
	}
	for _, bad := range []string{"script", "var x", "nav", "style"} {
		if strings.Contains(got, bad) {
			t.Errorf("ApplyHTML left %q in %q", bad, got)
		}
	}
}

func TestApplyGroupCriticalCookieBanner(t *testing.T) {
	in := `<div id="cookie-banner">We use cookies to improve things.</div><p>Kept.</p>`
	got := ApplyGroup(in, Critical)
	if strings.Contains(got, "We use cookies") {
		t.Errorf("cookie banner survived: %q", got)
	}
	if !strings.Contains(got, "Kept.") {
		t.Errorf("content paragraph removed: %q", got)
	}
}

func TestApplyGroupSpecializedBoilerplate(t *testing.T) {
	in := "Results below. A Research Centre of the Helmholtz Association"
	got := ApplyGroup(in, Specialized)
	if strings.Contains(got, "Helmholtz") {
		t.Errorf("boilerplate phrase survived: %q", got)
	}
	if !strings.Contains(got, "Results below.") {
		t.Errorf("content lost: %q", got)
	}
}

func TestApplyTextDropsChrome(t *testing.T) {
	got := ApplyText("Navigation  results from the  test  run")
	want := "results from the test run"
	if got != want {
		t.Errorf("ApplyText = %q, want %q", got, want)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := " a b  c\n\n\td "
	if got, want := CollapseWhitespace(in), "a b c d"; got != want {
		t.Errorf("CollapseWhitespace = %q, want %q", got, want)
	}
}

func TestNormalize(t *testing.T) {
	if got, want := Normalize("  The  BEAM\nStatus "), "the beam status"; got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestDedupDOIs(t *testing.T) {
	in := "See 10.1103/PhysRevLett.126.104801 and again 10.1103/PhysRevLett.126.104801 but 10.1000/xyz123 stays."
	got := DedupDOIs(in)
	if n := strings.Count(got, "10.1103/PhysRevLett.126.104801"); n != 1 {
		t.Errorf("duplicate DOI count = %d, want 1 in %q", n, got)
	}
	if !strings.Contains(got, "10.1000/xyz123") {
		t.Errorf("distinct DOI removed: %q", got)
	}
}

func TestStripTags(t *testing.T) {
	got := CollapseWhitespace(StripTags("<p>one</p><div>two</div>"))
	if want := "one two"; got != want {
		t.Errorf("StripTags = %q, want %q", got, want)
	}
}

func TestGroupString(t *testing.T) {
	if got := Critical.String(); got != "critical" {
		t.Errorf("Critical.String() = %q", got)
	}
	if got := TextCleanup.String(); got != "text-cleanup" {
		t.Errorf("TextCleanup.String() = %q", got)
	}
}
