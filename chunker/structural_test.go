package chunker

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestStructuralSelectorPass(t *testing.T) {
	doc := mustDoc(t, `<html><head><title>Machine Report</title></head><body>
		<section>
			<h2>Orbit Stability</h2>
			<p>The closed orbit stayed within tolerance for the whole shift.</p>
		</section>
	</body></html>`)

	c := Chunker{Size: 500, Overlap: 75}
	docs := c.Structural(doc, "https://example.org/report", 1, "en", MapRegistry{})
	if len(docs) == 0 {
		t.Fatal("no structural chunks")
	}
	d := docs[0]
	if d.Meta.ChunkType != TypeStructural {
		t.Errorf("chunk type = %q, want %q", d.Meta.ChunkType, TypeStructural)
	}
	if d.Meta.SectionTitle != "Orbit Stability" {
		t.Errorf("section title = %q, want %q", d.Meta.SectionTitle, "Orbit Stability")
	}
	if !strings.Contains(d.Content, "closed orbit stayed within tolerance") {
		t.Errorf("section text missing: %q", d.Content)
	}
	if d.Meta.Depth != 1 || d.Meta.Language != "en" {
		t.Errorf("metadata = %+v", d.Meta)
	}
}

func TestStructuralSectionClaimsSubtreeOnce(t *testing.T) {
	doc := mustDoc(t, `<body><section>
		<p>Cryogenic plant performance matched the winter projections.</p>
	</section></body>`)

	c := Chunker{}
	docs := c.Structural(doc, "u", 0, "en", MapRegistry{})
	total := 0
	for _, d := range docs {
		total += strings.Count(d.Content, "winter projections")
	}
	if total != 1 {
		t.Errorf("subtree text emitted %d times, want 1", total)
	}
}

func TestStructuralHeadingPass(t *testing.T) {
	// Every element is at or under the initial-size floor, so the selector
	// pass emits nothing and the heading hierarchy takes over.
	doc := mustDoc(t, `<body>
		<h2>Weekly summary</h2>
		<p>beam study item aa</p>
		<p>beam study item bb</p>
		<p>beam study item cc</p>
	</body>`)

	c := Chunker{}
	docs := c.Structural(doc, "u", 0, "en", MapRegistry{})
	if len(docs) == 0 {
		t.Fatal("heading pass emitted nothing")
	}
	d := docs[0]
	if d.Meta.SectionTitle != "Weekly summary" {
		t.Errorf("section title = %q", d.Meta.SectionTitle)
	}
	if d.Meta.SectionLevel != 2 {
		t.Errorf("section level = %d, want 2", d.Meta.SectionLevel)
	}
	if !strings.Contains(d.Content, "beam study item aa") {
		t.Errorf("content missing: %q", d.Content)
	}
}

func TestStructuralWholeBodyFallback(t *testing.T) {
	doc := mustDoc(t, `<body>bare body text describing a run without any markup structure at all</body>`)

	c := Chunker{}
	docs := c.Structural(doc, "u", 0, "en", MapRegistry{})
	if len(docs) != 1 {
		t.Fatalf("docs = %d, want 1", len(docs))
	}
	if docs[0].Meta.SectionLevel != 0 {
		t.Errorf("section level = %d, want 0", docs[0].Meta.SectionLevel)
	}
	if !strings.Contains(docs[0].Content, "bare body text") {
		t.Errorf("content = %q", docs[0].Content)
	}
}

func TestStructuralRejectsLoginAndErrorPages(t *testing.T) {
	login := mustDoc(t, `<body><form action="/login"><input name="password" type="password"></form></body>`)
	c := Chunker{}
	if docs := c.Structural(login, "u", 0, "en", MapRegistry{}); docs != nil {
		t.Errorf("login page produced %d chunks", len(docs))
	}
	if docs := c.Structural(nil, "u", 0, "en", MapRegistry{}); docs != nil {
		t.Errorf("nil document produced %d chunks", len(docs))
	}
}
