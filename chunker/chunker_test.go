package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCharacterShortTextSingleChunk(t *testing.T) {
	c := Chunker{Size: 500, Overlap: 75}
	text := "The vacuum system held pressure during the full test cycle."
	docs := c.Character(text, Metadata{Source: "u"}, MapRegistry{})
	if len(docs) != 1 {
		t.Fatalf("docs = %d, want 1", len(docs))
	}
	d := docs[0]
	if d.Content != text {
		t.Errorf("content = %q, want %q", d.Content, text)
	}
	if d.Meta.ChunkType != TypeCharacter {
		t.Errorf("chunk type = %q, want %q", d.Meta.ChunkType, TypeCharacter)
	}
	if d.Meta.ChunkIndex != 0 || d.Meta.TotalChunks != 1 || d.Meta.Continued {
		t.Errorf("metadata = %+v", d.Meta)
	}
}

func TestCharacterBelowFloorYieldsNothing(t *testing.T) {
	c := Chunker{}
	if docs := c.Character(strings.Repeat("a", MinChunkChars-1), Metadata{}, MapRegistry{}); docs != nil {
		t.Errorf("29-char text produced %d docs", len(docs))
	}
	if docs := c.Character(strings.Repeat("a", MinChunkChars), Metadata{}, MapRegistry{}); len(docs) != 1 {
		t.Errorf("30-char text produced %d docs, want 1", len(docs))
	}
}

func TestCharacterEmptyAfterCleaningYieldsNothing(t *testing.T) {
	c := Chunker{}
	// Every word here is site chrome the text cleanup removes.
	text := "Navigation Home Login Kontakt Suche Startseite Anmelden"
	if docs := c.Character(text, Metadata{}, MapRegistry{}); docs != nil {
		t.Errorf("chrome-only text produced %d docs", len(docs))
	}
}

func TestCharacterGlobalDedup(t *testing.T) {
	c := Chunker{}
	seen := MapRegistry{}
	text := "Identical page body text appearing under two different URLs."
	first := c.Character(text, Metadata{Source: "a"}, seen)
	second := c.Character(text, Metadata{Source: "b"}, seen)
	if len(first) != 1 {
		t.Fatalf("first = %d docs, want 1", len(first))
	}
	if len(second) != 0 {
		t.Errorf("second = %d docs, want 0 (deduplicated)", len(second))
	}
}

func TestCharacterWindowsLongText(t *testing.T) {
	sentences := []string{
		"The first measurement campaign finished with excellent orbit stability.",
		"A second campaign probed the interaction region under higher currents.",
		"Later shifts examined coupling corrections near the injection septum.",
		"Final runs validated the new feedback loop across every fill pattern.",
	}
	text := strings.Join(sentences, " ")

	c := Chunker{Size: 120, Overlap: 30}
	docs := c.Character(text, Metadata{Source: "u"}, MapRegistry{})
	if len(docs) < 2 {
		t.Fatalf("docs = %d, want several", len(docs))
	}
	for i, d := range docs {
		if len(d.Content) > 120 {
			t.Errorf("chunk %d is %d chars, over the window", i, len(d.Content))
		}
		if d.Meta.TotalChunks != len(docs) {
			t.Errorf("chunk %d total = %d, want %d", i, d.Meta.TotalChunks, len(docs))
		}
		if (d.Meta.ChunkIndex > 0) != d.Meta.Continued {
			t.Errorf("chunk %d continued = %v at index %d", i, d.Meta.Continued, d.Meta.ChunkIndex)
		}
	}
	if !strings.Contains(docs[0].Content, "first measurement campaign") {
		t.Errorf("first chunk lost the opening: %q", docs[0].Content)
	}
	if !strings.Contains(docs[len(docs)-1].Content, "fill pattern") {
		t.Errorf("last chunk lost the ending: %q", docs[len(docs)-1].Content)
	}
}

// overlapLen is the longest suffix of a that is also a prefix of b.
func overlapLen(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(a, b[:n]) {
			return n
		}
	}
	return 0
}

func TestCharacterOverlapBounded(t *testing.T) {
	// A body one character past two windows must yield at most three
	// chunks, and consecutive chunks share at most Overlap characters.
	s1 := strings.Repeat("word ", 17) + "stop."
	s2 := strings.Repeat("word ", 16) + "stop."
	text := s1 + " " + s2 + " " + "final words in the tail."
	if len(text) != 201 {
		t.Fatalf("body length = %d, want 201", len(text))
	}

	c := Chunker{Size: 100, Overlap: 20}
	docs := c.Character(text, Metadata{Source: "u"}, MapRegistry{})
	if len(docs) < 2 || len(docs) > 3 {
		t.Fatalf("docs = %d, want 2 or 3", len(docs))
	}
	for i := 1; i < len(docs); i++ {
		if n := overlapLen(docs[i-1].Content, docs[i].Content); n > 20 {
			t.Errorf("chunks %d and %d share %d chars, overlap cap is 20", i-1, i, n)
		}
	}
}

func TestSplitBySizePrefersSentenceBoundary(t *testing.T) {
	text := "Alpha beta gamma delta epsilon zeta eta theta ends. Second sentence continues with more and more words until it finally stops."
	pieces := splitBySize(text, 60, 15, 10)
	if len(pieces) < 2 {
		t.Fatalf("pieces = %d, want at least 2", len(pieces))
	}
	if !strings.HasSuffix(pieces[0], ".") {
		t.Errorf("first piece does not end at a sentence: %q", pieces[0])
	}
}

func TestSplitBySizeUTF8Safe(t *testing.T) {
	text := strings.Repeat("Überprüfung der Strahlführung läuft weiter ohne Störung ", 6)
	pieces := splitBySize(text, 100, 20, 30)
	for i, p := range pieces {
		if !utf8.ValidString(p) {
			t.Errorf("piece %d is not valid UTF-8: %q", i, p)
		}
	}
}
