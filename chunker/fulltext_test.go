package chunker

import "testing"

func TestFullTextSingleDocument(t *testing.T) {
	content := "Full page body describing the accelerator status in detail."
	docs := FullText(content, Metadata{Source: "u", Title: "T"}, MapRegistry{})
	if len(docs) != 1 {
		t.Fatalf("docs = %d, want 1", len(docs))
	}
	d := docs[0]
	if d.Content != content {
		t.Errorf("content = %q", d.Content)
	}
	if d.Meta.ChunkType != TypeFullText || d.Meta.ChunkIndex != 0 || d.Meta.TotalChunks != 1 {
		t.Errorf("metadata = %+v", d.Meta)
	}
}

func TestFullTextDedupAcrossURLs(t *testing.T) {
	seen := MapRegistry{}
	content := "Identical body served under two different addresses this week."
	if docs := FullText(content, Metadata{Source: "a"}, seen); len(docs) != 1 {
		t.Fatalf("first call = %d docs, want 1", len(docs))
	}
	if docs := FullText(content, Metadata{Source: "b"}, seen); docs != nil {
		t.Errorf("second call = %d docs, want 0", len(docs))
	}
}

func TestFullTextBelowFloor(t *testing.T) {
	if docs := FullText("too short", Metadata{}, MapRegistry{}); docs != nil {
		t.Errorf("short body produced %d docs", len(docs))
	}
}
