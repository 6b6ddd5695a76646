// Package chunker splits cleaned page text into the three chunk families
// (character, structural, full_text) with provenance metadata, deduplicating
// against run-wide content-hash pools.
package chunker

// Chunk families.
const (
	TypeCharacter  = "character"
	TypeStructural = "structural"
	TypeFullText   = "full_text"
)

// MinChunkChars is the emission floor for any chunk family.
const MinChunkChars = 30

// MinInitialChars is the structural chunker's floor for considering an
// element's visible text at all.
const MinInitialChars = 20

// Metadata is the provenance record attached to every chunk.
type Metadata struct {
	Source       string `json:"source"`
	Title        string `json:"title"`
	Depth        int    `json:"depth"`
	Language     string `json:"language"`
	ChunkType    string `json:"chunk_type"`
	ChunkIndex   int    `json:"chunk_index"`
	TotalChunks  int    `json:"total_chunks"`
	SectionTitle string `json:"section_title,omitempty"`
	SectionLevel int    `json:"section_level,omitempty"`
	Continued    bool   `json:"continued,omitempty"`
}

// Document is one emitted chunk: non-empty content plus metadata.
type Document struct {
	Content string   `json:"content"`
	Meta    Metadata `json:"metadata"`
}

// Registry is the run-wide content-hash pool a chunk family dedups against.
// Remember records a hash and reports whether it was new. The character and
// full-text families use separate pools; they must not dedup against each
// other.
type Registry interface {
	Remember(hash string) bool
}

// MapRegistry is a plain in-memory Registry for tests and single-shot use.
type MapRegistry map[string]bool

func (m MapRegistry) Remember(hash string) bool {
	if m[hash] {
		return false
	}
	m[hash] = true
	return true
}
