package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/webchunk/cleaner"
	"github.com/hazyhaar/webchunk/pattern"
)

// Chunker produces character-family chunks with sentence-aware boundaries.
type Chunker struct {
	// Size is the window size in characters. Default: 1000.
	Size int
	// Overlap is the window overlap in characters. Default: 200.
	Overlap int
}

func (c *Chunker) defaults() {
	if c.Size <= 0 {
		c.Size = 1000
	}
	if c.Overlap <= 0 {
		c.Overlap = 200
	}
}

// Character splits text into character-family chunks. Splitting runs on the
// text as given; the cleaned form only gates emptiness and feeds the global
// dedup. This asymmetry preserves parity with downstream expectations.
func (c *Chunker) Character(text string, meta Metadata, seen Registry) []Document {
	return c.chunks(text, meta, TypeCharacter, seen)
}

// chunks is shared by the character and structural families: both window
// the text the same way and differ only in chunk type.
func (c *Chunker) chunks(text string, meta Metadata, chunkType string, seen Registry) []Document {
	c.defaults()
	if len(strings.TrimSpace(text)) < MinChunkChars {
		return nil
	}
	if cleaner.Clean(text) == "" {
		return nil
	}

	pieces := splitBySize(text, c.Size, c.Overlap, MinChunkChars)
	total := len(pieces)

	fingerprints := make(map[string]bool)
	var docs []Document
	for i, piece := range pieces {
		fp := hashMD5(pattern.Normalize(piece) + meta.SectionTitle)
		if fingerprints[fp] {
			continue
		}
		fingerprints[fp] = true

		if !seen.Remember(hashMD5(piece)) {
			continue
		}

		m := meta
		m.ChunkType = chunkType
		m.ChunkIndex = i
		m.TotalChunks = total
		m.Continued = i > 0
		docs = append(docs, Document{Content: piece, Meta: m})
	}
	return docs
}

var sentenceEndRe = regexp.MustCompile(`[.!?]\s+|[.!?]$|\n\s*\n`)

// splitBySize advances a window of at most maxSize characters, preferring to
// end on a sentence terminator found in the rightmost 30% of the window,
// falling back to the last space. Consecutive windows overlap by overlap
// characters, nudged to the next word boundary.
func splitBySize(text string, maxSize, overlap, minChars int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}

	minChunk := maxSize / 2
	if maxSize-overlap > minChunk {
		minChunk = maxSize - overlap
	}

	var chunks []string
	n := len(text)
	start := 0
	for start < n {
		end := start + maxSize
		if end > n {
			end = n
		}
		if end < n {
			searchStart := end - maxSize*3/10
			if searchStart < start+minChunk {
				searchStart = start + minChunk
			}
			zone := text[searchStart:end]
			if locs := sentenceEndRe.FindAllStringIndex(zone, -1); len(locs) > 0 {
				last := locs[len(locs)-1]
				matched := zone[last[0]:last[1]]
				// Keep the terminator, drop the trailing whitespace.
				end = searchStart + last[1] - len(strings.TrimLeft(matched, ".!?"))
			} else if sp := strings.LastIndexByte(text[searchStart:end], ' '); sp >= 0 && searchStart+sp > start {
				end = searchStart + sp
			}
			end = alignRune(text, end)
		}

		chunk := strings.TrimSpace(text[start:end])
		if len(chunk) >= minChars {
			chunks = append(chunks, chunk)
		}
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + minChunk
		} else if sp := strings.IndexByte(text[next:], ' '); sp >= 0 && next+sp < end {
			next = next + sp + 1
		}
		start = alignRune(text, next)
	}
	return chunks
}

// alignRune backs an index off to the nearest rune boundary.
func alignRune(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func hashMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
