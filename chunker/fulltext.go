package chunker

// FullText emits the single whole-page document for a URL whose cleaned body
// meets the size floor. The body's MD5 goes into the full-text pool, which
// dedups repeated bodies across URLs and never mixes with the character pool.
func FullText(content string, meta Metadata, seen Registry) []Document {
	if len(content) < MinChunkChars {
		return nil
	}
	if !seen.Remember(hashMD5(content)) {
		return nil
	}
	meta.ChunkType = TypeFullText
	meta.ChunkIndex = 0
	meta.TotalChunks = 1
	meta.Continued = false
	return []Document{{Content: content, Meta: meta}}
}
