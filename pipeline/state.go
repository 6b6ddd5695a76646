package pipeline

import (
	"sync"

	"github.com/hazyhaar/webchunk/chunker"
)

const (
	maxProcessedURLs = 10_000
	maxHashes        = 100_000
)

// PageCount is the per-URL extraction record used for the final report.
type PageCount struct {
	Characters int    `json:"characters"`
	Language   string `json:"language"`
	Title      string `json:"title"`
	Depth      int    `json:"depth"`
}

// State is the single mutable store shared by all workers: processed URLs,
// the two dedup hash pools, redirects, per-URL errors, the document cache,
// and page counts. One mutex guards everything; operations are short.
//
// The processed set and both hash pools are bounded. On overflow half the
// entries are evicted; which half is arbitrary, so dedup across a very long
// run is best-effort.
type State struct {
	mu             sync.Mutex
	processed      map[string]bool
	chunkHashes    map[string]bool
	fullTextHashes map[string]bool
	redirects      map[string]string
	errors         map[string]string
	cache          map[string][]chunker.Document
	pageCounts     map[string]PageCount
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		processed:      make(map[string]bool),
		chunkHashes:    make(map[string]bool),
		fullTextHashes: make(map[string]bool),
		redirects:      make(map[string]string),
		errors:         make(map[string]string),
		cache:          make(map[string][]chunker.Document),
		pageCounts:     make(map[string]PageCount),
	}
}

// MarkProcessed records a URL as done.
func (s *State) MarkProcessed(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[url] = true
	if len(s.processed) > maxProcessedURLs {
		evictHalf(s.processed)
	}
}

// IsProcessed reports whether a URL was already handled.
func (s *State) IsProcessed(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[url]
}

// RememberRedirect records an observed redirect.
func (s *State) RememberRedirect(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[from] = to
}

// RecordError attaches a failure reason to a URL. Last reason wins.
func (s *State) RecordError(url, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[url] = reason
}

// RecordPage stores the extraction record for a fetched page.
func (s *State) RecordPage(url string, pc PageCount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageCounts[url] = pc
}

// CacheDocuments stores a URL's full chunk set for reuse.
func (s *State) CacheDocuments(url string, docs []chunker.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[url] = docs
}

// Cached returns the chunk set previously produced for a URL.
func (s *State) Cached(url string) ([]chunker.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.cache[url]
	return docs, ok
}

// ChunkRegistry exposes the character/structural hash pool.
func (s *State) ChunkRegistry() chunker.Registry {
	return &registry{state: s, pool: &s.chunkHashes}
}

// FullTextRegistry exposes the whole-page hash pool. It never shares entries
// with the chunk pool.
func (s *State) FullTextRegistry() chunker.Registry {
	return &registry{state: s, pool: &s.fullTextHashes}
}

// registry adapts one of the hash pools to chunker.Registry.
type registry struct {
	state *State
	pool  *map[string]bool
}

// Remember reports whether the hash is new and records it.
func (r *registry) Remember(hash string) bool {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	m := *r.pool
	if m[hash] {
		return false
	}
	m[hash] = true
	if len(m) > maxHashes {
		evictHalf(m)
	}
	return true
}

// evictHalf drops half the entries. Map iteration order is random, so the
// surviving half is arbitrary.
func evictHalf(m map[string]bool) {
	target := len(m) / 2
	for k := range m {
		if len(m) <= target {
			return
		}
		delete(m, k)
	}
}

func (s *State) snapshotRedirects() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.redirects))
	for k, v := range s.redirects {
		out[k] = v
	}
	return out
}

func (s *State) snapshotErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

func (s *State) snapshotPageCounts() map[string]PageCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]PageCount, len(s.pageCounts))
	for k, v := range s.pageCounts {
		out[k] = v
	}
	return out
}
