package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazyhaar/webchunk/chunker"
)

// pageReport is the shape of page_character_counts_final.json.
type pageReport struct {
	Pages   map[string]PageCount `json:"pages"`
	Errors  map[string]string    `json:"errors,omitempty"`
	Summary pageSummary          `json:"summary"`
}

type pageSummary struct {
	TotalPages      int            `json:"total_pages"`
	TotalCharacters int            `json:"total_characters"`
	FailedPages     int            `json:"failed_pages"`
	Languages       map[string]int `json:"languages"`
}

// WriteReports writes the run reports into dir: the redirect map when any
// redirect was seen, and the page-count report when at least one URL was
// attempted.
func (r *Results) WriteReports(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pipeline: create %s: %w", dir, err)
	}

	if len(r.Redirects) > 0 {
		if err := writeJSON(filepath.Join(dir, "redirected_urls.json"), r.Redirects); err != nil {
			return err
		}
	}

	if r.Attempted == 0 {
		return nil
	}
	report := pageReport{
		Pages:  r.PageCounts,
		Errors: r.Errors,
		Summary: pageSummary{
			TotalPages:  len(r.PageCounts),
			FailedPages: len(r.Errors),
			Languages:   make(map[string]int),
		},
	}
	for _, pc := range r.PageCounts {
		report.Summary.TotalCharacters += pc.Characters
		report.Summary.Languages[pc.Language]++
	}
	return writeJSON(filepath.Join(dir, "page_character_counts_final.json"), report)
}

// WriteDocuments serializes one chunk stream as a JSON array of
// {content, metadata} objects.
func WriteDocuments(path string, docs []chunker.Document) error {
	type entry struct {
		Content  string           `json:"content"`
		Metadata chunker.Metadata `json:"metadata"`
	}
	out := make([]entry, len(docs))
	for i, d := range docs {
		out[i] = entry{Content: d.Content, Metadata: d.Meta}
	}
	return writeJSON(path, out)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("pipeline: write %s: %w", path, err)
	}
	return nil
}
