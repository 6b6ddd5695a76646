// Package urlmap decodes input URL maps into a uniform (url, depth) task
// list. Three JSON shapes are accepted:
//
//  1. {"urls_by_depth": {"0": [...], "1": [...]}} — depth-keyed lists
//  2. {"https://...": {...}, ...}                 — URL-keyed metadata, depth 0
//  3. ["https://...", ...]                        — flat list, depth 0
//
// Depth keys are expanded in ascending numeric order up to the configured
// maximum; non-numeric keys are ignored; when a URL appears at several
// depths the shallowest wins; first occurrence order is preserved.
package urlmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Task is one unit of scheduled work: a URL and its discovery depth.
type Task struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// Decode parses one URL map and returns deduplicated tasks.
func Decode(data []byte, maxDepth int) ([]Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("urlmap: empty input")
	}

	if trimmed[0] == '[' {
		var urls []string
		if err := json.Unmarshal(trimmed, &urls); err != nil {
			return nil, fmt.Errorf("urlmap: decode list: %w", err)
		}
		return dedup(flatTasks(urls)), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("urlmap: decode object: %w", err)
	}

	if raw, ok := obj["urls_by_depth"]; ok {
		var byDepth map[string][]string
		if err := json.Unmarshal(raw, &byDepth); err != nil {
			return nil, fmt.Errorf("urlmap: decode urls_by_depth: %w", err)
		}
		var tasks []Task
		for depth := 0; depth <= maxDepth; depth++ {
			for _, u := range byDepth[strconv.Itoa(depth)] {
				tasks = append(tasks, Task{URL: u, Depth: depth})
			}
		}
		return dedup(tasks), nil
	}

	// URL-keyed object: the values are opaque metadata. Key order is not
	// preserved by the decoder, so sort for a stable task list.
	urls := make([]string, 0, len(obj))
	for u := range obj {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return dedup(flatTasks(urls)), nil
}

// Load reads and decodes one URL-map file.
func Load(path string, maxDepth int) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("urlmap: read %s: %w", path, err)
	}
	return Decode(data, maxDepth)
}

// Merge loads several map files with first-file priority: a URL keeps the
// shallowest depth seen, and files earlier in the list win ties on order.
func Merge(paths []string, maxDepth int) ([]Task, error) {
	var merged []Task
	index := make(map[string]int)
	for _, path := range paths {
		tasks, err := Load(path, maxDepth)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			if i, ok := index[t.URL]; ok {
				if t.Depth < merged[i].Depth {
					merged[i].Depth = t.Depth
				}
				continue
			}
			index[t.URL] = len(merged)
			merged = append(merged, t)
		}
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("urlmap: no URLs in %v", paths)
	}
	return merged, nil
}

// Limit truncates the task list, preserving order. A non-positive limit is
// a no-op.
func Limit(tasks []Task, limit int) []Task {
	if limit > 0 && len(tasks) > limit {
		return tasks[:limit]
	}
	return tasks
}

func flatTasks(urls []string) []Task {
	tasks := make([]Task, 0, len(urls))
	for _, u := range urls {
		tasks = append(tasks, Task{URL: u})
	}
	return tasks
}

func dedup(tasks []Task) []Task {
	seen := make(map[string]bool, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		if seen[t.URL] {
			continue
		}
		seen[t.URL] = true
		out = append(out, t)
	}
	return out
}
