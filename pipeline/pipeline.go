// Package pipeline orchestrates the fetch, extract, and chunk stages across
// a bounded worker pool, tracking shared dedup state and producing the three
// chunk streams plus the run reports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/webchunk/chunker"
	"github.com/hazyhaar/webchunk/extract"
	"github.com/hazyhaar/webchunk/fetcher"
	"github.com/hazyhaar/webchunk/urlmap"
)

// PageFetcher retrieves one page. *fetcher.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Result, error)
}

// Config configures a Pipeline.
type Config struct {
	Fetcher PageFetcher

	// ChunkSize and ChunkOverlap tune the character splitter. Zero means
	// the chunker defaults.
	ChunkSize    int
	ChunkOverlap int

	// ContentTags adds site-specific extraction selectors.
	ContentTags []string

	// BatchSize is how many URLs enter one scheduling round. Default:
	// min(30, 2×workers).
	BatchSize int

	// Workers caps concurrent page jobs. Zero sizes the pool from the
	// machine: min(2 per CPU, CPUs per 2 GiB of RAM, 200).
	Workers int

	// Progress draws a terminal progress bar.
	Progress bool

	// State carries the shared run state. Nil means a fresh one. Passing
	// it in lets the caller hand the same state to the fetcher as its
	// redirect recorder.
	State *State

	Logger *slog.Logger
}

func (c *Config) defaults() error {
	if c.Fetcher == nil {
		return fmt.Errorf("pipeline: fetcher is required")
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 2 * c.Workers
		if c.BatchSize > 30 {
			c.BatchSize = 30
		}
	}
	if c.State == nil {
		c.State = NewState()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// DefaultWorkers sizes the pool from CPU count and installed RAM, capped at
// 200 so a large host doesn't hammer the target sites.
func DefaultWorkers() int {
	cpus := runtime.NumCPU()
	workers := 2 * cpus
	if vm, err := mem.VirtualMemory(); err == nil {
		ramGB := int(vm.Total >> 30)
		if byRAM := (ramGB / 2) * cpus; byRAM > 0 && byRAM < workers {
			workers = byRAM
		}
	}
	if workers > 200 {
		workers = 200
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// RenderSlots is the browser-context budget matching a worker pool: at least
// four, otherwise a sixth of the workers.
func RenderSlots(workers int) int {
	slots := workers / 6
	if slots < 4 {
		slots = 4
	}
	return slots
}

// Results holds the three chunk streams and the run-level records.
type Results struct {
	Character  []chunker.Document
	Structural []chunker.Document
	FullText   []chunker.Document
	Errors     map[string]string
	Redirects  map[string]string
	PageCounts map[string]PageCount
	Attempted  int
}

// Pipeline runs tasks through fetch, extract, and the three chunkers.
type Pipeline struct {
	cfg   Config
	chk   chunker.Chunker
	ex    extract.Extractor
	state *State

	mu   sync.Mutex
	res  Results
	done int
}

// New creates a Pipeline with fresh state.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.defaults(); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:   cfg,
		chk:   chunker.Chunker{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
		ex:    extract.Extractor{ContentTags: cfg.ContentTags},
		state: cfg.State,
	}, nil
}

// State exposes the shared run state, letting the fetcher record redirects.
func (p *Pipeline) State() *State { return p.state }

// Run processes all tasks in batches and returns the accumulated results.
// Individual page failures are recorded, never fatal; only context
// cancellation aborts the run.
func (p *Pipeline) Run(ctx context.Context, tasks []urlmap.Task) (*Results, error) {
	var bar *progressbar.ProgressBar
	if p.cfg.Progress {
		bar = progressbar.NewOptions(len(tasks),
			progressbar.OptionSetDescription("processing"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for start := 0; start < len(tasks); start += p.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + p.cfg.BatchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batch := tasks[start:end]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Workers)
		for _, t := range batch {
			t := t
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						p.cfg.Logger.Error("worker panic", "url", t.URL, "panic", r)
						p.state.RecordError(t.URL, "panic")
					}
					if bar != nil {
						bar.Add(1)
					}
				}()
				p.processTask(gctx, t)
				return nil
			})
		}
		g.Wait()

		p.cfg.Logger.Info("batch done",
			"from", start, "to", end, "total", len(tasks))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.res.Errors = p.state.snapshotErrors()
	p.res.Redirects = p.state.snapshotRedirects()
	p.res.PageCounts = p.state.snapshotPageCounts()
	p.res.Attempted = p.done
	out := p.res
	return &out, nil
}

// processTask runs one URL end to end. All failure paths end in RecordError;
// success appends to the three streams and caches the chunk set.
func (p *Pipeline) processTask(ctx context.Context, t urlmap.Task) {
	p.mu.Lock()
	p.done++
	p.mu.Unlock()

	if docs, ok := p.state.Cached(t.URL); ok {
		p.appendDocs(docs)
		return
	}
	if p.state.IsProcessed(t.URL) {
		return
	}

	res, err := p.cfg.Fetcher.Fetch(ctx, t.URL)
	if err != nil {
		if errors.Is(err, fetcher.ErrRedirectProcessed) {
			p.state.MarkProcessed(t.URL)
			return
		}
		reason := fetcher.Reason(err)
		p.state.RecordError(t.URL, reason)
		p.cfg.Logger.Debug("page failed", "url", t.URL, "reason", reason)
		return
	}

	content, sample := p.ex.Extract(res.Doc)
	title := extract.Title(res.Doc)
	language := extract.DetectLanguage(res.Doc, sample, res.FinalURL)

	// Pages below the chunk floor never enter the page-count record.
	if len(content) >= chunker.MinChunkChars {
		p.state.RecordPage(t.URL, PageCount{
			Characters: len(content),
			Language:   language,
			Title:      title,
			Depth:      t.Depth,
		})
	}

	meta := chunker.Metadata{
		Source:   t.URL,
		Title:    title,
		Depth:    t.Depth,
		Language: language,
	}

	charDocs := p.chk.Character(content, meta, p.state.ChunkRegistry())
	structDocs := p.chk.Structural(res.Doc, t.URL, t.Depth, language, p.state.ChunkRegistry())
	fullDocs := chunker.FullText(content, meta, p.state.FullTextRegistry())

	all := make([]chunker.Document, 0, len(charDocs)+len(structDocs)+len(fullDocs))
	all = append(all, charDocs...)
	all = append(all, structDocs...)
	all = append(all, fullDocs...)
	p.state.CacheDocuments(t.URL, all)
	p.appendDocs(all)

	p.state.MarkProcessed(t.URL)
	if res.FinalURL != "" && res.FinalURL != t.URL {
		p.state.MarkProcessed(res.FinalURL)
	}

	p.cfg.Logger.Debug("page done",
		"url", t.URL,
		"characters", len(content),
		"language", language,
		"chunks", len(all),
		"rendered", res.Rendered)
}

// appendDocs routes documents into the per-type streams.
func (p *Pipeline) appendDocs(docs []chunker.Document) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range docs {
		switch d.Meta.ChunkType {
		case chunker.TypeStructural:
			p.res.Structural = append(p.res.Structural, d)
		case chunker.TypeFullText:
			p.res.FullText = append(p.res.FullText, d)
		default:
			p.res.Character = append(p.res.Character, d)
		}
	}
}
