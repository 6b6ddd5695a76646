// Command webchunk fetches the URLs listed in one or more URL-map files,
// extracts and cleans their content, and writes three chunk streams plus the
// run reports as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hazyhaar/webchunk/fetcher"
	"github.com/hazyhaar/webchunk/hostcfg"
	"github.com/hazyhaar/webchunk/pipeline"
	"github.com/hazyhaar/webchunk/render"
	"github.com/hazyhaar/webchunk/urlmap"
)

// stringList is a repeatable flag value.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var urlMaps stringList
	flag.Var(&urlMaps, "url-map", "URL-map JSON file (repeatable; earlier files win on conflicts)")
	maxDepth := flag.Int("max-depth", 2, "deepest depth level taken from depth-keyed URL maps")
	batchSize := flag.Int("batch-size", 50, "URLs per scheduling round")
	limit := flag.Int("limit", 0, "process at most this many URLs (0 = all)")
	chunkSize := flag.Int("chunk-size", 500, "character chunk size")
	chunkOverlap := flag.Int("chunk-overlap", 75, "character chunk overlap")
	workers := flag.Int("workers", 0, "concurrent page jobs (0 = size from the machine)")
	hostsPath := flag.String("hosts", "", "per-host config YAML (empty = built-in defaults)")
	contentTags := flag.String("content-tags", "", "extra extraction selectors, comma separated")
	remoteBrowser := flag.String("remote-browser", "", "WebSocket URL of an external Chrome (empty = launch one)")
	scroll := flag.Bool("scroll", false, "scroll rendered pages to trigger lazy content")
	progress := flag.Bool("progress", true, "draw a progress bar")
	outDir := flag.String("out-dir", "out", "output directory")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	if err := run(urlMaps, *maxDepth, *batchSize, *limit, *chunkSize, *chunkOverlap,
		*workers, *hostsPath, *contentTags, *remoteBrowser, *scroll, *progress,
		*outDir, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(urlMaps []string, maxDepth, batchSize, limit, chunkSize, chunkOverlap,
	workers int, hostsPath, contentTags, remoteBrowser string,
	scroll, progress bool, outDir string, logger *slog.Logger) error {

	if len(urlMaps) == 0 {
		return fmt.Errorf("at least one -url-map is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hosts := hostcfg.Defaults()
	if hostsPath != "" {
		var err error
		hosts, err = hostcfg.Load(hostsPath)
		if err != nil {
			return err
		}
	}

	tasks, err := urlmap.Merge(urlMaps, maxDepth)
	if err != nil {
		return err
	}
	tasks = urlmap.Limit(tasks, limit)
	logger.Info("task list ready", "urls", len(tasks), "maps", len(urlMaps))

	if workers <= 0 {
		workers = pipeline.DefaultWorkers()
	}

	backend := render.New(render.Config{
		RemoteURL:     remoteBrowser,
		MaxConcurrent: pipeline.RenderSlots(workers),
		Hosts:         hosts,
		Scroll:        scroll,
		Logger:        logger,
	})
	defer backend.Close()

	state := pipeline.NewState()
	f := fetcher.New(fetcher.Config{
		Hosts:    hosts,
		Renderer: backend,
		Recorder: state,
		Logger:   logger,
	})

	var tags []string
	if contentTags != "" {
		for _, t := range strings.Split(contentTags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	pipe, err := pipeline.New(pipeline.Config{
		Fetcher:      f,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		ContentTags:  tags,
		BatchSize:    batchSize,
		Workers:      workers,
		Progress:     progress,
		State:        state,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	results, err := pipe.Run(ctx, tasks)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}
	if err := pipeline.WriteDocuments(filepath.Join(outDir, "chunks_character.json"), results.Character); err != nil {
		return err
	}
	if err := pipeline.WriteDocuments(filepath.Join(outDir, "chunks_structural.json"), results.Structural); err != nil {
		return err
	}
	if err := pipeline.WriteDocuments(filepath.Join(outDir, "chunks_full_text.json"), results.FullText); err != nil {
		return err
	}
	if err := results.WriteReports(outDir); err != nil {
		return err
	}

	logger.Info("run complete",
		"attempted", results.Attempted,
		"character_chunks", len(results.Character),
		"structural_chunks", len(results.Structural),
		"full_text_chunks", len(results.FullText),
		"errors", len(results.Errors),
		"redirects", len(results.Redirects))
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
