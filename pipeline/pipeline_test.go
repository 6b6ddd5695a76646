package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/webchunk/chunker"
	"github.com/hazyhaar/webchunk/fetcher"
	"github.com/hazyhaar/webchunk/urlmap"
)

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*fetcher.Result, error) {
	s.mu.Lock()
	s.calls[url]++
	s.mu.Unlock()
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	raw := s.pages[url]
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &fetcher.Result{HTML: raw, FinalURL: url, Doc: doc}, nil
}

func contentPage() string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>Beam Report</title></head><body><section><h2>Operations</h2>")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&sb, "<p>Shift %d delivered stable electron beam to every experimental station without interruption for the users.</p>", i)
	}
	sb.WriteString("</section></body></html>")
	return sb.String()
}

func newTestPipeline(t *testing.T, f PageFetcher) *Pipeline {
	t.Helper()
	p, err := New(Config{
		Fetcher:   f,
		BatchSize: 2,
		Workers:   1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRunProducesAllStreams(t *testing.T) {
	sf := newStubFetcher()
	url := "https://example.org/report"
	sf.pages[url] = contentPage()

	p := newTestPipeline(t, sf)
	res, err := p.Run(context.Background(), []urlmap.Task{{URL: url, Depth: 1}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Character) == 0 {
		t.Error("no character chunks")
	}
	if len(res.Structural) == 0 {
		t.Error("no structural chunks")
	}
	if len(res.FullText) != 1 {
		t.Errorf("full-text chunks = %d, want 1", len(res.FullText))
	}
	pc, ok := res.PageCounts[url]
	if !ok {
		t.Fatal("no page count recorded")
	}
	if pc.Characters == 0 || pc.Title != "Beam Report" || pc.Depth != 1 {
		t.Errorf("page count = %+v", pc)
	}
	if pc.Language != "en" {
		t.Errorf("language = %q, want en", pc.Language)
	}
	for _, d := range res.Character {
		if d.Meta.Source != url || d.Meta.ChunkType != chunker.TypeCharacter {
			t.Errorf("bad chunk metadata: %+v", d.Meta)
		}
	}
}

func TestRunRecordsFailureReasons(t *testing.T) {
	sf := newStubFetcher()
	bad := "https://example.org/missing"
	sf.errs[bad] = &fetcher.Error{Reason: "http-status:404"}

	p := newTestPipeline(t, sf)
	res, err := p.Run(context.Background(), []urlmap.Task{{URL: bad}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := res.Errors[bad]; got != "http-status:404" {
		t.Errorf("error reason = %q", got)
	}
	if len(res.Character)+len(res.Structural)+len(res.FullText) != 0 {
		t.Error("failed page produced chunks")
	}
}

func TestRunServesRepeatsFromCache(t *testing.T) {
	sf := newStubFetcher()
	url := "https://example.org/report"
	sf.pages[url] = contentPage()

	p, err := New(Config{Fetcher: sf, BatchSize: 1, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Run(context.Background(), []urlmap.Task{{URL: url}, {URL: url}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sf.calls[url] != 1 {
		t.Errorf("fetch calls = %d, want 1 (second visit from cache)", sf.calls[url])
	}
	if len(res.FullText) != 2 {
		t.Errorf("full-text emissions = %d, want 2 (cache replays the set)", len(res.FullText))
	}
}

func TestRunSkipsRedirectToProcessed(t *testing.T) {
	sf := newStubFetcher()
	url := "https://example.org/moved"
	sf.errs[url] = fetcher.ErrRedirectProcessed

	p := newTestPipeline(t, sf)
	res, err := p.Run(context.Background(), []urlmap.Task{{URL: url}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, found := res.Errors[url]; found {
		t.Error("redirect short-circuit recorded as an error")
	}
	if !p.State().IsProcessed(url) {
		t.Error("redirected URL not marked processed")
	}
}

func TestRunTinyBodyYieldsNoChunks(t *testing.T) {
	sf := newStubFetcher()
	url := "https://example.org/tiny"
	sf.pages[url] = "<html><body><p>ten chars.</p></body></html>"

	p := newTestPipeline(t, sf)
	res, err := p.Run(context.Background(), []urlmap.Task{{URL: url}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(res.Character) + len(res.Structural) + len(res.FullText); n != 0 {
		t.Errorf("tiny page produced %d chunks", n)
	}
	if _, ok := res.PageCounts[url]; ok {
		t.Error("sub-minimum page entered the page counts")
	}
	if _, failed := res.Errors[url]; failed {
		t.Error("tiny page recorded as an error")
	}
	if !p.State().IsProcessed(url) {
		t.Error("tiny page not marked processed")
	}
}

func TestWorkerSizing(t *testing.T) {
	if w := DefaultWorkers(); w < 1 || w > 200 {
		t.Errorf("DefaultWorkers = %d, out of range", w)
	}
	if got := RenderSlots(6); got != 4 {
		t.Errorf("RenderSlots(6) = %d, want 4", got)
	}
	if got := RenderSlots(120); got != 20 {
		t.Errorf("RenderSlots(120) = %d, want 20", got)
	}
}
