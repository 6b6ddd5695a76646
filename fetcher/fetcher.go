// Package fetcher retrieves pages over plain HTTP and escalates to a
// browser render when the static response looks blocked or script-driven.
//
// Every failure carries a short machine-readable reason so the caller can
// record why each URL was dropped.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/webchunk/hostcfg"
	"github.com/hazyhaar/webchunk/render"
)

// Failure reasons. N in "http-status:N" is the final status code.
const (
	ReasonSkipExt       = "skip-ext"
	ReasonSoftBlock     = "soft-block"
	ReasonLoginPage     = "login-page"
	ReasonErrorPage     = "error-page"
	ReasonLoginPostJS   = "login-page-post-js"
	ReasonErrorPostJS   = "error-page-post-js"
	ReasonTooLarge      = "too-large"
	ReasonTransport     = "transport"
	reasonStatusPrefix  = "http-status:"
	reasonRenderFailure = "render-failed:"
)

// ErrRedirectProcessed signals that the URL redirected to a page that was
// already handled. Not a failure; the caller skips the URL silently.
var ErrRedirectProcessed = errors.New("fetcher: redirect target already processed")

// Error is a classified fetch failure.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetcher: %s: %v", e.Reason, e.Err)
	}
	return "fetcher: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Reason extracts the failure reason from an error, or "transport" when the
// error is not a classified one.
func Reason(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ReasonTransport
}

// Result is a successfully fetched page.
type Result struct {
	HTML     string
	FinalURL string
	Rendered bool
	Doc      *goquery.Document
}

// Renderer escalates a URL to a headless browser.
type Renderer interface {
	Render(ctx context.Context, url string) (html string, finalURL string, err error)
}

// Recorder receives redirect facts and answers whether a URL is already done.
// The zero value of the pipeline state satisfies it; nil disables recording.
type Recorder interface {
	RememberRedirect(from, to string)
	IsProcessed(url string) bool
}

// MaxBodyBytes caps response bodies.
const MaxBodyBytes = 5_000_000

const (
	maxAttempts  = 3
	recycleEvery = 50
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Version/14.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
}

// Config configures a Fetcher.
type Config struct {
	Hosts    *hostcfg.Table
	Renderer Renderer
	Recorder Recorder
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	if c.Hosts == nil {
		c.Hosts = hostcfg.Defaults()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher retrieves pages. Safe for concurrent use.
type Fetcher struct {
	cfg Config

	mu       sync.Mutex
	clients  map[string]*http.Client
	requests int
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		cfg:     cfg,
		clients: make(map[string]*http.Client),
	}
}

// Fetch retrieves one URL: extension filter, plain HTTP with retries,
// block/JS heuristics, and render escalation when warranted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if ShouldSkip(rawURL) {
		return nil, &Error{Reason: ReasonSkipExt}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{Reason: ReasonTransport, Err: err}
	}
	cfg := f.cfg.Hosts.Lookup(u.Host)

	body, finalURL, err := f.fetchPlain(ctx, rawURL, cfg)
	if err != nil {
		return nil, err
	}

	if finalURL != rawURL && f.cfg.Recorder != nil {
		f.cfg.Recorder.RememberRedirect(rawURL, finalURL)
		if f.cfg.Recorder.IsProcessed(finalURL) {
			return nil, ErrRedirectProcessed
		}
	}

	doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(body))
	needs := parseErr != nil || looksBlocked(body) || NeedsRender(doc)

	if !needs {
		if reason := classifyPage(doc, false); reason != "" {
			return nil, &Error{Reason: reason}
		}
		return &Result{HTML: body, FinalURL: finalURL, Doc: doc}, nil
	}

	if f.cfg.Renderer == nil {
		return nil, &Error{Reason: ReasonSoftBlock}
	}
	return f.renderEscalate(ctx, finalURL)
}

// fetchPlain runs the HTTP attempt loop and returns the body and final URL.
func (f *Fetcher) fetchPlain(ctx context.Context, rawURL string, cfg hostcfg.HostConfig) (string, string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.RetryBaseDelay * time.Duration(1<<(attempt-1))
			if half := int64(delay) / 2; half > 0 {
				delay += time.Duration(rand.Int63n(half))
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", "", &Error{Reason: ReasonTransport, Err: ctx.Err()}
			}
		}

		body, finalURL, status, err := f.doRequest(ctx, rawURL, cfg)
		if err != nil {
			// Classified failures are final; only transport errors retry.
			var fe *Error
			if errors.As(err, &fe) {
				return "", "", err
			}
			lastErr = err
			f.cfg.Logger.Debug("fetch attempt failed", "url", rawURL, "attempt", attempt, "error", err)
			continue
		}
		if status != http.StatusOK {
			// Retry server-side hiccups; anything else is final.
			if status >= 500 || status == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("status %d", status)
				continue
			}
			return "", "", &Error{Reason: fmt.Sprintf("%s%d", reasonStatusPrefix, status)}
		}
		return body, finalURL, nil
	}
	return "", "", &Error{Reason: ReasonTransport, Err: lastErr}
}

func (f *Fetcher) doRequest(ctx context.Context, rawURL string, cfg hostcfg.HostConfig) (body, finalURL string, status int, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", 0, err
	}
	client := f.client(u.Host, cfg)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", 0, err
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", randomReferer(u))

	resp, err := client.Do(req)
	if err != nil {
		return "", "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return "", "", 0, err
	}
	if len(data) > MaxBodyBytes {
		return "", "", 0, &Error{Reason: ReasonTooLarge}
	}
	return string(data), resp.Request.URL.String(), resp.StatusCode, nil
}

// renderEscalate pushes the URL through the browser and re-runs the page
// classification on the rendered DOM.
func (f *Fetcher) renderEscalate(ctx context.Context, pageURL string) (*Result, error) {
	html, finalURL, err := f.cfg.Renderer.Render(ctx, pageURL)
	if err != nil {
		switch {
		case errors.Is(err, render.ErrTooLarge):
			return nil, &Error{Reason: ReasonTooLarge, Err: err}
		case errors.Is(err, render.ErrLoginRedirect):
			return nil, &Error{Reason: ReasonLoginPostJS, Err: err}
		default:
			return nil, &Error{Reason: reasonRenderFailure + summarize(err), Err: err}
		}
	}
	if finalURL == "" {
		finalURL = pageURL
	}
	if finalURL != pageURL && f.cfg.Recorder != nil {
		f.cfg.Recorder.RememberRedirect(pageURL, finalURL)
		if f.cfg.Recorder.IsProcessed(finalURL) {
			return nil, ErrRedirectProcessed
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{Reason: reasonRenderFailure + "parse", Err: err}
	}
	if reason := classifyPage(doc, true); reason != "" {
		return nil, &Error{Reason: reason}
	}
	return &Result{HTML: html, FinalURL: finalURL, Rendered: true, Doc: doc}, nil
}

// client returns the per-host HTTP client, rebuilding the pool every
// recycleEvery requests so long runs don't pin stale connections.
func (f *Fetcher) client(host string, cfg hostcfg.HostConfig) *http.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests++
	if f.requests%recycleEvery == 0 {
		for _, c := range f.clients {
			c.CloseIdleConnections()
		}
		f.clients = make(map[string]*http.Client)
	}

	if c, ok := f.clients[host]; ok {
		return c
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		MaxConnsPerHost:     cfg.MaxConnections,
		MaxIdleConnsPerHost: cfg.MaxConnections,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureTLS,
		},
	}
	c := &http.Client{
		Timeout:   cfg.TotalTimeout,
		Transport: transport,
	}
	f.clients[host] = c
	return c
}

func randomReferer(u *url.URL) string {
	origin := u.Scheme + "://" + u.Host
	pool := []string{
		"https://www.google.com/",
		"https://duckduckgo.com/",
		"https://www.bing.com/",
		origin + "/",
	}
	return pool[rand.Intn(len(pool))]
}

// summarize flattens an error into a short token usable inside a reason.
func summarize(err error) string {
	s := err.Error()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, " ", "-")
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
