// Package render drives a headless Chrome through Rod to produce the final
// DOM HTML for pages whose static HTML is insufficient.
//
// The contract is narrow: load the URL, dismiss any consent overlay, wait,
// optionally scroll, and return the final HTML plus the final URL. Each call
// gets a fresh incognito context; a global semaphore caps concurrent
// contexts.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/webchunk/hostcfg"
)

// MaxContentBytes rejects rendered documents above this size.
const MaxContentBytes = 5_000_000

// ErrTooLarge is returned when the rendered document exceeds MaxContentBytes.
var ErrTooLarge = errors.New("render: content too large")

// ErrLoginRedirect is returned when rendering lands on a login/auth URL.
var ErrLoginRedirect = errors.New("render: redirected to login")

const maxAttempts = 3

var desktopUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Version/14.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
}

// consentButtonRe matches the visible text of consent-overlay buttons.
const consentButtonRe = `Accept|OK|Agree|Consent|Zustimmen`

// Config configures the render backend.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome. Empty = launch
	// a local one.
	RemoteURL string

	// MaxConcurrent caps simultaneous browser contexts. Default: 4.
	MaxConcurrent int

	// Hosts supplies per-host render timings.
	Hosts *hostcfg.Table

	// Scroll walks the page top to bottom after load to trigger lazy
	// content.
	Scroll bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.Hosts == nil {
		c.Hosts = hostcfg.Defaults()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Backend manages the browser lifecycle and renders URLs.
type Backend struct {
	cfg    Config
	sem    chan struct{}
	mu     sync.Mutex
	brw    *rod.Browser
	lnch   *launcher.Launcher
	closed bool
}

// New creates a Backend. The browser launches lazily on first Render.
func New(cfg Config) *Backend {
	cfg.defaults()
	return &Backend{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Close shuts the browser down. Further Render calls fail.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.brw != nil {
		b.brw.Close()
		b.brw = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return nil
}

// browser returns the shared browser handle, launching it if needed.
func (b *Backend) browser() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("render: backend is closed")
	}
	if b.brw != nil {
		return b.brw, nil
	}

	wsURL := b.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("no-sandbox").
			Set("disable-setuid-sandbox").
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("render: launch: %w", err)
		}
		b.lnch = l
		wsURL = u
		b.cfg.Logger.Info("render: launched local chrome", "url", wsURL)
	}

	brw := rod.New().ControlURL(wsURL)
	if err := brw.Connect(); err != nil {
		return nil, fmt.Errorf("render: connect: %w", err)
	}
	if err := brw.IgnoreCertErrors(true); err != nil {
		b.cfg.Logger.Warn("render: ignore cert errors failed", "error", err)
	}
	b.brw = brw
	return brw, nil
}

// Render loads the URL in a fresh stealth context and returns the final
// HTML and final URL. Up to three attempts with exponential backoff.
func (b *Backend) Render(ctx context.Context, pageURL string) (string, string, error) {
	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-ctx.Done():
		return "", "", ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(1<<(attempt-1))*time.Second); err != nil {
				return "", "", err
			}
		}
		html, finalURL, err := b.renderOnce(ctx, pageURL)
		if err == nil {
			return html, finalURL, nil
		}
		// Semantic rejections don't improve on retry.
		if errors.Is(err, ErrTooLarge) || errors.Is(err, ErrLoginRedirect) || ctx.Err() != nil {
			return "", finalURL, err
		}
		lastErr = err
		b.cfg.Logger.Debug("render: attempt failed", "url", pageURL, "attempt", attempt, "error", err)
	}
	return "", "", fmt.Errorf("render: %s: %w", pageURL, lastErr)
}

func (b *Backend) renderOnce(ctx context.Context, pageURL string) (string, string, error) {
	brw, err := b.browser()
	if err != nil {
		return "", "", err
	}

	host := hostOf(pageURL)
	cfg := b.cfg.Hosts.Lookup(host)

	inc, err := brw.Incognito()
	if err != nil {
		return "", "", fmt.Errorf("render: incognito: %w", err)
	}
	// The incognito context outlives its pages; drop it with the attempt.
	defer func() {
		_ = proto.TargetDisposeBrowserContext{
			BrowserContextID: inc.BrowserContextID,
		}.Call(brw)
	}()
	page, err := stealth.Page(inc)
	if err != nil {
		return "", "", fmt.Errorf("render: create page: %w", err)
	}
	defer page.Close()

	ua := desktopUserAgents[rand.Intn(len(desktopUserAgents))]
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "en-US",
	}); err != nil {
		return "", "", fmt.Errorf("render: set user agent: %w", err)
	}
	if _, err := page.SetExtraHeaders(hostHeaders(pageURL)); err != nil {
		b.cfg.Logger.Debug("render: set headers failed", "error", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1280, Height: 800, DeviceScaleFactor: 1,
	}); err != nil {
		b.cfg.Logger.Debug("render: set viewport failed", "error", err)
	}

	if err := b.navigate(ctx, page, pageURL, cfg.TotalTimeout); err != nil {
		return "", "", err
	}

	info, err := page.Info()
	if err != nil {
		return "", "", fmt.Errorf("render: page info: %w", err)
	}
	finalURL := info.URL
	lower := strings.ToLower(finalURL)
	if strings.Contains(lower, "login") || strings.Contains(lower, "auth") {
		return "", finalURL, ErrLoginRedirect
	}

	b.dismissConsent(page, cfg.ConsentClickTimeout)

	if err := sleepCtx(ctx, cfg.RenderWait); err != nil {
		return "", finalURL, err
	}
	if b.cfg.Scroll {
		b.scroll(page)
	}

	html, err := page.HTML()
	if err != nil {
		return "", finalURL, fmt.Errorf("render: read content: %w", err)
	}
	if len(html) > MaxContentBytes {
		return "", finalURL, ErrTooLarge
	}
	return html, finalURL, nil
}

// navigate tries progressively weaker load conditions: full load within the
// host timeout, then a bare navigation with half the timeout.
func (b *Backend) navigate(ctx context.Context, page *rod.Page, pageURL string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := page.Context(navCtx)
	if err := p.Navigate(pageURL); err != nil {
		short, cancel2 := context.WithTimeout(ctx, timeout/2)
		defer cancel2()
		if err2 := page.Context(short).Navigate(pageURL); err2 != nil {
			return fmt.Errorf("render: navigate %s: %w", pageURL, err2)
		}
		return nil
	}
	if err := p.WaitLoad(); err != nil {
		b.cfg.Logger.Debug("render: wait load timeout", "url", pageURL, "error", err)
		return nil
	}
	// Best-effort settle toward network idle.
	wait := p.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
	done := make(chan struct{})
	go func() { wait(); close(done) }()
	select {
	case <-done:
	case <-navCtx.Done():
	case <-time.After(5 * time.Second):
	}
	return nil
}

// dismissConsent clicks the first visible consent button, bounded by a short
// timeout. Failure is normal: most pages have no overlay.
func (b *Backend) dismissConsent(page *rod.Page, timeout time.Duration) {
	el, err := page.Timeout(timeout).ElementR("button, a, div", consentButtonRe)
	if err != nil {
		return
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		b.cfg.Logger.Debug("render: consent click failed", "error", err)
	}
}

// scroll walks the page in 300px steps and returns to the top, triggering
// lazy-loaded content.
func (b *Backend) scroll(page *rod.Page) {
	res, err := page.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return
	}
	height := res.Value.Int()
	for y := 0; y < height; y += 300 {
		if _, err := page.Eval(`(y) => window.scrollTo(0, y)`, y); err != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	page.Eval(`() => window.scrollTo(0, 0)`)
	time.Sleep(100 * time.Millisecond)
}

func hostHeaders(pageURL string) []string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	origin := u.Scheme + "://" + u.Host
	referers := []string{
		"https://google.com",
		origin + "/",
		origin + "/index.html",
	}
	return []string{
		"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language", "en-US,en;q=0.5",
		"Referer", referers[rand.Intn(len(referers))],
		"Origin", origin,
		"DNT", "1",
		"Upgrade-Insecure-Requests", "1",
	}
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
