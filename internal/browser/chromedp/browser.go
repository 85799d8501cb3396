// Package chromedp drives headless Chrome sessions via the DevTools
// protocol.
package chromedp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// Config controls the headless browser.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	MaxParallel       int
}

// Browser implements catalog.Browser on top of a shared Chrome
// allocator. Each session gets its own tab context; sessions carrying a
// proxy get a dedicated allocator because a proxy applies to the whole
// browser process.
type Browser struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New launches the shared allocator.
func New(cfg Config) (*Browser, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), baseAllocatorOptions()...)
	return &Browser{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

func baseAllocatorOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
}

// Close tears down the shared allocator.
func (b *Browser) Close() {
	b.allocCancel()
}

// NewSession opens an isolated page context. The caller must Close it.
func (b *Browser) NewSession(ctx context.Context, opts catalog.SessionOptions) (catalog.Session, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}

	parent := b.allocator
	var sessionAllocCancel context.CancelFunc
	if opts.ProxyURL != "" {
		allocOpts := append(baseAllocatorOptions(), chromedp.ProxyServer(opts.ProxyURL))
		parent, sessionAllocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}

	taskCtx, taskCancel := chromedp.NewContext(parent)
	sess := &session{
		browser:     b,
		ctx:         taskCtx,
		cancel:      taskCancel,
		allocCancel: sessionAllocCancel,
		opts:        opts,
	}
	return sess, nil
}

func (b *Browser) acquire(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	select {
	case b.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (b *Browser) release() {
	if b.limiter == nil {
		return
	}
	select {
	case <-b.limiter:
	default:
	}
}

type session struct {
	browser     *Browser
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        catalog.SessionOptions
	closed      bool
}

// Navigate loads the URL and waits for the document body, bounded by
// the configured navigation timeout.
func (s *session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	actions := []chromedp.Action{
		s.setupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
	}
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *session) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if ua := s.browser.cfg.UserAgent; ua != "" {
			if err := emulation.SetUserAgentOverride(ua).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if s.opts.AcceptLanguage != "" {
			headers := network.Headers{"Accept-Language": s.opts.AcceptLanguage}
			if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
				return fmt.Errorf("set accept-language: %w", err)
			}
		}
		return nil
	})
}

// HTML returns the rendered document markup.
func (s *session) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read outer html: %w", err)
	}
	return html, nil
}

// EvaluateScript runs a JS expression and returns its JSON value.
func (s *session) EvaluateScript(ctx context.Context, js string) (json.RawMessage, error) {
	runCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	var raw json.RawMessage
	if err := chromedp.Run(runCtx, chromedp.Evaluate(js, &raw)); err != nil {
		return nil, fmt.Errorf("evaluate script: %w", err)
	}
	return raw, nil
}

// QueryAll returns text and attributes for every node matching the
// selector. The query runs in the page so one round trip covers
// arbitrarily many nodes.
func (s *session) QueryAll(ctx context.Context, selector string) ([]catalog.Element, error) {
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(function (el) {
			var attrs = {};
			for (var i = 0; i < el.attributes.length; i++) {
				attrs[el.attributes[i].name] = el.attributes[i].value;
			}
			return {text: el.textContent || "", attrs: attrs};
		})`, selector)

	raw, err := s.EvaluateScript(ctx, js)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	var elements []catalog.Element
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("decode query result: %w", err)
	}
	return elements, nil
}

// Screenshot captures the full page as PNG bytes.
func (s *session) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// Close releases the tab, any dedicated allocator, and the parallelism
// slot.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.browser.release()
	return nil
}

func (s *session) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := mergeContexts(s.ctx, ctx)
	timeoutCtx, timeoutCancel := context.WithTimeout(merged, s.browser.cfg.NavigationTimeout)
	return timeoutCtx, func() {
		timeoutCancel()
		cancel()
	}
}

// mergeContexts derives from the chromedp task context while honoring
// the caller's cancellation.
func mergeContexts(task, caller context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(task)
	stop := context.AfterFunc(caller, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
