// Package static fetches pages over plain HTTP without rendering.
//
// It backs the crawl when headless Chrome is disabled: DOM queries work
// against the raw markup, while script evaluation and screenshots
// report themselves unsupported and the extraction pipeline treats
// those sources as absent.
package static

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// Config controls the HTTP fetch behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Browser implements catalog.Browser with colly collectors.
type Browser struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Browser.
func New(cfg Config) *Browser {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := colly.NewCollector(colly.Async(false))
	base.IgnoreRobotsTxt = true
	return &Browser{cfg: cfg, base: base}
}

// Close is a no-op; collectors hold no long-lived resources.
func (b *Browser) Close() {}

// NewSession prepares an isolated collector clone.
func (b *Browser) NewSession(_ context.Context, opts catalog.SessionOptions) (catalog.Session, error) {
	collector := b.base.Clone()
	if b.cfg.UserAgent != "" {
		collector.UserAgent = b.cfg.UserAgent
	}
	collector.SetRequestTimeout(b.cfg.Timeout)
	if opts.AcceptLanguage != "" {
		lang := opts.AcceptLanguage
		collector.OnRequest(func(r *colly.Request) {
			r.Headers.Set("Accept-Language", lang)
		})
	}
	if opts.ProxyURL != "" {
		// Best effort: a proxy that cannot be applied degrades to a
		// direct connection.
		_ = collector.SetProxy(opts.ProxyURL) //nolint:errcheck
	}
	return &session{collector: collector}, nil
}

type session struct {
	mu        sync.Mutex
	collector *colly.Collector
	html      string
	doc       *goquery.Document
}

// Navigate fetches the URL and parses the response body.
func (s *session) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body []byte
	var fetchErr error
	collector := s.collector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(url); err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	collector.Wait()
	if fetchErr != nil {
		return fmt.Errorf("fetch %s: %w", url, fetchErr)
	}

	s.html = string(body)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.html))
	if err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}
	s.doc = doc
	return nil
}

// HTML returns the last fetched markup.
func (s *session) HTML(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", fmt.Errorf("no page loaded")
	}
	return s.html, nil
}

// EvaluateScript is unsupported without a JS runtime.
func (s *session) EvaluateScript(context.Context, string) (json.RawMessage, error) {
	return nil, fmt.Errorf("script evaluation not supported by the static browser")
}

// QueryAll runs the selector against the parsed document.
func (s *session) QueryAll(_ context.Context, selector string) ([]catalog.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, fmt.Errorf("no page loaded")
	}
	var elements []catalog.Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		elem := catalog.Element{
			Text:  strings.TrimSpace(sel.Text()),
			Attrs: map[string]string{},
		}
		if len(sel.Nodes) > 0 {
			for _, attr := range sel.Nodes[0].Attr {
				elem.Attrs[attr.Key] = attr.Val
			}
		}
		elements = append(elements, elem)
	})
	return elements, nil
}

// Screenshot is unsupported without a renderer.
func (s *session) Screenshot(context.Context) ([]byte, error) {
	return nil, fmt.Errorf("screenshots not supported by the static browser")
}

// Close releases nothing but satisfies the interface.
func (s *session) Close() error { return nil }
