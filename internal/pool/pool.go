// Package pool runs the bounded worker pool that drains the frontier.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
	"github.com/shopsignal/catalog-crawler/internal/metrics"
)

// Handler processes one claimed request inside a browsing session.
type Handler interface {
	Handle(ctx context.Context, sess catalog.Session, req catalog.Request) error
}

// Config sizes the pool and its retry budget.
type Config struct {
	Workers     int
	MaxAttempts int
	Session     catalog.SessionOptions
}

// FailedRequest is a request that exhausted its retry budget.
type FailedRequest struct {
	Request catalog.Request `json:"request"`
	Error   string          `json:"error"`
}

// Stats are the run counters reported at shutdown.
type Stats struct {
	Handled int `json:"handled"`
	Retried int `json:"retried"`
	Failed  int `json:"failed"`
}

// Pool claims requests from the frontier with a fixed set of workers
// and routes each to the handler for its label. The run ends when the
// frontier drains or the context is canceled.
type Pool struct {
	cfg      Config
	frontier catalog.Frontier
	browser  catalog.Browser
	proxies  catalog.ProxyProvider
	product  Handler
	listing  Handler
	logger   *zap.Logger

	mu     sync.Mutex
	stats  Stats
	failed []FailedRequest
}

// New wires a Pool.
func New(
	cfg Config,
	frontier catalog.Frontier,
	browser catalog.Browser,
	proxies catalog.ProxyProvider,
	product Handler,
	listing Handler,
	logger *zap.Logger,
) (*Pool, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be > 0, got %d", cfg.Workers)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		cfg:      cfg,
		frontier: frontier,
		browser:  browser,
		proxies:  proxies,
		product:  product,
		listing:  listing,
		logger:   logger,
	}, nil
}

// Run blocks until the frontier drains or ctx is canceled.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	return nil
}

func (p *Pool) worker(ctx context.Context, id int) {
	log := p.logger.With(zap.Int("worker", id))
	for {
		req, ok, err := p.frontier.ClaimNext(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				log.Error("claim failed", zap.Error(err))
			}
			return
		}
		if !ok {
			return
		}

		metrics.IncActiveWorkers()
		handleErr := p.process(ctx, req)
		metrics.DecActiveWorkers()

		if handleErr == nil {
			p.finish(ctx, req, "ok")
			continue
		}
		p.retryOrFail(ctx, log, req, handleErr)
	}
}

func (p *Pool) process(ctx context.Context, req catalog.Request) error {
	opts := p.cfg.Session
	if proxyURL, ok := p.proxies.NextURL(ctx); ok {
		opts.ProxyURL = proxyURL
	}

	sess, err := p.browser.NewSession(ctx, opts)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer sess.Close() //nolint:errcheck

	// Unknown labels fall through to the product handler, matching how
	// labels are parsed in the first place.
	if req.Label.IsListing() {
		return p.listing.Handle(ctx, sess, req)
	}
	return p.product.Handle(ctx, sess, req)
}

func (p *Pool) finish(ctx context.Context, req catalog.Request, outcome string) {
	if err := p.frontier.MarkHandled(ctx, req); err != nil {
		p.logger.Error("mark handled failed",
			zap.String("unique_key", req.UniqueKey),
			zap.Error(err),
		)
	}
	metrics.ObserveRequest(string(req.Label), outcome)
	p.mu.Lock()
	if outcome == "ok" {
		p.stats.Handled++
	}
	p.mu.Unlock()
}

func (p *Pool) retryOrFail(ctx context.Context, log *zap.Logger, req catalog.Request, handleErr error) {
	req.Attempt++
	if req.Attempt < p.cfg.MaxAttempts {
		if err := p.frontier.Requeue(ctx, req); err != nil {
			log.Error("requeue failed",
				zap.String("unique_key", req.UniqueKey),
				zap.Error(err),
			)
			return
		}
		metrics.ObserveRetry()
		p.mu.Lock()
		p.stats.Retried++
		p.mu.Unlock()
		log.Warn("request failed, requeued",
			zap.String("url", req.URL),
			zap.String("label", string(req.Label)),
			zap.Int("attempt", req.Attempt),
			zap.Error(handleErr),
		)
		return
	}

	p.finish(ctx, req, "failed")
	p.mu.Lock()
	p.stats.Failed++
	p.failed = append(p.failed, FailedRequest{Request: req, Error: handleErr.Error()})
	p.mu.Unlock()
	log.Error("request exhausted retry budget",
		zap.String("url", req.URL),
		zap.String("label", string(req.Label)),
		zap.Int("attempts", req.Attempt),
		zap.Error(handleErr),
	)
}

// Stats returns the run counters so far.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Failed returns the requests that exhausted their retry budget.
func (p *Pool) Failed() []FailedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]FailedRequest, len(p.failed))
	copy(out, p.failed)
	return out
}
