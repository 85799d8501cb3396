// Package notify fans finished product records out to delivery sinks.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
	"github.com/shopsignal/catalog-crawler/internal/metrics"
)

const defaultSinkTimeout = 10 * time.Second

// Sink delivers one record to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, rec catalog.ProductRecord) error
}

// Config controls dispatch gating.
type Config struct {
	Enabled      bool
	OnlyOnChange bool
	SinkTimeout  time.Duration
}

// Dispatcher fires records at every configured sink concurrently. Each
// sink call is isolated: one sink failing is logged and affects neither
// its siblings nor the calling task. Delivery is best-effort, at most
// once, with no retries.
type Dispatcher struct {
	cfg    Config
	sinks  []Sink
	logger *zap.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(cfg Config, sinks []Sink, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	return &Dispatcher{cfg: cfg, sinks: sinks, logger: logger}
}

// Dispatch sends the record to all sinks, honoring the enabled and
// onlyOnChange gates. first_seen counts as a change. It blocks until
// every sink finished or timed out, and never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, rec catalog.ProductRecord) {
	if !d.cfg.Enabled || len(d.sinks) == 0 {
		return
	}
	if d.cfg.OnlyOnChange && rec.DetectedChanges.Empty() {
		return
	}

	var wg sync.WaitGroup
	for _, sink := range d.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, d.cfg.SinkTimeout)
			defer cancel()
			if err := s.Send(sinkCtx, rec); err != nil {
				metrics.ObserveNotification(s.Name(), "error")
				d.logger.Warn("notification sink failed",
					zap.String("sink", s.Name()),
					zap.String("product_id", rec.ProductID),
					zap.Error(err),
				)
				return
			}
			metrics.ObserveNotification(s.Name(), "ok")
			d.logger.Debug("notification delivered",
				zap.String("sink", s.Name()),
				zap.String("product_id", rec.ProductID),
			)
		}(sink)
	}
	wg.Wait()
}
