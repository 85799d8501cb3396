// Package handler implements the per-label request handlers run by the
// worker pool.
package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
	"github.com/shopsignal/catalog-crawler/internal/extract"
	"github.com/shopsignal/catalog-crawler/internal/metrics"
	"github.com/shopsignal/catalog-crawler/internal/notify"
	"github.com/shopsignal/catalog-crawler/internal/snapshot"
)

// ProductConfig controls optional product-task behavior.
type ProductConfig struct {
	CaptureScreenshots bool
	SourceOptions      extract.SourceOptions
}

// Product processes a single product page: fetch, extract, diff against
// the prior snapshot, persist, and notify.
type Product struct {
	cfg      ProductConfig
	engine   *extract.Engine
	differ   *snapshot.Differ
	dataset  catalog.Dataset
	store    catalog.KeyValueStore
	notifier *notify.Dispatcher
	runID    string
	logger   *zap.Logger
}

// NewProduct wires the product handler.
func NewProduct(
	cfg ProductConfig,
	engine *extract.Engine,
	differ *snapshot.Differ,
	dataset catalog.Dataset,
	store catalog.KeyValueStore,
	notifier *notify.Dispatcher,
	runID string,
	logger *zap.Logger,
) *Product {
	return &Product{
		cfg:      cfg,
		engine:   engine,
		differ:   differ,
		dataset:  dataset,
		store:    store,
		notifier: notifier,
		runID:    runID,
		logger:   logger,
	}
}

// Handle runs the product pipeline for one claimed request. A returned
// error means the whole task failed and is eligible for retry; partial
// extraction never fails the task.
func (h *Product) Handle(ctx context.Context, sess catalog.Session, req catalog.Request) error {
	if err := sess.Navigate(ctx, req.URL); err != nil {
		return fmt.Errorf("product %s: %w", req.URL, err)
	}

	src, err := extract.CollectSources(ctx, sess, req.URL, h.cfg.SourceOptions, h.logger)
	if err != nil {
		return fmt.Errorf("product %s: %w", req.URL, err)
	}

	rec := h.engine.Extract(req, src)
	rec.RunID = h.runID

	if h.cfg.CaptureScreenshots {
		h.captureScreenshot(ctx, sess, &rec)
	}

	rec.DetectedChanges = h.differ.Diff(ctx, rec)
	observeChanges(rec.DetectedChanges)

	if err := h.dataset.Push(ctx, rec); err != nil {
		return fmt.Errorf("push record %s: %w", rec.ProductID, err)
	}
	metrics.ObserveProduct()

	// A failed commit means the next run re-reports the same changes.
	// That beats failing a task whose record is already persisted.
	if err := h.differ.Commit(ctx, rec); err != nil {
		h.logger.Warn("snapshot commit failed",
			zap.String("product_id", rec.ProductID),
			zap.Error(err),
		)
	}

	h.notifier.Dispatch(ctx, rec)
	return nil
}

func (h *Product) captureScreenshot(ctx context.Context, sess catalog.Session, rec *catalog.ProductRecord) {
	buf, err := sess.Screenshot(ctx)
	if err != nil {
		h.logger.Debug("screenshot unavailable",
			zap.String("product_id", rec.ProductID),
			zap.Error(err),
		)
		return
	}
	key := "screenshot/" + rec.ProductID
	if err := h.store.Set(ctx, key, buf, "image/png"); err != nil {
		h.logger.Warn("screenshot store failed",
			zap.String("product_id", rec.ProductID),
			zap.Error(err),
		)
		return
	}
	rec.ScreenshotKey = catalog.Ptr(key)
}

func observeChanges(changes catalog.ChangeSet) {
	if changes.FirstSeen {
		metrics.ObserveChange("first_seen")
	}
	if changes.Price != nil {
		metrics.ObserveChange("price")
	}
	if changes.Availability != nil {
		metrics.ObserveChange("availability")
	}
}
