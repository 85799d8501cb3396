package handler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
	"github.com/shopsignal/catalog-crawler/internal/limits"
	"github.com/shopsignal/catalog-crawler/internal/metrics"
)

// ListingConfig controls product-link discovery on listing pages.
type ListingConfig struct {
	// ProductLinkSelector matches the anchor elements that point at
	// product detail pages.
	ProductLinkSelector string
}

// Listing handles seller, category, and keyword pages: it discovers
// product links and enqueues them, bounded by the quota tracker.
type Listing struct {
	cfg      ListingConfig
	frontier catalog.Frontier
	limits   *limits.Tracker
	logger   *zap.Logger
}

// NewListing wires the listing handler.
func NewListing(cfg ListingConfig, frontier catalog.Frontier, tracker *limits.Tracker, logger *zap.Logger) *Listing {
	if cfg.ProductLinkSelector == "" {
		cfg.ProductLinkSelector = `a[href*="/product"]`
	}
	return &Listing{cfg: cfg, frontier: frontier, limits: tracker, logger: logger}
}

// Handle fetches the listing page and enqueues one product request per
// discovered link, stopping at the first quota rejection. A reservation
// is consumed even when the frontier deduplicates the link away; quota
// counts discoveries, not successful enqueues.
func (h *Listing) Handle(ctx context.Context, sess catalog.Session, req catalog.Request) error {
	if err := sess.Navigate(ctx, req.URL); err != nil {
		return fmt.Errorf("listing %s: %w", req.URL, err)
	}

	elements, err := sess.QueryAll(ctx, h.cfg.ProductLinkSelector)
	if err != nil {
		return fmt.Errorf("query product links on %s: %w", req.URL, err)
	}

	base, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("parse listing url %s: %w", req.URL, err)
	}

	enqueued, skipped := 0, 0
	for _, el := range elements {
		href, ok := el.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		link, ok := resolveLink(base, href)
		if !ok {
			skipped++
			continue
		}

		if !h.limits.Reserve(req.Label, req.SourceKey) {
			metrics.ObserveQuotaRejection(string(req.Label))
			h.logger.Info("quota exhausted, stopping discovery",
				zap.String("label", string(req.Label)),
				zap.String("source_key", req.SourceKey),
				zap.String("listing_url", req.URL),
				zap.Int("enqueued", enqueued),
			)
			break
		}

		added, err := h.frontier.Add(ctx, catalog.Request{
			URL:       link,
			UniqueKey: link,
			Label:     catalog.LabelProduct,
			SourceKey: req.SourceKey,
			Region:    req.Region,
		})
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", link, err)
		}
		if added {
			enqueued++
		}
	}

	h.logger.Debug("listing processed",
		zap.String("url", req.URL),
		zap.Int("links", len(elements)),
		zap.Int("enqueued", enqueued),
		zap.Int("skipped", skipped),
	)
	return nil
}

// resolveLink resolves href against the listing URL and canonicalizes
// it for use as a dedup key. Fragments never distinguish products.
func resolveLink(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	resolved.Fragment = ""
	resolved.Host = strings.ToLower(resolved.Host)
	return resolved.String(), true
}
