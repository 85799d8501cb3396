// Package snapshot detects changes between product observations.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

const keyPrefix = "snapshot/"

// Differ compares a fresh record against the single stored snapshot for
// its product and overwrites that snapshot afterwards. No history is
// kept: the store always holds only the latest observation.
type Differ struct {
	store  catalog.KeyValueStore
	clock  catalog.Clock
	logger *zap.Logger
}

// NewDiffer constructs a Differ.
func NewDiffer(store catalog.KeyValueStore, clock catalog.Clock, logger *zap.Logger) *Differ {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Differ{store: store, clock: clock, logger: logger}
}

// Diff loads the prior snapshot and returns the change set for the
// current record. A missing snapshot means first_seen. A store failure
// is logged and degrades to first_seen rather than failing the task.
func (d *Differ) Diff(ctx context.Context, rec catalog.ProductRecord) catalog.ChangeSet {
	data, found, err := d.store.Get(ctx, snapshotKey(rec.ProductID))
	if err != nil {
		d.logger.Warn("snapshot load failed, treating product as first seen",
			zap.String("product_id", rec.ProductID),
			zap.Error(err),
		)
		return catalog.ChangeSet{FirstSeen: true}
	}
	if !found {
		return catalog.ChangeSet{FirstSeen: true}
	}

	var prior catalog.Snapshot
	if err := json.Unmarshal(data, &prior); err != nil {
		d.logger.Warn("stored snapshot is unreadable, treating product as first seen",
			zap.String("product_id", rec.ProductID),
			zap.Error(err),
		)
		return catalog.ChangeSet{FirstSeen: true}
	}

	var changes catalog.ChangeSet
	if priceChanged(prior.Price.Current, rec.Price.Current) {
		changes.Price = &catalog.PriceChange{From: prior.Price.Current, To: rec.Price.Current}
	}
	if availabilityChanged(prior.Availability, rec.Availability) {
		changes.Availability = &catalog.AvailabilityChange{From: prior.Availability, To: rec.Availability}
	}
	return changes
}

// Commit overwrites the stored snapshot with the record's compact
// projection. It always runs, whether or not Diff found changes.
func (d *Differ) Commit(ctx context.Context, rec catalog.ProductRecord) error {
	snap := catalog.SnapshotOf(rec, d.clock.Now())
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := d.store.Set(ctx, snapshotKey(rec.ProductID), data, "application/json"); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// priceChanged flags numeric inequality, or a value appearing where the
// prior observation had none. A value disappearing is not a price
// change; it usually means the extraction missed, not that the price
// moved.
func priceChanged(prior, current *float64) bool {
	if current == nil {
		return false
	}
	if prior == nil {
		return true
	}
	return *prior != *current
}

func availabilityChanged(prior, current *catalog.Availability) bool {
	switch {
	case prior == nil && current == nil:
		return false
	case prior == nil || current == nil:
		return true
	default:
		return *prior != *current
	}
}

func snapshotKey(productID string) string {
	return keyPrefix + productID
}
