// Package limits enforces discovery quotas for the crawl run.
package limits

import (
	"sync"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// Config sets the quota ceilings. Zero means unlimited.
type Config struct {
	MaxProducts            int
	MaxProductsPerSeller   int
	MaxProductsPerCategory int
}

// Tracker gates product discovery against global and per-source quotas.
// Reservations are irreversible: a later task failure does not return
// quota. All checks and increments happen under one lock so concurrent
// callers can never overshoot a ceiling.
type Tracker struct {
	cfg Config

	mu       sync.Mutex
	total    int
	bySource map[string]int
}

// NewTracker constructs a Tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:      cfg,
		bySource: make(map[string]int),
	}
}

// Reserve atomically claims one discovery slot for a candidate found on
// a listing with the given label and source key. It returns false when
// any applicable ceiling is already reached; the caller must then stop
// enqueuing further candidates from that listing.
func (t *Tracker) Reserve(label catalog.Label, sourceKey string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.MaxProducts > 0 && t.total >= t.cfg.MaxProducts {
		return false
	}
	perSource := 0
	switch label {
	case catalog.LabelSeller:
		perSource = t.cfg.MaxProductsPerSeller
	case catalog.LabelCategory:
		perSource = t.cfg.MaxProductsPerCategory
	default:
		sourceKey = ""
	}
	if perSource > 0 && sourceKey != "" && t.bySource[sourceKey] >= perSource {
		return false
	}

	t.total++
	if sourceKey != "" {
		t.bySource[sourceKey]++
	}
	return true
}

// Stats is a point-in-time copy of the reservation counters.
type Stats struct {
	TotalReserved    int            `json:"total_reserved"`
	ReservedBySource map[string]int `json:"reserved_by_source_key"`
}

// Snapshot returns the current counters for reporting.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	bySource := make(map[string]int, len(t.bySource))
	for k, v := range t.bySource {
		bySource[k] = v
	}
	return Stats{TotalReserved: t.total, ReservedBySource: bySource}
}
