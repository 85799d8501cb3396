// Package memory collects pushed records in memory, for development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// Dataset is an append-only in-memory record sink.
type Dataset struct {
	mu      sync.Mutex
	records []catalog.ProductRecord
}

// New constructs an empty Dataset.
func New() *Dataset {
	return &Dataset{}
}

// Push appends the record.
func (d *Dataset) Push(_ context.Context, rec catalog.ProductRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, rec)
	return nil
}

// Records returns a copy of everything pushed so far.
func (d *Dataset) Records() []catalog.ProductRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]catalog.ProductRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Len reports the number of pushed records.
func (d *Dataset) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}
