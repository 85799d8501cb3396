// Package jsonl appends product records to a newline-delimited JSON
// file.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// Dataset writes one JSON object per line. Pushes are serialized so
// concurrent workers never interleave partial lines.
type Dataset struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// Open creates or appends to the file at path.
func Open(path string) (*Dataset, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	return &Dataset{file: file, enc: json.NewEncoder(file)}, nil
}

// Push appends the record as one line.
func (d *Dataset) Push(_ context.Context, rec catalog.ProductRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.file.Close(); err != nil {
		return fmt.Errorf("close dataset file: %w", err)
	}
	return nil
}
