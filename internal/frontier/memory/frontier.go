// Package memory provides the in-memory crawl frontier.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// Frontier is a deduplicating FIFO work queue with claim semantics.
//
// ClaimNext blocks while the pending list is empty but requests are
// still in flight elsewhere: an in-flight listing task may enqueue new
// work, so a single empty observation must not end a worker. Only when
// pending and in-flight are simultaneously empty does ClaimNext report
// the frontier as drained, which gives the pool its shared
// idle-and-empty termination barrier. All state transitions happen
// under one mutex, with the condition variable broadcasting every
// change that could unblock a waiter.
type Frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	seen     map[string]struct{}
	pending  []catalog.Request
	inflight map[string]struct{}
}

// New constructs an empty Frontier.
func New() *Frontier {
	f := &Frontier{
		seen:     make(map[string]struct{}),
		inflight: make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Add enqueues a request unless its UniqueKey was already seen. The
// dedup identity survives handling: a handled request never re-enters.
func (f *Frontier) Add(_ context.Context, req catalog.Request) (bool, error) {
	if req.UniqueKey == "" {
		return false, fmt.Errorf("request for %q has no unique key", req.URL)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.seen[req.UniqueKey]; dup {
		return false, nil
	}
	f.seen[req.UniqueKey] = struct{}{}
	f.pending = append(f.pending, req)
	f.cond.Broadcast()
	return true, nil
}

// ClaimNext hands the next pending request to exactly one caller and
// marks it in flight. It blocks until work arrives, the frontier
// drains (ok=false), or the context ends.
func (f *Frontier) ClaimNext(ctx context.Context) (catalog.Request, bool, error) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cond.Broadcast()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.pending) == 0 {
		if len(f.inflight) == 0 {
			return catalog.Request{}, false, nil
		}
		if err := ctx.Err(); err != nil {
			return catalog.Request{}, false, fmt.Errorf("claim canceled: %w", err)
		}
		f.cond.Wait()
	}
	req := f.pending[0]
	f.pending = f.pending[1:]
	f.inflight[req.UniqueKey] = struct{}{}
	return req, true, nil
}

// MarkHandled retires a claimed request. When this empties the frontier
// it wakes every idle worker so the pool can converge.
func (f *Frontier) MarkHandled(_ context.Context, req catalog.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.inflight[req.UniqueKey]; !ok {
		return fmt.Errorf("request %q is not in flight", req.UniqueKey)
	}
	delete(f.inflight, req.UniqueKey)
	f.cond.Broadcast()
	return nil
}

// Requeue returns a claimed request to the pending list for another
// attempt, bypassing dedup: a retry is not a new discovery.
func (f *Frontier) Requeue(_ context.Context, req catalog.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.inflight[req.UniqueKey]; !ok {
		return fmt.Errorf("request %q is not in flight", req.UniqueKey)
	}
	delete(f.inflight, req.UniqueKey)
	f.pending = append(f.pending, req)
	f.cond.Broadcast()
	return nil
}

// Stats reports queue depths for the status endpoint.
type Stats struct {
	Pending  int `json:"pending"`
	InFlight int `json:"in_flight"`
	Seen     int `json:"seen"`
}

// Snapshot returns current queue depths.
func (f *Frontier) Snapshot() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{Pending: len(f.pending), InFlight: len(f.inflight), Seen: len(f.seen)}
}
