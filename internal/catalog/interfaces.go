package catalog

import (
	"context"
	"encoding/json"
	"time"
)

// Frontier is the deduplicating work queue of pending crawl requests.
// Implementations guarantee each pending request is claimed by at most
// one caller.
type Frontier interface {
	// Add enqueues a request unless its UniqueKey was seen before.
	// It returns false when the request was deduplicated away.
	Add(ctx context.Context, req Request) (bool, error)
	// ClaimNext blocks until a request is claimable. It returns ok=false
	// only once the frontier is drained: no pending requests and no
	// requests still in flight on other callers.
	ClaimNext(ctx context.Context) (Request, bool, error)
	// MarkHandled retires a claimed request so it cannot be claimed again.
	MarkHandled(ctx context.Context, req Request) error
	// Requeue returns a claimed request to the pending set for retry.
	Requeue(ctx context.Context, req Request) error
}

// KeyValueStore persists small named values (snapshots, screenshots).
type KeyValueStore interface {
	// Get returns the stored value, or ok=false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, contentType string) error
}

// Dataset is the append-only sink for finished product records.
type Dataset interface {
	Push(ctx context.Context, rec ProductRecord) error
}

// ProxyProvider hands out proxy URLs. ok=false means fetch directly.
type ProxyProvider interface {
	NextURL(ctx context.Context) (string, bool)
}

// SessionOptions configure one isolated browsing session.
type SessionOptions struct {
	ProxyURL       string
	AcceptLanguage string
	UserAgent      string
}

// Browser opens isolated page sessions. Sessions are never shared
// across workers.
type Browser interface {
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
	Close()
}

// Element is a DOM query result: visible text plus attributes.
type Element struct {
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs"`
}

// Attr returns the named attribute value, ok=false when absent.
func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Session is one isolated page context. Navigate must complete before
// the other calls are meaningful. Implementations that cannot execute
// scripts or capture pixels return an error from those calls; callers
// treat that as a missing contribution, not a task failure.
type Session interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	EvaluateScript(ctx context.Context, js string) (json.RawMessage, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Clock returns the current time (injected so timestamps are testable).
type Clock interface {
	Now() time.Time
}
