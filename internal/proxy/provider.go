// Package proxy hands out proxy URLs to workers.
package proxy

import (
	"context"
	"sync"
)

// RoundRobin cycles through a fixed proxy URL list. An empty list means
// every fetch goes direct; the provider never fails the caller.
type RoundRobin struct {
	mu   sync.Mutex
	urls []string
	next int
}

// NewRoundRobin constructs a provider over the given URLs.
func NewRoundRobin(urls []string) *RoundRobin {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			cleaned = append(cleaned, u)
		}
	}
	return &RoundRobin{urls: cleaned}
}

// NextURL returns the next proxy URL, ok=false when none are
// configured.
func (p *RoundRobin) NextURL(_ context.Context) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.urls) == 0 {
		return "", false
	}
	url := p.urls[p.next%len(p.urls)]
	p.next++
	return url, true
}
