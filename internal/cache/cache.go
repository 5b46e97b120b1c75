// Package cache provides match response caches keyed by request signature.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/thebtf/inkmatch/pkg/models"
)

// DefaultTTL is how long a cached match response stays valid.
const DefaultTTL = 5 * time.Minute

// Cache stores match responses by canonical request key.
type Cache interface {
	Get(ctx context.Context, key string) (*models.MatchResponse, bool)
	Set(ctx context.Context, key string, resp *models.MatchResponse)
	Evict(ctx context.Context, key string)
}

// Flusher is implemented by caches that can drop every entry at once.
type Flusher interface {
	Flush(ctx context.Context) error
}

// entry stores a cached response with expiry.
type entry struct {
	resp      *models.MatchResponse
	expiresAt time.Time
}

// Memory is a process-local TTL cache. Expired entries are purged lazily
// whenever a new entry is written; reads check expiry before returning.
type Memory struct {
	now     func() time.Time
	entries map[string]*entry
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewMemory creates an in-memory cache. A non-positive ttl selects DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Get returns a copy of the cached response if present and not expired.
func (m *Memory) Get(_ context.Context, key string) (*models.MatchResponse, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.resp.Clone(), true
}

// Set stores a copy of resp, first purging every expired entry.
func (m *Memory) Set(_ context.Context, key string, resp *models.MatchResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = &entry{resp: resp.Clone(), expiresAt: now.Add(m.ttl)}
}

// Evict removes a single key.
func (m *Memory) Evict(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear drops every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]*entry)
	m.mu.Unlock()
}

// Flush is Clear for the Flusher interface.
func (m *Memory) Flush(context.Context) error {
	m.Clear()
	return nil
}

// TTL returns the configured entry lifetime.
func (m *Memory) TTL() time.Duration {
	return m.ttl
}

// Noop disables caching.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string) (*models.MatchResponse, bool) { return nil, false }

// Set discards the response.
func (Noop) Set(context.Context, string, *models.MatchResponse) {}

// Evict does nothing.
func (Noop) Evict(context.Context, string) {}

// Flush does nothing.
func (Noop) Flush(context.Context) error { return nil }
