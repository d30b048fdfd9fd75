// Package ratelimit implements fixed-window request limiting. Each
// (identifier, window index) pair holds a single counter; the window
// index is floor(now / window), so keys are naturally time-sharded and
// expiry only matters for memory reclamation.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type Config struct {
	Window      time.Duration
	MaxRequests int
	// SweepEvery controls how many Check calls pass between full sweeps
	// of expired entries. Zero disables sweeping.
	SweepEvery int
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store checks and increments the counter for an identifier. A denied
// call still increments, so retrying a denied request is never free.
type Store interface {
	Check(ctx context.Context, identifier string, cfg Config) (Result, error)
}

// MemoryStore is the single-process store. The counter map is guarded by
// a mutex; unlike the in-memory map this design came from, Go handlers
// run on multiple goroutines.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	calls   int
	now     func() time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// NewMemoryStoreWithClock injects the clock for tests.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     now,
	}
}

func (s *MemoryStore) Check(_ context.Context, identifier string, cfg Config) (Result, error) {
	now := s.now()
	windowMs := cfg.Window.Milliseconds()
	windowIdx := now.UnixMilli() / windowMs
	key := identifier + ":" + strconv.FormatInt(windowIdx, 10)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if cfg.SweepEvery > 0 && s.calls%cfg.SweepEvery == 0 {
		s.sweep(now)
	}

	e, ok := s.entries[key]
	if !ok {
		e = &entry{resetAt: time.UnixMilli((windowIdx + 1) * windowMs)}
		s.entries[key] = e
	}
	e.count++

	remaining := cfg.MaxRequests - e.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   e.count <= cfg.MaxRequests,
		Limit:     cfg.MaxRequests,
		Remaining: remaining,
		ResetAt:   e.resetAt,
	}, nil
}

// Len reports the number of live entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweep(now time.Time) {
	for key, e := range s.entries {
		if now.After(e.resetAt) {
			delete(s.entries, key)
		}
	}
}
