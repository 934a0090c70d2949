// Package fixture provides an in-memory remote.Store backed by fixed data,
// used for offline runs and as a test double.
package fixture

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hntally/internal/adapters/remote"
	"github.com/okian/hntally/internal/domain/model"
)

const defaultRandomSeed = 42

// Store implements remote.Store over an in-memory item map. Latency can be
// simulated to exercise concurrency bounds.
type Store struct {
	mu       sync.RWMutex
	top      []model.ItemID
	items    map[model.ItemID]model.Item
	failures map[model.ItemID]error
	fetches  map[model.ItemID]int

	minLatency time.Duration
	maxLatency time.Duration
	rngMu      sync.Mutex
	rng        *rand.Rand

	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

// New creates a Store with configuration options.
func New(opts ...Option) *Store {
	s := &Store{
		items:    make(map[model.ItemID]model.Item),
		failures: make(map[model.ItemID]error),
		fetches:  make(map[model.ItemID]int),
		rng:      rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic latency jitter
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTop returns up to n ids from the configured top list.
func (s *Store) ListTop(ctx context.Context, n int) ([]model.ItemID, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.top) || n < 0 {
		n = len(s.top)
	}
	out := make([]model.ItemID, n)
	copy(out, s.top[:n])
	return out, nil
}

// GetItem returns the item with id, an injected failure, or remote.ErrNotFound.
func (s *Store) GetItem(ctx context.Context, id model.ItemID) (model.Item, error) {
	s.calls.Add(1)
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if cur <= p || s.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	if err := s.wait(ctx); err != nil {
		return model.Item{}, err
	}

	s.mu.Lock()
	s.fetches[id]++
	err := s.failures[id]
	item, ok := s.items[id]
	s.mu.Unlock()

	if err != nil {
		return model.Item{}, err
	}
	if !ok {
		return model.Item{}, fmt.Errorf("item %d: %w", id, remote.ErrNotFound)
	}
	item.Kids = append([]model.ItemID(nil), item.Kids...)
	return item, nil
}

// Put adds or replaces an item.
func (s *Store) Put(items ...model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.items[it.ID] = it
	}
}

// FailWith makes every GetItem for id return err.
func (s *Store) FailWith(id model.ItemID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = err
}

// Calls returns the number of GetItem calls made so far.
func (s *Store) Calls() int64 { return s.calls.Load() }

// PeakInFlight returns the highest number of concurrent GetItem calls seen.
func (s *Store) PeakInFlight() int64 { return s.peak.Load() }

// Fetches returns how many times id was requested.
func (s *Store) Fetches(id model.ItemID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches[id]
}

// wait simulates remote latency, honoring ctx.
func (s *Store) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.maxLatency <= 0 {
		return nil
	}
	latency := s.minLatency
	if s.maxLatency > s.minLatency {
		s.rngMu.Lock()
		latency += time.Duration(s.rng.Int63n(int64(s.maxLatency - s.minLatency)))
		s.rngMu.Unlock()
	}
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
