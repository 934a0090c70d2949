package fixture

import (
	"time"

	"github.com/okian/hntally/internal/domain/model"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithTop sets the top list.
func WithTop(ids ...model.ItemID) Option {
	return func(s *Store) {
		s.top = append([]model.ItemID(nil), ids...)
	}
}

// WithItems seeds the item map.
func WithItems(items ...model.Item) Option {
	return func(s *Store) {
		for _, it := range items {
			s.items[it.ID] = it
		}
	}
}

// WithLatencyRange sets the simulated latency range for every call.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Store) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithFailure makes GetItem for id fail with err.
func WithFailure(id model.ItemID, err error) Option {
	return func(s *Store) {
		s.failures[id] = err
	}
}
