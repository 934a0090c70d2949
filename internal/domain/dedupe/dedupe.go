// Package dedupe tracks which item ids a traversal has already claimed.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/hntally/internal/domain/model"
)

// Deduper records seen item ids so each id is visited at most once.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id model.ItemID) bool

	// Size returns the number of recorded ids.
	Size() int64
}

// inMemoryDeduper implements Deduper with a mutex-guarded map. It never
// evicts: forgetting an id would let a diamond or cycle be counted twice.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[model.ItemID]struct{}
	size atomic.Int64
	hint int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[model.ItemID]struct{}, d.hint)
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id model.ItemID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
