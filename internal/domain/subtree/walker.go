// Package subtree counts comment authors under a set of root items.
//
// The walk is level-synchronous: every id on the current frontier is
// fetched concurrently (bounded by a weighted semaphore), then the fetched
// items are folded in frontier order before the next level starts. Fold
// order, and therefore first-seen order in the tally, does not depend on
// how the fetches interleave.
package subtree

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/okian/hntally/internal/adapters/remote"
	"github.com/okian/hntally/internal/domain/dedupe"
	"github.com/okian/hntally/internal/domain/model"
	"github.com/okian/hntally/internal/domain/tally"
	"github.com/okian/hntally/pkg/logger"
	"github.com/okian/hntally/pkg/metrics"
)

// Counter computes author counts for the subtrees under roots.
type Counter interface {
	Count(ctx context.Context, roots []model.ItemID) (*tally.Counter, error)
}

// Walker is the breadth-first Counter backed by a remote.Store.
type Walker struct {
	store       remote.Store
	concurrency int64
	log         logger.Logger
}

// New creates a Walker over store.
func New(store remote.Store, opts ...Option) *Walker {
	w := &Walker{
		store:       store,
		concurrency: int64(runtime.NumCPU() * 4),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Named("subtree")
	}
	return w
}

// fetched is the result slot for one frontier position.
type fetched struct {
	item model.Item
	ok   bool
}

// Count walks every subtree under roots and returns the per-author tally
// of authored comments. Roots themselves are fetched and counted when they
// are comments. Each id is fetched at most once per call even when it is
// reachable along several paths. Failed fetches drop that branch only; the
// returned error is non-nil only when ctx ends.
func (w *Walker) Count(ctx context.Context, roots []model.ItemID) (*tally.Counter, error) {
	counts := tally.NewCounter()
	visited := dedupe.NewInMemoryDeduper(dedupe.WithCapacityHint(len(roots) * 8))
	sem := semaphore.NewWeighted(w.concurrency)

	frontier := w.admit(ctx, visited, nil, roots)
	levels := 0
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		levels++

		slots, err := w.fetchLevel(ctx, sem, frontier)
		if err != nil {
			return nil, err
		}

		var next []model.ItemID
		for _, slot := range slots {
			if !slot.ok {
				continue
			}
			metrics.RecordItemVisited()
			if slot.item.Countable() {
				counts.Add(slot.item.Author, 1)
				metrics.RecordCommentCounted()
			}
			next = w.admit(ctx, visited, next, slot.item.Kids)
		}
		frontier = next
	}

	metrics.RecordSubtreeDepth(levels)
	return counts, nil
}

// admit appends ids not yet visited to dst.
func (w *Walker) admit(ctx context.Context, visited dedupe.Deduper, dst, ids []model.ItemID) []model.ItemID {
	for _, id := range ids {
		if visited.SeenAndRecord(ctx, id) {
			metrics.RecordDuplicateSkipped()
			continue
		}
		dst = append(dst, id)
	}
	return dst
}

// fetchLevel fetches every id in frontier, at most w.concurrency at a time
// across the whole Count call. Slots keep frontier order.
func (w *Walker) fetchLevel(ctx context.Context, sem *semaphore.Weighted, frontier []model.ItemID) ([]fetched, error) {
	slots := make([]fetched, len(frontier))
	g, gctx := errgroup.WithContext(ctx)

	for i, id := range frontier {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			item, err := w.store.GetItem(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				w.abandon(ctx, id, err)
				return nil
			}
			slots[i] = fetched{item: item, ok: true}
			return nil
		})
	}

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (w *Walker) abandon(ctx context.Context, id model.ItemID, err error) {
	metrics.RecordBranchAbandoned()
	if errors.Is(err, remote.ErrNotFound) {
		w.log.Debug(ctx, "item not found, branch skipped", logger.Int64("item_id", int64(id)))
		return
	}
	metrics.RecordErrorByComponent("subtree", "fetch_failed")
	w.log.Warn(ctx, "fetch failed, branch skipped",
		logger.Int64("item_id", int64(id)),
		logger.Error(err),
	)
}
