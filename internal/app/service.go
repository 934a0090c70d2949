// Package service aggregates top commenters across the current top stories.
package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hntally/internal/adapters/mq/queue"
	"github.com/okian/hntally/internal/adapters/mq/worker"
	"github.com/okian/hntally/internal/adapters/remote"
	"github.com/okian/hntally/internal/domain/model"
	"github.com/okian/hntally/internal/domain/subtree"
	"github.com/okian/hntally/internal/domain/tally"
	"github.com/okian/hntally/pkg/logger"
	"github.com/okian/hntally/pkg/metrics"
)

// Service fans top-level items out to a worker pool, counts each item's
// comment subtree, and merges the counts into a run-wide tally.
type Service struct {
	store            remote.Store
	workerCount      int
	fetchConcurrency int
	logger           logger.Logger
}

// New constructs a Service reading from store.
func New(store remote.Store, opts ...Option) *Service {
	s := &Service{
		store:            store,
		workerCount:      runtime.NumCPU(),
		fetchConcurrency: runtime.NumCPU() * 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("aggregator")
	}
	return s
}

// Run lists up to topN top items and returns, for each item that could be
// processed, its topK commenters with their run-wide totals. Items keep the
// order of the top list.
//
// Run fails with ErrInvalidConfig before touching the store when topN or
// topK is not positive, with ErrInsufficientData when the list is empty or
// every item fails, and with the context error when ctx ends first.
func (s *Service) Run(ctx context.Context, topN, topK int) (model.RunResult, error) {
	if topN <= 0 || topK <= 0 {
		return model.RunResult{}, fmt.Errorf("%w: top_n=%d top_k=%d must be positive", ErrInvalidConfig, topN, topK)
	}
	if s.store == nil {
		return model.RunResult{}, fmt.Errorf("%w: no remote store", ErrInvalidConfig)
	}

	log := s.logger.With(logger.String("run_id", uuid.NewString()))
	start := time.Now()
	log.Info(ctx, "run started",
		logger.Int("top_n", topN),
		logger.Int("top_k", topK),
		logger.Int("workers", s.workerCount),
		logger.Int("fetch_concurrency", s.fetchConcurrency),
	)

	res, err := s.run(ctx, log, topN, topK)

	outcome := metrics.OutcomeOK
	switch {
	case err != nil && ctx.Err() != nil:
		outcome = metrics.OutcomeCanceled
	case err != nil:
		outcome = metrics.OutcomeError
	}
	took := time.Since(start)
	metrics.RecordRun(outcome, float64(took.Milliseconds()))

	if err != nil {
		log.Warn(ctx, "run failed", logger.Duration("took", took), logger.Error(err))
		return model.RunResult{}, err
	}
	log.Info(ctx, "run finished",
		logger.Int("items", len(res.Items)),
		logger.Int("skipped", len(res.Skipped)),
		logger.Duration("took", took),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, log logger.Logger, topN, topK int) (model.RunResult, error) {
	ids, err := s.store.ListTop(ctx, topN)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.RunResult{}, ctxErr
		}
		return model.RunResult{}, fmt.Errorf("%w: list top items: %w", ErrInsufficientData, err)
	}
	if len(ids) > topN {
		ids = ids[:topN]
	}
	if len(ids) == 0 {
		return model.RunResult{}, fmt.Errorf("%w: top list is empty", ErrInsufficientData)
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(ids)))
	for i, id := range ids {
		if !q.Enqueue(ctx, model.Task{Index: i, ID: id}) {
			_ = q.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.RunResult{}, ctxErr
			}
			return model.RunResult{}, fmt.Errorf("enqueue item %d: queue rejected task", id)
		}
	}
	_ = q.Close()

	walker := subtree.New(s.store,
		subtree.WithConcurrency(s.fetchConcurrency),
		subtree.WithLogger(log.Named("subtree")),
	)
	pool := worker.NewPool(s.workerCount, q, &itemProcessor{store: s.store, counter: walker})

	// This loop is the only writer to global.
	global := tally.NewCounter()
	slots := make([]worker.Outcome, len(ids))
	for o := range pool.Run(ctx) {
		if ctx.Err() != nil {
			continue
		}
		slots[o.Task.Index] = o
		if o.Err == nil {
			global.Merge(o.Counts)
		}
	}
	if err := ctx.Err(); err != nil {
		return model.RunResult{}, err
	}

	res := model.RunResult{Items: make([]model.TopLevelResult, 0, len(ids))}
	for i, o := range slots {
		if o.Err != nil || o.Counts == nil {
			res.Skipped = append(res.Skipped, ids[i])
			continue
		}
		res.Items = append(res.Items, model.TopLevelResult{
			ID:         o.Task.ID,
			Title:      o.Title,
			Commenters: commenters(o.Counts, global, topK),
		})
	}
	if len(res.Items) == 0 {
		return model.RunResult{}, fmt.Errorf("%w: all %d top items failed", ErrInsufficientData, len(ids))
	}
	if len(res.Skipped) > 0 {
		log.Warn(ctx, "some top items were skipped", logger.Any("skipped", res.Skipped))
	}
	return res, nil
}

func commenters(item, global *tally.Counter, topK int) []model.Commenter {
	top := item.Top(topK)
	out := make([]model.Commenter, len(top))
	for i, e := range top {
		out[i] = model.Commenter{
			Author:      e.Author,
			ItemCount:   e.Count,
			GlobalCount: global.Get(e.Author),
		}
	}
	return out
}

// itemProcessor fetches a top-level item and counts the comments beneath it.
type itemProcessor struct {
	store   remote.Store
	counter subtree.Counter
}

func (p *itemProcessor) Process(ctx context.Context, t model.Task) worker.Outcome {
	item, err := p.store.GetItem(ctx, t.ID)
	if err != nil {
		return worker.Outcome{Err: fmt.Errorf("fetch top item %d: %w", t.ID, err)}
	}
	counts, err := p.counter.Count(ctx, item.Kids)
	if err != nil {
		return worker.Outcome{Err: fmt.Errorf("count item %d: %w", t.ID, err)}
	}
	return worker.Outcome{Title: item.Title, Counts: counts}
}
