// Package worker runs top-level tasks from a queue on a fixed set of workers.
package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/hntally/internal/domain/model"
	"github.com/okian/hntally/internal/domain/tally"
	"github.com/okian/hntally/pkg/logger"
	"github.com/okian/hntally/pkg/metrics"
)

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Task
}

// Outcome is the result of processing one task. Err is set when the task
// could not be completed; Counts is nil in that case.
type Outcome struct {
	Task   model.Task
	Title  string
	Counts *tally.Counter
	Err    error
}

// Processor handles a single task.
type Processor interface {
	Process(ctx context.Context, t model.Task) Outcome
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, t model.Task) Outcome

// Process calls f(ctx, t).
func (f ProcessorFunc) Process(ctx context.Context, t model.Task) Outcome {
	return f(ctx, t)
}

// InMemoryWorker pulls tasks off the queue and emits outcomes.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string
	logger    logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      "worker",
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run processes tasks until the queue is drained or ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context, out chan<- Outcome) {
	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			o := w.process(ctx, task)
			select {
			case out <- o:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, task model.Task) Outcome {
	start := time.Now()
	o := w.processor.Process(ctx, task)
	o.Task = task
	metrics.RecordWorkerTaskLatency(float64(time.Since(start).Milliseconds()))

	switch {
	case o.Err == nil:
		metrics.RecordTopLevelTask(metrics.OutcomeOK)
	case ctx.Err() != nil:
		metrics.RecordTopLevelTask(metrics.OutcomeCanceled)
	default:
		metrics.RecordTopLevelTask(metrics.OutcomeError)
		w.logger.Warn(ctx, "task failed",
			logger.Int("index", task.Index),
			logger.Int64("item_id", int64(task.ID)),
			logger.Error(o.Err),
		)
	}
	return o
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	logger  logger.Logger
}

// NewPool creates a worker pool. A workerCount below one defaults to the
// number of CPUs.
func NewPool(workerCount int, queue Queue, processor Processor) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  logger.Named("worker-pool"),
	}
	for i := range pool.workers {
		pool.workers[i] = NewInMemoryWorker(queue, processor, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Run starts every worker and returns the outcome channel. The channel is
// closed after all workers have returned, which happens once the queue is
// closed and drained or ctx is canceled. The caller must keep receiving
// until the channel closes.
func (p *Pool) Run(ctx context.Context) <-chan Outcome {
	out := make(chan Outcome, len(p.workers))
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx, out)
		}()
	}

	go func() {
		wg.Wait()
		close(out)
		p.logger.Debug(ctx, "all workers stopped", logger.Int("workers", len(p.workers)))
	}()
	return out
}
