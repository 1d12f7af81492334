package filter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/tgtg/tgtg"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of goroutines evaluating chunks
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workers = workers
		}
	}
}

// WithBatchSize sets the smallest list evaluated concurrently
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator splits large listing pages into chunks and evaluates
// them in parallel. Matches keep their input order.
type ConcurrentEvaluator struct {
	workers   int
	batchSize int
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workers:   runtime.GOMAXPROCS(0),
		batchSize: 100,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate returns the listings matching filter
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, items []tgtg.PickupItem) ([]tgtg.PickupItem, error) {
	if len(items) == 0 {
		return []tgtg.PickupItem{}, nil
	}

	if len(items) < e.batchSize {
		return evaluateSequential(filter, items), nil
	}

	chunkSize := max(len(items)/e.workers, e.batchSize)
	chunks := make([][]tgtg.PickupItem, (len(items)+chunkSize-1)/chunkSize)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range chunks {
		start := i * chunkSize
		end := min(start+chunkSize, len(items))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// each goroutine owns one slot
			chunks[i] = evaluateSequential(filter, items[start:end])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	matches := make([]tgtg.PickupItem, 0, total)
	for _, c := range chunks {
		matches = append(matches, c...)
	}
	return matches, nil
}

func evaluateSequential(filter Filter, items []tgtg.PickupItem) []tgtg.PickupItem {
	matches := make([]tgtg.PickupItem, 0, len(items)/4)
	for _, item := range items {
		if filter.Evaluate(item) {
			matches = append(matches, item)
		}
	}
	return matches
}
