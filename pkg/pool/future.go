package pool

import (
	"context"

	"github.com/wendelmax/tasklets-go/pkg/task"
)

// Future is the handle returned by Submit: it resolves with the task's
// outcome exactly once (spec §4.1 submit).
type Future struct {
	sink *task.ResultSink
}

// Await blocks until the task settles or ctx is done, whichever comes
// first.
func (f *Future) Await(ctx context.Context) (task.Outcome, error) {
	select {
	case outcome := <-f.sink.Chan():
		return outcome, nil
	case <-ctx.Done():
		return task.Outcome{}, ctx.Err()
	}
}

// BatchFuture is returned by SubmitMany: it preserves submission order
// and, per spec §6, surfaces per-element results on any individual
// failure rather than short-circuiting the whole batch.
type BatchFuture struct {
	futures []*Future
}

// Await blocks until every element has settled or ctx is done. On ctx
// cancellation it returns whatever outcomes had already settled,
// alongside ctx.Err().
func (b *BatchFuture) Await(ctx context.Context) ([]task.Outcome, error) {
	outcomes := make([]task.Outcome, len(b.futures))
	for i, f := range b.futures {
		outcome, err := f.Await(ctx)
		if err != nil {
			return outcomes, err
		}
		outcomes[i] = outcome
	}
	return outcomes, nil
}
