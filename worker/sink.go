package worker

import (
	"context"
	"fmt"

	"github.com/ufoflow/ufoflow/graph"
)

// runSink drives a Sink task: fetch and consume batches until the
// upstream pill arrives. Sinks have no outputs and emit no downstream
// pills.
func (w *Worker) runSink(ctx context.Context, res *Result) error {
	impl, ok := w.Task.Impl.(graph.SinkImpl)
	if !ok {
		return graph.ErrMethodNotImplemented
	}

	states := newFetchStates(len(w.Inputs))
	pill, err := w.fetchBatch(ctx, states)
	if err != nil {
		return fmt.Errorf("first fetch: %w", err)
	}
	if pill {
		w.recycleUsedInputs(states, true)
		return nil
	}

	if err := w.time(res, func() error {
		return impl.Initialize(workBuffers(states))
	}); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	for {
		work := workBuffers(states)
		if err := w.time(res, func() error {
			return impl.Consume(work, w.Queue)
		}); err != nil {
			return fmt.Errorf("consume: %w", err)
		}
		res.NProcessed++
		w.recycleUsedInputs(states, false)

		pill, err := w.fetchBatch(ctx, states)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		if pill {
			w.recycleUsedInputs(states, true)
			return nil
		}
	}
}
