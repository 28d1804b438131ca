package worker

import (
	"context"
	"fmt"

	"github.com/ufoflow/ufoflow/graph"
)

// runReductor drives a Reductor task: collect a stream into a few
// primed result buffers, then on upstream exhaustion run a reduction
// loop over those results. A stream pilled before any Collect call
// still runs Initialize and the reduce loop on the default-primed
// results.
func (w *Worker) runReductor(ctx context.Context, res *Result) error {
	impl, ok := w.Task.Impl.(graph.ReductorImpl)
	if !ok {
		return graph.ErrMethodNotImplemented
	}

	states := newFetchStates(len(w.Inputs))
	pilledBeforeCollect, err := w.fetchBatch(ctx, states)
	if err != nil {
		return fmt.Errorf("first fetch: %w", err)
	}

	var outputDims [][]int
	var defaults []float64
	if err := w.time(res, func() error {
		var ierr error
		outputDims, defaults, ierr = impl.Initialize(workBuffers(states))
		return ierr
	}); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if err := w.allocateOutputPools(ctx, outputDims); err != nil {
		return err
	}

	result, err := w.pullOutputs(ctx)
	if err != nil {
		return fmt.Errorf("pull output recycle: %w", err)
	}
	for i, b := range result {
		v := 0.0
		if i < len(defaults) {
			v = defaults[i]
		}
		b.FillWithValue(v)
	}

	if pilledBeforeCollect {
		w.recycleUsedInputs(states, true)
	} else {
		for {
			work := workBuffers(states)
			if err := w.time(res, func() error {
				return impl.Collect(work, result, w.Queue)
			}); err != nil {
				return fmt.Errorf("collect: %w", err)
			}
			res.NProcessed++
			w.recycleUsedInputs(states, false)

			pill, err := w.fetchBatch(ctx, states)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			if pill {
				w.recycleUsedInputs(states, true)
				break
			}
		}
	}

	for {
		var cont bool
		if err := w.time(res, func() error {
			var rerr error
			cont, rerr = impl.Reduce(result, w.Queue)
			return rerr
		}); err != nil {
			return fmt.Errorf("reduce: %w", err)
		}
		if !cont {
			for i, b := range result {
				w.Outputs[i].Rel.Recycle(b)
			}
			break
		}

		w.pushOutputs(result)
		result, err = w.pullOutputs(ctx)
		if err != nil {
			return fmt.Errorf("pull output recycle: %w", err)
		}
	}

	w.pushPoisonPillDownstream()
	return nil
}
