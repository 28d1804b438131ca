package worker

import (
	"context"
	"fmt"

	"github.com/ufoflow/ufoflow/graph"
)

// runProcessor drives a Processor task: fetch a batch, run an
// Initialize/process loop over batches, push results downstream.
func (w *Worker) runProcessor(ctx context.Context, res *Result) error {
	impl, ok := w.Task.Impl.(graph.ProcessorImpl)
	if !ok {
		return graph.ErrMethodNotImplemented
	}
	gpuImpl, hasGPU := hasGPUEntryPoint(w.Task)

	states := newFetchStates(len(w.Inputs))
	pill, err := w.fetchBatch(ctx, states)
	if err != nil {
		return fmt.Errorf("first fetch: %w", err)
	}
	if pill {
		w.recycleUsedInputs(states, true)
		w.pushPoisonPillDownstream()
		return nil
	}

	var outputDims [][]int
	if err := w.time(res, func() error {
		var ierr error
		outputDims, ierr = impl.Initialize(workBuffers(states))
		return ierr
	}); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if err := w.allocateOutputPools(ctx, outputDims); err != nil {
		return err
	}

	for {
		outputs, err := w.pullOutputs(ctx)
		if err != nil {
			return fmt.Errorf("pull output recycle: %w", err)
		}

		work := workBuffers(states)
		if err := w.time(res, func() error {
			if hasGPU {
				events, gerr := gpuImpl.ProcessGPU(work, outputs, w.Queue)
				recordEvents(res, events)
				return gerr
			}
			return impl.ProcessCPU(work, outputs, w.Queue)
		}); err != nil {
			return fmt.Errorf("process: %w", err)
		}
		res.NProcessed++

		w.recycleUsedInputs(states, false)
		w.pushOutputs(outputs)

		pill, err := w.fetchBatch(ctx, states)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		if pill {
			w.recycleUsedInputs(states, true)
			w.pushPoisonPillDownstream()
			return nil
		}
	}
}
