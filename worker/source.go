package worker

import (
	"context"
	"fmt"

	"github.com/ufoflow/ufoflow/graph"
)

// runSource drives a Source task: no inputs. Initialize reports output
// dims, the pool is allocated from them, then the worker loops pulling
// empty outputs and calling Generate until it reports continue=false, at
// which point it pills its outputs and returns.
func (w *Worker) runSource(ctx context.Context, res *Result) error {
	impl, ok := w.Task.Impl.(graph.SourceImpl)
	if !ok {
		return graph.ErrMethodNotImplemented
	}

	var outputDims [][]int
	if err := w.time(res, func() error {
		var err error
		outputDims, err = impl.Initialize()
		return err
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

		var cont bool
		if err := w.time(res, func() error {
			var gerr error
			cont, gerr = impl.Generate(outputs, w.Queue)
			return gerr
		}); err != nil {
			return fmt.Errorf("generate: %w", err)
		}

		if !cont {
			// The empty buffers just pulled are never filled; return
			// them so the pool doesn't leak.
			for i, out := range w.Outputs {
				out.Rel.Recycle(outputs[i])
			}
			w.pushPoisonPillDownstream()
			return nil
		}

		w.pushOutputs(outputs)
		res.NProcessed++
	}
}
