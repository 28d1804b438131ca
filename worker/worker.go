package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ufoflow/ufoflow/buffer"
	"github.com/ufoflow/ufoflow/graph"
	"github.com/ufoflow/ufoflow/log"
	"github.com/ufoflow/ufoflow/relation"
	"github.com/ufoflow/ufoflow/resource"
)

// Input is one input port's view onto its relation: which lane to read,
// and the port's declared item limit (graph.Infinite for unbounded).
type Input struct {
	Rel      *relation.Relation
	Lane     int
	Expected int
}

// Output is one output port's view onto its relation, the one this task
// is the producer for.
type Output struct {
	Rel *relation.Relation
}

// Worker drives one task. It holds only Relation views and a
// resource.Manager; it never touches the TaskGraph after construction.
type Worker struct {
	Task      *graph.Task
	Inputs    []Input
	Outputs   []Output
	Queue     resource.CommandQueue
	Resources resource.Manager
	Logger    log.Logger
}

// Result is what a Worker reports to the Scheduler on exit.
type Result struct {
	TaskName   string
	HostTime   time.Duration
	NProcessed int
	Events     []graph.GPUEvent
	Err        error
}

// eventLogInitialCapacity is the starting capacity of a worker's GPU
// event log; Go's append growth policy handles the doubling from there.
const eventLogInitialCapacity = 256

// Run dispatches to the task's mode-specific loop and blocks until the
// task terminates (poison pill, stream exhaustion, or error).
func (w *Worker) Run(ctx context.Context) Result {
	res := Result{TaskName: w.Task.Name, Events: make([]graph.GPUEvent, 0, eventLogInitialCapacity)}

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("worker %s(%s): panic: %v", w.Task.Plugin, w.Task.Name, r)
		}
	}()

	var err error
	switch w.Task.Mode {
	case graph.ModeSource:
		err = w.runSource(ctx, &res)
	case graph.ModeProcessor:
		err = w.runProcessor(ctx, &res)
	case graph.ModeReductor:
		err = w.runReductor(ctx, &res)
	case graph.ModeSink:
		err = w.runSink(ctx, &res)
	default:
		err = fmt.Errorf("worker %s(%s): unknown mode %v", w.Task.Plugin, w.Task.Name, w.Task.Mode)
	}

	if err != nil {
		res.Err = &graph.TaskRuntimeError{Plugin: w.Task.Plugin, Name: w.Task.Name, Err: err}
	}
	return res
}

func (w *Worker) time(res *Result, fn func() error) error {
	start := time.Now()
	err := fn()
	res.HostTime += time.Since(start)
	return err
}

// allocatePool requests n buffers of the given shape from the resource
// manager and seeds rel's recycle queue with them.
func (w *Worker) allocatePool(ctx context.Context, rel *relation.Relation, dims []int) error {
	bufs := make([]*buffer.Buffer, 0, rel.PoolSize())
	for i := 0; i < rel.PoolSize(); i++ {
		b, err := w.Resources.RequestBuffer(ctx, dims, nil, nil)
		if err != nil {
			return fmt.Errorf("allocate output pool: %w: %w", graph.ErrResourceAllocation, err)
		}
		bufs = append(bufs, b)
	}
	rel.Seed(bufs)
	return nil
}

func (w *Worker) allocateOutputPools(ctx context.Context, outputDims [][]int) error {
	if len(outputDims) != len(w.Outputs) {
		return fmt.Errorf("initialize returned %d output dims for %d output ports", len(outputDims), len(w.Outputs))
	}
	for i, out := range w.Outputs {
		if err := w.allocatePool(ctx, out.Rel, outputDims[i]); err != nil {
			return err
		}
	}
	return nil
}

// pullOutputs pulls one empty buffer per output port from its recycle queue.
func (w *Worker) pullOutputs(ctx context.Context) ([]*buffer.Buffer, error) {
	result := make([]*buffer.Buffer, len(w.Outputs))
	for i, out := range w.Outputs {
		b, err := out.Rel.PopOutputRecycle(ctx)
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

func (w *Worker) pushOutputs(result []*buffer.Buffer) {
	for i, out := range w.Outputs {
		out.Rel.PushOutput(result[i])
	}
}

func (w *Worker) pushPoisonPillDownstream() {
	for _, out := range w.Outputs {
		out.Rel.PushPoisonPill()
	}
}

// recordEvents appends GPU event records to the worker's log, keeping
// profiling timestamps only for events whose Status is "COMPLETE"; other
// events are recorded with zero timestamps.
func recordEvents(res *Result, events []graph.GPUEvent) {
	for _, e := range events {
		if e.Status != "COMPLETE" {
			e.Queued, e.Submitted, e.Started, e.Ended = 0, 0, 0, 0
		}
		res.Events = append(res.Events, e)
	}
}

// fetchState tracks, per input port, the sticky "hold until n_expected_items"
// buffer and how many items have been fetched so far.
type fetchState struct {
	buf     *buffer.Buffer
	fetched int
}

func newFetchStates(n int) []fetchState { return make([]fetchState, n) }

// fetchBatch pulls the next input batch in ascending port order. A port
// already at its n_expected_items limit is not re-pulled; its held
// buffer is reused (the "sticky input" behavior). Once any port yields
// the poison pill, every other input port is read until its own pill
// arrives (buffers received on the way are recycled), and pill=true is
// returned, so a worker exits only after all of its inputs have pilled.
//
// If every port is already at its limit, none of them would normally be
// polled again — which would leave the task spinning forever without
// ever observing the upstream pill. In that case fetchBatch force-polls
// the first port anyway, discarding (and recycling) anything but a
// pill, so termination is still guaranteed for an all-finite input set.
func (w *Worker) fetchBatch(ctx context.Context, states []fetchState) (pill bool, err error) {
	polledAny := false
	for i, in := range w.Inputs {
		if in.Expected != graph.Infinite && states[i].fetched >= in.Expected {
			continue
		}
		polledAny = true
		item, err := in.Rel.PopInput(ctx, in.Lane)
		if err != nil {
			return false, err
		}
		if item.Pill {
			return true, w.drainToPill(ctx, i)
		}
		states[i].buf = item.Buffer
		states[i].fetched++
	}

	if !polledAny && len(w.Inputs) > 0 {
		in := w.Inputs[0]
		item, err := in.Rel.PopInput(ctx, in.Lane)
		if err != nil {
			return false, err
		}
		if item.Pill {
			return true, w.drainToPill(ctx, 0)
		}
		// port 0 already holds everything it needs; this item is
		// superfluous, so return it to circulation immediately.
		in.Rel.Recycle(item.Buffer)
	}

	return false, nil
}

// drainToPill reads every input port except pilled until that port's
// poison pill arrives, recycling any buffer received before it.
func (w *Worker) drainToPill(ctx context.Context, pilled int) error {
	for j, in := range w.Inputs {
		if j == pilled {
			continue
		}
		for {
			item, err := in.Rel.PopInput(ctx, in.Lane)
			if err != nil {
				return err
			}
			if item.Pill {
				break
			}
			in.Rel.Recycle(item.Buffer)
		}
	}
	return nil
}

func workBuffers(states []fetchState) []*buffer.Buffer {
	out := make([]*buffer.Buffer, len(states))
	for i, s := range states {
		out[i] = s.buf
	}
	return out
}

// recycleUsedInputs returns each held input buffer to its upstream
// recycle queue, except ports that are sticky-held under a finite
// n_expected_items limit they have already reached. cleanup, when true,
// ignores the limit and recycles every held buffer — used at shutdown.
func (w *Worker) recycleUsedInputs(states []fetchState, cleanup bool) {
	for i, in := range w.Inputs {
		if states[i].buf == nil {
			continue
		}
		sticky := !cleanup && in.Expected != graph.Infinite && states[i].fetched >= in.Expected
		if sticky {
			continue
		}
		in.Rel.Recycle(states[i].buf)
		states[i].buf = nil
	}
}

func hasGPUEntryPoint(t *graph.Task) (graph.GPUProcessorImpl, bool) {
	if !t.UsesGPU {
		return nil, false
	}
	gp, ok := t.Impl.(graph.GPUProcessorImpl)
	return gp, ok
}
