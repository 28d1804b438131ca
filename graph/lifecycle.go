package graph

import (
	"github.com/ufoflow/ufoflow/buffer"
	"github.com/ufoflow/ufoflow/resource"
)

// GPUEvent records one GPU command's profiling information. Status
// values follow the command-queue's own vocabulary; "COMPLETE" is the
// only one the worker inspects.
type GPUEvent struct {
	Queue       resource.CommandQueue
	CommandType string
	Status      string
	Queued      int64
	Submitted   int64
	Started     int64
	Ended       int64
}

// SourceImpl is the lifecycle capability record for ModeSource tasks.
type SourceImpl interface {
	TaskImpl
	// Initialize reports the N-D shape for each output port; the worker
	// allocates that port's buffer pool from the returned dims.
	Initialize() (outputDims [][]int, err error)
	// Generate fills outputs and reports whether the stream continues.
	Generate(outputs []*buffer.Buffer, cmdQueue resource.CommandQueue) (cont bool, err error)
}

// ProcessorImpl is the lifecycle capability record for ModeProcessor tasks.
// Every processor implements ProcessCPU; a GPU-only processor without it
// is not a ProcessorImpl and the worker rejects it with
// ErrMethodNotImplemented. When UsesGPU is set and the implementation
// also satisfies GPUProcessorImpl, the worker calls ProcessGPU instead of
// ProcessCPU.
type ProcessorImpl interface {
	TaskImpl
	Initialize(work []*buffer.Buffer) (outputDims [][]int, err error)
	ProcessCPU(work, result []*buffer.Buffer, cmdQueue resource.CommandQueue) error
}

// GPUProcessorImpl is the optional GPU entry point for a ModeProcessor task.
type GPUProcessorImpl interface {
	ProcessGPU(work, result []*buffer.Buffer, cmdQueue resource.CommandQueue) ([]GPUEvent, error)
}

// ReductorImpl is the lifecycle capability record for ModeReductor tasks.
type ReductorImpl interface {
	TaskImpl
	Initialize(work []*buffer.Buffer) (outputDims [][]int, defaultValueOut []float64, err error)
	Collect(work, result []*buffer.Buffer, cmdQueue resource.CommandQueue) error
	// Reduce runs in the post-pill reduction phase and reports whether
	// another reduction iteration (and downstream push) should occur.
	Reduce(result []*buffer.Buffer, cmdQueue resource.CommandQueue) (cont bool, err error)
}

// SinkImpl is the lifecycle capability record for ModeSink tasks.
type SinkImpl interface {
	TaskImpl
	Initialize(work []*buffer.Buffer) error
	Consume(work []*buffer.Buffer, cmdQueue resource.CommandQueue) error
}
