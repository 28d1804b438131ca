// Package resource defines the ResourceManager and CommandQueue contracts
// consumed by the scheduler and workers. The real OpenCL resource
// manager is out of scope for this module; this package only specifies
// the interface the core relies on, plus an in-process default
// implementation that backs buffers with host memory so the rest of the
// module can be built and tested without a GPU.
package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/ufoflow/ufoflow/buffer"
)

// CommandQueue is an opaque handle passed to task callbacks. The scheduler
// performs no locking on it; serialization across concurrent use is the
// task implementation's responsibility.
type CommandQueue interface {
	// ID identifies the queue, e.g. "gpu-0".
	ID() string
}

// Manager is the consumed ResourceManager contract: allocate buffers and
// hand out the command queues available for this run.
type Manager interface {
	// RequestBuffer allocates a buffer with the given N-D shape. hostData,
	// if non-nil, seeds the buffer's contents; fillValue, if non-nil,
	// primes every element instead.
	RequestBuffer(ctx context.Context, dims []int, hostData []float64, fillValue *float64) (*buffer.Buffer, error)

	// CommandQueues returns the command queues available to this run.
	CommandQueues() []CommandQueue
}

// hostQueue is the default Manager's CommandQueue implementation: a named
// handle with no real device behind it.
type hostQueue struct{ id string }

func (q hostQueue) ID() string { return q.id }

// HostManager is the default in-process Manager. It allocates buffers as
// plain host memory and reports n synthetic command queues, so the
// scheduler and workers can run end to end without a GPU — useful for
// tests and for plugins with no GPU entry point.
type HostManager struct {
	mu      sync.Mutex
	queues  []CommandQueue
	pending []*buffer.Buffer // all buffers ever allocated, for diagnostics
}

// NewHostManager returns a HostManager exposing nQueues command queues.
func NewHostManager(nQueues int) *HostManager {
	if nQueues < 1 {
		nQueues = 1
	}
	qs := make([]CommandQueue, nQueues)
	for i := range qs {
		qs[i] = hostQueue{id: fmt.Sprintf("host-%d", i)}
	}
	return &HostManager{queues: qs}
}

// RequestBuffer implements Manager.
func (m *HostManager) RequestBuffer(_ context.Context, dims []int, hostData []float64, fillValue *float64) (*buffer.Buffer, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("resource: request buffer: empty shape")
	}
	b := buffer.New(dims)
	switch {
	case hostData != nil:
		for i := 0; i < b.Len() && i < len(hostData); i++ {
			b.Set(i, hostData[i])
		}
	case fillValue != nil:
		b.FillWithValue(*fillValue)
	}
	m.mu.Lock()
	m.pending = append(m.pending, b)
	m.mu.Unlock()
	return b, nil
}

// CommandQueues implements Manager.
func (m *HostManager) CommandQueues() []CommandQueue {
	out := make([]CommandQueue, len(m.queues))
	copy(out, m.queues)
	return out
}
