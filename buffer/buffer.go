// Package buffer implements the Buffer handle: a reference-counted, N-D
// shaped, GPU-backed data block. The scheduler only relies on reference
// semantics and FillWithValue; everything else (actual GPU-side storage)
// belongs to the resource manager, an external collaborator.
package buffer

import "sync/atomic"

// Buffer is an opaque, reference-counted N-D shaped data block. The
// resource manager allocates it; a producing worker fills it, then hands
// it to a relation's data queue; a consuming worker reads it, then hands
// it back to the recycle queue. A Buffer is alive from allocation until
// the scheduler disposes of the pool at shutdown.
type Buffer struct {
	dims []int
	// host is the host-visible backing store. Real deployments back this
	// with an OpenCL device allocation through the resource manager; the
	// in-process default resource manager (see package resource) backs it
	// with a plain slice so the scheduler and worker logic can be
	// exercised without a GPU.
	host []float64

	refCount int32
}

// New allocates a Buffer with the given N-D shape. Every element is
// zero-valued.
func New(dims []int) *Buffer {
	n := 1
	for _, d := range dims {
		n *= d
	}
	d := make([]int, len(dims))
	copy(d, dims)
	return &Buffer{dims: d, host: make([]float64, n), refCount: 1}
}

// Dims returns the buffer's declared N-D shape.
func (b *Buffer) Dims() []int {
	out := make([]int, len(b.dims))
	copy(out, b.dims)
	return out
}

// Len returns the total element count (product of Dims).
func (b *Buffer) Len() int { return len(b.host) }

// FillWithValue sets every element of the buffer to v. This is the one
// buffer mutation the scheduler itself ever performs directly — used by
// Reductor workers to prime result buffers before the collection phase.
func (b *Buffer) FillWithValue(v float64) {
	for i := range b.host {
		b.host[i] = v
	}
}

// Set writes a single element, flattened row-major.
func (b *Buffer) Set(i int, v float64) { b.host[i] = v }

// Get reads a single element, flattened row-major.
func (b *Buffer) Get(i int) float64 { return b.host[i] }

// Retain increments the reference count, returning the same buffer.
func (b *Buffer) Retain() *Buffer {
	atomic.AddInt32(&b.refCount, 1)
	return b
}

// Release decrements the reference count and reports whether it reached
// zero. Callers that observe true are responsible for returning the
// buffer to its owning pool rather than leaking it; Release itself does
// not free anything. Pool ownership belongs unambiguously to the
// resource manager, not to ad hoc refcount tricks scattered across
// workers.
func (b *Buffer) Release() bool {
	return atomic.AddInt32(&b.refCount, -1) == 0
}

// RefCount reports the current reference count, for tests and diagnostics.
func (b *Buffer) RefCount() int32 {
	return atomic.LoadInt32(&b.refCount)
}
