package relation

import (
	"context"
	"fmt"
	"sync"

	"github.com/ufoflow/ufoflow/buffer"
)

// Item is the unit of transport on a data queue: either a populated
// buffer or the poison pill sentinel. Exactly one pill is ever delivered
// per consumer lane.
type Item struct {
	Buffer *buffer.Buffer
	Pill   bool
}

// consumerLane is one (consumer task, input port) attached to a
// producer's output port. Its data channel is capacity-bounded by the
// port's pool size: since a producer can never have more buffers in
// flight than the pool holds, that capacity is enough to make
// PushOutput non-blocking in practice.
type consumerLane struct {
	consumerName string
	inputPort    int
	data         chan Item

	mu       sync.Mutex
	pillSent bool
}

// Relation owns the queue pair for one (producer task, output port): a
// recycle queue shared by all its consumer lanes, and one data queue per
// lane. Buffers fanned out to more than one lane are reference counted;
// a buffer returns to the recycle queue only once every lane has
// released its reference.
type Relation struct {
	ProducerName string
	ProducerPort int

	poolSize int
	recycle  chan *buffer.Buffer

	mu        sync.Mutex
	consumers []*consumerLane
}

// New returns a Relation for the given producer output port with the
// given recycle pool capacity.
func New(producerName string, producerPort, poolSize int) *Relation {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Relation{
		ProducerName: producerName,
		ProducerPort: producerPort,
		poolSize:     poolSize,
		recycle:      make(chan *buffer.Buffer, poolSize),
	}
}

// AddConsumer attaches a (consumer task, input port) lane to this
// relation and returns its lane index, used by PopInput.
func (r *Relation) AddConsumer(consumerName string, inputPort int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumers = append(r.consumers, &consumerLane{
		consumerName: consumerName,
		inputPort:    inputPort,
		data:         make(chan Item, r.poolSize),
	})
	return len(r.consumers) - 1
}

// HasConsumer reports whether consumerName is attached to this relation.
func (r *Relation) HasConsumer(consumerName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.consumers {
		if c.consumerName == consumerName {
			return true
		}
	}
	return false
}

// NumConsumers returns the number of attached consumer lanes.
func (r *Relation) NumConsumers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consumers)
}

// PoolSize returns the recycle pool capacity this relation was created with.
func (r *Relation) PoolSize() int { return r.poolSize }

// Seed pushes the initial, empty buffer pool onto the recycle queue so
// the producer worker can pull from it before its first Generate/process
// call.
func (r *Relation) Seed(bufs []*buffer.Buffer) {
	for _, b := range bufs {
		r.recycle <- b
	}
}

// PushOutput fans buf out to every attached consumer lane, retaining an
// extra reference per additional lane so the buffer is only recyclable
// once every consumer has released it. Non-blocking in practice: lane
// channels are sized to the port's pool, which bounds how many buffers
// can ever be in flight at once.
//
// An output port can be declared without ever being wired to a
// consumer; in that case PushOutput returns buf straight to the
// recycle queue instead of dropping it, so the port's pool stays
// self-sustaining.
func (r *Relation) PushOutput(buf *buffer.Buffer) {
	r.mu.Lock()
	lanes := make([]*consumerLane, len(r.consumers))
	copy(lanes, r.consumers)
	r.mu.Unlock()

	if len(lanes) == 0 {
		r.recycle <- buf
		return
	}

	for i, lane := range lanes {
		b := buf
		if i < len(lanes)-1 {
			b = buf.Retain()
		}
		lane.data <- Item{Buffer: b}
	}
}

// PopOutputRecycle blocks until a recycled buffer is available or ctx is
// done.
func (r *Relation) PopOutputRecycle(ctx context.Context) (*buffer.Buffer, error) {
	select {
	case b := <-r.recycle:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Recycle returns buf to the pool once every consumer lane holding a
// reference to it has released it.
func (r *Relation) Recycle(buf *buffer.Buffer) {
	if buf.Release() {
		// Back in the pool with the single reference PushOutput expects.
		buf.Retain()
		r.recycle <- buf
	}
}

// PushPoisonPill delivers the pill exactly once to every attached
// consumer lane.
func (r *Relation) PushPoisonPill() {
	r.mu.Lock()
	lanes := make([]*consumerLane, len(r.consumers))
	copy(lanes, r.consumers)
	r.mu.Unlock()

	for _, lane := range lanes {
		lane.mu.Lock()
		alreadySent := lane.pillSent
		lane.pillSent = true
		lane.mu.Unlock()
		if !alreadySent {
			lane.data <- Item{Pill: true}
		}
	}
}

// PopInput blocks until a buffer or the poison pill arrives on the given
// consumer lane, or ctx is done.
func (r *Relation) PopInput(ctx context.Context, lane int) (Item, error) {
	r.mu.Lock()
	if lane < 0 || lane >= len(r.consumers) {
		r.mu.Unlock()
		return Item{}, fmt.Errorf("relation: lane %d out of range", lane)
	}
	ch := r.consumers[lane].data
	r.mu.Unlock()

	select {
	case it := <-ch:
		return it, nil
	case <-ctx.Done():
		return Item{}, ctx.Err()
	}
}
