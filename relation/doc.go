// Package relation implements the Relation / Port-Channel fabric: the
// per-producer-port object that owns the paired data and recycle queues
// realizing credit-based backpressure between a producer and its
// consumers, plus the poison-pill termination sentinel.
//
// A Relation is created by the scheduler for each task output port, fed
// its consumer lanes (one per edge leaving that port), seeded with the
// port's buffer pool, then handed to the producer and consumer workers as
// non-owning views. The scheduler owns Relation values for the duration
// of a run; the graph itself never participates in runtime buffer
// ownership.
package relation
