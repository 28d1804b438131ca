// Package scheduler runs a validated TaskGraph: derive the Relation
// fabric from its edges, launch one Worker per task concurrently, join
// them, and report aggregate timing. The scheduler owns Relation values
// for the duration of a run; workers hold only non-owning views into
// them.
//
// There is no central scheduling loop at runtime — Run only launches and
// joins. Ordering emerges entirely from the dataflow edges and the
// backpressure of each relation's recycle pool.
package scheduler
