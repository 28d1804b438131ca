// Package worker implements the per-task driver: one Worker per task,
// dispatched by the task's Mode, pulling input buffers from its
// Relations, invoking the task's lifecycle callbacks, and pushing output
// buffers downstream until it observes or originates a poison pill.
//
// Workers never touch the TaskGraph after launch; they hold only the
// Relation views the Scheduler built for them plus a resource.Manager for
// buffer pool allocation at Initialize time.
package worker
