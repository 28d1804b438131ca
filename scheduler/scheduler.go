package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ufoflow/ufoflow/graph"
	"github.com/ufoflow/ufoflow/log"
	"github.com/ufoflow/ufoflow/relation"
	"github.com/ufoflow/ufoflow/resource"
	"github.com/ufoflow/ufoflow/store"
	"github.com/ufoflow/ufoflow/worker"
)

// Config wires the scheduler's external collaborators.
type Config struct {
	// Resources supplies command queues and allocates buffer pools.
	// Required.
	Resources resource.Manager
	// Store, if set, receives one ExecutionInfo per task at the end of
	// the run.
	Store store.Store
	// Logger receives warnings and fatal task errors, named with the
	// failing task's plugin and instance identifier.
	Logger log.Logger
}

// Report is what Run returns on a clean shutdown: aggregate wall time
// plus per-task timing and throughput, keyed by task instance name.
type Report struct {
	RunID       string
	WallTime    time.Duration
	TaskTimings map[string]time.Duration
	TaskCounts  map[string]int64
}

// Run derives the relation fabric from tg's edges, launches one worker
// per task, joins them, and reports aggregate timing. On any worker
// failure it returns the first observed error once every worker has
// joined; it does not race to free buffers while other workers may
// still be touching them.
func Run(ctx context.Context, tg *graph.TaskGraph, cfg Config) (*Report, error) {
	if cfg.Resources == nil {
		return nil, fmt.Errorf("scheduler: Config.Resources is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewDefaultLogger(log.LogLevelNone)
	}

	if ok, warnings, err := tg.IsAlright(false); !ok {
		return nil, fmt.Errorf("scheduler: graph validation: %w", err)
	} else {
		for _, w := range warnings {
			logger.Warn("%s", w)
		}
	}

	workers, err := buildWorkers(tg, cfg.Resources, logger)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()

	type outcome struct {
		name   string
		result worker.Result
		start  time.Time
		end    time.Time
	}

	outcomes := make(chan outcome, len(workers))
	var wg sync.WaitGroup
	for name, w := range workers {
		wg.Add(1)
		go func(name string, w *worker.Worker) {
			defer wg.Done()
			taskStart := time.Now()
			defer func() {
				if r := recover(); r != nil {
					outcomes <- outcome{
						name:   name,
						result: worker.Result{TaskName: name, Err: fmt.Errorf("panic: %v", r)},
						start:  taskStart,
						end:    time.Now(),
					}
				}
			}()
			res := w.Run(ctx)
			outcomes <- outcome{name: name, result: res, start: taskStart, end: time.Now()}
		}(name, w)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	report := &Report{
		RunID:       runID,
		TaskTimings: map[string]time.Duration{},
		TaskCounts:  map[string]int64{},
	}
	var firstErr error
	for o := range outcomes {
		report.TaskTimings[o.name] = o.result.HostTime
		report.TaskCounts[o.name] = int64(o.result.NProcessed)

		if o.result.Err != nil && firstErr == nil {
			t, _ := tg.Task(o.name)
			if t != nil {
				logger.Error("task %s(%s) failed: %v", t.Plugin, t.Name, o.result.Err)
			}
			firstErr = o.result.Err
		}

		if cfg.Store != nil {
			t, _ := tg.Task(o.name)
			plugin := ""
			if t != nil {
				plugin = t.Plugin
			}
			errStr := ""
			if o.result.Err != nil {
				errStr = o.result.Err.Error()
			}
			info := &store.ExecutionInfo{
				RunID:      runID,
				TaskID:     o.name,
				Plugin:     plugin,
				StartedAt:  o.start,
				EndedAt:    o.end,
				HostTime:   o.result.HostTime,
				NProcessed: int64(o.result.NProcessed),
				GPUEvents:  convertEvents(o.result.Events),
				Err:        errStr,
			}
			if saveErr := cfg.Store.Save(ctx, info); saveErr != nil {
				logger.Warn("store: save execution info for %s: %v", o.name, saveErr)
			}
		}
	}

	report.WallTime = time.Since(started)
	if firstErr != nil {
		return report, firstErr
	}
	return report, nil
}

func convertEvents(events []graph.GPUEvent) []store.GPUEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]store.GPUEvent, len(events))
	for i, e := range events {
		out[i] = store.GPUEvent{
			CommandType: e.CommandType,
			Status:      e.Status,
			Queued:      e.Queued,
			Submitted:   e.Submitted,
			Started:     e.Started,
			Ended:       e.Ended,
		}
	}
	return out
}

// buildWorkers derives one Relation per declared task output port from
// tg's edges and constructs the corresponding Worker set.
//
// The graph's own JSON edge schema carries only the consumer's input
// port, never a producer output port, so every outgoing edge of a task
// is attached to that task's output port 0; a task's additional
// declared output ports (beyond the first) are valid but have no
// consumers in this edge model. Each of those ports still gets its own
// Relation and buffer pool so a task that declares more than one output
// port runs without error; Relation.PushOutput recycles a port's
// buffers directly when it has no attached consumer.
func buildWorkers(tg *graph.TaskGraph, resources resource.Manager, logger log.Logger) (map[string]*worker.Worker, error) {
	tasks := tg.Tasks()
	queues := resources.CommandQueues()
	if len(queues) == 0 {
		return nil, fmt.Errorf("scheduler: resource manager reports no command queues")
	}

	// Partitioning is consulted by Source tasks, not just carried by the
	// graph: expose (index, total) as a read-only property so a
	// partition-aware Source can stripe its input stream.
	partIndex, partTotal := tg.GetPartition()
	for _, t := range tasks {
		if t.Mode == graph.ModeSource {
			t.Properties["partition_index"] = partIndex
			t.Properties["partition_total"] = partTotal
		}
	}

	outputRelations := make(map[string][]*relation.Relation, len(tasks))
	for _, t := range tasks {
		if t.NumOutputs() == 0 {
			continue
		}
		rels := make([]*relation.Relation, t.NumOutputs())
		for port := 0; port < t.NumOutputs(); port++ {
			rels[port] = relation.New(t.Name, port, t.Outputs[port].Pool())
		}
		outputRelations[t.Name] = rels
	}

	type laneRef struct {
		rel  *relation.Relation
		lane int
	}
	inputLanes := make(map[string]map[int]laneRef, len(tasks))
	for _, t := range tasks {
		for _, e := range tg.InputEdges(t) {
			from := e.From.(*graph.Task)
			rels, ok := outputRelations[from.Name]
			if !ok || len(rels) == 0 {
				return nil, fmt.Errorf("scheduler: task %s has no output relation to feed %s", from.Name, t.Name)
			}
			rel := rels[0]
			lane := rel.AddConsumer(t.Name, e.Label)
			if inputLanes[t.Name] == nil {
				inputLanes[t.Name] = map[int]laneRef{}
			}
			inputLanes[t.Name][e.Label] = laneRef{rel: rel, lane: lane}
		}
	}

	workers := make(map[string]*worker.Worker, len(tasks))
	for i, t := range tasks {
		inputs := make([]worker.Input, t.NumInputs())
		for port := 0; port < t.NumInputs(); port++ {
			ref, ok := inputLanes[t.Name][port]
			if !ok {
				return nil, fmt.Errorf("scheduler: task %s input port %d has no producer", t.Name, port)
			}
			inputs[port] = worker.Input{Rel: ref.rel, Lane: ref.lane, Expected: t.Inputs[port].NExpectedItems}
		}

		var outputs []worker.Output
		if rels, ok := outputRelations[t.Name]; ok {
			outputs = make([]worker.Output, len(rels))
			for port, rel := range rels {
				outputs[port] = worker.Output{Rel: rel}
			}
		}

		queue := queueFor(t, queues, i)
		workers[t.Name] = &worker.Worker{
			Task:      t,
			Inputs:    inputs,
			Outputs:   outputs,
			Queue:     queue,
			Resources: resources,
			Logger:    logger,
		}
	}

	return workers, nil
}

// queueFor picks t's command queue: its mapped ProcNode when Map has run
// and a queue with a matching ID exists, otherwise a round-robin
// fallback keyed by the task's position in the graph's task list.
func queueFor(t *graph.Task, queues []resource.CommandQueue, index int) resource.CommandQueue {
	if t.ProcNode != nil {
		for _, q := range queues {
			if q.ID() == t.ProcNode.ID() {
				return q
			}
		}
	}
	return queues[index%len(queues)]
}
