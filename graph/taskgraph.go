package graph

import (
	"fmt"
)

// PluginManager is the narrow slice of the consumed plugin-manager
// interface that TaskGraph needs to turn a JSON node into a live Task.
// The concrete registry lives in package plugin; TaskGraph only depends
// on this interface to avoid an import cycle.
type PluginManager interface {
	// Create instantiates pluginName under the given instance name. The
	// returned Task's Inputs/Outputs/Mode/UsesGPU must already be set;
	// TaskGraph never fabricates port shape itself.
	Create(pluginName, instanceName string) (*Task, error)
}

// TaskGraph is a typed specialization of Graph whose nodes are Tasks and
// whose edges are labeled with the consumer's input port index.
type TaskGraph struct {
	g *Graph

	byName map[string]*Task

	partitionIndex int
	partitionTotal int

	// remoteNodes, if non-empty, are available for Expand's remote
	// splicing step. Populated by SetRemoteNodes.
	remoteNodes []RemoteNode
}

// RemoteNode is the consumed remote-worker transport: send a subgraph's
// JSON document to a remote process.
type RemoteNode interface {
	SendJSON(mode string, jsonDoc []byte) error
	// ID identifies the remote worker, used to name the RemoteTask
	// placeholder spliced into the graph.
	ID() string
}

// NewTaskGraph returns an empty TaskGraph with partition (0, 1).
func NewTaskGraph() *TaskGraph {
	return &TaskGraph{
		g:              NewGraph(),
		byName:         map[string]*Task{},
		partitionIndex: 0,
		partitionTotal: 1,
	}
}

// AddTask registers t. The caller is responsible for t.Name uniqueness;
// AddTask returns an error if the name collides.
func (tg *TaskGraph) AddTask(t *Task) error {
	if t.Name == "" {
		return jsonKeyErr("task name must not be empty")
	}
	if _, exists := tg.byName[t.Name]; exists {
		return jsonKeyErr("Duplicate name '%s' found", t.Name)
	}
	tg.byName[t.Name] = t
	tg.g.AddNode(t)
	return nil
}

// Task looks up a task by its instance name.
func (tg *TaskGraph) Task(name string) (*Task, bool) {
	t, ok := tg.byName[name]
	return t, ok
}

// Tasks returns every task, in insertion order.
func (tg *TaskGraph) Tasks() []*Task {
	nodes := tg.g.Nodes()
	out := make([]*Task, len(nodes))
	for i, n := range nodes {
		out[i] = n.(*Task)
	}
	return out
}

// Connect connects from -> to on to's input port 0.
func (tg *TaskGraph) Connect(from, to *Task) error {
	return tg.ConnectFull(from, to, 0)
}

// ConnectFull connects from -> to on to's given input port. Multiple
// edges may share a producer but must target distinct (consumer, port)
// pairs.
func (tg *TaskGraph) ConnectFull(from, to *Task, inputPort int) error {
	if inputPort < 0 || (len(to.Inputs) > 0 && inputPort >= len(to.Inputs)) {
		return jsonKeyErr("input port %d out of range for task %s", inputPort, to.Name)
	}
	for _, e := range tg.g.InEdges(to) {
		if e.Label == inputPort {
			return jsonKeyErr("task %s input port %d already connected", to.Name, inputPort)
		}
	}
	return tg.g.AddEdge(from, to, inputPort)
}

// SetPartition sets this graph's shard among a distributed deployment.
// A second call overwrites the prior value.
func (tg *TaskGraph) SetPartition(index, total int) error {
	if total < 1 || index < 0 || index >= total {
		return jsonKeyErr("invalid partition (%d, %d)", index, total)
	}
	tg.partitionIndex = index
	tg.partitionTotal = total
	return nil
}

// GetPartition returns the current (index, total) partition.
func (tg *TaskGraph) GetPartition() (index, total int) {
	return tg.partitionIndex, tg.partitionTotal
}

// SetRemoteNodes registers the remote workers available to Expand's
// expand_remote step.
func (tg *TaskGraph) SetRemoteNodes(nodes []RemoteNode) {
	tg.remoteNodes = nodes
}

// Predecessors, Successors, Roots, Leaves delegate to the underlying Graph,
// narrowing Node back to *Task for callers.
func (tg *TaskGraph) Predecessors(t *Task) []*Task { return asTasks(tg.g.Predecessors(t)) }
func (tg *TaskGraph) Successors(t *Task) []*Task   { return asTasks(tg.g.Successors(t)) }
func (tg *TaskGraph) Roots() []*Task               { return asTasks(tg.g.Roots()) }
func (tg *TaskGraph) Leaves() []*Task              { return asTasks(tg.g.Leaves()) }

// InputEdges returns the edges entering t, each giving the producer and
// the input port it feeds.
func (tg *TaskGraph) InputEdges(t *Task) []Edge { return tg.g.InEdges(t) }

// OutputEdges returns the edges leaving t.
func (tg *TaskGraph) OutputEdges(t *Task) []Edge { return tg.g.OutEdges(t) }

func asTasks(nodes []Node) []*Task {
	out := make([]*Task, len(nodes))
	for i, n := range nodes {
		out[i] = n.(*Task)
	}
	return out
}

// IsAlright validates the graph's structural invariants: every leaf must
// be a Sink task (else ErrBadInputs), and any task receiving inputs from
// both a Processor-mode and a Reductor-mode predecessor is reported as a
// warning (never upgraded to error by default — callers that want the
// stricter behavior pass strict=true).
func (tg *TaskGraph) IsAlright(strict bool) (ok bool, warnings []string, err error) {
	for _, t := range tg.Tasks() {
		if len(tg.g.OutEdges(t)) == 0 && t.Mode != ModeSink {
			return false, warnings, &ErrBadInputs{Reason: fmt.Sprintf("leaf task %s is not a Sink", t.Name)}
		}
	}

	for _, t := range tg.Tasks() {
		preds := tg.Predecessors(t)
		if len(preds) <= 1 {
			continue
		}
		hasProcessor, hasReductor := false, false
		for _, p := range preds {
			switch p.Mode {
			case ModeProcessor:
				hasProcessor = true
			case ModeReductor:
				hasReductor = true
			}
		}
		if hasProcessor && hasReductor {
			w := fmt.Sprintf("task %s receives inputs from both a Processor and a Reductor predecessor", t.Name)
			warnings = append(warnings, w)
			if strict {
				return false, warnings, &ErrBadInputs{Reason: w}
			}
		}
	}

	return true, warnings, nil
}

// Fuse is currently a no-op hook; reserved as an extension seam for a
// future operator-fusion pass.
func (tg *TaskGraph) Fuse() error {
	return nil
}
