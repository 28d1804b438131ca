package graph

import (
	"fmt"

	"github.com/ufoflow/ufoflow/log"
)

// ExpandOptions configures TaskGraph.Expand.
type ExpandOptions struct {
	// NGPUs is the number of parallel lanes to produce; lane 0 is the
	// original path.
	NGPUs int
	// ExpandRemote, if set, splices a RemoteTask placeholder for each
	// registered remote node before lane duplication.
	ExpandRemote bool
	// Logger receives the warning emitted when expansion is skipped
	// because the common-ancestry node is ambiguous. A nil Logger is
	// replaced with log.Default().
	Logger log.Logger
}

// isGPUTask is the predicate FindLongestPath uses: a task is GPU-only for
// expansion purposes if it declares a GPU processing entry point.
func isGPUTask(n Node) bool {
	t, ok := n.(*Task)
	return ok && t.UsesGPU
}

// RemoteTask is the placeholder spliced into the graph in place of a
// remote-executed subgraph. It has exactly one input and one output port
// and is otherwise an ordinary Task node with Mode = ModeProcessor.
type RemoteTask struct {
	*Task
	RemoteNodeID string
}

// newDummyTask pads a trivial remote subgraph so the remote side always
// has at least one operator.
func newDummyTask(name string) *Task {
	t := NewTask("dummy", name, ModeProcessor)
	t.Inputs = []InputPort{{NExpectedItems: Infinite}}
	t.Outputs = []OutputPort{{NDims: 1}}
	return t
}

// Expand duplicates the longest GPU-only path n_gpus-1 additional times
// to create parallel lanes, optionally splicing in remote-executed
// subgraphs first.
func (tg *TaskGraph) Expand(opts ExpandOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.NGPUs < 1 {
		return fmt.Errorf("graph: expand: NGPUs must be >= 1")
	}

	// Step 1: longest path of GPU-only nodes.
	p := asTasks(tg.g.FindLongestPath(isGPUTask))
	if len(p) == 0 {
		return nil // nothing to duplicate: a no-op, same as NGPUs == 1.
	}

	// Step 2: common-ancestry check. C is the set of P's own nodes that
	// have more than one predecessor in the full graph.
	var common []*Task
	for _, t := range p {
		if len(tg.Predecessors(t)) > 1 {
			common = append(common, t)
		}
	}
	if len(common) > 1 {
		logger.Warn("graph: expand: %d common-ancestry nodes found in GPU path, shape too ambiguous to duplicate safely; aborting", len(common))
		return nil
	}
	if len(common) == 1 {
		idx := indexOfTask(p, common[0])
		p = p[idx+1:] // prune: begin strictly after the common node
	}
	if len(p) == 0 {
		return nil
	}

	// Step 3: anchor the pruned path with one predecessor and one successor
	// from the unchanged parts of the graph.
	preds := tg.Predecessors(p[0])
	succs := tg.Successors(p[len(p)-1])
	if len(preds) == 0 || len(succs) == 0 {
		logger.Warn("graph: expand: GPU path has no anchoring predecessor/successor; aborting")
		return nil
	}
	anchorFrom, anchorTo := preds[0], succs[0]

	// Step 4: remote expansion, spliced between the anchors.
	if opts.ExpandRemote && len(tg.remoteNodes) > 0 {
		if err := tg.expandRemote(p, anchorFrom, anchorTo, logger); err != nil {
			return err
		}
	}

	fullPath := make([]Node, 0, len(p)+2)
	fullPath = append(fullPath, anchorFrom)
	for _, t := range p {
		fullPath = append(fullPath, t)
	}
	fullPath = append(fullPath, anchorTo)

	// Step 5: clone the lane NGPUs-1 additional times.
	cloneFn := func(n Node) Node {
		src := n.(*Task)
		clone := *src
		clone.Name = fmt.Sprintf("%s#%d", src.Name, len(tg.byName))
		clone.ProcNode = nil
		clone.Properties = copyProps(src.Properties)
		t := &clone
		tg.byName[t.Name] = t
		return t
	}

	for i := 1; i < opts.NGPUs; i++ {
		if _, err := tg.g.Expand(fullPath, cloneFn); err != nil {
			return err
		}
	}

	return nil
}

func copyProps(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func indexOfTask(path []*Task, t *Task) int {
	for i, p := range path {
		if p == t {
			return i
		}
	}
	return -1
}

// expandRemote builds a subgraph JSON document from the interior path p
// and sends it to every registered remote node, splicing a RemoteTask
// placeholder between anchorFrom/anchorTo for each.
func (tg *TaskGraph) expandRemote(p []*Task, anchorFrom, anchorTo *Task, logger log.Logger) error {
	sub := NewTaskGraph()
	if len(p) == 0 {
		_ = sub.AddTask(newDummyTask("remote-dummy"))
	} else {
		for _, t := range p {
			clone := *t
			clone.ProcNode = nil
			if err := sub.AddTask(&clone); err != nil {
				return err
			}
		}
		for i := 0; i < len(p)-1; i++ {
			a, _ := sub.Task(p[i].Name)
			b, _ := sub.Task(p[i+1].Name)
			if err := sub.Connect(a, b); err != nil {
				return err
			}
		}
	}

	docBytes, err := sub.Save()
	if err != nil {
		return fmt.Errorf("graph: expand remote: %w", err)
	}

	// Each placeholder is a parallel lane into anchorTo, so it feeds the
	// same input port as the original path, like Graph.Expand's clones.
	toLabel := 0
	if len(p) > 0 {
		toLabel = lastInteriorLabel(tg.g, p[len(p)-1], anchorTo)
	}

	for _, rn := range tg.remoteNodes {
		if err := rn.SendJSON("expand", docBytes); err != nil {
			logger.Warn("graph: expand remote: sending subgraph to %s: %v", rn.ID(), err)
			continue
		}
		rt := &RemoteTask{
			Task:         NewTask("remote", fmt.Sprintf("remote-%s", rn.ID()), ModeProcessor),
			RemoteNodeID: rn.ID(),
		}
		rt.Inputs = []InputPort{{NExpectedItems: Infinite}}
		rt.Outputs = []OutputPort{{NDims: 1}}
		if err := tg.AddTask(rt.Task); err != nil {
			return err
		}
		if err := tg.Connect(anchorFrom, rt.Task); err != nil {
			return err
		}
		if err := tg.g.AddEdge(rt.Task, anchorTo, toLabel); err != nil {
			return err
		}
	}
	return nil
}
