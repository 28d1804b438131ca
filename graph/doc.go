// Package graph provides the task-graph core of ufoflow: a generic directed
// acyclic multigraph (Graph) and a typed specialization over processing
// tasks (TaskGraph) that can be loaded from and saved to a declarative JSON
// document, validated, expanded for data-parallel replication, and mapped
// onto GPU execution contexts.
//
// # Core Concepts
//
// ## Graph
// Graph is the generic primitive: a node set plus labeled directed edges,
// with queries for predecessors, successors, roots, and leaves, a
// longest-simple-path search under a node predicate, and a path-duplication
// primitive used by TaskGraph.Expand.
//
// ## TaskGraph
// TaskGraph specializes Graph with Task nodes, where each edge is labeled
// with the consumer's input port index. It owns JSON load/save, structural
// validation (is_alright), GPU-path expansion, and round-robin GPU mapping.
//
// # Example Usage
//
//	tg := graph.NewTaskGraph()
//	src := graph.NewTask("source", "a", graph.ModeSource)
//	snk := graph.NewTask("sink", "b", graph.ModeSink)
//	tg.AddTask(src)
//	tg.AddTask(snk)
//	if err := tg.Connect(src, snk); err != nil {
//		log.Fatal(err)
//	}
//	ok, warnings, err := tg.IsAlright(false)
package graph
