// Package ufoflow is a GPU-oriented dataflow task-graph scheduler.
//
// A task graph is a directed multigraph of Task nodes (Source, Processor,
// Reductor, Sink) connected by typed, port-labeled edges. Loading, mapping
// GPU execution contexts onto tasks, expanding a graph across multiple GPUs
// or remote workers, and running the resulting graph are the core
// operations; ufoflow implements each as its own package so that callers
// can compose a daemon, a one-shot CLI, or an embedded scheduler from the
// same pieces.
//
// # Quick Start
//
// Install the module:
//
//	go get github.com/ufoflow/ufoflow
//
// Basic example: load a graph from JSON, map it onto two GPU contexts, run
// it, and report timings.
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"os"
//
//		"github.com/ufoflow/ufoflow/graph"
//		"github.com/ufoflow/ufoflow/plugin"
//		"github.com/ufoflow/ufoflow/resource"
//		"github.com/ufoflow/ufoflow/scheduler"
//	)
//
//	func main() {
//		registry := plugin.NewRegistry()
//		// registry.Register("passthrough", passthrough.New)
//
//		data, _ := os.ReadFile("pipeline.json")
//		tg, err := graph.Load(data, registry)
//		if err != nil {
//			panic(err)
//		}
//
//		if err := tg.Map([]graph.ProcNode{graph.NewProcNode("gpu0"), graph.NewProcNode("gpu1")}); err != nil {
//			panic(err)
//		}
//
//		report, err := scheduler.Run(context.Background(), tg, scheduler.Config{Resources: resource.NewHostManager(2)})
//		if err != nil {
//			panic(err)
//		}
//		fmt.Printf("ran %d tasks in %s\n", len(report.TaskTimings), report.WallTime)
//	}
//
// # Package Structure
//
// graph/
// Task-graph construction, JSON load/save, GPU-path expansion, and
// round-robin GPU mapping.
//
//	tg := graph.NewTaskGraph()
//	src := graph.NewTask("source", "in", graph.ModeSource)
//	sink := graph.NewTask("sink", "out", graph.ModeSink)
//	tg.AddTask(src)
//	tg.AddTask(sink)
//	tg.Connect(src, sink)
//	ok, warnings, err := tg.IsAlright(false)
//
// buffer/
// The reference-counted, N-D shaped data block passed between tasks.
//
// resource/
// The external-collaborator interface for command queues and buffer
// allocation, with an in-process host-backed default implementation.
//
// relation/
// Paired data/recycle FIFO queues connecting a producer port to a
// consumer port, with poison-pill termination.
//
// worker/
// The per-task driver goroutine, dispatching on task Mode.
//
// scheduler/
// Derives the task set from a graph's relations, launches one worker per
// task, joins them, and aggregates timings and the first error.
//
// plugin/
// A name-to-constructor registry satisfying graph.PluginManager, used by
// graph.Load to instantiate nodes from a JSON document.
//
// remote/
// A Redis-backed RemoteNode implementation for shipping a subgraph to a
// remote worker process during expansion.
//
// store/
// Execution-report persistence across memory, SQLite, PostgreSQL, and
// Redis backends.
//
//	st, _ := sqlite.New(sqlite.Options{Path: "runs.db"})
//	st.Save(ctx, &store.ExecutionInfo{RunID: report.RunID, TaskID: "blur"})
//
// log/
// The ambient leveled-logging interface used by the graph expander, the
// workers, and the scheduler.
//
//	logger := log.NewDefaultLogger(log.LogLevelInfo)
//	err := tg.Expand(graph.ExpandOptions{NGPUs: 4, Logger: logger})
//
// cmd/ufod/
// A minimal daemon front door: load a graph, map it, run it, and persist
// the execution report through the scheduler's store. It does not expand
// the graph.
//
// # Configuration
//
// The daemon is configured through command-line flags:
//
//   - -graph: path to the task-graph JSON document to run (required)
//   - -gpus: number of GPU execution contexts to map onto (default 1)
//   - -store: execution-report store DSN, "sqlite://<path>"; empty means in-memory
//   - -log-level: debug, info, warn, error or none (default info)
//   - -listen: address reported in the startup log; ufod opens no listener
//   - -version: print the version and exit
//
// # License
//
// This project is licensed under the MIT License.
package ufoflow // import "github.com/ufoflow/ufoflow"
