// Package plugin implements the plugin manager consumed by
// graph.TaskGraph's JSON loader: a name-keyed registry of task
// constructors. The real plugin loader is an external collaborator; this
// package gives it a minimal, registrable home so the graph package can
// be exercised end to end without a real OpenCL plugin loader.
package plugin
