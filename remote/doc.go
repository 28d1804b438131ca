// Package remote implements the remote-node transport consumed by
// TaskGraph.Expand's remote-splicing step: sending a subgraph's JSON
// document to a remote worker process. The wire protocol itself is
// unspecified by the core; this package grounds it on a Redis list per
// remote node, reusing go-redis for both the store backend and this
// transport.
package remote
