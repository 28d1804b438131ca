package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ufoflow/ufoflow/graph"
)

// envelope is what gets RPUSHed onto a node's work list: the mode string
// passed to SendJSON (TaskGraph.Expand sends "expand"; its meaning is left
// to the remote process) plus the raw subgraph document.
type envelope struct {
	Mode string          `json:"mode"`
	Doc  json.RawMessage `json:"doc"`
}

// Node is a Redis-backed graph.RemoteNode: one remote worker process is
// addressed by a list key it BLPOPs from.
type Node struct {
	client *redis.Client
	id     string
	prefix string
}

// Options configures a Node's Redis connection and addressing.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, default "ufoflow:"
}

// NewNode returns a Node identifying the remote worker id, backed by the
// Redis connection described by opts.
func NewNode(id string, opts Options) *Node {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ufoflow:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Node{client: client, id: id, prefix: prefix}
}

// NewNodeWithClient returns a Node using an already-constructed client,
// for tests that want to inject a miniredis-backed *redis.Client.
func NewNodeWithClient(id string, client *redis.Client, prefix string) *Node {
	if prefix == "" {
		prefix = "ufoflow:"
	}
	return &Node{client: client, id: id, prefix: prefix}
}

// ID implements graph.RemoteNode.
func (n *Node) ID() string { return n.id }

func (n *Node) workKey() string {
	return fmt.Sprintf("%sremote:%s:work", n.prefix, n.id)
}

// SendJSON implements graph.RemoteNode: it RPUSHes the subgraph document
// onto the remote worker's work list, which the remote process is
// expected to BLPOP and load.
func (n *Node) SendJSON(mode string, jsonDoc []byte) error {
	env := envelope{Mode: mode, Doc: json.RawMessage(jsonDoc)}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("remote: marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := n.client.RPush(ctx, n.workKey(), data).Err(); err != nil {
		return fmt.Errorf("remote: send to node %q: %w", n.id, err)
	}
	return nil
}

// Receive blocks (up to timeout) for the next envelope pushed to this
// node's work list, returning its mode and document. It is the remote
// worker process's half of the protocol, not used by the scheduler core
// itself, but kept alongside SendJSON since they share the wire format.
func (n *Node) Receive(ctx context.Context, timeout time.Duration) (mode string, jsonDoc []byte, err error) {
	res, err := n.client.BLPop(ctx, timeout, n.workKey()).Result()
	if err != nil {
		return "", nil, fmt.Errorf("remote: receive on node %q: %w", n.id, err)
	}
	if len(res) != 2 {
		return "", nil, fmt.Errorf("remote: unexpected BLPOP reply for node %q", n.id)
	}

	var env envelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		return "", nil, fmt.Errorf("remote: unmarshal envelope: %w", err)
	}
	return env.Mode, env.Doc, nil
}

var _ graph.RemoteNode = (*Node)(nil)
