package graph

// Node is the interface a Graph stores. Node equality is identity, not
// value equality — the Graph never relabels or merges nodes.
type Node interface{}

// Edge is a labeled directed edge between two nodes. Label carries
// graph-specific metadata; TaskGraph uses it for the consumer's input
// port index.
type Edge struct {
	From  Node
	To    Node
	Label int
}

// Graph is a generic directed multigraph: nodes plus labeled edges.
// Multiple edges may share an endpoint pair as long as their callers keep
// labels distinct; Graph itself does not enforce label uniqueness (that is
// a TaskGraph-level invariant — see TaskGraph.Connect).
type Graph struct {
	nodes []Node
	edges []Edge

	// adjacency indexes, updated in step with edges on every mutation
	out map[Node][]Edge
	in  map[Node][]Edge
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		out: make(map[Node][]Edge),
		in:  make(map[Node][]Edge),
	}
}

// AddNode registers n with the graph. Adding the same node twice is a no-op.
func (g *Graph) AddNode(n Node) {
	if g.hasNode(n) {
		return
	}
	g.nodes = append(g.nodes, n)
}

func (g *Graph) hasNode(n Node) bool {
	for _, existing := range g.nodes {
		if existing == n {
			return true
		}
	}
	return false
}

// RemoveNode removes n and every edge touching it.
func (g *Graph) RemoveNode(n Node) {
	for i, existing := range g.nodes {
		if existing == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	filtered := g.edges[:0]
	for _, e := range g.edges {
		if e.From == n || e.To == n {
			continue
		}
		filtered = append(filtered, e)
	}
	g.edges = filtered
	delete(g.out, n)
	delete(g.in, n)
	for k, es := range g.out {
		g.out[k] = dropEndpoint(es, n)
	}
	for k, es := range g.in {
		g.in[k] = dropEndpoint(es, n)
	}
}

func dropEndpoint(es []Edge, n Node) []Edge {
	filtered := es[:0]
	for _, e := range es {
		if e.From == n || e.To == n {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// AddEdge connects from -> to with the given label, adding either endpoint
// if not already present. It returns ErrCycleDetected if the edge would
// close a cycle.
func (g *Graph) AddEdge(from, to Node, label int) error {
	g.AddNode(from)
	g.AddNode(to)

	if from == to || g.reachable(to, from) {
		return ErrCycleDetected
	}

	e := Edge{From: from, To: to, Label: label}
	g.edges = append(g.edges, e)
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
	return nil
}

// reachable reports whether to is reachable from from by following edges
// forward (used to detect a would-be cycle before inserting an edge).
func (g *Graph) reachable(from, to Node) bool {
	if from == to {
		return true
	}
	visited := map[Node]bool{}
	stack := []Node{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, s := range g.Successors(n) {
			if s == to {
				return true
			}
			stack = append(stack, s)
		}
	}
	return false
}

// Nodes returns all nodes, in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns all edges, in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// OutEdges returns the edges leaving n, in insertion order.
func (g *Graph) OutEdges(n Node) []Edge {
	return g.out[n]
}

// InEdges returns the edges entering n, in insertion order.
func (g *Graph) InEdges(n Node) []Edge {
	return g.in[n]
}

// Predecessors returns the distinct nodes with an edge into n.
func (g *Graph) Predecessors(n Node) []Node {
	seen := map[Node]bool{}
	var out []Node
	for _, e := range g.in[n] {
		if !seen[e.From] {
			seen[e.From] = true
			out = append(out, e.From)
		}
	}
	return out
}

// Successors returns the distinct nodes reached by an edge from n.
func (g *Graph) Successors(n Node) []Node {
	seen := map[Node]bool{}
	var out []Node
	for _, e := range g.out[n] {
		if !seen[e.To] {
			seen[e.To] = true
			out = append(out, e.To)
		}
	}
	return out
}

// Roots returns every node with no predecessors.
func (g *Graph) Roots() []Node {
	var out []Node
	for _, n := range g.nodes {
		if len(g.in[n]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Leaves returns every node with no successors.
func (g *Graph) Leaves() []Node {
	var out []Node
	for _, n := range g.nodes {
		if len(g.out[n]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// EdgeCount counts edges between the given endpoint pair.
func (g *Graph) EdgeCount(from, to Node) int {
	n := 0
	for _, e := range g.out[from] {
		if e.To == to {
			n++
		}
	}
	return n
}

// FindLongestPath returns the longest simple path consisting only of nodes
// satisfying predicate, as a slice of nodes from start to end inclusive.
// Ties are broken by first discovery order (the order nodes were added).
// Returns nil if no node satisfies predicate.
func (g *Graph) FindLongestPath(predicate func(Node) bool) []Node {
	var best []Node

	var visit func(path []Node, visited map[Node]bool)
	visit = func(path []Node, visited map[Node]bool) {
		if len(path) > len(best) {
			best = append([]Node(nil), path...)
		}
		cur := path[len(path)-1]
		for _, s := range g.Successors(cur) {
			if !predicate(s) || visited[s] {
				continue
			}
			visited[s] = true
			visit(append(path, s), visited)
			visited[s] = false
		}
	}

	for _, n := range g.nodes {
		if !predicate(n) {
			continue
		}
		visited := map[Node]bool{n: true}
		visit([]Node{n}, visited)
	}
	return best
}

// Expand clones every interior node of path (i.e. every node except the
// first and last) and splices the clones in as a parallel lane between
// path's original endpoints. cloneFn must return a fresh Node equal in
// every respect to its argument except identity. Expand fails with
// ErrCycleDetected if path has fewer than 2 nodes (nothing to anchor).
// A 2-node path has no interior node to clone and leaves the graph
// unchanged.
func (g *Graph) Expand(path []Node, cloneFn func(Node) Node) ([]Node, error) {
	if len(path) < 2 {
		return nil, ErrCycleDetected
	}

	anchorFrom := path[0]
	anchorTo := path[len(path)-1]
	interior := path[1 : len(path)-1]
	if len(interior) == 0 {
		return nil, nil
	}

	clones := make([]Node, len(interior))
	for i, n := range interior {
		clones[i] = cloneFn(n)
		g.AddNode(clones[i])
	}

	prev := anchorFrom
	for i, c := range clones {
		label := 0
		if i == 0 {
			label = firstInteriorLabel(g, anchorFrom, interior[0])
		}
		if err := g.AddEdge(prev, c, label); err != nil {
			return nil, err
		}
		prev = c
	}
	lastLabel := lastInteriorLabel(g, interior[len(interior)-1], anchorTo)
	if err := g.AddEdge(prev, anchorTo, lastLabel); err != nil {
		return nil, err
	}

	return clones, nil
}

func firstInteriorLabel(g *Graph, from, to Node) int {
	for _, e := range g.out[from] {
		if e.To == to {
			return e.Label
		}
	}
	return 0
}

func lastInteriorLabel(g *Graph, from, to Node) int {
	for _, e := range g.out[from] {
		if e.To == to {
			return e.Label
		}
	}
	return 0
}
