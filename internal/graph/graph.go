package graph

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// NodeID identifies a node inside one Graph. Zero is never allocated and is
// used as "no trigger" by the dirty propagation API.
type NodeID uint64

// NoTrigger marks a dirty transition that was not caused by another node.
const NoTrigger NodeID = 0

var (
	// ErrCycle is returned by CheckConnect when the edge would close a cycle.
	ErrCycle = errors.New("edge would create a cycle")
	// ErrNodeNotFound is returned when an id is not registered in the graph.
	ErrNodeNotFound = errors.New("node not found")
)

// Graph owns node identity allocation and the adjacency relation.
type Graph struct {
	mu     sync.RWMutex
	nextID NodeID
	nodes  map[NodeID]*Node
	preds  map[NodeID]mapset.Set[NodeID]
	succs  map[NodeID]mapset.Set[NodeID]
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*Node),
		preds: make(map[NodeID]mapset.Set[NodeID]),
		succs: make(map[NodeID]mapset.Set[NodeID]),
	}
}

// CreateID allocates a fresh, never-reused id.
func (g *Graph) CreateID() NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return g.nextID
}

// NewNode allocates an id, builds a node around it and registers it.
func (g *Graph) NewNode(name string, owner any) *Node {
	n := newNode(g, g.CreateID(), name, owner)
	g.SetNode(n)
	return n
}

// SetNode registers a node. Registering an id twice replaces the node but
// keeps its edges.
func (g *Graph) SetNode(n *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.id] = n
	if _, ok := g.preds[n.id]; !ok {
		g.preds[n.id] = mapset.NewThreadUnsafeSet[NodeID]()
		g.succs[n.id] = mapset.NewThreadUnsafeSet[NodeID]()
	}
}

// RemoveNode deregisters a node after severing all of its edges.
func (g *Graph) RemoveNode(id NodeID) {
	g.DisconnectPredecessors(id)
	g.DisconnectSuccessors(id)

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.nodes, id)
	delete(g.preds, id)
	delete(g.succs, id)
}

// Node looks up a registered node.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of registered nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Connect adds the edge src -> dest (dest depends on src). It returns false
// and leaves the graph untouched when either node is unknown or the edge
// would create a cycle.
func (g *Graph) Connect(src, dest NodeID) bool {
	return g.CheckConnect(src, dest) == nil
}

// CheckConnect is Connect with the reason for a refusal.
func (g *Graph) CheckConnect(src, dest NodeID) error {
	g.mu.Lock()
	if _, ok := g.nodes[src]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("connect %d -> %d: source: %w", src, dest, ErrNodeNotFound)
	}
	if _, ok := g.nodes[dest]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("connect %d -> %d: destination: %w", src, dest, ErrNodeNotFound)
	}
	if g.succs[src].ContainsOne(dest) {
		g.mu.Unlock()
		return nil
	}
	if src == dest || g.reachableLocked(dest, src) {
		g.mu.Unlock()
		return fmt.Errorf("connect %d -> %d: %w", src, dest, ErrCycle)
	}
	g.succs[src].Add(dest)
	g.preds[dest].Add(src)
	g.mu.Unlock()

	g.invalidateFrom(src)
	return nil
}

// Disconnect removes a single edge. It reports whether the edge existed.
func (g *Graph) Disconnect(src, dest NodeID) bool {
	g.mu.Lock()
	s, ok := g.succs[src]
	if !ok || !s.ContainsOne(dest) {
		g.mu.Unlock()
		return false
	}
	s.Remove(dest)
	g.preds[dest].Remove(src)
	g.mu.Unlock()

	g.invalidateFrom(src)
	return true
}

// DisconnectPredecessors removes every edge ending at id.
func (g *Graph) DisconnectPredecessors(id NodeID) {
	for _, p := range g.Predecessors(id) {
		g.Disconnect(p, id)
	}
}

// DisconnectSuccessors removes every edge starting at id.
func (g *Graph) DisconnectSuccessors(id NodeID) {
	for _, s := range g.Successors(id) {
		g.Disconnect(id, s)
	}
}

// HasEdge reports whether src -> dest exists.
func (g *Graph) HasEdge(src, dest NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.succs[src]
	return ok && s.ContainsOne(dest)
}

// Predecessors returns the direct predecessors of id, sorted.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedIDs(g.preds[id])
}

// Successors returns the direct successors of id, sorted.
func (g *Graph) Successors(id NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedIDs(g.succs[id])
}

// AllPredecessors returns every node from which id is reachable, sorted.
// The node itself is never included.
func (g *Graph) AllPredecessors(id NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedIDs(g.closureLocked(id, g.preds))
}

// AllSuccessors returns every node reachable from id in topological order
// (a node always comes after all of its predecessors within the set). Ties
// are broken by id.
func (g *Graph) AllSuccessors(id NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	reach := g.closureLocked(id, g.succs)
	if reach.Cardinality() == 0 {
		return nil
	}

	// Kahn's algorithm restricted to the reachable set.
	indegree := make(map[NodeID]int, reach.Cardinality())
	reach.Each(func(n NodeID) bool {
		count := 0
		g.preds[n].Each(func(p NodeID) bool {
			if reach.ContainsOne(p) {
				count++
			}
			return false
		})
		indegree[n] = count
		return false
	})

	var ready []NodeID
	for n, d := range indegree {
		if d == 0 {
			ready = append(ready, n)
		}
	}
	slices.Sort(ready)

	out := make([]NodeID, 0, len(indegree))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, n)

		var released []NodeID
		g.succs[n].Each(func(s NodeID) bool {
			if _, ok := indegree[s]; !ok {
				return false
			}
			indegree[s]--
			if indegree[s] == 0 {
				released = append(released, s)
			}
			return false
		})
		slices.Sort(released)
		ready = append(ready, released...)
	}
	return out
}

// reachableLocked reports whether to can be reached from from.
func (g *Graph) reachableLocked(from, to NodeID) bool {
	if from == to {
		return true
	}
	seen := mapset.NewThreadUnsafeSet[NodeID](from)
	stack := []NodeID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		found := false
		g.succs[n].Each(func(s NodeID) bool {
			if s == to {
				found = true
				return true
			}
			if seen.Add(s) {
				stack = append(stack, s)
			}
			return false
		})
		if found {
			return true
		}
	}
	return false
}

// closureLocked walks edges from id and returns every visited node except id.
func (g *Graph) closureLocked(id NodeID, edges map[NodeID]mapset.Set[NodeID]) mapset.Set[NodeID] {
	out := mapset.NewThreadUnsafeSet[NodeID]()
	start, ok := edges[id]
	if !ok {
		return out
	}
	stack := start.ToSlice()
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !out.Add(n) {
			continue
		}
		edges[n].Each(func(next NodeID) bool {
			if !out.ContainsOne(next) {
				stack = append(stack, next)
			}
			return false
		})
	}
	return out
}

// invalidateFrom drops the memoized successor lists that an edge change at
// src can affect.
func (g *Graph) invalidateFrom(src NodeID) {
	if n, ok := g.Node(src); ok {
		n.Dirty().ClearSuccessorsCacheWithPredecessors()
	}
}

func sortedIDs(s mapset.Set[NodeID]) []NodeID {
	if s == nil || s.Cardinality() == 0 {
		return nil
	}
	out := s.ToSlice()
	slices.Sort(out)
	return out
}
