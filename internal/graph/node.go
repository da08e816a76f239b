package graph

import "sync"

// RenameHook is invoked after a node's name changed.
type RenameHook func(n *Node, oldName string)

// Node is the base unit of identity. The owner is whatever entity the node
// stands for (an operator, a parameter, the scene clock); the graph never
// looks inside it.
type Node struct {
	id    NodeID
	graph *Graph
	dirty *DirtyState

	mu    sync.RWMutex
	name  string
	owner any

	renameHooks hookList[RenameHook]
}

func newNode(g *Graph, id NodeID, name string, owner any) *Node {
	n := &Node{id: id, graph: g, name: name, owner: owner}
	n.dirty = newDirtyState(n)
	return n
}

func (n *Node) ID() NodeID         { return n.id }
func (n *Node) Graph() *Graph      { return n.graph }
func (n *Node) Dirty() *DirtyState { return n.dirty }
func (n *Node) IsDirty() bool      { return n.dirty.IsDirty() }
func (n *Node) DirtyCount() uint64 { return n.dirty.DirtyCount() }

// Name returns the node's human-readable name.
func (n *Node) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// SetName renames the node and runs its rename hooks when the name changed.
// Uniqueness among siblings is the caller's concern.
func (n *Node) SetName(name string) {
	n.mu.Lock()
	old := n.name
	n.name = name
	n.mu.Unlock()
	if old == name {
		return
	}
	for _, h := range n.renameHooks.snapshot() {
		h(n, old)
	}
}

// Owner returns the entity this node stands for.
func (n *Node) Owner() any {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.owner
}

// SetOwner replaces the entity this node stands for.
func (n *Node) SetOwner(owner any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owner = owner
}

// AddRenameHook registers fn under name, replacing an earlier hook with the
// same name.
func (n *Node) AddRenameHook(name string, fn RenameHook) {
	n.renameHooks.add(name, fn)
}

// RemoveRenameHook drops the hook registered under name.
func (n *Node) RemoveRenameHook(name string) bool {
	return n.renameHooks.remove(name)
}

// SetDirty marks the node dirty and propagates to its successors.
func (n *Node) SetDirty(trigger NodeID) {
	n.dirty.SetDirty(trigger, true)
}

// SetSuccessorsDirty dirties every transitive successor.
func (n *Node) SetSuccessorsDirty(trigger NodeID) {
	n.dirty.SetSuccessorsDirty(trigger)
}

// RemoveDirtyState marks the node clean.
func (n *Node) RemoveDirtyState() {
	n.dirty.RemoveDirtyState()
}
