package graph

import (
	"sync"
	"time"

	"github.com/alecthomas/types/optional"
	mapset "github.com/deckarep/golang-set/v2"
)

// PostDirtyHook runs after a node transitioned from clean to dirty. trigger
// is the node whose change caused the transition, or NoTrigger.
type PostDirtyHook func(n *Node, trigger NodeID)

// DirtyState is the per-node propagation bookkeeping.
//
// A node starts dirty (it has never been cooked) with a DirtyCount of zero.
// Every clean to dirty transition increments DirtyCount; RemoveDirtyState
// never rewinds it, so the counter works as a cheap version number.
type DirtyState struct {
	node *Node
	now  func() time.Time

	mu               sync.Mutex
	dirty            bool
	count            uint64
	timestamp        optional.Option[time.Time]
	cachedSuccessors optional.Option[[]NodeID]
	cacheGen         uint64
	forbidden        mapset.Set[NodeID]

	hooks hookList[PostDirtyHook]
}

func newDirtyState(n *Node) *DirtyState {
	return &DirtyState{
		node:      n,
		now:       time.Now,
		dirty:     true,
		forbidden: mapset.NewThreadUnsafeSet[NodeID](),
	}
}

// IsDirty reports whether the node's output is stale.
func (d *DirtyState) IsDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

// DirtyCount returns how many times the node went from clean to dirty.
func (d *DirtyState) DirtyCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// DirtyTimestamp returns when the node last became dirty.
func (d *DirtyState) DirtyTimestamp() optional.Option[time.Time] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timestamp
}

// SetDirty marks the node dirty. A node that is already dirty keeps its
// counter and does not rerun its hooks; with propagate set it still pushes
// the change to successors, which is a no-op for those already dirty.
func (d *DirtyState) SetDirty(trigger NodeID, propagate bool) {
	d.mu.Lock()
	if d.dirty {
		d.mu.Unlock()
		if propagate {
			d.SetSuccessorsDirty(trigger)
		}
		return
	}
	d.dirty = true
	d.count++
	d.timestamp = optional.Some(d.now())
	hooks := d.hooks.snapshot()
	d.mu.Unlock()

	for _, h := range hooks {
		h(d.node, trigger)
	}
	if propagate {
		d.SetSuccessorsDirty(trigger)
	}
}

// SetSuccessorsDirty dirties every transitive successor except the
// originating trigger and the forbidden trigger nodes.
func (d *DirtyState) SetSuccessorsDirty(trigger NodeID) {
	origin := trigger
	if origin == NoTrigger {
		origin = d.node.id
	}

	d.mu.Lock()
	forbidden := d.forbidden.Clone()
	d.mu.Unlock()

	for _, id := range d.successors() {
		if id == trigger || forbidden.ContainsOne(id) {
			continue
		}
		if n, ok := d.node.graph.Node(id); ok {
			n.dirty.SetDirty(origin, false)
		}
	}
}

// RemoveDirtyState marks the node clean after a fresh result was produced.
func (d *DirtyState) RemoveDirtyState() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty = false
}

// SetForbiddenTriggerNodes replaces the set of nodes that propagation from
// this node must skip.
func (d *DirtyState) SetForbiddenTriggerNodes(ids ...NodeID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forbidden = mapset.NewThreadUnsafeSet(ids...)
}

// ClearForbiddenTriggerNodes empties the forbidden set.
func (d *DirtyState) ClearForbiddenTriggerNodes() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forbidden.Clear()
}

// HasCachedSuccessors reports whether the successor list is memoized.
func (d *DirtyState) HasCachedSuccessors() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cachedSuccessors.Ok()
}

// ClearSuccessorsCache drops the memoized successor list.
func (d *DirtyState) ClearSuccessorsCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cachedSuccessors = optional.None[[]NodeID]()
	d.cacheGen++
}

// ClearSuccessorsCacheWithPredecessors drops the memoized successor lists of
// this node and of every node it is reachable from.
func (d *DirtyState) ClearSuccessorsCacheWithPredecessors() {
	d.ClearSuccessorsCache()
	for _, id := range d.node.graph.AllPredecessors(d.node.id) {
		if n, ok := d.node.graph.Node(id); ok {
			n.dirty.ClearSuccessorsCache()
		}
	}
}

// AddPostDirtyHook registers fn under name. Re-adding a name replaces the
// callback and keeps its position.
func (d *DirtyState) AddPostDirtyHook(name string, fn PostDirtyHook) {
	d.hooks.add(name, fn)
}

// RemovePostDirtyHook drops the hook registered under name.
func (d *DirtyState) RemovePostDirtyHook(name string) bool {
	return d.hooks.remove(name)
}

// HasPostDirtyHook reports whether a hook is registered under name.
func (d *DirtyState) HasPostDirtyHook(name string) bool {
	return d.hooks.has(name)
}

func (d *DirtyState) successors() []NodeID {
	d.mu.Lock()
	if cached, ok := d.cachedSuccessors.Get(); ok {
		d.mu.Unlock()
		return cached
	}
	gen := d.cacheGen
	d.mu.Unlock()

	list := d.node.graph.AllSuccessors(d.node.id)

	d.mu.Lock()
	// An edge change while the list was computed makes it stale.
	if d.cacheGen == gen {
		d.cachedSuccessors = optional.Some(list)
	}
	d.mu.Unlock()
	return list
}
