// Package graph is the authoritative store of node identity and dependency
// edges for a scene, together with the per-node dirty bookkeeping that drives
// incremental re-evaluation.
//
// # Why Graph Package Exists
//
// Every addressable entity of a scene (an operator, a parameter, the scene
// clock) is a graph node. Edges express "dest depends on src": when src
// changes, dest must be recooked. The package keeps that relation acyclic and
// answers the reachability questions that propagation and cycle detection need.
//
// # Architecture: Arena of Ids
//
// Nodes live in an id-keyed arena and edges are stored as id sets rather than
// object references:
//
//	┌──────────────────────────────────────────┐
//	│                  Graph                   │
//	│  nodes: map[NodeID]*Node                 │
//	│  preds: map[NodeID]Set[NodeID]           │
//	│  succs: map[NodeID]Set[NodeID]           │
//	└──────────┬───────────────────────────────┘
//	           │ owns
//	           ▼
//	  ┌──────────────┐      ┌──────────────────┐
//	  │     Node     │─────▶│    DirtyState    │
//	  │ id, name,    │      │ dirty, count,    │
//	  │ owner, hooks │      │ cached succs ... │
//	  └──────────────┘      └──────────────────┘
//
// Ids are allocated by CreateID, increase monotonically and are never reused.
// Removing a node severs all of its incident edges.
//
// # Acyclicity
//
// Connect(src, dest) refuses the edge (returns false, no mutation) when src
// is reachable from dest. A self loop is the degenerate case of the same
// check. Because the relation can never contain a cycle, dirty propagation
// needs no recursion guard beyond the per-pass forbidden set.
//
// # Dirty Propagation
//
// DirtyState.SetDirty flips a node to dirty, bumps its monotonic DirtyCount,
// runs its post-dirty hooks in registration order and then dirties every
// transitive successor. The successor list is memoized per node and the memo
// is dropped by Connect/Disconnect for the source node and all of its
// ancestors, which are exactly the nodes whose reachable set can change.
//
// # Thread-Safety
//
// Graph guards its maps with an RWMutex; each Node and DirtyState has its own
// lock. Hooks are always invoked without any lock held, so they may freely call
// back into the graph.
package graph
