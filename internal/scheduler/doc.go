// Package scheduler provides the Cooker, the queue-based and demand-driven
// re-evaluation driver of the dependency graph.
//
// # Why Scheduler Exists
//
// Marking nodes dirty is cheap bookkeeping done by the graph package. Actually
// running a node's cook logic is not: it may be slow, it may fail, and many
// edits in a row should not trigger many evaluation passes. The Cooker decides
// when and in what order dirty nodes are cooked.
//
// This provides several key benefits:
//   - **Coalescing:** Block/Unblock collapses a burst of edits into one pass
//   - **At-Most-Once:** A node that appears several times in one batch is cooked once
//   - **Causal Order:** A node is never cooked against a stale predecessor output
//   - **Shared Results:** Concurrent requesters of one node share one in-flight cook
//
// # How It Works
//
// Dirty nodes reach the queue through a post-dirty hook (see Watch). Draining
// the queue is a loop:
//  1. Pop the next (node, trigger) item
//  2. Skip it when the node is already clean (an earlier item cooked it)
//  3. Otherwise Request the node
//
// Request is demand-driven: it first requests every dirty predecessor
// (independent predecessors concurrently via errgroup), then invokes the
// owner's Cookable.Cook with the collected inputs, stores the result in the
// node store and clears the node's dirty state. Requests for the same node are
// funnelled through a singleflight group, so fan-out never causes a second cook.
//
// A failed cook also clears the dirty state: the error is cached as the node's
// result and returned to every requester until an upstream change dirties the
// node again.
//
// # Relationship with Other Components
//
//   - **Graph:** source of predecessors and dirty state
//   - **Node Store:** receives status, output and error of each cook
//   - **Scene:** wires hooks, wraps edits in Block/Unblock and exposes Stats
package scheduler
