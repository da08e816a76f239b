// Package nodestore defines the interface for storing and retrieving the
// cook results of graph nodes.
//
// # Why Node Store Exists
//
// The node store isolates **cook results** (status, output, error) from the
// **dependency structure** managed by the graph package. The graph answers
// "what depends on what" and "what is stale"; the store answers "what did the
// last cook produce".
//
// This separation provides several architectural benefits:
//   - **Clarity:** The cooker writes results without touching graph locks
//   - **Concurrency:** Result writes never contend with edge traversal
//   - **Testability:** Cook results can be asserted independently of the graph
//
// # Lifecycle and Usage
//
// The node store is:
//  1. **Created** once per scene (ephemeral, not persistent across runs)
//  2. **Mutated** by the cooker each time a dirty node is cooked
//  3. **Queried** by the cooker when a clean node's output is requested, and
//     by expression resolvers reading another node's output
//  4. **Pruned** when a node is removed from the scene
//
// # State Transitions
//
// Nodes follow this lifecycle, repeated once per dirty transition:
//
//	Pending → Cooking → Cooked (with output) OR Failed (with error)
package nodestore

import (
	"context"

	"github.com/specialistvlad/cookgraph/internal/graph"
)

// Status is the cook status of a node.
type Status int32

const (
	// StatusPending indicates the node has never been cooked.
	StatusPending Status = iota
	// StatusCooking indicates a cook is in flight.
	StatusCooking
	// StatusCooked indicates the last cook produced an output.
	StatusCooked
	// StatusFailed indicates the last cook returned an error.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCooking:
		return "cooking"
	case StatusCooked:
		return "cooked"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Store is the interface for managing the cook results of nodes.
//
// # Thread-Safety Requirements
//
// Implementations MUST be thread-safe for concurrent reads and writes, as
// independent predecessors are cooked on separate goroutines.
//
// # Typical Implementation
//
// See internal/inmemorystore for the reference in-memory implementation.
type Store interface {
	// SetStatus updates the cook status of a node.
	SetStatus(ctx context.Context, id graph.NodeID, status Status) error

	// GetStatus retrieves the current cook status of a node.
	//
	// Returns StatusPending if no status has been set for this node yet.
	GetStatus(ctx context.Context, id graph.NodeID) (Status, error)

	// SetOutput records the output of a successful cook.
	SetOutput(ctx context.Context, id graph.NodeID, output any) error

	// GetOutput retrieves the output of the last successful cook.
	//
	// Returns nil if the node has not been cooked yet.
	GetOutput(ctx context.Context, id graph.NodeID) (any, error)

	// SetError records the error of a failed cook. A nil error clears it.
	SetError(ctx context.Context, id graph.NodeID, nodeErr error) error

	// GetError retrieves the error of the last failed cook.
	//
	// Returns nil if the last cook succeeded or no cook ran yet.
	GetError(ctx context.Context, id graph.NodeID) (error, error)

	// Delete forgets everything stored for a node.
	Delete(ctx context.Context, id graph.NodeID) error
}
