package exprdeps

import (
	"errors"

	"github.com/specialistvlad/cookgraph/internal/graph"
)

var (
	// ErrUnresolved marks a dependency whose path names nothing yet.
	ErrUnresolved = errors.New("unresolved reference")
	// ErrCyclicGraphDetected marks a dependency whose edge would close a cycle.
	ErrCyclicGraphDetected = errors.New("cyclic graph detected")
)

// Tree is the hierarchy paths are resolved against. Every node and parameter
// of the scene is a graph node; Tree tells how they nest.
type Tree interface {
	// Root is the node absolute paths start from.
	Root() graph.NodeID
	// Parent returns the node id sits under.
	Parent(id graph.NodeID) (graph.NodeID, bool)
	// Child returns the child node called name.
	Child(id graph.NodeID, name string) (graph.NodeID, bool)
	// Param returns the parameter called name.
	Param(id graph.NodeID, name string) (graph.NodeID, bool)
	// Contains reports whether id is a live node or parameter.
	Contains(id graph.NodeID) bool
}
