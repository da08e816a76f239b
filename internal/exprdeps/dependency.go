package exprdeps

import (
	"fmt"

	"github.com/alecthomas/types/optional"
	"github.com/specialistvlad/cookgraph/internal/expr"
	"github.com/specialistvlad/cookgraph/internal/graph"
)

// MethodDependency is one reference of an expression together with what it
// currently resolves to.
type MethodDependency struct {
	controller *DependenciesController
	ref        expr.Reference
	path       *DecomposedPath
	target     optional.Option[graph.NodeID]
	lastPath   string
	err        error
}

// Reference is the reference the dependency was created from.
func (d *MethodDependency) Reference() expr.Reference { return d.ref }

// Owner is the parameter whose expression holds the reference.
func (d *MethodDependency) Owner() graph.NodeID { return d.controller.owner }

// Path is the path as it reads now, renames applied.
func (d *MethodDependency) Path() string {
	d.controller.mu.RLock()
	defer d.controller.mu.RUnlock()
	return d.lastPath
}

// Target returns the node the path resolved to.
func (d *MethodDependency) Target() (graph.NodeID, bool) {
	d.controller.mu.RLock()
	defer d.controller.mu.RUnlock()
	return d.target.Get()
}

// Err is nil for a resolved dependency, wraps ErrUnresolved while pending and
// ErrCyclicGraphDetected when the edge was refused.
func (d *MethodDependency) Err() error {
	d.controller.mu.RLock()
	defer d.controller.mu.RUnlock()
	return d.err
}

func (d *MethodDependency) preferParam() bool {
	return d.ref.Method == expr.MethodChannel
}

func (d *MethodDependency) hookName() string {
	return fmt.Sprintf("exprdeps.%d.%d", d.controller.owner, d.ref.Index)
}
