package exprdeps

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alecthomas/types/optional"
	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/expr"
	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/nodeid"
)

// DependenciesController owns the edges one expression needs. owner is the
// graph node that depends on the targets (a parameter); origin is where
// relative paths start (the parameter's node).
type DependenciesController struct {
	graph   *graph.Graph
	tree    Tree
	missing *MissingReferencesController
	owner   graph.NodeID
	origin  graph.NodeID

	mu    sync.RWMutex
	deps  []*MethodDependency
	fixed []graph.NodeID

	onPathChanged  func(*MethodDependency)
	onStateChanged func(*MethodDependency)
}

// NewDependenciesController creates a controller for owner and attaches it to
// missing so it hears about removed nodes.
func NewDependenciesController(g *graph.Graph, tree Tree, missing *MissingReferencesController, owner, origin graph.NodeID) *DependenciesController {
	c := &DependenciesController{
		graph:   g,
		tree:    tree,
		missing: missing,
		owner:   owner,
		origin:  origin,
	}
	missing.attach(c)
	return c
}

// OnPathChanged registers fn, called after a rename rewrote a dependency's path.
func (c *DependenciesController) OnPathChanged(fn func(*MethodDependency)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPathChanged = fn
}

// OnStateChanged registers fn, called when a dependency resolves late or
// loses its target.
func (c *DependenciesController) OnStateChanged(fn func(*MethodDependency)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChanged = fn
}

// Update replaces the controller's dependencies with the references of prog.
// fixed are extra nodes the owner always depends on (e.g. the time node).
// Unresolved references are left pending with the missing references
// controller. The returned error wraps ErrCyclicGraphDetected when an edge was
// refused; pending references are not an error.
func (c *DependenciesController) Update(ctx context.Context, prog *expr.Program, fixed ...graph.NodeID) error {
	logger := ctxlog.FromContext(ctx)
	c.Reset()

	var errs []error
	c.mu.Lock()
	for _, id := range fixed {
		if err := c.graph.CheckConnect(id, c.owner); err != nil {
			errs = append(errs, err)
			continue
		}
		c.fixed = append(c.fixed, id)
	}
	for _, ref := range prog.References() {
		p, err := nodeid.Parse(ref.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s(%q): %w", ref.Method, ref.Path, err))
			continue
		}
		c.deps = append(c.deps, &MethodDependency{
			controller: c,
			ref:        ref,
			path:       Decompose(p),
			lastPath:   ref.Path,
		})
	}
	deps := append([]*MethodDependency(nil), c.deps...)
	c.mu.Unlock()

	for _, dep := range deps {
		if !c.resolve(dep) {
			logger.Debug("Reference is pending.", "owner", c.owner, "path", dep.ref.Path)
			c.missing.Register(dep)
			continue
		}
		if err := dep.Err(); err != nil {
			logger.Debug("Reference refused.", "owner", c.owner, "path", dep.ref.Path, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// resolve tries to bind dep. It returns false when the path names nothing,
// true when the dependency reached a final state (connected or cyclic).
func (c *DependenciesController) resolve(dep *MethodDependency) bool {
	c.mu.Lock()
	target, ok := dep.path.Resolve(c.tree, c.origin, dep.preferParam())
	if !ok {
		dep.err = fmt.Errorf("%q: %w", dep.lastPath, ErrUnresolved)
		c.mu.Unlock()
		return false
	}
	if err := c.graph.CheckConnect(target, c.owner); err != nil {
		dep.path.Unbind()
		if !errors.Is(err, graph.ErrCycle) {
			dep.err = fmt.Errorf("%q: %w", dep.lastPath, ErrUnresolved)
			c.mu.Unlock()
			return false
		}
		dep.err = fmt.Errorf("%q: %w", dep.lastPath, ErrCyclicGraphDetected)
		c.mu.Unlock()
		return true
	}
	dep.target = optional.Some(target)
	dep.err = nil
	bound := dep.path.Bound()
	c.mu.Unlock()

	for _, id := range bound {
		if n, ok := c.graph.Node(id); ok {
			n.AddRenameHook(dep.hookName(), func(n *graph.Node, _ string) {
				c.renamed(dep, n)
			})
		}
	}
	return true
}

func (c *DependenciesController) renamed(dep *MethodDependency, n *graph.Node) {
	c.mu.Lock()
	if !dep.path.Rename(n.ID(), n.Name()) {
		c.mu.Unlock()
		return
	}
	dep.lastPath = dep.path.String()
	fn := c.onPathChanged
	c.mu.Unlock()
	if fn != nil {
		fn(dep)
	}
}

// retry is called by the missing references controller. It reports whether
// dep no longer needs retrying.
func (c *DependenciesController) retry(dep *MethodDependency) bool {
	if !c.owns(dep) {
		return true
	}
	if !c.resolve(dep) {
		return false
	}
	c.changed(dep)
	return true
}

// targetRemoved turns every dependency that went through id back into a
// pending one.
func (c *DependenciesController) targetRemoved(id graph.NodeID) []*MethodDependency {
	c.mu.Lock()
	var lost []*MethodDependency
	for _, dep := range c.deps {
		if !dep.uses(id) {
			continue
		}
		c.releaseLocked(dep)
		dep.err = fmt.Errorf("%q: %w", dep.lastPath, ErrUnresolved)
		lost = append(lost, dep)
	}
	c.fixed = removeID(c.fixed, id)
	c.mu.Unlock()

	for _, dep := range lost {
		c.missing.Register(dep)
		c.changed(dep)
	}
	return lost
}

func (c *DependenciesController) changed(dep *MethodDependency) {
	c.mu.RLock()
	fn := c.onStateChanged
	c.mu.RUnlock()
	if fn != nil {
		fn(dep)
	}
}

// Reset drops every edge, rename hook and pending registration created for
// the current dependencies.
func (c *DependenciesController) Reset() {
	c.mu.Lock()
	for _, dep := range c.deps {
		c.releaseLocked(dep)
	}
	c.deps = nil
	for _, id := range c.fixed {
		c.graph.Disconnect(id, c.owner)
	}
	c.fixed = nil
	c.mu.Unlock()
	c.missing.unregisterController(c)
}

// Close resets the controller and detaches it from the missing references
// controller.
func (c *DependenciesController) Close() {
	c.Reset()
	c.missing.detach(c)
}

func (c *DependenciesController) releaseLocked(dep *MethodDependency) {
	for _, id := range dep.path.Bound() {
		if n, ok := c.graph.Node(id); ok {
			n.RemoveRenameHook(dep.hookName())
		}
	}
	dep.path.Unbind()
	target, ok := dep.target.Get()
	if !ok {
		return
	}
	dep.target = optional.None[graph.NodeID]()
	if !c.targetsLocked(target) {
		c.graph.Disconnect(target, c.owner)
	}
}

// targetsLocked reports whether any current dependency or fixed edge still
// needs the edge from id.
func (c *DependenciesController) targetsLocked(id graph.NodeID) bool {
	for _, f := range c.fixed {
		if f == id {
			return true
		}
	}
	for _, dep := range c.deps {
		if t, ok := dep.target.Get(); ok && t == id {
			return true
		}
	}
	return false
}

func (c *DependenciesController) owns(dep *MethodDependency) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.deps {
		if d == dep {
			return true
		}
	}
	return false
}

// Dependencies returns the current dependencies in source order.
func (c *DependenciesController) Dependencies() []*MethodDependency {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*MethodDependency(nil), c.deps...)
}

// Dependency returns the dependency created for the reference at index.
func (c *DependenciesController) Dependency(index int) (*MethodDependency, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.deps {
		if d.ref.Index == index {
			return d, true
		}
	}
	return nil, false
}

// Pending reports whether at least one dependency is unresolved.
func (c *DependenciesController) Pending() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.deps {
		if errors.Is(d.err, ErrUnresolved) {
			return true
		}
	}
	return false
}

// Err returns the cyclic reference errors, nil when there are none.
func (c *DependenciesController) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var errs []error
	for _, d := range c.deps {
		if errors.Is(d.err, ErrCyclicGraphDetected) {
			errs = append(errs, d.err)
		}
	}
	return errors.Join(errs...)
}

// uses reports whether the dependency goes through id. Callers hold the
// controller lock.
func (d *MethodDependency) uses(id graph.NodeID) bool {
	if t, ok := d.target.Get(); ok && t == id {
		return true
	}
	for _, b := range d.path.Bound() {
		if b == id {
			return true
		}
	}
	return false
}

func removeID(ids []graph.NodeID, id graph.NodeID) []graph.NodeID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
