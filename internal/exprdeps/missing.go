package exprdeps

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/graph"
)

// MissingReferencesController keeps the dependencies whose path names nothing
// yet and retries them whenever the scene gains or renames a node. One
// instance serves a whole scene.
type MissingReferencesController struct {
	mu          sync.Mutex
	pending     []*MethodDependency
	controllers mapset.Set[*DependenciesController]
}

// NewMissingReferencesController creates an empty controller.
func NewMissingReferencesController() *MissingReferencesController {
	return &MissingReferencesController{
		controllers: mapset.NewSet[*DependenciesController](),
	}
}

// Register queues dep for retry. Registering twice is a no-op.
func (m *MissingReferencesController) Register(dep *MethodDependency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.pending {
		if d == dep {
			return
		}
	}
	m.pending = append(m.pending, dep)
}

// Unregister drops dep. It reports whether dep was pending.
func (m *MissingReferencesController) Unregister(dep *MethodDependency) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.pending {
		if d == dep {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the queued dependencies in registration order.
func (m *MissingReferencesController) Pending() []*MethodDependency {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MethodDependency(nil), m.pending...)
}

// Check retries every pending dependency once and returns how many resolved.
func (m *MissingReferencesController) Check(ctx context.Context) int {
	logger := ctxlog.FromContext(ctx)
	resolved := 0
	for _, dep := range m.Pending() {
		if !dep.controller.retry(dep) {
			continue
		}
		if m.Unregister(dep) && dep.controller.owns(dep) {
			resolved++
			logger.Debug("Pending reference resolved.", "owner", dep.Owner(), "path", dep.Path(), "error", dep.Err())
		}
	}
	return resolved
}

// OnNodeCreated retries pending references after id was added to the scene.
func (m *MissingReferencesController) OnNodeCreated(ctx context.Context, id graph.NodeID) int {
	ctxlog.FromContext(ctx).Debug("Checking pending references after node creation.", "node_id", id)
	return m.Check(ctx)
}

// OnNodeRenamed retries pending references after id was renamed.
func (m *MissingReferencesController) OnNodeRenamed(ctx context.Context, id graph.NodeID) int {
	ctxlog.FromContext(ctx).Debug("Checking pending references after rename.", "node_id", id)
	return m.Check(ctx)
}

// OnNodeRemoved turns every dependency that went through id back into a
// pending reference. It returns the dependencies that lost their target.
func (m *MissingReferencesController) OnNodeRemoved(ctx context.Context, id graph.NodeID) []*MethodDependency {
	var lost []*MethodDependency
	for _, c := range m.controllers.ToSlice() {
		lost = append(lost, c.targetRemoved(id)...)
	}
	if len(lost) > 0 {
		ctxlog.FromContext(ctx).Debug("References lost their target.", "node_id", id, "count", len(lost))
	}
	return lost
}

func (m *MissingReferencesController) attach(c *DependenciesController) { m.controllers.Add(c) }

func (m *MissingReferencesController) detach(c *DependenciesController) {
	m.controllers.Remove(c)
	m.unregisterController(c)
}

func (m *MissingReferencesController) unregisterController(c *DependenciesController) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending[:0]
	for _, d := range m.pending {
		if d.controller != c {
			out = append(out, d)
		}
	}
	m.pending = out
}
