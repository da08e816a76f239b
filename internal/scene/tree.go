package scene

import "github.com/specialistvlad/cookgraph/internal/graph"

// sceneTree exposes the hierarchy to exprdeps path resolution.
type sceneTree struct {
	s *Scene
}

func (t *sceneTree) Root() graph.NodeID { return t.s.root.ID() }

func (t *sceneTree) Parent(id graph.NodeID) (graph.NodeID, bool) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if n, ok := t.s.nodes[id]; ok {
		if n.parent == nil {
			return 0, false
		}
		return n.parent.ID(), true
	}
	if p, ok := t.s.params[id]; ok {
		return p.node.ID(), true
	}
	return 0, false
}

func (t *sceneTree) Child(id graph.NodeID, name string) (graph.NodeID, bool) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	n, ok := t.s.nodes[id]
	if !ok {
		return 0, false
	}
	c, ok := childNamed(n, name)
	if !ok {
		return 0, false
	}
	return c.ID(), true
}

func (t *sceneTree) Param(id graph.NodeID, name string) (graph.NodeID, bool) {
	t.s.mu.RLock()
	n, ok := t.s.nodes[id]
	t.s.mu.RUnlock()
	if !ok {
		return 0, false
	}
	p, ok := n.Param(name)
	if !ok {
		return 0, false
	}
	return p.ID(), true
}

func (t *sceneTree) Contains(id graph.NodeID) bool {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	_, isNode := t.s.nodes[id]
	_, isParam := t.s.params[id]
	return isNode || isParam
}
