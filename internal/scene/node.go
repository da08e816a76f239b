package scene

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/nodeid"
	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/specialistvlad/cookgraph/internal/scheduler"
)

// Node is an operator instance placed in the scene hierarchy.
type Node struct {
	scene *Scene
	gnode *graph.Node
	typ   *registry.NodeType
	op    registry.Operator

	// parent and params never change after creation.
	parent *Node
	params []*Param

	// guarded by scene.mu
	children []*Node
	inputs   []graph.NodeID
}

func (n *Node) ID() graph.NodeID   { return n.gnode.ID() }
func (n *Node) Name() string       { return n.gnode.Name() }
func (n *Node) Parent() *Node      { return n.parent }
func (n *Node) IsDirty() bool      { return n.gnode.IsDirty() }
func (n *Node) DirtyCount() uint64 { return n.gnode.DirtyCount() }

// Kind is the registry kind the node was created from, "" for the root.
func (n *Node) Kind() string {
	if n.typ == nil {
		return ""
	}
	return n.typ.Kind
}

// Path is the node's absolute path in the scene.
func (n *Node) Path() string { return n.scene.FullPath(n) }

// Param returns the named parameter.
func (n *Node) Param(name string) (*Param, bool) {
	for _, p := range n.params {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Params returns the parameters in declaration order.
func (n *Node) Params() []*Param {
	return append([]*Param(nil), n.params...)
}

// Children returns the child nodes in creation order.
func (n *Node) Children() []*Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return append([]*Node(nil), n.children...)
}

// Inputs returns the node plugged into each input slot, nil for an empty slot.
func (n *Node) Inputs() []*Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	out := make([]*Node, len(n.inputs))
	for i, id := range n.inputs {
		out[i] = n.scene.nodes[id]
	}
	return out
}

func (n *Node) input(index int) (graph.NodeID, bool) {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	if index >= len(n.inputs) || n.inputs[index] == 0 {
		return 0, false
	}
	return n.inputs[index], true
}

// Cook implements scheduler.Cookable. Parameter values and input outputs are
// taken from in, which the cooker filled with fresh predecessor results.
func (n *Node) Cook(ctx context.Context, in scheduler.Inputs) (any, error) {
	if n.op == nil {
		return nil, nil
	}
	params := make(map[string]any, len(n.params))
	for _, p := range n.params {
		if v, ok := in[p.ID()]; ok {
			params[p.Name()] = v
		} else {
			params[p.Name()] = p.Value()
		}
	}

	s := n.scene
	s.mu.RLock()
	slots := append([]graph.NodeID(nil), n.inputs...)
	path := s.fullPathLocked(n)
	frame := s.frame
	s.mu.RUnlock()

	inputs := make([]any, len(slots))
	for i, id := range slots {
		if id != 0 {
			inputs[i] = in[id]
		}
	}
	return n.op.Cook(ctx, registry.CookInput{Path: path, Frame: frame, Params: params, Inputs: inputs})
}

// CreateNode adds a node of kind under parent (the root when nil). An empty
// name defaults to the kind followed by 1; a name taken by a sibling gets its
// trailing number incremented until it is free.
func (s *Scene) CreateNode(ctx context.Context, parent *Node, kind, name string) (*Node, error) {
	typ, ok := s.registry.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("create %q: %w", kind, ErrUnknownKind)
	}
	if parent == nil {
		parent = s.root
	}
	if name == "" {
		name = kind + "1"
	}
	if !nodeid.IsValidName(name) {
		return nil, fmt.Errorf("create %q: %q: %w", kind, name, ErrInvalidName)
	}

	n := &Node{scene: s, typ: typ, op: typ.New(), parent: parent}
	params := make([]*Param, 0, len(typ.Params))
	for _, spec := range typ.Params {
		p, err := newParam(n, spec)
		if err != nil {
			return nil, fmt.Errorf("create %q: %w", kind, err)
		}
		params = append(params, p)
	}
	n.params = params

	s.mu.Lock()
	if _, ok := s.nodes[parent.ID()]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("create %q under %q: %w", kind, parent.Name(), ErrNodeNotFound)
	}
	name = s.uniqueNameLocked(parent, name, nil)
	n.gnode = s.graph.NewNode(name, n)
	for _, p := range n.params {
		p.gnode = s.graph.NewNode(p.spec.Name, p)
		s.graph.Connect(p.ID(), n.ID())
		s.params[p.ID()] = p
	}
	s.nodes[n.ID()] = n
	parent.children = append(parent.children, n)
	s.mu.Unlock()

	for _, p := range n.params {
		s.cooker.Watch(p.gnode)
		s.cooker.Enqueue(p.ID(), graph.NoTrigger)
	}
	s.cooker.Watch(n.gnode)
	s.cooker.Enqueue(n.ID(), graph.NoTrigger)

	s.logger(ctx).Debug("Node created.", "node_id", n.ID(), "kind", kind, "path", s.FullPath(n))
	s.missing.OnNodeCreated(ctx, n.ID())
	return n, nil
}

// RemoveNode deletes n, its children and its parameters. References to any of
// them turn back into pending references, and input slots that were fed by
// them are emptied.
func (s *Scene) RemoveNode(ctx context.Context, n *Node) error {
	if n == s.root {
		return ErrRootNode
	}

	s.mu.Lock()
	if _, ok := s.nodes[n.ID()]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("remove %q: %w", n.Name(), ErrNodeNotFound)
	}
	subtree := s.subtreeLocked(n)
	n.parent.children = removeNode(n.parent.children, n)
	s.mu.Unlock()

	var removed []graph.NodeID
	for _, m := range subtree {
		for _, p := range m.params {
			p.closeExpression()
			removed = append(removed, p.ID())
		}
		removed = append(removed, m.ID())
	}

	s.mu.Lock()
	for _, id := range removed {
		delete(s.nodes, id)
		delete(s.params, id)
	}
	var consumers []*Node
	for _, other := range s.nodes {
		for i, src := range other.inputs {
			if slices.Contains(removed, src) {
				other.inputs[i] = 0
				consumers = append(consumers, other)
			}
		}
	}
	s.mu.Unlock()

	for _, id := range removed {
		if gn, ok := s.graph.Node(id); ok {
			s.cooker.Unwatch(gn)
		}
		s.graph.RemoveNode(id)
		s.store.Delete(ctx, id)
	}
	for _, id := range removed {
		s.missing.OnNodeRemoved(ctx, id)
	}
	for _, c := range consumers {
		c.gnode.SetDirty(graph.NoTrigger)
		c.refreshInputExpressions(ctx)
	}
	s.logger(ctx).Debug("Node removed.", "node_id", n.ID(), "name", n.Name(), "removed", len(removed))
	return nil
}

// SetName renames n and returns the name it actually got, which differs from
// name when a sibling already uses it. Expressions that reference n through
// a path are rewritten; pending references may resolve.
func (s *Scene) SetName(ctx context.Context, n *Node, name string) (string, error) {
	if n == s.root {
		return "", ErrRootNode
	}
	if !nodeid.IsValidName(name) {
		return "", fmt.Errorf("rename %q: %q: %w", n.Name(), name, ErrInvalidName)
	}
	s.mu.Lock()
	if _, ok := s.nodes[n.ID()]; !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("rename %q: %w", n.Name(), ErrNodeNotFound)
	}
	name = s.uniqueNameLocked(n.parent, name, n)
	s.mu.Unlock()

	old := n.Name()
	if old == name {
		return name, nil
	}
	n.gnode.SetName(name)
	s.logger(ctx).Debug("Node renamed.", "node_id", n.ID(), "from", old, "to", name)

	s.missing.OnNodeRenamed(ctx, n.ID())
	// name() readers see a new value.
	n.gnode.SetSuccessorsDirty(graph.NoTrigger)
	return name, nil
}

// SetInput plugs src into input slot index of n. A nil src empties the slot.
func (s *Scene) SetInput(ctx context.Context, n *Node, index int, src *Node) error {
	if n.typ == nil {
		return ErrRootNode
	}
	if index < 0 || index >= n.typ.MaxInputs {
		return fmt.Errorf("input %d of %q (accepts %d): %w", index, n.Name(), n.typ.MaxInputs, ErrInputIndex)
	}
	if src != nil {
		if _, ok := s.NodeByID(src.ID()); !ok {
			return fmt.Errorf("input %d of %q: %w", index, n.Name(), ErrNodeNotFound)
		}
		if err := s.graph.CheckConnect(src.ID(), n.ID()); err != nil {
			return fmt.Errorf("input %d of %q: %w", index, n.Name(), err)
		}
	}

	s.mu.Lock()
	for len(n.inputs) <= index {
		n.inputs = append(n.inputs, 0)
	}
	prev := n.inputs[index]
	if src != nil {
		n.inputs[index] = src.ID()
	} else {
		n.inputs[index] = 0
	}
	stillUsed := prev != 0 && slices.Contains(n.inputs, prev)
	s.mu.Unlock()

	if prev != 0 && !stillUsed {
		s.graph.Disconnect(prev, n.ID())
	}
	n.gnode.SetDirty(graph.NoTrigger)
	if index == 0 {
		n.refreshInputExpressions(ctx)
	}
	return nil
}

// refreshInputExpressions re-binds the expressions that read the first input.
func (n *Node) refreshInputExpressions(ctx context.Context) {
	for _, p := range n.params {
		if m := p.expression(); m != nil && m.usesInput() {
			m.rebind(ctx)
			p.gnode.SetDirty(graph.NoTrigger)
		}
	}
}

// FullPath returns the absolute path of n.
func (s *Scene) FullPath(n *Node) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullPathLocked(n)
}

func (s *Scene) fullPathLocked(n *Node) string {
	if n.parent == nil {
		return "/"
	}
	var names []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		names = append(names, cur.Name())
	}
	var sb strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		sb.WriteByte('/')
		sb.WriteString(names[i])
	}
	return sb.String()
}

// Lookup finds a node by absolute path, e.g. "/geo1/points1". Paths starting
// with an id ("#12") are accepted as well.
func (s *Scene) Lookup(path string) (*Node, bool) {
	p, err := nodeid.Parse(path)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.root
	for _, seg := range p.Segments {
		switch seg.Kind {
		case nodeid.SegmentID:
			n, ok := s.nodes[graph.NodeID(seg.ID)]
			if !ok {
				return nil, false
			}
			cur = n
		case nodeid.SegmentParent:
			if cur.parent == nil {
				return nil, false
			}
			cur = cur.parent
		case nodeid.SegmentName:
			next, ok := childNamed(cur, seg.Name)
			if !ok {
				return nil, false
			}
			cur = next
		}
	}
	return cur, true
}

// uniqueNameLocked returns name, or name with its trailing number increased
// until no child of parent other than self uses it.
func (s *Scene) uniqueNameLocked(parent *Node, name string, self *Node) string {
	taken := func(candidate string) bool {
		c, ok := childNamed(parent, candidate)
		return ok && c != self
	}
	if !taken(name) {
		return name
	}
	base := strings.TrimRight(name, "0123456789")
	next := 1
	if digits := name[len(base):]; digits != "" {
		if v, err := strconv.Atoi(digits); err == nil {
			next = v + 1
		}
	}
	for {
		candidate := base + strconv.Itoa(next)
		if !taken(candidate) {
			return candidate
		}
		next++
	}
}

func (s *Scene) subtreeLocked(n *Node) []*Node {
	out := []*Node{n}
	for _, c := range n.children {
		out = append(out, s.subtreeLocked(c)...)
	}
	return out
}

func childNamed(parent *Node, name string) (*Node, bool) {
	for _, c := range parent.children {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

func removeNode(nodes []*Node, n *Node) []*Node {
	out := nodes[:0]
	for _, c := range nodes {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}
