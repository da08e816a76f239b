package exprdeps

import (
	"strings"

	"github.com/alecthomas/types/optional"
	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/nodeid"
)

// PathElement is one segment of a DecomposedPath. Name segments are bound to
// the node they resolved to.
type PathElement struct {
	nodeid.Segment
	Node optional.Option[graph.NodeID]
}

// DecomposedPath is a reference path kept segment by segment so a rename can
// be applied to the one segment it affects.
type DecomposedPath struct {
	Absolute bool
	Elements []PathElement
}

// Decompose builds an unbound DecomposedPath from p.
func Decompose(p *nodeid.Path) *DecomposedPath {
	d := &DecomposedPath{Absolute: p.Absolute, Elements: make([]PathElement, len(p.Segments))}
	for i, s := range p.Segments {
		d.Elements[i] = PathElement{Segment: s}
	}
	return d
}

// String renders the path with the current name of every bound segment.
func (d *DecomposedPath) String() string {
	var sb strings.Builder
	if d.Absolute {
		sb.WriteByte('/')
	}
	for i, el := range d.Elements {
		if i > 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(el.Segment.String())
	}
	return sb.String()
}

// Bound returns the distinct ids bound to name segments, in path order.
func (d *DecomposedPath) Bound() []graph.NodeID {
	var out []graph.NodeID
	seen := make(map[graph.NodeID]bool)
	for _, el := range d.Elements {
		if id, ok := el.Node.Get(); ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Rename rewrites every segment bound to id. It reports whether the rendered
// path changed.
func (d *DecomposedPath) Rename(id graph.NodeID, name string) bool {
	changed := false
	for i := range d.Elements {
		el := &d.Elements[i]
		if bound, ok := el.Node.Get(); ok && bound == id && el.Name != name {
			el.Name = name
			changed = true
		}
	}
	return changed
}

// Unbind forgets every binding.
func (d *DecomposedPath) Unbind() {
	for i := range d.Elements {
		d.Elements[i].Node = optional.None[graph.NodeID]()
	}
}

// Resolve walks the path from origin. The first name segment of a relative
// path is looked up among origin's children, then among its siblings. The
// last segment prefers a parameter when preferParam is set, a child node
// otherwise. Bindings are only recorded when the whole path resolves.
func (d *DecomposedPath) Resolve(tree Tree, origin graph.NodeID, preferParam bool) (graph.NodeID, bool) {
	cur := origin
	if d.Absolute {
		cur = tree.Root()
	}
	bindings := make([]optional.Option[graph.NodeID], len(d.Elements))
	for i, el := range d.Elements {
		last := i == len(d.Elements)-1
		switch el.Kind {
		case nodeid.SegmentCurrent:
		case nodeid.SegmentParent:
			parent, ok := tree.Parent(cur)
			if !ok {
				return 0, false
			}
			cur = parent
		case nodeid.SegmentID:
			id := graph.NodeID(el.ID)
			if !tree.Contains(id) {
				return 0, false
			}
			cur = id
		case nodeid.SegmentName:
			next, ok := lookup(tree, cur, el.Name, last && preferParam)
			if !ok && i == 0 && !d.Absolute {
				if parent, hasParent := tree.Parent(cur); hasParent {
					next, ok = lookup(tree, parent, el.Name, last && preferParam)
				}
			}
			if !ok {
				return 0, false
			}
			bindings[i] = optional.Some(next)
			cur = next
		}
	}
	for i := range d.Elements {
		d.Elements[i].Node = bindings[i]
	}
	return cur, true
}

func lookup(tree Tree, id graph.NodeID, name string, preferParam bool) (graph.NodeID, bool) {
	if preferParam {
		if p, ok := tree.Param(id, name); ok {
			return p, true
		}
		return tree.Child(id, name)
	}
	if c, ok := tree.Child(id, name); ok {
		return c, true
	}
	return tree.Param(id, name)
}
