// internal/nodeid/types.go
package nodeid

// SegmentKind tells how a single path segment moves through the scene tree.
type SegmentKind int

const (
	// SegmentName selects a child (or parameter) by name.
	SegmentName SegmentKind = iota
	// SegmentParent is the `..` segment.
	SegmentParent
	// SegmentCurrent is the `.` segment.
	SegmentCurrent
	// SegmentID is the `#N` segment. It is only valid as the first segment.
	SegmentID
)

// Segment represents a single component of a path.
type Segment struct {
	Kind SegmentKind
	Name string // set for SegmentName
	ID   uint64 // set for SegmentID
}

// NewNameSegment creates a segment that selects an entity by name.
func NewNameSegment(name string) Segment {
	return Segment{Kind: SegmentName, Name: name}
}

// NewIDSegment creates a segment that jumps to the node with the given id.
func NewIDSegment(id uint64) Segment {
	return Segment{Kind: SegmentID, ID: id}
}

// Path is the structured representation of a cross-node reference.
type Path struct {
	Absolute bool
	Segments []Segment
}

// IsImmutable reports whether the path is anchored on a graph id. Such a
// path never needs re-resolution after a rename.
func (p *Path) IsImmutable() bool {
	return p != nil && len(p.Segments) > 0 && p.Segments[0].Kind == SegmentID
}

// Last returns the final segment of the path.
func (p *Path) Last() (Segment, bool) {
	if p == nil || len(p.Segments) == 0 {
		return Segment{}, false
	}
	return p.Segments[len(p.Segments)-1], true
}
