// internal/nodeid/path.go
package nodeid

import (
	"reflect"
	"strconv"
	"strings"
)

// String serializes the segment into its canonical form.
func (s Segment) String() string {
	switch s.Kind {
	case SegmentParent:
		return ".."
	case SegmentCurrent:
		return "."
	case SegmentID:
		return "#" + strconv.FormatUint(s.ID, 10)
	default:
		return s.Name
	}
}

// String serializes the Path into its canonical string representation.
func (p *Path) String() string {
	if p == nil {
		return ""
	}

	var sb strings.Builder
	if p.Absolute {
		sb.WriteRune('/')
	}
	for i, segment := range p.Segments {
		if i > 0 {
			sb.WriteRune('/')
		}
		sb.WriteString(segment.String())
	}

	return sb.String()
}

// Equal checks for deep equality between two Path pointers.
func (p *Path) Equal(other *Path) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Absolute == other.Absolute && reflect.DeepEqual(p.Segments, other.Segments)
}

// Join builds a path from names, absolute when abs is set.
func Join(abs bool, names ...string) *Path {
	p := &Path{Absolute: abs}
	for _, n := range names {
		p.Segments = append(p.Segments, NewNameSegment(n))
	}
	return p
}
