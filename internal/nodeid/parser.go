// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// nameRegex matches a single node or parameter name.
var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// idRegex matches an id segment, e.g. `#12`.
var idRegex = regexp.MustCompile(`^#(\d+)$`)

// IsValidName reports whether name can be used as a node or parameter name.
func IsValidName(name string) bool {
	return nameRegex.MatchString(name)
}

// Parse creates a new Path struct by parsing its canonical string representation.
func Parse(raw string) (*Path, error) {
	if raw == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	p := &Path{}
	body := raw
	if strings.HasPrefix(body, "/") {
		p.Absolute = true
		body = body[1:]
		if body == "" {
			// The bare root.
			return p, nil
		}
	}

	for i, segmentStr := range strings.Split(body, "/") {
		switch {
		case segmentStr == "":
			return nil, fmt.Errorf("path %q contains empty segment", raw)
		case segmentStr == "..":
			p.Segments = append(p.Segments, Segment{Kind: SegmentParent})
		case segmentStr == ".":
			p.Segments = append(p.Segments, Segment{Kind: SegmentCurrent})
		case strings.HasPrefix(segmentStr, "#"):
			matches := idRegex.FindStringSubmatch(segmentStr)
			if matches == nil {
				return nil, fmt.Errorf("invalid id segment: %q", segmentStr)
			}
			if i != 0 || p.Absolute {
				return nil, fmt.Errorf("id segment %q must start a relative path", segmentStr)
			}
			id, err := strconv.ParseUint(matches[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid id segment %q: %w", segmentStr, err)
			}
			p.Segments = append(p.Segments, NewIDSegment(id))
		default:
			if !IsValidName(segmentStr) {
				return nil, fmt.Errorf("invalid segment name: %q", segmentStr)
			}
			p.Segments = append(p.Segments, NewNameSegment(segmentStr))
		}
	}

	return p, nil
}
