package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkKind classifies a piece of expression source.
type ChunkKind int

const (
	// ChunkText is plain expression text handed to HCL untouched.
	ChunkText ChunkKind = iota
	// ChunkString is a quoted string literal, quotes included.
	ChunkString
	// ChunkRef is a `$path` reference; Text holds the path without the sigil.
	ChunkRef
	// ChunkContext is a reserved `$NAME`; Text holds the name.
	ChunkContext
)

// Chunk is one piece of the source as the user typed it.
type Chunk struct {
	Kind ChunkKind
	Text string
}

// String renders the chunk back into expression source.
func (c Chunk) String() string {
	switch c.Kind {
	case ChunkRef, ChunkContext:
		return "$" + c.Text
	default:
		return c.Text
	}
}

// Reserved context names.
const (
	CtxFrame     = "F"
	CtxFPS       = "FPS"
	CtxTime      = "T"
	CtxCentroidX = "CEX"
	CtxCentroidY = "CEY"
	CtxCentroidZ = "CEZ"
	CtxOwnerName = "OS"
	CtxParamName = "CH"
)

var contextNames = map[string]bool{
	CtxFrame:     true,
	CtxFPS:       true,
	CtxTime:      true,
	CtxCentroidX: true,
	CtxCentroidY: true,
	CtxCentroidZ: true,
	CtxOwnerName: true,
	CtxParamName: true,
}

// IsContextName reports whether name is a reserved context identifier.
func IsContextName(name string) bool {
	return contextNames[name]
}

// refFunc is the call a `$path` chunk is rewritten into.
const refFunc = "ref"

// lex splits src into chunks.
func lex(src string) ([]Chunk, error) {
	var (
		chunks []Chunk
		text   strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			chunks = append(chunks, Chunk{Kind: ChunkText, Text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(src); {
		switch src[i] {
		case '"':
			end, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			flush()
			chunks = append(chunks, Chunk{Kind: ChunkString, Text: src[i:end]})
			i = end
		case '$':
			end, err := scanPath(src, i+1)
			if err != nil {
				return nil, err
			}
			flush()
			path := src[i+1 : end]
			kind := ChunkRef
			if contextNames[path] {
				kind = ChunkContext
			}
			chunks = append(chunks, Chunk{Kind: kind, Text: path})
			i = end
		default:
			text.WriteByte(src[i])
			i++
		}
	}
	flush()
	return chunks, nil
}

// scanString returns the offset just past the string literal opening at start.
func scanString(src string, start int) (int, error) {
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated string starting at offset %d", start)
}

// scanPath returns the offset just past the path starting at start. A slash
// only continues the path when a name or a dot follows it directly, so
// `$A/value/2` is the path A/value divided by two.
func scanPath(src string, start int) (int, error) {
	i := start
	if i < len(src) && src[i] == '/' && i+1 < len(src) && startsSegment(src[i+1]) {
		i++
	}
	next, ok := scanSegment(src, i)
	if !ok {
		return 0, fmt.Errorf("expected a path after '$' at offset %d", start-1)
	}
	i = next
	for i+1 < len(src) && src[i] == '/' && startsSegment(src[i+1]) {
		next, ok := scanSegment(src, i+1)
		if !ok {
			break
		}
		i = next
	}
	return i, nil
}

func scanSegment(src string, i int) (int, bool) {
	if i >= len(src) {
		return i, false
	}
	switch {
	case src[i] == '#':
		j := i + 1
		for j < len(src) && isDigit(src[j]) {
			j++
		}
		return j, j > i+1
	case src[i] == '.':
		if i+1 < len(src) && src[i+1] == '.' {
			return i + 2, true
		}
		return i + 1, true
	case isNameStart(src[i]):
		j := i + 1
		for j < len(src) && (isNameStart(src[j]) || isDigit(src[j])) {
			j++
		}
		return j, true
	}
	return i, false
}

func startsSegment(c byte) bool { return isNameStart(c) || c == '.' }
func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// rewrite renders chunks into HCL source. It returns the byte offset of the
// opening quote of every string literal that may carry a path, keyed to the
// chunk it came from.
func rewrite(chunks []Chunk) (string, map[int]int) {
	var sb strings.Builder
	offsets := make(map[int]int)
	for i, c := range chunks {
		switch c.Kind {
		case ChunkText:
			sb.WriteString(c.Text)
		case ChunkString:
			offsets[sb.Len()] = i
			sb.WriteString(c.Text)
		case ChunkRef:
			sb.WriteString(refFunc + "(")
			offsets[sb.Len()] = i
			sb.WriteString(strconv.Quote(c.Text))
			sb.WriteString(")")
		case ChunkContext:
			sb.WriteString(c.Text)
		}
	}
	return sb.String(), offsets
}
