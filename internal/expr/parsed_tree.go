package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// sourceName labels diagnostics produced while parsing an expression.
const sourceName = "expression"

// ParsedTree is the parsed form of one expression string. It is immutable:
// rewriting a reference path yields a new tree that shares the AST.
type ParsedTree struct {
	chunks []Chunk
	// stringChunks maps the byte offset of a string literal in the rewritten
	// source to the chunk it was rendered from.
	stringChunks map[int]int
	expr         hclsyntax.Expression
	errorMessage string
}

// ParseExpression parses src. It never fails; a malformed expression yields a
// tree whose ErrorMessage is set and whose Expression is nil.
func ParseExpression(src string) *ParsedTree {
	t := &ParsedTree{chunks: []Chunk{{Kind: ChunkText, Text: src}}}
	if strings.TrimSpace(src) == "" {
		t.errorMessage = "empty expression"
		return t
	}

	chunks, err := lex(src)
	if err != nil {
		t.errorMessage = err.Error()
		return t
	}
	t.chunks = chunks

	rewritten, offsets := rewrite(chunks)
	expr, diags := hclsyntax.ParseExpression([]byte(rewritten), sourceName, hcl.InitialPos)
	if diags.HasErrors() {
		t.errorMessage = diagnosticsMessage(diags)
		return t
	}
	t.stringChunks = offsets
	t.expr = expr
	return t
}

func diagnosticsMessage(diags hcl.Diagnostics) string {
	msgs := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		if d.Detail != "" {
			msgs = append(msgs, d.Summary+": "+d.Detail)
		} else {
			msgs = append(msgs, d.Summary)
		}
	}
	return strings.Join(msgs, "; ")
}

// Expression returns the AST, or nil when parsing failed.
func (t *ParsedTree) Expression() hclsyntax.Expression { return t.expr }

// ErrorMessage is the parse failure, empty when parsing succeeded.
func (t *ParsedTree) ErrorMessage() string { return t.errorMessage }

// Ok reports whether parsing succeeded.
func (t *ParsedTree) Ok() bool { return t.errorMessage == "" }

// Source renders the chunks back into expression source.
func (t *ParsedTree) Source() string {
	var sb strings.Builder
	for _, c := range t.chunks {
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Chunks returns a copy of the source chunks.
func (t *ParsedTree) Chunks() []Chunk {
	out := make([]Chunk, len(t.chunks))
	copy(out, t.chunks)
	return out
}

// WithChunkPath returns a tree whose chunk i carries path instead of its
// current text. Only reference and string chunks can be rewritten. The AST is
// shared, so nothing is parsed again.
func (t *ParsedTree) WithChunkPath(i int, path string) (*ParsedTree, error) {
	if i < 0 || i >= len(t.chunks) {
		return nil, fmt.Errorf("chunk %d out of range", i)
	}
	next := *t
	next.chunks = t.Chunks()
	switch c := &next.chunks[i]; c.Kind {
	case ChunkRef:
		c.Text = path
	case ChunkString:
		c.Text = strconv.Quote(path)
	default:
		return nil, fmt.Errorf("chunk %d does not hold a path", i)
	}
	return &next, nil
}

// chunkAt returns the chunk a string literal starting at byte offset came from.
func (t *ParsedTree) chunkAt(offset int) (int, bool) {
	i, ok := t.stringChunks[offset]
	return i, ok
}
