package expr

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cookgraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty/function"
)

// Path methods.
const (
	MethodChannel  = "ch"
	MethodCentroid = "centroid"
	MethodBBox     = "bbox"
	MethodPoint    = "point"
	MethodName     = "name"
)

// pathMethods lists the calls whose first argument is a path, with the
// accepted argument counts (path included).
var pathMethods = map[string]struct{ min, max int }{
	refFunc:        {1, 1},
	MethodChannel:  {1, 1},
	MethodCentroid: {1, 2},
	MethodBBox:     {2, 3},
	MethodPoint:    {3, 3},
	MethodName:     {1, 1},
}

// ErrParse wraps every failure reported for a tree that did not parse.
var ErrParse = errors.New("parse error")

// FunctionGenerator compiles parsed trees into programs.
type FunctionGenerator struct {
	functions map[string]function.Function
}

// NewFunctionGenerator returns a generator that knows DefaultFunctions.
func NewFunctionGenerator() *FunctionGenerator {
	return &FunctionGenerator{functions: DefaultFunctions()}
}

// WithFunction registers fn under name, replacing any previous function.
// Path method names cannot be overridden.
func (g *FunctionGenerator) WithFunction(name string, fn function.Function) *FunctionGenerator {
	if _, reserved := pathMethods[name]; reserved {
		panic(fmt.Sprintf("expr: %q is a path method and cannot be redefined", name))
	}
	g.functions[name] = fn
	return g
}

// Generate walks tree and builds its program.
func (g *FunctionGenerator) Generate(tree *ParsedTree) (*Program, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: no expression", ErrParse)
	}
	if !tree.Ok() {
		return nil, fmt.Errorf("%w: %s", ErrParse, tree.ErrorMessage())
	}
	w := &walker{gen: g, tree: tree, prog: &Program{}}
	root, err := w.walk(tree.Expression())
	if err != nil {
		return nil, err
	}
	w.prog.root = root
	return w.prog, nil
}

type walker struct {
	gen  *FunctionGenerator
	tree *ParsedTree
	prog *Program
}

func (w *walker) walk(e hclsyntax.Expression) (op, error) {
	switch e := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		return literalOp{val: e.Val}, nil

	case *hclsyntax.ParenthesesExpr:
		return w.walk(e.Expression)

	case *hclsyntax.TemplateWrapExpr:
		return w.walk(e.Wrapped)

	case *hclsyntax.TemplateExpr:
		if e.IsStringLiteral() {
			v, diags := e.Value(nil)
			if diags.HasErrors() {
				return nil, diagsError(diags)
			}
			return literalOp{val: v}, nil
		}
		parts, err := w.walkAll(e.Parts)
		if err != nil {
			return nil, err
		}
		return &templateOp{parts: parts}, nil

	case *hclsyntax.BinaryOpExpr:
		lhs, err := w.walk(e.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := w.walk(e.RHS)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case hclsyntax.OpLogicalAnd:
			return &logicalOp{and: true, lhs: lhs, rhs: rhs}, nil
		case hclsyntax.OpLogicalOr:
			return &logicalOp{and: false, lhs: lhs, rhs: rhs}, nil
		}
		return &binaryOp{impl: e.Op.Impl, lhs: lhs, rhs: rhs}, nil

	case *hclsyntax.UnaryOpExpr:
		val, err := w.walk(e.Val)
		if err != nil {
			return nil, err
		}
		return &unaryOp{impl: e.Op.Impl, val: val}, nil

	case *hclsyntax.ConditionalExpr:
		cond, err := w.walk(e.Condition)
		if err != nil {
			return nil, err
		}
		then, err := w.walk(e.TrueResult)
		if err != nil {
			return nil, err
		}
		otherwise, err := w.walk(e.FalseResult)
		if err != nil {
			return nil, err
		}
		return &conditionalOp{cond: cond, then: then, otherwise: otherwise}, nil

	case *hclsyntax.FunctionCallExpr:
		return w.call(e)

	case *hclsyntax.ScopeTraversalExpr:
		root := e.Traversal.RootName()
		if !IsContextName(root) {
			return nil, fmt.Errorf("unknown variable %q at %s; references need a leading $, as in $%s", root, e.SrcRange, root)
		}
		w.markContext(root)
		var out op = contextOp{name: root}
		if rest := e.Traversal[1:]; len(rest) > 0 {
			out = &traversalOp{source: out, traversal: rest}
		}
		return out, nil

	case *hclsyntax.RelativeTraversalExpr:
		src, err := w.walk(e.Source)
		if err != nil {
			return nil, err
		}
		return &traversalOp{source: src, traversal: e.Traversal}, nil

	case *hclsyntax.IndexExpr:
		coll, err := w.walk(e.Collection)
		if err != nil {
			return nil, err
		}
		key, err := w.walk(e.Key)
		if err != nil {
			return nil, err
		}
		return &indexOp{collection: coll, key: key}, nil

	case *hclsyntax.TupleConsExpr:
		items, err := w.walkAll(e.Exprs)
		if err != nil {
			return nil, err
		}
		return &tupleOp{items: items}, nil
	}
	return nil, fmt.Errorf("unsupported expression at %s", e.Range())
}

func (w *walker) walkAll(exprs []hclsyntax.Expression) ([]op, error) {
	out := make([]op, len(exprs))
	for i, e := range exprs {
		o, err := w.walk(e)
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

func (w *walker) markContext(name string) {
	switch name {
	case CtxFrame, CtxTime, CtxFPS:
		w.prog.usesTime = true
	case CtxCentroidX, CtxCentroidY, CtxCentroidZ:
		w.prog.usesInput = true
	}
}

func (w *walker) call(e *hclsyntax.FunctionCallExpr) (op, error) {
	if e.ExpandFinal {
		return nil, fmt.Errorf("%s(): argument expansion is not supported", e.Name)
	}
	if _, ok := pathMethods[e.Name]; ok {
		return w.pathCall(e)
	}
	fn, ok := w.gen.functions[e.Name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q at %s", e.Name, e.NameRange)
	}
	args, err := w.walkAll(e.Args)
	if err != nil {
		return nil, err
	}
	return &callOp{name: e.Name, fn: fn, args: args}, nil
}

// pathCall turns a path method call into a reference. The path itself is not
// evaluated: it has to be a literal so the target can be resolved, and
// followed, before the expression runs.
func (w *walker) pathCall(e *hclsyntax.FunctionCallExpr) (op, error) {
	arity := pathMethods[e.Name]
	if n := len(e.Args); n < arity.min || n > arity.max {
		if arity.min == arity.max {
			return nil, fmt.Errorf("%s() takes %d argument(s), got %d", e.Name, arity.min, n)
		}
		return nil, fmt.Errorf("%s() takes %d to %d arguments, got %d", e.Name, arity.min, arity.max, n)
	}

	path, chunk, err := w.pathArg(e.Args[0])
	if err != nil {
		return nil, fmt.Errorf("%s(): %w", e.Name, err)
	}
	parsed, err := nodeid.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%s(): %w", e.Name, err)
	}

	method := e.Name
	if method == refFunc {
		method = MethodChannel
	}
	ref := Reference{
		Index:     len(w.prog.refs),
		Method:    method,
		Path:      path,
		Chunk:     chunk,
		Immutable: parsed.IsImmutable(),
	}
	w.prog.refs = append(w.prog.refs, ref)

	args, err := w.walkAll(e.Args[1:])
	if err != nil {
		return nil, err
	}
	return &refOp{ref: ref, args: args}, nil
}

// pathArg extracts the literal path of a path method call along with the
// chunk it was written in.
func (w *walker) pathArg(e hclsyntax.Expression) (string, int, error) {
	switch e := e.(type) {
	case *hclsyntax.ParenthesesExpr:
		return w.pathArg(e.Expression)
	case *hclsyntax.FunctionCallExpr:
		if e.Name == refFunc && len(e.Args) == 1 {
			return w.pathArg(e.Args[0])
		}
	case *hclsyntax.TemplateExpr:
		if e.IsStringLiteral() {
			v, diags := e.Value(nil)
			if diags.HasErrors() {
				return "", 0, diagsError(diags)
			}
			chunk, ok := w.tree.chunkAt(e.SrcRange.Start.Byte)
			if !ok {
				chunk = -1
			}
			return v.AsString(), chunk, nil
		}
	}
	return "", 0, fmt.Errorf("first argument must be a $path or a quoted path, at %s", e.Range())
}
