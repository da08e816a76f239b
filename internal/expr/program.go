package expr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// ErrNoResolver is returned when a program that reads other nodes is
// evaluated without a Resolver.
var ErrNoResolver = errors.New("expression: no resolver")

// Reference is a cross-node reference discovered in an expression.
type Reference struct {
	// Index is the position of the reference in Program.References.
	Index int
	// Method is the path method that reads the target: ch, centroid, bbox,
	// point or name.
	Method string
	// Path is the path as written.
	Path string
	// Chunk is the source chunk holding the path, -1 when the path cannot be
	// rewritten in place.
	Chunk int
	// Immutable references are anchored on a node id and never need to be
	// resolved again.
	Immutable bool
}

// Resolver supplies everything an expression reads from outside itself.
type Resolver interface {
	// Resolve evaluates a path method. args are the evaluated arguments that
	// follow the path.
	Resolve(ctx context.Context, ref Reference, args []cty.Value) (cty.Value, error)
	// InputCentroid is the centroid of the owner's first input.
	InputCentroid(ctx context.Context) ([3]float64, error)
}

// Env is the implicit context of one evaluation.
type Env struct {
	Frame     int
	FPS       float64
	OwnerName string
	ParamName string
	Resolver  Resolver
}

// Time is the frame expressed in seconds.
func (e *Env) Time() float64 {
	if e.FPS <= 0 {
		return 0
	}
	return float64(e.Frame) / e.FPS
}

// Program is a compiled expression.
type Program struct {
	root      op
	refs      []Reference
	usesTime  bool
	usesInput bool
}

// References returns the references in the order they appear in the source.
func (p *Program) References() []Reference {
	out := make([]Reference, len(p.refs))
	copy(out, p.refs)
	return out
}

// UsesTime reports whether the program reads the frame or the time.
func (p *Program) UsesTime() bool { return p.usesTime }

// UsesInput reports whether the program reads the owner's input centroid.
func (p *Program) UsesInput() bool { return p.usesInput }

// Eval runs the program.
func (p *Program) Eval(ctx context.Context, env *Env) (cty.Value, error) {
	if env == nil {
		env = &Env{}
	}
	v, err := p.root.eval(ctx, env)
	if err != nil {
		return cty.NilVal, err
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, errors.New("expression result is unknown")
	}
	return v, nil
}

// op is one node of the evaluator tree.
type op interface {
	eval(ctx context.Context, env *Env) (cty.Value, error)
}

type literalOp struct{ val cty.Value }

func (o literalOp) eval(context.Context, *Env) (cty.Value, error) { return o.val, nil }

type contextOp struct{ name string }

func (o contextOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	switch o.name {
	case CtxFrame:
		return cty.NumberIntVal(int64(env.Frame)), nil
	case CtxFPS:
		return cty.NumberFloatVal(env.FPS), nil
	case CtxTime:
		return cty.NumberFloatVal(env.Time()), nil
	case CtxOwnerName:
		return cty.StringVal(env.OwnerName), nil
	case CtxParamName:
		return cty.StringVal(env.ParamName), nil
	case CtxCentroidX, CtxCentroidY, CtxCentroidZ:
		if env.Resolver == nil {
			return cty.NilVal, fmt.Errorf("$%s: %w", o.name, ErrNoResolver)
		}
		c, err := env.Resolver.InputCentroid(ctx)
		if err != nil {
			return cty.NilVal, fmt.Errorf("$%s: %w", o.name, err)
		}
		return cty.NumberFloatVal(c[o.name[2]-'X']), nil
	}
	return cty.NilVal, fmt.Errorf("unknown context value $%s", o.name)
}

type refOp struct {
	ref  Reference
	args []op
}

func (o *refOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	if env.Resolver == nil {
		return cty.NilVal, fmt.Errorf("%s(%q): %w", o.ref.Method, o.ref.Path, ErrNoResolver)
	}
	args, err := evalAll(ctx, env, o.args)
	if err != nil {
		return cty.NilVal, err
	}
	v, err := env.Resolver.Resolve(ctx, o.ref, args)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s(%q): %w", o.ref.Method, o.ref.Path, err)
	}
	return v, nil
}

type binaryOp struct {
	impl     function.Function
	lhs, rhs op
}

func (o *binaryOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	lhs, err := o.lhs.eval(ctx, env)
	if err != nil {
		return cty.NilVal, err
	}
	rhs, err := o.rhs.eval(ctx, env)
	if err != nil {
		return cty.NilVal, err
	}
	params := o.impl.Params()
	if lhs, err = convert.Convert(lhs, params[0].Type); err != nil {
		return cty.NilVal, fmt.Errorf("invalid left operand: %w", err)
	}
	if rhs, err = convert.Convert(rhs, params[1].Type); err != nil {
		return cty.NilVal, fmt.Errorf("invalid right operand: %w", err)
	}
	return o.impl.Call([]cty.Value{lhs, rhs})
}

// logicalOp evaluates && and || with short circuit.
type logicalOp struct {
	and      bool
	lhs, rhs op
}

func (o *logicalOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	lhs, err := evalBool(ctx, env, o.lhs)
	if err != nil {
		return cty.NilVal, err
	}
	if lhs != o.and {
		return cty.BoolVal(lhs), nil
	}
	rhs, err := evalBool(ctx, env, o.rhs)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.BoolVal(rhs), nil
}

type unaryOp struct {
	impl function.Function
	val  op
}

func (o *unaryOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	v, err := o.val.eval(ctx, env)
	if err != nil {
		return cty.NilVal, err
	}
	if v, err = convert.Convert(v, o.impl.Params()[0].Type); err != nil {
		return cty.NilVal, fmt.Errorf("invalid operand: %w", err)
	}
	return o.impl.Call([]cty.Value{v})
}

type conditionalOp struct {
	cond, then, otherwise op
}

func (o *conditionalOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	c, err := evalBool(ctx, env, o.cond)
	if err != nil {
		return cty.NilVal, err
	}
	if c {
		return o.then.eval(ctx, env)
	}
	return o.otherwise.eval(ctx, env)
}

type callOp struct {
	name string
	fn   function.Function
	args []op
}

func (o *callOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	args, err := evalAll(ctx, env, o.args)
	if err != nil {
		return cty.NilVal, err
	}
	params := o.fn.Params()
	for i := range args {
		var p *function.Parameter
		switch {
		case i < len(params):
			p = &params[i]
		default:
			p = o.fn.VarParam()
		}
		if p == nil {
			return cty.NilVal, fmt.Errorf("%s(): too many arguments", o.name)
		}
		if args[i], err = convert.Convert(args[i], p.Type); err != nil {
			return cty.NilVal, fmt.Errorf("%s(): argument %d: %w", o.name, i+1, err)
		}
	}
	v, err := o.fn.Call(args)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s(): %w", o.name, err)
	}
	return v, nil
}

type indexOp struct {
	collection, key op
}

func (o *indexOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	coll, err := o.collection.eval(ctx, env)
	if err != nil {
		return cty.NilVal, err
	}
	key, err := o.key.eval(ctx, env)
	if err != nil {
		return cty.NilVal, err
	}
	v, diags := hcl.Index(coll, key, nil)
	if diags.HasErrors() {
		return cty.NilVal, diagsError(diags)
	}
	return v, nil
}

// traversalOp applies attribute and index steps to a computed value.
type traversalOp struct {
	source    op
	traversal hcl.Traversal
}

func (o *traversalOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	v, err := o.source.eval(ctx, env)
	if err != nil {
		return cty.NilVal, err
	}
	out, diags := o.traversal.TraverseRel(v)
	if diags.HasErrors() {
		return cty.NilVal, diagsError(diags)
	}
	return out, nil
}

type templateOp struct{ parts []op }

func (o *templateOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	var sb strings.Builder
	for _, p := range o.parts {
		v, err := p.eval(ctx, env)
		if err != nil {
			return cty.NilVal, err
		}
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid template value: %w", err)
		}
		if s.IsNull() {
			return cty.NilVal, errors.New("invalid template value: null")
		}
		sb.WriteString(s.AsString())
	}
	return cty.StringVal(sb.String()), nil
}

type tupleOp struct{ items []op }

func (o *tupleOp) eval(ctx context.Context, env *Env) (cty.Value, error) {
	vals, err := evalAll(ctx, env, o.items)
	if err != nil {
		return cty.NilVal, err
	}
	if len(vals) == 0 {
		return cty.EmptyTupleVal, nil
	}
	return cty.TupleVal(vals), nil
}

func evalAll(ctx context.Context, env *Env, ops []op) ([]cty.Value, error) {
	out := make([]cty.Value, len(ops))
	for i, o := range ops {
		v, err := o.eval(ctx, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func evalBool(ctx context.Context, env *Env, o op) (bool, error) {
	v, err := o.eval(ctx, env)
	if err != nil {
		return false, err
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("expected a bool: %w", err)
	}
	if b.IsNull() || !b.IsKnown() {
		return false, errors.New("expected a bool, got null")
	}
	return b.True(), nil
}

func diagsError(diags hcl.Diagnostics) error {
	return errors.New(diagnosticsMessage(diags))
}
