package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/expr"
	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/specialistvlad/cookgraph/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ErrPending is returned by ComputeExpression while a reference waits for its
// target.
var ErrPending = errors.New("expression has pending references")

// Param is a named value on a node. Its value is either set directly or
// computed by an expression.
type Param struct {
	node  *Node
	gnode *graph.Node
	spec  registry.ParamSpec

	mu      sync.RWMutex
	value   any
	expr    *ExpressionManager
	evalErr error
}

func newParam(n *Node, spec registry.ParamSpec) (*Param, error) {
	p := &Param{node: n, spec: spec}
	if spec.Default != nil {
		v, err := p.normalize(spec.Default)
		if err != nil {
			return nil, fmt.Errorf("param %q default: %w", spec.Name, err)
		}
		p.value = v
	}
	return p, nil
}

func (p *Param) ID() graph.NodeID   { return p.gnode.ID() }
func (p *Param) Name() string       { return p.spec.Name }
func (p *Param) Node() *Node        { return p.node }
func (p *Param) IsDirty() bool      { return p.gnode.IsDirty() }
func (p *Param) DirtyCount() uint64 { return p.gnode.DirtyCount() }

// Value returns the last good value: the set value, the last successful
// evaluation of the expression, or the default.
func (p *Param) Value() any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set assigns a static value and drops any expression.
func (p *Param) Set(v any) error {
	norm, err := p.normalize(v)
	if err != nil {
		return fmt.Errorf("set %q: %w", p.Name(), err)
	}
	p.mu.Lock()
	m := p.expr
	p.expr = nil
	p.value = norm
	p.evalErr = nil
	p.mu.Unlock()
	if m != nil {
		m.Close()
	}
	p.gnode.SetDirty(graph.NoTrigger)
	return nil
}

// SetExpression makes the parameter computed by src. An empty src drops the
// expression and keeps the current value. Parse, compile and cyclic
// reference errors are returned and also kept as the parameter's error
// state; unresolved references are not errors, see IsPending.
func (p *Param) SetExpression(ctx context.Context, src string) error {
	p.mu.Lock()
	m := p.expr
	if src == "" {
		p.expr = nil
		p.evalErr = nil
	} else if m == nil {
		m = newExpressionManager(p)
		p.expr = m
	}
	p.mu.Unlock()

	if src == "" {
		if m != nil {
			m.Close()
		}
		p.gnode.SetDirty(graph.NoTrigger)
		return nil
	}
	err := m.Set(ctx, src)
	p.mu.Lock()
	p.evalErr = nil
	p.mu.Unlock()
	p.gnode.SetDirty(graph.NoTrigger)
	return err
}

// Expression returns the expression source with renames applied, "" for a
// static parameter.
func (p *Param) Expression() string {
	if m := p.expression(); m != nil {
		return m.Source()
	}
	return ""
}

// ExpressionState reports where the expression is in its life cycle.
func (p *Param) ExpressionState() ExpressionState {
	if m := p.expression(); m != nil {
		return m.State()
	}
	return StateUncompiled
}

// IsPending reports whether the expression waits for a reference to resolve.
func (p *Param) IsPending() bool {
	return p.ExpressionState() == StatePending
}

// IsErrored reports whether the expression failed to parse, compile, bind or
// evaluate. Pending references alone do not make a parameter errored.
func (p *Param) IsErrored() bool {
	if p.ExpressionState() == StateErrored {
		return true
	}
	if p.IsPending() {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.evalErr != nil
}

// ErrorMessage describes why the parameter is errored or pending, "" otherwise.
func (p *Param) ErrorMessage() string {
	if err := p.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// Err returns the expression error or, failing that, the last evaluation error.
func (p *Param) Err() error {
	m := p.expression()
	if m == nil {
		return nil
	}
	if err := m.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.evalErr
}

// ComputeExpression returns the expression's current value, cooking what it
// depends on first. It fails with the stored error while the expression is
// errored or pending, and with the evaluation error when the evaluation
// failed.
func (p *Param) ComputeExpression(ctx context.Context) (any, error) {
	m := p.expression()
	if m == nil {
		return p.Value(), nil
	}
	switch m.State() {
	case StateErrored:
		return nil, m.Err()
	case StatePending:
		return nil, fmt.Errorf("%s: %w: %w", p.Name(), ErrPending, m.Err())
	}
	v, err := p.node.scene.cooker.Request(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	evalErr := p.evalErr
	p.mu.RUnlock()
	if evalErr != nil {
		return nil, evalErr
	}
	return v, nil
}

// Cook implements scheduler.Cookable. An expression that fails to evaluate
// leaves the last good value in place and records the error; the parameter
// itself never fails to cook.
func (p *Param) Cook(ctx context.Context, in scheduler.Inputs) (any, error) {
	m := p.expression()
	if m == nil {
		return p.Value(), nil
	}

	v, err := m.eval(ctx, in)
	if err == nil {
		v, err = p.normalizeValue(v)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.evalErr = err
		ctxlog.FromContext(ctx).Debug("Expression evaluation failed, keeping last value.",
			"param", p.Name(), "node", p.node.Name(), "error", err)
		return p.value, nil
	}
	out, err := expr.ToGo(v)
	if err != nil {
		p.evalErr = err
		return p.value, nil
	}
	p.value = out
	p.evalErr = nil
	return out, nil
}

func (p *Param) expression() *ExpressionManager {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.expr
}

func (p *Param) closeExpression() {
	p.mu.Lock()
	m := p.expr
	p.mu.Unlock()
	if m != nil {
		m.Close()
	}
}

// normalize converts a Go value to the parameter's type and back, so that
// e.g. an int set on a number parameter is stored as float64.
func (p *Param) normalize(v any) (any, error) {
	cv, err := expr.FromGo(v)
	if err != nil {
		return nil, err
	}
	cv, err = p.normalizeValue(cv)
	if err != nil {
		return nil, err
	}
	return expr.ToGo(cv)
}

func (p *Param) normalizeValue(v cty.Value) (cty.Value, error) {
	if p.spec.Type == cty.NilType {
		return v, nil
	}
	out, err := convert.Convert(v, p.spec.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("expected %s: %w", p.spec.Type.FriendlyName(), err)
	}
	return out, nil
}
