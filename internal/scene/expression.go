package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/cookgraph/internal/expr"
	"github.com/specialistvlad/cookgraph/internal/exprdeps"
	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
)

// ExpressionState is the life cycle of a parameter expression.
type ExpressionState int

const (
	StateUncompiled ExpressionState = iota
	StateParsed
	StateCompiled
	StateResolved
	StatePending
	StateErrored
)

func (s ExpressionState) String() string {
	switch s {
	case StateUncompiled:
		return "uncompiled"
	case StateParsed:
		return "parsed"
	case StateCompiled:
		return "compiled"
	case StateResolved:
		return "resolved"
	case StatePending:
		return "pending"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ExpressionManager drives one parameter's expression from source to bound
// program: it parses, compiles, hands the references to a dependencies
// controller and keeps the source text in sync with renames.
type ExpressionManager struct {
	param *Param
	deps  *exprdeps.DependenciesController

	mu    sync.RWMutex
	tree  *expr.ParsedTree
	prog  *expr.Program
	state ExpressionState
	err   error
}

func newExpressionManager(p *Param) *ExpressionManager {
	s := p.node.scene
	m := &ExpressionManager{param: p}
	m.deps = exprdeps.NewDependenciesController(s.graph, s.tree, s.missing, p.ID(), p.node.ID())
	m.deps.OnPathChanged(m.pathChanged)
	m.deps.OnStateChanged(m.dependencyChanged)
	return m
}

// Set replaces the expression with src.
func (m *ExpressionManager) Set(ctx context.Context, src string) error {
	s := m.param.node.scene
	logger := s.logger(ctx).With("param", m.param.Name(), "node", m.param.node.Name())

	tree := expr.ParseExpression(src)
	if !tree.Ok() {
		m.deps.Reset()
		err := fmt.Errorf("%w: %s", expr.ErrParse, tree.ErrorMessage())
		m.store(tree, nil, StateErrored, err)
		logger.Debug("Expression does not parse.", "source", src, "error", err)
		return err
	}
	m.store(tree, nil, StateParsed, nil)

	prog, err := s.gen.Generate(tree)
	if err != nil {
		m.deps.Reset()
		m.store(tree, nil, StateErrored, err)
		logger.Debug("Expression does not compile.", "source", src, "error", err)
		return err
	}
	m.store(tree, prog, StateCompiled, nil)

	if err := m.bind(ctx, prog); err != nil {
		logger.Debug("Expression references are cyclic.", "source", src, "error", err)
		return err
	}
	logger.Debug("Expression set.", "source", src, "state", m.State(), "references", len(prog.References()))
	return nil
}

// bind connects the program's references and the implicit time and input
// dependencies.
func (m *ExpressionManager) bind(ctx context.Context, prog *expr.Program) error {
	s := m.param.node.scene
	var fixed []graph.NodeID
	if prog.UsesTime() {
		fixed = append(fixed, s.timeNode.ID())
	}
	if prog.UsesInput() {
		if id, ok := m.param.node.input(0); ok {
			fixed = append(fixed, id)
		}
	}
	err := m.deps.Update(ctx, prog, fixed...)
	m.refresh(err)
	return err
}

// rebind binds the current program again, after the owner's first input
// changed.
func (m *ExpressionManager) rebind(ctx context.Context) {
	m.mu.RLock()
	prog := m.prog
	m.mu.RUnlock()
	if prog != nil {
		m.bind(ctx, prog)
	}
}

// refresh derives the state from the dependencies. bindErr is the error of
// the last Update, which also covers fixed edges that were refused.
func (m *ExpressionManager) refresh(bindErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prog == nil {
		return
	}
	if bindErr == nil {
		bindErr = m.deps.Err()
	}
	switch {
	case bindErr != nil:
		m.state, m.err = StateErrored, bindErr
	case m.deps.Pending():
		m.state, m.err = StatePending, m.pendingErr()
	default:
		m.state, m.err = StateResolved, nil
	}
}

func (m *ExpressionManager) pendingErr() error {
	var errs []error
	for _, d := range m.deps.Dependencies() {
		if err := d.Err(); errors.Is(err, exprdeps.ErrUnresolved) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *ExpressionManager) store(tree *expr.ParsedTree, prog *expr.Program, state ExpressionState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree, m.prog, m.state, m.err = tree, prog, state, err
}

func (m *ExpressionManager) pathChanged(dep *exprdeps.MethodDependency) {
	chunk := dep.Reference().Chunk
	if chunk < 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tree == nil {
		return
	}
	if tree, err := m.tree.WithChunkPath(chunk, dep.Path()); err == nil {
		m.tree = tree
	}
}

func (m *ExpressionManager) dependencyChanged(*exprdeps.MethodDependency) {
	m.mu.RLock()
	errored := m.state == StateErrored && m.prog == nil
	m.mu.RUnlock()
	if errored {
		return
	}
	m.refresh(nil)
	m.param.gnode.SetDirty(graph.NoTrigger)
}

// State returns the current state.
func (m *ExpressionManager) State() ExpressionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Err returns the parse, compile or binding error, or the unresolved
// references while pending.
func (m *ExpressionManager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Source returns the expression text with renames applied.
func (m *ExpressionManager) Source() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tree == nil {
		return ""
	}
	return m.tree.Source()
}

// Dependencies returns the dependencies of the current program.
func (m *ExpressionManager) Dependencies() []*exprdeps.MethodDependency {
	return m.deps.Dependencies()
}

// Close drops every edge and pending reference of the expression.
func (m *ExpressionManager) Close() {
	m.deps.Close()
}

func (m *ExpressionManager) usesInput() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prog != nil && m.prog.UsesInput()
}

func (m *ExpressionManager) eval(ctx context.Context, in scheduler.Inputs) (cty.Value, error) {
	m.mu.RLock()
	prog, state, err := m.prog, m.state, m.err
	m.mu.RUnlock()
	if prog == nil || state == StateErrored {
		if err == nil {
			err = errors.New("expression is not compiled")
		}
		return cty.NilVal, err
	}

	p := m.param
	s := p.node.scene
	env := &expr.Env{
		Frame:     s.Frame(),
		FPS:       s.FPS(),
		OwnerName: p.node.Name(),
		ParamName: p.Name(),
		Resolver:  &resolver{scene: s, param: p, deps: m.deps, inputs: in},
	}
	return prog.Eval(ctx, env)
}
