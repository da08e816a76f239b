package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that all node modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// ParamSpec declares one parameter of a node kind.
type ParamSpec struct {
	Name    string
	Default any
	// Type constrains the values the parameter accepts. cty.NilType accepts
	// anything.
	Type cty.Type
	Doc  string
}

// CookInput is everything an Operator gets to compute its output.
type CookInput struct {
	// Path is the full scene path of the node being cooked.
	Path   string
	Frame  int
	Params map[string]any
	// Inputs holds the outputs of the connected input slots, nil for an
	// empty slot.
	Inputs []any
}

// Param returns the named parameter, or fallback when it is missing or of
// another type.
func Param[T any](in CookInput, name string, fallback T) T {
	if v, ok := in.Params[name].(T); ok {
		return v
	}
	return fallback
}

// Operator computes a node's output.
type Operator interface {
	Cook(ctx context.Context, in CookInput) (any, error)
}

// OperatorFunc adapts a function to Operator.
type OperatorFunc func(ctx context.Context, in CookInput) (any, error)

// Cook calls f.
func (f OperatorFunc) Cook(ctx context.Context, in CookInput) (any, error) {
	return f(ctx, in)
}

// NodeType describes a node kind.
type NodeType struct {
	Kind      string
	Doc       string
	Params    []ParamSpec
	MaxInputs int
	New       func() Operator
}

// ParamSpec returns the spec of the named parameter.
func (t *NodeType) ParamSpec(name string) (ParamSpec, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Registry holds the node kinds available to one application instance.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*NodeType
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{types: make(map[string]*NodeType)}
}

// Register adds a node kind. Registering a kind twice is a programming error
// and panics.
func (r *Registry) Register(t *NodeType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.Kind]; exists {
		panic(fmt.Sprintf("node kind '%s' already registered", t.Kind))
	}
	if t.New == nil {
		panic(fmt.Sprintf("node kind '%s' has no constructor", t.Kind))
	}
	slog.Debug("Registering node kind.", "kind", t.Kind, "params", len(t.Params))
	r.types[t.Kind] = t
}

// Lookup returns the node kind registered under kind.
func (r *Registry) Lookup(kind string) (*NodeType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[kind]
	return t, ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for k := range r.types {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Centroider is implemented by outputs that have a centre, read by
// centroid() and the $CEX/$CEY/$CEZ context values.
type Centroider interface {
	Centroid() [3]float64
}

// Bounder is implemented by outputs with an axis aligned bounding box, read
// by bbox().
type Bounder interface {
	Bounds() (lo, hi [3]float64)
}

// PointReader is implemented by outputs that carry per point attributes,
// read by point().
type PointReader interface {
	Point(attrib string, index int) (any, error)
}
