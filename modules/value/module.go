package value

import (
	"context"

	"github.com/specialistvlad/cookgraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Cook outputs the "value" parameter.
func Cook(ctx context.Context, in registry.CookInput) (any, error) {
	return in.Params["value"], nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.NodeType{
		Kind: "value",
		Doc:  "Holds a single value of any type, typically computed by an expression.",
		Params: []registry.ParamSpec{
			{Name: "value", Default: 0.0},
		},
		New: func() registry.Operator { return registry.OperatorFunc(Cook) },
	})
}
