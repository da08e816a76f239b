package env_vars

import (
	"context"
	"os"

	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Cook outputs the value of the environment variable named by the "name"
// parameter, or the "default" parameter when it is unset.
func Cook(ctx context.Context, in registry.CookInput) (any, error) {
	name := registry.Param(in, "name", "")
	if name == "" {
		return registry.Param(in, "default", ""), nil
	}
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}
	return registry.Param(in, "default", ""), nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.NodeType{
		Kind: "env",
		Doc:  "Reads an environment variable.",
		Params: []registry.ParamSpec{
			{Name: "name", Default: "", Type: cty.String},
			{Name: "default", Default: "", Type: cty.String},
		},
		New: func() registry.Operator { return registry.OperatorFunc(Cook) },
	})
}
