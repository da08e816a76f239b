package sum

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// MaxInputs is the number of input slots of a sum node.
const MaxInputs = 4

// Cook adds every connected numeric input to the "bias" parameter. Inputs
// that carry a centroid contribute its x component.
func Cook(ctx context.Context, in registry.CookInput) (any, error) {
	total := registry.Param(in, "bias", 0.0)
	for i, v := range in.Inputs {
		switch v := v.(type) {
		case nil:
		case float64:
			total += v
		case registry.Centroider:
			total += v.Centroid()[0]
		default:
			return nil, fmt.Errorf("input %d: cannot add %T", i, v)
		}
	}
	return total * registry.Param(in, "scale", 1.0), nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.NodeType{
		Kind:      "sum",
		Doc:       "Adds its inputs and a bias, then scales the result.",
		MaxInputs: MaxInputs,
		Params: []registry.ParamSpec{
			{Name: "bias", Default: 0.0, Type: cty.Number},
			{Name: "scale", Default: 1.0, Type: cty.Number},
		},
		New: func() registry.Operator { return registry.OperatorFunc(Cook) },
	})
}
