package transform

import (
	"context"
	"errors"

	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Object is the output of a transform node: an axis aligned box.
type Object struct {
	Position [3]float64
	Size     float64
}

func (o Object) Centroid() [3]float64 { return o.Position }

func (o Object) Bounds() (lo, hi [3]float64) {
	half := o.Size / 2
	for i, c := range o.Position {
		lo[i], hi[i] = c-half, c+half
	}
	return lo, hi
}

// Cook places a box of edge "scale" at (tx, ty, tz), relative to the centroid
// of the first input when one is connected.
func Cook(ctx context.Context, in registry.CookInput) (any, error) {
	var origin [3]float64
	if len(in.Inputs) > 0 && in.Inputs[0] != nil {
		c, ok := in.Inputs[0].(registry.Centroider)
		if !ok {
			return nil, errors.New("input 0 has no centroid")
		}
		origin = c.Centroid()
	}
	scale := registry.Param(in, "scale", 1.0)
	if scale < 0 {
		return nil, errors.New("scale must not be negative")
	}
	return Object{
		Position: [3]float64{
			origin[0] + registry.Param(in, "tx", 0.0),
			origin[1] + registry.Param(in, "ty", 0.0),
			origin[2] + registry.Param(in, "tz", 0.0),
		},
		Size: scale,
	}, nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.NodeType{
		Kind:      "transform",
		Doc:       "Positions and scales a box, optionally relative to its input.",
		MaxInputs: 1,
		Params: []registry.ParamSpec{
			{Name: "tx", Default: 0.0, Type: cty.Number},
			{Name: "ty", Default: 0.0, Type: cty.Number},
			{Name: "tz", Default: 0.0, Type: cty.Number},
			{Name: "scale", Default: 1.0, Type: cty.Number},
		},
		New: func() registry.Operator { return registry.OperatorFunc(Cook) },
	})
}
