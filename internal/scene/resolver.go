package scene

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/specialistvlad/cookgraph/internal/expr"
	"github.com/specialistvlad/cookgraph/internal/exprdeps"
	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/specialistvlad/cookgraph/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

var errNoCentroid = errors.New("output has no centroid")

// resolver serves the references of one evaluation. Targets are read from
// the cook inputs when the cooker already produced them, otherwise they are
// requested.
type resolver struct {
	scene  *Scene
	param  *Param
	deps   *exprdeps.DependenciesController
	inputs scheduler.Inputs
}

func (r *resolver) Resolve(ctx context.Context, ref expr.Reference, args []cty.Value) (cty.Value, error) {
	dep, ok := r.deps.Dependency(ref.Index)
	if !ok {
		return cty.NilVal, exprdeps.ErrUnresolved
	}
	target, ok := dep.Target()
	if !ok {
		if err := dep.Err(); err != nil {
			return cty.NilVal, err
		}
		return cty.NilVal, exprdeps.ErrUnresolved
	}

	if ref.Method == expr.MethodName {
		gn, ok := r.scene.graph.Node(target)
		if !ok {
			return cty.NilVal, exprdeps.ErrUnresolved
		}
		return cty.StringVal(gn.Name()), nil
	}

	out, err := r.value(ctx, target)
	if err != nil {
		return cty.NilVal, err
	}

	switch ref.Method {
	case expr.MethodChannel:
		return expr.FromGo(out)
	case expr.MethodCentroid:
		c, ok := out.(registry.Centroider)
		if !ok {
			return cty.NilVal, errNoCentroid
		}
		centre := c.Centroid()
		if len(args) == 0 {
			return vec3(centre), nil
		}
		axis, err := axisArg(args[0])
		if err != nil {
			return cty.NilVal, err
		}
		return cty.NumberFloatVal(centre[axis]), nil
	case expr.MethodBBox:
		return bbox(out, args)
	case expr.MethodPoint:
		return point(out, args)
	}
	return cty.NilVal, fmt.Errorf("unsupported method %q", ref.Method)
}

func (r *resolver) InputCentroid(ctx context.Context) ([3]float64, error) {
	id, ok := r.param.node.input(0)
	if !ok {
		return [3]float64{}, errors.New("no input connected")
	}
	out, err := r.value(ctx, id)
	if err != nil {
		return [3]float64{}, err
	}
	c, ok := out.(registry.Centroider)
	if !ok {
		return [3]float64{}, errNoCentroid
	}
	return c.Centroid(), nil
}

func (r *resolver) value(ctx context.Context, id graph.NodeID) (any, error) {
	if v, ok := r.inputs[id]; ok {
		return v, nil
	}
	return r.scene.cooker.Request(ctx, id)
}

// bbox serves bbox(path, axis[, "min"|"max"|"size"]). The default is "size".
func bbox(out any, args []cty.Value) (cty.Value, error) {
	b, ok := out.(registry.Bounder)
	if !ok {
		return cty.NilVal, errors.New("output has no bounding box")
	}
	axis, err := axisArg(args[0])
	if err != nil {
		return cty.NilVal, err
	}
	which := "size"
	if len(args) > 1 {
		if which, err = stringArg(args[1]); err != nil {
			return cty.NilVal, err
		}
	}
	lo, hi := b.Bounds()
	switch which {
	case "min":
		return cty.NumberFloatVal(lo[axis]), nil
	case "max":
		return cty.NumberFloatVal(hi[axis]), nil
	case "size":
		return cty.NumberFloatVal(hi[axis] - lo[axis]), nil
	}
	return cty.NilVal, fmt.Errorf("bbox component must be \"min\", \"max\" or \"size\", got %q", which)
}

// point serves point(path, attrib, index).
func point(out any, args []cty.Value) (cty.Value, error) {
	pr, ok := out.(registry.PointReader)
	if !ok {
		return cty.NilVal, errors.New("output has no points")
	}
	attrib, err := stringArg(args[0])
	if err != nil {
		return cty.NilVal, err
	}
	index, err := intArg(args[1])
	if err != nil {
		return cty.NilVal, err
	}
	v, err := pr.Point(attrib, index)
	if err != nil {
		return cty.NilVal, err
	}
	return expr.FromGo(v)
}

func vec3(v [3]float64) cty.Value {
	return cty.TupleVal([]cty.Value{
		cty.NumberFloatVal(v[0]),
		cty.NumberFloatVal(v[1]),
		cty.NumberFloatVal(v[2]),
	})
}

func axisArg(v cty.Value) (int, error) {
	if v.Type() == cty.String {
		switch v.AsString() {
		case "x":
			return 0, nil
		case "y":
			return 1, nil
		case "z":
			return 2, nil
		}
		return 0, fmt.Errorf("axis must be x, y or z, got %q", v.AsString())
	}
	axis, err := intArg(v)
	if err != nil {
		return 0, err
	}
	if axis < 0 || axis > 2 {
		return 0, fmt.Errorf("axis must be 0, 1 or 2, got %d", axis)
	}
	return axis, nil
}

func intArg(v cty.Value) (int, error) {
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, err
	}
	if n.IsNull() {
		return 0, errors.New("expected a number, got null")
	}
	i, acc := n.AsBigFloat().Int64()
	if acc != big.Exact {
		return 0, fmt.Errorf("expected a whole number, got %s", n.AsBigFloat().Text('g', -1))
	}
	return int(i), nil
}

func stringArg(v cty.Value) (string, error) {
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	if s.IsNull() {
		return "", errors.New("expected a string, got null")
	}
	return s.AsString(), nil
}
