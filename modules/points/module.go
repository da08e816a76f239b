package points

import (
	"context"
	"fmt"
	"math"

	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// MaxCount bounds the "count" parameter.
const MaxCount = 1 << 20

// Cloud is the output of a points node.
type Cloud struct {
	Positions [][3]float64
}

// Point reads an attribute of point index: "P" is the position, "id" the
// index itself.
func (c *Cloud) Point(attrib string, index int) (any, error) {
	if index < 0 || index >= len(c.Positions) {
		return nil, fmt.Errorf("point index %d out of range [0, %d)", index, len(c.Positions))
	}
	switch attrib {
	case "P":
		p := c.Positions[index]
		return []float64{p[0], p[1], p[2]}, nil
	case "id":
		return float64(index), nil
	}
	return nil, fmt.Errorf("unknown point attribute %q", attrib)
}

func (c *Cloud) Centroid() [3]float64 {
	var sum [3]float64
	if len(c.Positions) == 0 {
		return sum
	}
	for _, p := range c.Positions {
		for i := range sum {
			sum[i] += p[i]
		}
	}
	n := float64(len(c.Positions))
	return [3]float64{sum[0] / n, sum[1] / n, sum[2] / n}
}

func (c *Cloud) Bounds() (lo, hi [3]float64) {
	if len(c.Positions) == 0 {
		return lo, hi
	}
	lo, hi = c.Positions[0], c.Positions[0]
	for _, p := range c.Positions[1:] {
		for i := range p {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	return lo, hi
}

// Cook lays "count" points along x, "spacing" apart, starting at the
// centroid of the first input (or the origin).
func Cook(ctx context.Context, in registry.CookInput) (any, error) {
	count := registry.Param(in, "count", 0.0)
	if count < 0 || count > MaxCount || count != math.Trunc(count) {
		return nil, fmt.Errorf("count must be a whole number in [0, %d], got %v", MaxCount, count)
	}
	var start [3]float64
	if len(in.Inputs) > 0 {
		if c, ok := in.Inputs[0].(registry.Centroider); ok {
			start = c.Centroid()
		}
	}
	spacing := registry.Param(in, "spacing", 1.0)
	cloud := &Cloud{Positions: make([][3]float64, int(count))}
	for i := range cloud.Positions {
		cloud.Positions[i] = [3]float64{start[0] + float64(i)*spacing, start[1], start[2]}
	}
	return cloud, nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.NodeType{
		Kind:      "points",
		Doc:       "A line of points, readable with point(path, attrib, index).",
		MaxInputs: 1,
		Params: []registry.ParamSpec{
			{Name: "count", Default: 0.0, Type: cty.Number},
			{Name: "spacing", Default: 1.0, Type: cty.Number},
		},
		New: func() registry.Operator { return registry.OperatorFunc(Cook) },
	})
}
