package scene

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type box struct{ centre [3]float64 }

func (b box) Centroid() [3]float64 { return b.centre }

func (b box) Bounds() (lo, hi [3]float64) {
	for i, c := range b.centre {
		lo[i], hi[i] = c-0.5, c+0.5
	}
	return lo, hi
}

func testRegistry() *registry.Registry {
	r := registry.New()
	r.Register(&registry.NodeType{
		Kind:   "value",
		Params: []registry.ParamSpec{{Name: "value", Default: 0.0, Type: cty.Number}},
		New: func() registry.Operator {
			return registry.OperatorFunc(func(_ context.Context, in registry.CookInput) (any, error) {
				return in.Params["value"], nil
			})
		},
	})
	r.Register(&registry.NodeType{
		Kind:      "add",
		Params:    []registry.ParamSpec{{Name: "bias", Default: 0.0, Type: cty.Number}},
		MaxInputs: 2,
		New: func() registry.Operator {
			return registry.OperatorFunc(func(_ context.Context, in registry.CookInput) (any, error) {
				sum := registry.Param(in, "bias", 0.0)
				for _, v := range in.Inputs {
					f, _ := v.(float64)
					sum += f
				}
				return sum, nil
			})
		},
	})
	r.Register(&registry.NodeType{
		Kind: "box",
		Params: []registry.ParamSpec{
			{Name: "tx", Default: 0.0, Type: cty.Number},
			{Name: "ty", Default: 0.0, Type: cty.Number},
			{Name: "tz", Default: 0.0, Type: cty.Number},
		},
		MaxInputs: 1,
		New: func() registry.Operator {
			return registry.OperatorFunc(func(_ context.Context, in registry.CookInput) (any, error) {
				return box{centre: [3]float64{
					registry.Param(in, "tx", 0.0),
					registry.Param(in, "ty", 0.0),
					registry.Param(in, "tz", 0.0),
				}}, nil
			})
		},
	})
	r.Register(&registry.NodeType{
		Kind: "fail",
		New: func() registry.Operator {
			return registry.OperatorFunc(func(context.Context, registry.CookInput) (any, error) {
				return nil, errors.New("boom")
			})
		},
	})
	return r
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	scene *Scene
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, ctx: context.Background(), scene: New(testRegistry())}
}

func (f *fixture) node(parent *Node, kind, name string) *Node {
	f.t.Helper()
	n, err := f.scene.CreateNode(f.ctx, parent, kind, name)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) param(n *Node, name string) *Param {
	f.t.Helper()
	p, ok := n.Param(name)
	require.True(f.t, ok, "param %q on %q", name, n.Name())
	return p
}

func (f *fixture) cook() {
	f.t.Helper()
	require.NoError(f.t, f.scene.Cook(f.ctx))
}

func (f *fixture) output(n *Node) any {
	f.t.Helper()
	out, err := f.scene.Output(f.ctx, n)
	require.NoError(f.t, err)
	return out
}

func idString(id graph.NodeID) string {
	return strconv.FormatUint(uint64(id), 10)
}
