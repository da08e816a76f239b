package scene

import (
	"testing"

	"github.com/specialistvlad/cookgraph/internal/exprdeps"
	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpression_FollowsUpstreamChange(t *testing.T) {
	f := newFixture(t)
	a := f.node(nil, "value", "A")
	b := f.node(nil, "value", "B")
	aValue, bValue := f.param(a, "value"), f.param(b, "value")

	require.NoError(t, aValue.Set(2))
	require.NoError(t, bValue.SetExpression(f.ctx, "$A/value * 3"))
	assert.Equal(t, StateResolved, bValue.ExpressionState())
	f.cook()
	assert.Equal(t, 6.0, f.output(b))
	assert.False(t, b.IsDirty())

	before := b.DirtyCount()
	paramBefore := bValue.DirtyCount()
	require.NoError(t, aValue.Set(5))
	assert.True(t, b.IsDirty())
	assert.True(t, bValue.IsDirty())
	assert.Equal(t, before+1, b.DirtyCount())
	assert.Equal(t, paramBefore+1, bValue.DirtyCount())

	f.cook()
	assert.Equal(t, 15.0, f.output(b))
	assert.Equal(t, 15.0, bValue.Value())

	stats, ok := f.scene.Cooker().NodeStats(b.ID())
	require.True(t, ok)
	assert.Equal(t, uint64(2), stats.CookCount)
}

func TestExpression_PendingUntilTargetIsCreated(t *testing.T) {
	f := newFixture(t)
	b := f.node(nil, "value", "B")
	bValue := f.param(b, "value")

	require.NoError(t, bValue.SetExpression(f.ctx, "$../not_yet_created/value + 1"))
	assert.True(t, bValue.IsPending())
	assert.False(t, bValue.IsErrored())
	assert.Contains(t, bValue.ErrorMessage(), "unresolved")
	assert.Equal(t, 1, f.scene.PendingReferences())

	_, err := bValue.ComputeExpression(f.ctx)
	assert.ErrorIs(t, err, ErrPending)
	assert.ErrorIs(t, err, exprdeps.ErrUnresolved)

	f.cook()
	assert.Equal(t, 0.0, f.output(b), "a pending parameter keeps its default")

	target := f.node(nil, "value", "not_yet_created")
	targetValue := f.param(target, "value")
	require.NoError(t, targetValue.Set(4))

	assert.Equal(t, StateResolved, bValue.ExpressionState())
	assert.Zero(t, f.scene.PendingReferences())
	assert.True(t, f.scene.Graph().HasEdge(targetValue.ID(), bValue.ID()))

	f.cook()
	assert.Equal(t, 5.0, f.output(b))
	v, err := bValue.ComputeExpression(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestExpression_RenameRewritesSource(t *testing.T) {
	f := newFixture(t)
	a := f.node(nil, "value", "A")
	b := f.node(nil, "value", "B")
	aValue, bValue := f.param(a, "value"), f.param(b, "value")
	require.NoError(t, aValue.Set(2))
	require.NoError(t, bValue.SetExpression(f.ctx, "$A/value * 3"))
	f.cook()

	name, err := f.scene.SetName(f.ctx, a, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", name)
	assert.Equal(t, "$Renamed/value * 3", bValue.Expression())
	assert.Equal(t, StateResolved, bValue.ExpressionState())

	require.NoError(t, aValue.Set(1))
	f.cook()
	assert.Equal(t, 3.0, f.output(b))
}

func TestExpression_IDReferenceSurvivesRename(t *testing.T) {
	f := newFixture(t)
	a := f.node(nil, "value", "A")
	b := f.node(nil, "value", "B")
	aValue, bValue := f.param(a, "value"), f.param(b, "value")
	require.NoError(t, aValue.Set(4))
	src := "$#" + idString(a.ID()) + "/value + 1"
	require.NoError(t, bValue.SetExpression(f.ctx, src))

	_, err := f.scene.SetName(f.ctx, a, "Other")
	require.NoError(t, err)
	assert.Equal(t, src, bValue.Expression())
	f.cook()
	assert.Equal(t, 5.0, f.output(b))
}

func TestExpression_CyclicReferenceIsAnError(t *testing.T) {
	f := newFixture(t)
	a := f.node(nil, "value", "A")
	b := f.node(nil, "value", "B")
	aValue, bValue := f.param(a, "value"), f.param(b, "value")

	require.NoError(t, aValue.SetExpression(f.ctx, "$B/value + 1"))
	err := bValue.SetExpression(f.ctx, "$A/value + 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, exprdeps.ErrCyclicGraphDetected)
	assert.True(t, bValue.IsErrored())
	assert.Equal(t, StateErrored, bValue.ExpressionState())
	assert.Contains(t, bValue.ErrorMessage(), "cyclic")
	assert.False(t, f.scene.Graph().HasEdge(aValue.ID(), bValue.ID()))

	// The graph stays evaluable.
	f.cook()
	assert.Equal(t, 1.0, f.output(a))
	assert.Equal(t, 0.0, f.output(b))
	_, err = bValue.ComputeExpression(f.ctx)
	assert.ErrorIs(t, err, exprdeps.ErrCyclicGraphDetected)
}

func TestExpression_ErroredKeepsLastGoodValue(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "parse error", src: "$A/value *"},
		{name: "unknown function", src: "nope($A/value)"},
		{name: "evaluation error", src: `$A/value + "x"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.node(nil, "value", "A")
			b := f.node(nil, "value", "B")
			require.NoError(t, f.param(a, "value").Set(2))
			bValue := f.param(b, "value")
			require.NoError(t, bValue.SetExpression(f.ctx, "$A/value * 3"))
			f.cook()
			require.Equal(t, 6.0, f.output(b))

			bValue.SetExpression(f.ctx, tc.src)
			f.cook()

			assert.True(t, bValue.IsErrored())
			assert.NotEmpty(t, bValue.ErrorMessage())
			assert.Equal(t, 6.0, bValue.Value())
			assert.Equal(t, 6.0, f.output(b))
			_, err := bValue.ComputeExpression(f.ctx)
			assert.Error(t, err)
		})
	}
}

func TestExpression_ClearingKeepsValue(t *testing.T) {
	f := newFixture(t)
	b := f.node(nil, "value", "B")
	bValue := f.param(b, "value")
	require.NoError(t, bValue.SetExpression(f.ctx, "2 + 2"))
	f.cook()

	require.NoError(t, bValue.SetExpression(f.ctx, ""))
	assert.Empty(t, bValue.Expression())
	assert.Equal(t, StateUncompiled, bValue.ExpressionState())
	f.cook()
	assert.Equal(t, 4.0, f.output(b))

	require.NoError(t, bValue.SetExpression(f.ctx, "$F"))
	require.NoError(t, bValue.Set(7))
	assert.Empty(t, bValue.Expression())
	assert.False(t, f.scene.Graph().HasEdge(f.scene.TimeNode(), bValue.ID()))
}

func TestSetFrame_DirtiesTimeDependents(t *testing.T) {
	f := newFixture(t)
	n := f.node(nil, "value", "clock")
	other := f.node(nil, "value", "static")
	p := f.param(n, "value")
	require.NoError(t, p.SetExpression(f.ctx, "$F * 2 + $T"))
	f.cook()
	assert.Equal(t, 0.0, f.output(n))

	staticCount := other.DirtyCount()
	f.scene.SetFrame(24)
	assert.True(t, n.IsDirty())
	assert.False(t, other.IsDirty())
	assert.Equal(t, staticCount, other.DirtyCount())

	f.cook()
	assert.Equal(t, 49.0, f.output(n))
	assert.Equal(t, 24, f.scene.Frame())
}

func TestBatch_CooksOnce(t *testing.T) {
	f := newFixture(t)
	a := f.node(nil, "value", "A")
	b := f.node(nil, "value", "B")
	aValue := f.param(a, "value")
	require.NoError(t, f.param(b, "value").SetExpression(f.ctx, "$A/value * 3"))
	f.cook()

	err := f.scene.Batch(f.ctx, func() error {
		require.NoError(t, aValue.Set(1))
		require.NoError(t, aValue.Set(2))
		assert.True(t, f.scene.Cooker().IsBlocked())
		return nil
	})
	require.NoError(t, err)
	assert.False(t, b.IsDirty(), "unblock processes the queue")
	assert.Equal(t, 6.0, f.output(b))

	stats, ok := f.scene.Cooker().NodeStats(b.ID())
	require.True(t, ok)
	assert.Equal(t, uint64(2), stats.CookCount)
}

func TestBatch_UnblocksWhenFnPanics(t *testing.T) {
	f := newFixture(t)
	a := f.node(nil, "value", "A")
	b := f.node(nil, "value", "B")
	aValue := f.param(a, "value")
	require.NoError(t, f.param(b, "value").SetExpression(f.ctx, "$A/value * 3"))
	f.cook()

	assert.Panics(t, func() {
		_ = f.scene.Batch(f.ctx, func() error {
			require.NoError(t, aValue.Set(4))
			panic("boom")
		})
	})
	assert.False(t, f.scene.Cooker().IsBlocked())
	assert.False(t, b.IsDirty())
	assert.Equal(t, 12.0, f.output(b))

	require.NoError(t, aValue.Set(5))
	f.cook()
	assert.Equal(t, 15.0, f.output(b))
}

func TestCreateNode_Names(t *testing.T) {
	f := newFixture(t)
	first := f.node(nil, "value", "")
	assert.Equal(t, "value1", first.Name())
	second := f.node(nil, "value", "")
	assert.Equal(t, "value2", second.Name())
	geo := f.node(nil, "value", "geo")
	dup := f.node(nil, "value", "geo")
	assert.Equal(t, "geo1", dup.Name())

	child := f.node(geo, "value", "value1")
	assert.Equal(t, "value1", child.Name(), "names are unique among siblings only")
	assert.Equal(t, "/geo/value1", child.Path())

	name, err := f.scene.SetName(f.ctx, second, "value1")
	require.NoError(t, err)
	assert.Equal(t, "value2", name, "a node does not collide with itself")

	name, err = f.scene.SetName(f.ctx, second, "geo")
	require.NoError(t, err)
	assert.Equal(t, "geo2", name)
	assert.Equal(t, "geo2", second.Name())

	_, err = f.scene.CreateNode(f.ctx, nil, "nope", "")
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = f.scene.CreateNode(f.ctx, nil, "value", "bad-name")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = f.scene.SetName(f.ctx, geo, "1x")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	geo := f.node(nil, "value", "geo")
	pts := f.node(geo, "value", "pts")

	testCases := []struct {
		path string
		want *Node
	}{
		{path: "/geo/pts", want: pts},
		{path: "/geo", want: geo},
		{path: "/", want: f.scene.Root()},
		{path: "#" + idString(pts.ID()), want: pts},
		{path: "/geo/pts/..", want: geo},
		{path: "/nope", want: nil},
		{path: "bad path", want: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			got, ok := f.scene.Lookup(tc.path)
			if tc.want == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Same(t, tc.want, got)
		})
	}
}

func TestExpression_ChildAndParamPaths(t *testing.T) {
	f := newFixture(t)
	geo := f.node(nil, "box", "geo")
	pts := f.node(geo, "value", "pts")
	require.NoError(t, f.param(pts, "value").Set(3))
	require.NoError(t, f.param(geo, "tx").Set(1.5))

	require.NoError(t, f.param(geo, "ty").SetExpression(f.ctx, "$pts/value + $tx"))
	require.NoError(t, f.param(pts, "value").SetExpression(f.ctx, "ch(\"../tx\") * 2"))
	f.cook()

	out, ok := f.output(geo).(box)
	require.True(t, ok)
	assert.Equal(t, [3]float64{1.5, 4.5, 0}, out.Centroid())
}

func TestRemoveNode_TurnsReferencesPending(t *testing.T) {
	f := newFixture(t)
	a := f.node(nil, "value", "A")
	child := f.node(a, "value", "inner")
	b := f.node(nil, "value", "B")
	bValue := f.param(b, "value")
	require.NoError(t, f.param(a, "value").Set(2))
	require.NoError(t, bValue.SetExpression(f.ctx, "$A/value * 3"))
	f.cook()
	graphSize := f.scene.Graph().Len()

	require.NoError(t, f.scene.RemoveNode(f.ctx, a))
	assert.True(t, bValue.IsPending())
	assert.Equal(t, 1, f.scene.PendingReferences())
	assert.Equal(t, graphSize-4, f.scene.Graph().Len(), "node, child and both parameters are gone")
	_, ok := f.scene.NodeByID(child.ID())
	assert.False(t, ok)
	assert.Equal(t, []*Node{b}, f.scene.Root().Children())
	assert.ErrorIs(t, f.scene.RemoveNode(f.ctx, a), ErrNodeNotFound)

	again := f.node(nil, "value", "A")
	require.NoError(t, f.param(again, "value").Set(7))
	assert.Equal(t, StateResolved, bValue.ExpressionState())
	f.cook()
	assert.Equal(t, 21.0, f.output(b))

	assert.ErrorIs(t, f.scene.RemoveNode(f.ctx, f.scene.Root()), ErrRootNode)
}

func TestSetInput(t *testing.T) {
	f := newFixture(t)
	c := f.node(nil, "box", "C")
	e := f.node(nil, "box", "E")
	d := f.node(nil, "value", "D")
	require.NoError(t, f.param(c, "tx").Set(1))
	require.NoError(t, f.param(c, "ty").Set(2))

	// Reads the first input, which is not connected yet.
	etx := f.param(e, "tx")
	require.NoError(t, etx.SetExpression(f.ctx, "$CEX + 1"))
	f.cook()
	assert.True(t, etx.IsErrored())

	require.NoError(t, f.scene.SetInput(f.ctx, e, 0, c))
	assert.True(t, f.scene.Graph().HasEdge(c.ID(), e.ID()))
	assert.True(t, f.scene.Graph().HasEdge(c.ID(), etx.ID()))
	f.cook()
	assert.False(t, etx.IsErrored())
	out := f.output(e).(registry.Centroider)
	assert.Equal(t, 2.0, out.Centroid()[0])
	assert.Equal(t, []*Node{c}, e.Inputs())

	require.NoError(t, f.param(d, "value").SetExpression(f.ctx, `centroid($C, 1) + bbox($C, "x") + bbox($E, 0, "max")`))
	f.cook()
	assert.Equal(t, 2.0+1.0+2.5, f.output(d))

	err := f.scene.SetInput(f.ctx, c, 0, e)
	assert.ErrorIs(t, err, graph.ErrCycle)
	assert.ErrorIs(t, f.scene.SetInput(f.ctx, e, 1, c), ErrInputIndex)

	require.NoError(t, f.scene.SetInput(f.ctx, e, 0, nil))
	assert.False(t, f.scene.Graph().HasEdge(c.ID(), e.ID()))
	assert.Equal(t, []*Node{nil}, e.Inputs())
}

func TestCookFailure_ReachesDependents(t *testing.T) {
	f := newFixture(t)
	bad := f.node(nil, "fail", "")
	sum := f.node(nil, "add", "")
	require.NoError(t, f.scene.SetInput(f.ctx, sum, 0, bad))

	require.NoError(t, f.scene.Cook(f.ctx), "cook failures do not stop the queue")

	_, err := f.scene.Output(f.ctx, bad)
	assert.EqualError(t, err, "boom")
	_, err = f.scene.Output(f.ctx, sum)
	assert.EqualError(t, err, `input "fail1": boom`)

	require.NoError(t, f.scene.SetInput(f.ctx, sum, 0, nil))
	require.NoError(t, f.param(sum, "bias").Set(1))
	assert.Equal(t, 1.0, f.output(sum))
}

func TestParam_SetConvertsToDeclaredType(t *testing.T) {
	f := newFixture(t)
	n := f.node(nil, "value", "")
	p := f.param(n, "value")

	require.NoError(t, p.Set(3))
	assert.Equal(t, 3.0, p.Value())
	require.NoError(t, p.Set("4.5"))
	assert.Equal(t, 4.5, p.Value())
	assert.Error(t, p.Set("abc"))
	assert.Equal(t, 4.5, p.Value())
}

func TestDescribe(t *testing.T) {
	f := newFixture(t)
	geo := f.node(nil, "box", "geo")
	assert.Equal(t, "/geo", f.scene.Describe(geo.ID()))
	assert.Equal(t, "/geo/tx", f.scene.Describe(f.param(geo, "tx").ID()))
	assert.Equal(t, "time", f.scene.Describe(f.scene.TimeNode()))
	assert.Equal(t, []*Node{geo}, f.scene.Nodes())
}
