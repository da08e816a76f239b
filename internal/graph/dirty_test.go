package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanAll marks every node clean, as a finished cook would.
func cleanAll(nodes ...*Node) {
	for _, n := range nodes {
		n.RemoveDirtyState()
	}
}

func TestDirtyState_NewNodeStartsDirty(t *testing.T) {
	g := New()
	n := g.NewNode("a", nil)
	assert.True(t, n.IsDirty())
	assert.Equal(t, uint64(0), n.DirtyCount())
	assert.False(t, n.Dirty().DirtyTimestamp().Ok())
}

func TestDirtyState_Idempotent(t *testing.T) {
	g := New()
	n := g.NewNode("a", nil)
	n.RemoveDirtyState()

	n.Dirty().SetDirty(NoTrigger, false)
	n.Dirty().SetDirty(NoTrigger, false)

	assert.True(t, n.IsDirty())
	assert.Equal(t, uint64(1), n.DirtyCount())
}

func TestDirtyState_CountNeverRewinds(t *testing.T) {
	g := New()
	n := g.NewNode("a", nil)

	var last uint64
	for i := 0; i < 3; i++ {
		n.RemoveDirtyState()
		assert.Equal(t, last, n.DirtyCount(), "clearing must not reset the counter")
		n.SetDirty(NoTrigger)
		assert.Greater(t, n.DirtyCount(), last)
		last = n.DirtyCount()
	}
	assert.Equal(t, uint64(3), last)
}

func TestDirtyState_Timestamp(t *testing.T) {
	g := New()
	n := g.NewNode("a", nil)
	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n.Dirty().now = func() time.Time { return stamp }

	n.RemoveDirtyState()
	n.SetDirty(NoTrigger)

	got, ok := n.Dirty().DirtyTimestamp().Get()
	require.True(t, ok)
	assert.Equal(t, stamp, got)
}

func TestDirtyState_PropagatesThroughChain(t *testing.T) {
	g, n := newTestNodes(t, 3)
	a, b, c := n[0], n[1], n[2]
	require.True(t, g.Connect(a.ID(), b.ID()))
	require.True(t, g.Connect(b.ID(), c.ID()))
	cleanAll(a, b, c)

	a.SetDirty(NoTrigger)

	assert.True(t, a.IsDirty())
	assert.True(t, b.IsDirty())
	assert.True(t, c.IsDirty())
	assert.Equal(t, uint64(1), b.DirtyCount())
	assert.Equal(t, uint64(1), c.DirtyCount())
}

func TestDirtyState_AlreadyDirtyStillPropagates(t *testing.T) {
	g, n := newTestNodes(t, 2)
	a, b := n[0], n[1]
	require.True(t, g.Connect(a.ID(), b.ID()))
	b.RemoveDirtyState()

	// a is still dirty from creation.
	a.SetDirty(NoTrigger)

	assert.Equal(t, uint64(0), a.DirtyCount())
	assert.True(t, b.IsDirty())
}

func TestDirtyState_ForbiddenTriggerNodes(t *testing.T) {
	g, n := newTestNodes(t, 3)
	a, b, c := n[0], n[1], n[2]
	require.True(t, g.Connect(a.ID(), b.ID()))
	require.True(t, g.Connect(a.ID(), c.ID()))
	cleanAll(a, b, c)

	a.Dirty().SetForbiddenTriggerNodes(c.ID())
	a.SetDirty(NoTrigger)
	assert.True(t, b.IsDirty())
	assert.False(t, c.IsDirty())

	cleanAll(a, b, c)
	a.Dirty().ClearForbiddenTriggerNodes()
	a.SetDirty(NoTrigger)
	assert.True(t, c.IsDirty())
}

func TestDirtyState_TriggerIsNotRedirtied(t *testing.T) {
	g, n := newTestNodes(t, 2)
	a, b := n[0], n[1]
	require.True(t, g.Connect(a.ID(), b.ID()))
	cleanAll(a, b)

	a.Dirty().SetSuccessorsDirty(b.ID())
	assert.False(t, b.IsDirty())
}

func TestDirtyState_PostDirtyHooks(t *testing.T) {
	g, n := newTestNodes(t, 2)
	a, b := n[0], n[1]
	require.True(t, g.Connect(a.ID(), b.ID()))
	cleanAll(a, b)

	var calls []string
	b.Dirty().AddPostDirtyHook("first", func(*Node, NodeID) { calls = append(calls, "first") })
	b.Dirty().AddPostDirtyHook("second", func(*Node, NodeID) { calls = append(calls, "second") })
	// Re-adding keeps the original slot.
	b.Dirty().AddPostDirtyHook("first", func(_ *Node, trigger NodeID) {
		assert.Equal(t, a.ID(), trigger)
		calls = append(calls, "first'")
	})

	a.SetDirty(NoTrigger)
	assert.Equal(t, []string{"first'", "second"}, calls)

	// Already dirty: hooks do not rerun.
	a.SetDirty(NoTrigger)
	assert.Len(t, calls, 2)

	assert.True(t, b.Dirty().RemovePostDirtyHook("second"))
	assert.False(t, b.Dirty().RemovePostDirtyHook("second"))
	assert.False(t, b.Dirty().HasPostDirtyHook("second"))
	cleanAll(a, b)
	a.SetDirty(NoTrigger)
	assert.Equal(t, []string{"first'", "second", "first'"}, calls)
}

func TestDirtyState_HookMayTouchGraph(t *testing.T) {
	g, n := newTestNodes(t, 2)
	a, b := n[0], n[1]
	a.RemoveDirtyState()

	// Hooks run without locks held, so editing the graph from one is safe.
	a.Dirty().AddPostDirtyHook("wire", func(n *Node, _ NodeID) {
		g.Connect(n.ID(), b.ID())
	})
	a.SetDirty(NoTrigger)
	assert.True(t, g.HasEdge(a.ID(), b.ID()))
}

func TestSuccessorsCache_InvalidatedByConnect(t *testing.T) {
	g, n := newTestNodes(t, 4)
	a, b, c, d := n[0], n[1], n[2], n[3]
	require.True(t, g.Connect(a.ID(), b.ID()))
	cleanAll(a, b, c, d)

	a.SetDirty(NoTrigger)
	assert.True(t, a.Dirty().HasCachedSuccessors())

	// Extending the chain downstream of b must drop a's memo too.
	require.True(t, g.Connect(b.ID(), c.ID()))
	assert.False(t, a.Dirty().HasCachedSuccessors())

	cleanAll(a, b, c)
	a.SetDirty(NoTrigger)
	assert.True(t, c.IsDirty())
	assert.False(t, d.IsDirty())

	require.True(t, g.Disconnect(b.ID(), c.ID()))
	assert.False(t, a.Dirty().HasCachedSuccessors())
	cleanAll(a, b, c)
	a.SetDirty(NoTrigger)
	assert.False(t, c.IsDirty())
}

func TestNode_RenameHooks(t *testing.T) {
	g := New()
	n := g.NewNode("old", nil)

	var seen []string
	n.AddRenameHook("dep", func(n *Node, oldName string) {
		seen = append(seen, oldName+"->"+n.Name())
	})

	n.SetName("new")
	n.SetName("new")
	assert.Equal(t, []string{"old->new"}, seen)

	assert.True(t, n.RemoveRenameHook("dep"))
	n.SetName("other")
	assert.Len(t, seen, 1)
}
