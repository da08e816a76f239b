package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/inmemorystore"
	"github.com/specialistvlad/cookgraph/internal/nodestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter is a Cookable that counts its cooks and sums its numeric inputs
// plus a constant.
type counter struct {
	calls atomic.Int32
	base  float64
	err   error
	hook  func()
}

func (c *counter) Cook(_ context.Context, in Inputs) (any, error) {
	c.calls.Add(1)
	if c.hook != nil {
		c.hook()
	}
	if c.err != nil {
		return nil, c.err
	}
	sum := c.base
	for _, v := range in {
		if f, ok := v.(float64); ok {
			sum += f
		}
	}
	return sum, nil
}

// stalling is a Cookable whose first cook waits for its context to end.
type stalling struct {
	calls   atomic.Int32
	started chan struct{}
}

func (s *stalling) Cook(ctx context.Context, _ Inputs) (any, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return 42.0, nil
}

type fixture struct {
	g     *graph.Graph
	c     *Cooker
	store nodestore.Store
}

func newFixture() *fixture {
	g := graph.New()
	store := inmemorystore.New()
	return &fixture{g: g, c: New(g, store), store: store}
}

// add creates a watched node owned by a counter.
func (f *fixture) add(name string, base float64) (*graph.Node, *counter) {
	cnt := &counter{base: base}
	n := f.g.NewNode(name, cnt)
	f.c.Watch(n)
	return n, cnt
}

func (f *fixture) connect(t *testing.T, src, dest *graph.Node) {
	t.Helper()
	require.True(t, f.g.Connect(src.ID(), dest.ID()))
}

// settle cooks everything once and resets the counters.
func (f *fixture) settle(t *testing.T, nodes ...*graph.Node) {
	t.Helper()
	for _, n := range nodes {
		_, err := f.c.Request(context.Background(), n.ID())
		require.NoError(t, err)
	}
	for _, n := range nodes {
		n.Owner().(*counter).calls.Store(0)
	}
	f.c.ResetStats()
}

func TestRequest_CooksPredecessorsFirst(t *testing.T) {
	f := newFixture()
	a, _ := f.add("a", 1)
	b, _ := f.add("b", 10)
	c, _ := f.add("c", 100)
	f.connect(t, a, b)
	f.connect(t, b, c)

	out, err := f.c.Request(context.Background(), c.ID())
	require.NoError(t, err)
	assert.Equal(t, 111.0, out)
	assert.False(t, a.IsDirty())
	assert.False(t, b.IsDirty())
	assert.False(t, c.IsDirty())

	status, _ := f.store.GetStatus(context.Background(), b.ID())
	assert.Equal(t, nodestore.StatusCooked, status)
}

func TestProcessQueue_ChainCookedOnce(t *testing.T) {
	f := newFixture()
	a, ca := f.add("a", 1)
	b, cb := f.add("b", 0)
	c, cc := f.add("c", 0)
	f.connect(t, a, b)
	f.connect(t, b, c)
	f.settle(t, a, b, c)

	a.SetDirty(graph.NoTrigger)
	assert.True(t, b.IsDirty())
	assert.True(t, c.IsDirty())

	require.NoError(t, f.c.ProcessQueue(context.Background()))

	assert.EqualValues(t, 1, ca.calls.Load())
	assert.EqualValues(t, 1, cb.calls.Load())
	assert.EqualValues(t, 1, cc.calls.Load())
	assert.Empty(t, f.c.Pending())
}

func TestProcessQueue_FanOutAtMostOnce(t *testing.T) {
	for _, order := range []string{"bc", "cb"} {
		t.Run(order, func(t *testing.T) {
			f := newFixture()
			a, ca := f.add("a", 1)
			b, cb := f.add("b", 0)
			c, cc := f.add("c", 0)
			f.connect(t, a, b)
			f.connect(t, a, c)
			f.settle(t, a, b, c)

			// Pre-enqueue the dependents in the requested order.
			first, second := b, c
			if order == "cb" {
				first, second = c, b
			}
			f.c.Enqueue(first.ID(), graph.NoTrigger)
			f.c.Enqueue(second.ID(), graph.NoTrigger)
			a.SetDirty(graph.NoTrigger)

			require.NoError(t, f.c.ProcessQueue(context.Background()))

			assert.EqualValues(t, 1, ca.calls.Load())
			assert.EqualValues(t, 1, cb.calls.Load())
			assert.EqualValues(t, 1, cc.calls.Load())
		})
	}
}

func TestProcessQueue_SkipsCleanItems(t *testing.T) {
	f := newFixture()
	a, ca := f.add("a", 1)
	f.settle(t, a)

	f.c.Enqueue(a.ID(), graph.NoTrigger)
	f.c.Enqueue(a.ID(), graph.NoTrigger) // deduplicated
	assert.Len(t, f.c.Pending(), 1)

	require.NoError(t, f.c.ProcessQueue(context.Background()))
	assert.EqualValues(t, 0, ca.calls.Load())
	assert.EqualValues(t, 1, f.c.Stats().Skipped)
}

func TestBlockUnblock_CoalescesEdits(t *testing.T) {
	f := newFixture()
	a, ca := f.add("a", 1)
	b, cb := f.add("b", 0)
	f.connect(t, a, b)
	f.settle(t, a, b)
	ctx := context.Background()

	f.c.Block()
	f.c.Block()
	for i := 0; i < 5; i++ {
		a.SetDirty(graph.NoTrigger)
	}
	assert.True(t, f.c.IsBlocked())
	assert.Len(t, f.c.Pending(), 2)

	require.NoError(t, f.c.ProcessQueue(ctx), "no-op while blocked")
	assert.EqualValues(t, 0, ca.calls.Load())

	require.NoError(t, f.c.Unblock(ctx))
	assert.EqualValues(t, 0, ca.calls.Load(), "still inside the outer block")

	require.NoError(t, f.c.Unblock(ctx))
	assert.False(t, f.c.IsBlocked())
	assert.EqualValues(t, 1, ca.calls.Load())
	assert.EqualValues(t, 1, cb.calls.Load())
	assert.EqualValues(t, 1, f.c.Stats().Batches)
}

func TestRequest_ConcurrentRequestersShareOneCook(t *testing.T) {
	f := newFixture()
	release := make(chan struct{})
	a, ca := f.add("a", 1)
	ca.hook = func() { <-release }

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := f.c.Request(context.Background(), a.ID())
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, ca.calls.Load())
	for _, r := range results {
		assert.Equal(t, 1.0, r)
	}
}

func TestRequest_CancelledRequesterDoesNotFailOthers(t *testing.T) {
	f := newFixture()
	owner := &stalling{started: make(chan struct{})}
	n := f.g.NewNode("slow", owner)
	f.c.Watch(n)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.c.Request(firstCtx, n.ID())
		firstErr <- err
	}()
	<-owner.started

	type result struct {
		out any
		err error
	}
	second := make(chan result, 1)
	go func() {
		out, err := f.c.Request(context.Background(), n.ID())
		second <- result{out: out, err: err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 42.0, got.out)
	assert.EqualValues(t, 2, owner.calls.Load())
	assert.False(t, n.IsDirty())
}

func TestRequest_FailureIsCachedUntilRedirtied(t *testing.T) {
	f := newFixture()
	boom := errors.New("boom")
	a, ca := f.add("a", 1)
	b, cb := f.add("b", 0)
	f.connect(t, a, b)
	ca.err = boom
	ctx := context.Background()

	_, err := f.c.Request(ctx, b.ID())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `input "a"`)
	assert.EqualValues(t, 0, cb.calls.Load(), "dependent is not cooked against a failed input")
	assert.False(t, a.IsDirty())

	// Served from the store, no second cook.
	_, err = f.c.Request(ctx, a.ID())
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, ca.calls.Load())

	st, ok := f.c.NodeStats(a.ID())
	require.True(t, ok)
	assert.EqualValues(t, 1, st.ErrorCount)
	assert.Equal(t, "boom", st.LastError)

	ca.err = nil
	a.SetDirty(graph.NoTrigger)
	out, err := f.c.Request(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, 1.0, out)
}

func TestRequest_RedirtiedDuringCookStaysDirty(t *testing.T) {
	f := newFixture()
	a, ca := f.add("a", 1)
	f.settle(t, a)
	once := sync.Once{}
	ca.hook = func() {
		once.Do(func() { a.SetDirty(graph.NoTrigger) })
	}

	a.SetDirty(graph.NoTrigger)
	require.NoError(t, f.c.ProcessQueue(context.Background()))

	// The edit made mid-cook was queued and picked up by the same drain.
	assert.EqualValues(t, 2, ca.calls.Load())
	assert.False(t, a.IsDirty())
}

func TestRequest_UnknownNode(t *testing.T) {
	f := newFixture()
	_, err := f.c.Request(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestRequest_PassiveOwner(t *testing.T) {
	f := newFixture()
	n := f.g.NewNode("clock", "not cookable")
	out, err := f.c.Request(context.Background(), n.ID())
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.False(t, n.IsDirty())
}

func TestProcessQueue_CancelledContext(t *testing.T) {
	f := newFixture()
	a, ca := f.add("a", 1)
	f.c.Enqueue(a.ID(), graph.NoTrigger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.c.ProcessQueue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, ca.calls.Load())
}

func TestListenersAndStats(t *testing.T) {
	f := newFixture()
	a, _ := f.add("a", 1)
	var kinds []EventKind
	f.c.AddListener(func(ev Event) { kinds = append(kinds, ev.Kind) })

	f.c.Enqueue(a.ID(), graph.NoTrigger)
	require.NoError(t, f.c.ProcessQueue(context.Background()))

	assert.Equal(t, []EventKind{EventQueued, EventCooked}, kinds)
	st, ok := f.c.NodeStats(a.ID())
	require.True(t, ok)
	assert.EqualValues(t, 1, st.CookCount)
	assert.Zero(t, st.ErrorCount)
	assert.GreaterOrEqual(t, st.MaxDuration, st.LastDuration)

	f.c.Forget(a.ID())
	_, ok = f.c.NodeStats(a.ID())
	assert.False(t, ok)
}

func TestUnwatch(t *testing.T) {
	f := newFixture()
	a, _ := f.add("a", 1)
	f.settle(t, a)

	f.c.Unwatch(a)
	a.SetDirty(graph.NoTrigger)
	assert.Empty(t, f.c.Pending())
}
