package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/nodestore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNodeNotFound is returned by Request for ids the graph does not know.
var ErrNodeNotFound = errors.New("scheduler: node not found")

// enqueueHook is the name of the post-dirty hook installed by Watch.
const enqueueHook = "scheduler.enqueue"

// Cooker drives cooking of dirty nodes.
type Cooker struct {
	graph  *graph.Graph
	store  nodestore.Store
	flight singleflight.Group
	now    func() time.Time

	mu         sync.Mutex
	queue      []Item
	buffer     []Item
	queued     mapset.Set[graph.NodeID]
	blocked    int
	processing bool

	stats *statsTable

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New creates a cooker over g that records results in store.
func New(g *graph.Graph, store nodestore.Store) *Cooker {
	return &Cooker{
		graph:  g,
		store:  store,
		now:    time.Now,
		queued: mapset.NewThreadUnsafeSet[graph.NodeID](),
		stats:  newStatsTable(),
	}
}

// Watch installs the post-dirty hook that enqueues n whenever it becomes dirty.
func (c *Cooker) Watch(n *graph.Node) {
	n.Dirty().AddPostDirtyHook(enqueueHook, func(n *graph.Node, trigger graph.NodeID) {
		c.Enqueue(n.ID(), trigger)
	})
}

// Unwatch removes the hook installed by Watch and forgets the node.
func (c *Cooker) Unwatch(n *graph.Node) {
	n.Dirty().RemovePostDirtyHook(enqueueHook)
	c.Forget(n.ID())
}

// AddListener registers fn for cooker events.
func (c *Cooker) AddListener(fn Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Cooker) emit(ev Event) {
	c.listenersMu.RLock()
	ls := c.listeners
	c.listenersMu.RUnlock()
	for _, l := range ls {
		l(ev)
	}
}

// Enqueue appends (id, trigger) unless id is already waiting. While the
// cooker is blocked the item goes to a side buffer that Unblock flushes.
func (c *Cooker) Enqueue(id, trigger graph.NodeID) {
	c.mu.Lock()
	if !c.queued.Add(id) {
		c.mu.Unlock()
		return
	}
	item := Item{Node: id, Trigger: trigger}
	if c.blocked > 0 {
		c.buffer = append(c.buffer, item)
	} else {
		c.queue = append(c.queue, item)
	}
	c.mu.Unlock()

	c.emit(Event{Kind: EventQueued, Node: id, Trigger: trigger})
}

// Block suppresses processing until the matching Unblock. Blocks nest.
func (c *Cooker) Block() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked++
}

// Unblock ends one Block. When the last block ends the buffered items are
// moved to the queue and the queue is processed.
func (c *Cooker) Unblock(ctx context.Context) error {
	c.mu.Lock()
	if c.blocked > 0 {
		c.blocked--
	}
	if c.blocked > 0 {
		c.mu.Unlock()
		return nil
	}
	c.queue = append(c.queue, c.buffer...)
	c.buffer = nil
	c.mu.Unlock()

	return c.ProcessQueue(ctx)
}

// IsBlocked reports whether at least one Block is active.
func (c *Cooker) IsBlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked > 0
}

// Pending returns a snapshot of the queued and buffered items.
func (c *Cooker) Pending() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, 0, len(c.queue)+len(c.buffer))
	out = append(out, c.queue...)
	return append(out, c.buffer...)
}

// Forget drops every trace of id: queue entries and statistics.
func (c *Cooker) Forget(id graph.NodeID) {
	c.mu.Lock()
	c.queued.Remove(id)
	c.queue = removeItem(c.queue, id)
	c.buffer = removeItem(c.buffer, id)
	c.mu.Unlock()
	c.stats.forget(id)
}

// ProcessQueue drains the queue. It is a no-op while blocked or when a drain
// is already running (items enqueued meanwhile are picked up by that drain).
// Cook failures are recorded, logged and do not stop the drain; only a
// cancelled context does.
func (c *Cooker) ProcessQueue(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	c.mu.Lock()
	if c.blocked > 0 || c.processing {
		c.mu.Unlock()
		return nil
	}
	c.processing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.processing = false
		c.mu.Unlock()
	}()

	c.stats.batch()
	cooked := 0
	for {
		item, ok := c.pop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n, ok := c.graph.Node(item.Node)
		if !ok || !n.IsDirty() {
			c.stats.skip()
			c.emit(Event{Kind: EventSkipped, Node: item.Node, Trigger: item.Trigger})
			continue
		}

		if _, err := c.Request(ctx, item.Node); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Warn("Cook failed.", "node_id", item.Node, "name", n.Name(), "trigger", item.Trigger, "error", err)
		}
		cooked++
	}
	logger.Debug("Cook queue drained.", "cooked", cooked)
	return nil
}

func (c *Cooker) pop() (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return Item{}, false
	}
	item := c.queue[0]
	c.queue = c.queue[1:]
	c.queued.Remove(item.Node)
	return item, true
}

// interruptedError marks a cook stopped by the context it ran with. The
// node stays dirty.
type interruptedError struct {
	err error
}

func (e *interruptedError) Error() string { return e.err.Error() }
func (e *interruptedError) Unwrap() error { return e.err }

// Request returns the node's current output, cooking it and any dirty
// predecessors first. Concurrent requests for the same node share a single
// cook, which runs with the context of the request that started it. If that
// context is cancelled the other requests cook again with their own.
func (c *Cooker) Request(ctx context.Context, id graph.NodeID) (any, error) {
	key := strconv.FormatUint(uint64(id), 10)
	for {
		v, err, _ := c.flight.Do(key, func() (any, error) {
			return c.cook(ctx, id)
		})
		var interrupted *interruptedError
		if !errors.As(err, &interrupted) {
			return v, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		ctxlog.FromContext(ctx).Debug("Shared cook interrupted, cooking again.", "node_id", id)
	}
}

func (c *Cooker) cook(ctx context.Context, id graph.NodeID) (any, error) {
	logger := ctxlog.FromContext(ctx)

	n, ok := c.graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("request %d: %w", id, ErrNodeNotFound)
	}
	if !n.IsDirty() {
		return c.result(ctx, id)
	}

	inputs, err := c.cookInputs(ctx, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &interruptedError{err: ctxErr}
		}
		n.RemoveDirtyState()
		return nil, c.fail(ctx, n, 0, err)
	}

	// Cleared before cooking so that edits made while the cook runs dirty the
	// node again (and enqueue it) instead of being swallowed.
	n.RemoveDirtyState()

	logger.Debug("Cooking node.", "node_id", id, "name", n.Name(), "inputs", len(inputs))
	c.store.SetStatus(ctx, id, nodestore.StatusCooking)

	start := c.now()
	var out any
	if cookable, ok := n.Owner().(Cookable); ok {
		out, err = cookable.Cook(ctx, inputs)
	}
	duration := c.now().Sub(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			n.Dirty().SetDirty(graph.NoTrigger, false)
			return nil, &interruptedError{err: err}
		}
		return nil, c.fail(ctx, n, duration, err)
	}

	c.store.SetOutput(ctx, id, out)
	c.store.SetError(ctx, id, nil)
	c.store.SetStatus(ctx, id, nodestore.StatusCooked)
	c.stats.record(id, start, duration, nil)
	c.emit(Event{Kind: EventCooked, Node: id, Duration: duration})
	logger.Debug("Node cooked.", "node_id", id, "name", n.Name(), "duration", duration)
	return out, nil
}

// cookInputs requests every direct predecessor concurrently.
func (c *Cooker) cookInputs(ctx context.Context, id graph.NodeID) (Inputs, error) {
	preds := c.graph.Predecessors(id)
	inputs := make(Inputs, len(preds))
	if len(preds) == 0 {
		return inputs, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, p := range preds {
		g.Go(func() error {
			out, err := c.Request(ctx, p)
			if err != nil {
				name := strconv.FormatUint(uint64(p), 10)
				if pn, ok := c.graph.Node(p); ok {
					name = pn.Name()
				}
				return fmt.Errorf("input %q: %w", name, err)
			}
			mu.Lock()
			inputs[p] = out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// fail records err as the node's result. The node is left clean so the
// error is served until an upstream change dirties it again.
func (c *Cooker) fail(ctx context.Context, n *graph.Node, duration time.Duration, err error) error {
	c.store.SetError(ctx, n.ID(), err)
	c.store.SetStatus(ctx, n.ID(), nodestore.StatusFailed)
	c.stats.record(n.ID(), c.now().Add(-duration), duration, err)
	c.emit(Event{Kind: EventCookFailed, Node: n.ID(), Duration: duration, Err: err})
	return err
}

// result serves the stored outcome of the last cook.
func (c *Cooker) result(ctx context.Context, id graph.NodeID) (any, error) {
	status, err := c.store.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if status == nodestore.StatusFailed {
		nodeErr, err := c.store.GetError(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, nodeErr
	}
	return c.store.GetOutput(ctx, id)
}

func removeItem(items []Item, id graph.NodeID) []Item {
	out := items[:0]
	for _, it := range items {
		if it.Node != id {
			out = append(out, it)
		}
	}
	return out
}
