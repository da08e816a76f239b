package scene

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/expr"
	"github.com/specialistvlad/cookgraph/internal/exprdeps"
	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/inmemorystore"
	"github.com/specialistvlad/cookgraph/internal/nodestore"
	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/specialistvlad/cookgraph/internal/scheduler"
)

var (
	ErrUnknownKind  = errors.New("unknown node kind")
	ErrInvalidName  = errors.New("invalid node name")
	ErrNodeNotFound = errors.New("node not found in scene")
	ErrInputIndex   = errors.New("input index out of range")
	ErrRootNode     = errors.New("operation not allowed on the root node")
)

// DefaultFPS is the frame rate of a scene created without WithFPS.
const DefaultFPS = 24.0

// Option configures a Scene.
type Option func(*Scene)

// WithStore makes the cooker record results in store.
func WithStore(store nodestore.Store) Option {
	return func(s *Scene) { s.store = store }
}

// WithFPS sets the frame rate used for $T and $FPS. Non-positive rates are
// ignored.
func WithFPS(fps float64) Option {
	return func(s *Scene) {
		if fps > 0 {
			s.fps = fps
		}
	}
}

// WithFunctionGenerator replaces the expression compiler, e.g. to add
// functions.
func WithFunctionGenerator(gen *expr.FunctionGenerator) Option {
	return func(s *Scene) { s.gen = gen }
}

// Scene owns one document's graph, cooker and expression dependencies.
type Scene struct {
	id       uuid.UUID
	graph    *graph.Graph
	store    nodestore.Store
	cooker   *scheduler.Cooker
	registry *registry.Registry
	missing  *exprdeps.MissingReferencesController
	gen      *expr.FunctionGenerator
	tree     *sceneTree

	root     *Node
	timeNode *graph.Node

	mu     sync.RWMutex
	nodes  map[graph.NodeID]*Node
	params map[graph.NodeID]*Param
	frame  int
	fps    float64
}

// New creates an empty scene whose nodes are built from reg.
func New(reg *registry.Registry, opts ...Option) *Scene {
	s := &Scene{
		id:       uuid.New(),
		graph:    graph.New(),
		registry: reg,
		missing:  exprdeps.NewMissingReferencesController(),
		gen:      expr.NewFunctionGenerator(),
		nodes:    make(map[graph.NodeID]*Node),
		params:   make(map[graph.NodeID]*Param),
		fps:      DefaultFPS,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = inmemorystore.New()
	}
	s.cooker = scheduler.New(s.graph, s.store)
	s.tree = &sceneTree{s: s}

	s.root = &Node{scene: s}
	s.root.gnode = s.graph.NewNode("", s.root)
	s.nodes[s.root.ID()] = s.root

	s.timeNode = s.graph.NewNode("time", nil)
	s.cooker.Watch(s.timeNode)
	s.cooker.Enqueue(s.timeNode.ID(), graph.NoTrigger)
	return s
}

// ID identifies the scene, e.g. on live link events.
func (s *Scene) ID() uuid.UUID { return s.id }

// Root is the node absolute paths start from. It has no kind and no output.
func (s *Scene) Root() *Node { return s.root }

func (s *Scene) Graph() *graph.Graph { return s.graph }

func (s *Scene) Cooker() *scheduler.Cooker { return s.cooker }

func (s *Scene) Registry() *registry.Registry { return s.registry }

// TimeNode is the graph node that every time dependent expression depends on.
func (s *Scene) TimeNode() graph.NodeID { return s.timeNode.ID() }

// Frame returns the current frame.
func (s *Scene) Frame() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// FPS returns the scene frame rate.
func (s *Scene) FPS() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fps
}

// SetFrame moves the scene to frame f and dirties everything that reads the
// frame or the time.
func (s *Scene) SetFrame(f int) {
	s.mu.Lock()
	changed := s.frame != f
	s.frame = f
	s.mu.Unlock()
	if changed {
		s.timeNode.SetDirty(graph.NoTrigger)
	}
}

// Cook processes every queued dirty node.
func (s *Scene) Cook(ctx context.Context) error {
	return s.cooker.ProcessQueue(ctx)
}

// Batch runs fn with the cooker blocked, so that all the edits fn makes are
// cooked in a single pass when it returns.
func (s *Scene) Batch(ctx context.Context, fn func() error) (err error) {
	s.cooker.Block()
	defer func() {
		err = errors.Join(err, s.cooker.Unblock(ctx))
	}()
	return fn()
}

// Output returns the node's output, cooking whatever is stale first.
func (s *Scene) Output(ctx context.Context, n *Node) (any, error) {
	return s.cooker.Request(ctx, n.ID())
}

// Stats returns the cooker's statistics.
func (s *Scene) Stats() scheduler.Stats {
	return s.cooker.Stats()
}

// PendingReferences is the number of expression references waiting for their
// target to appear.
func (s *Scene) PendingReferences() int {
	return len(s.missing.Pending())
}

// Nodes returns every node but the root, in creation order.
func (s *Scene) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, 0, len(s.nodes))
	for id, n := range s.nodes {
		if id != s.root.ID() {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b *Node) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}

// NodeByID returns the node registered under id.
func (s *Scene) NodeByID(id graph.NodeID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// ParamByID returns the parameter registered under id.
func (s *Scene) ParamByID(id graph.NodeID) (*Param, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.params[id]
	return p, ok
}

// Describe names a graph node for logs and events: the full path of a node
// or parameter, "time" for the clock.
func (s *Scene) Describe(id graph.NodeID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nodes[id]; ok {
		return s.fullPathLocked(n)
	}
	if p, ok := s.params[id]; ok {
		return s.fullPathLocked(p.node) + "/" + p.Name()
	}
	if id == s.timeNode.ID() {
		return s.timeNode.Name()
	}
	return ""
}

func (s *Scene) logger(ctx context.Context) *slog.Logger {
	return ctxlog.FromContext(ctx).With("scene", s.id.String())
}
