package scheduler

import (
	"context"
	"time"

	"github.com/specialistvlad/cookgraph/internal/graph"
)

// Inputs maps each direct predecessor of a node to its freshly cooked output.
type Inputs map[graph.NodeID]any

// Cookable is the capability a node owner implements to take part in
// evaluation. Owners that do not implement it are passive: cooking them only
// clears their dirty state and yields a nil output.
type Cookable interface {
	// Cook computes the node's output from its predecessors' outputs. It is
	// never called concurrently for the same node.
	Cook(ctx context.Context, in Inputs) (any, error)
}

// CookFunc adapts a plain function to Cookable.
type CookFunc func(ctx context.Context, in Inputs) (any, error)

// Cook calls f.
func (f CookFunc) Cook(ctx context.Context, in Inputs) (any, error) {
	return f(ctx, in)
}

// Item is one queue entry. Trigger is informational and only used to break
// propagation loops, never for ordering.
type Item struct {
	Node    graph.NodeID
	Trigger graph.NodeID
}

// EventKind enumerates cooker notifications.
type EventKind int

const (
	EventQueued EventKind = iota
	EventSkipped
	EventCooked
	EventCookFailed
)

func (k EventKind) String() string {
	switch k {
	case EventQueued:
		return "queued"
	case EventSkipped:
		return "skipped"
	case EventCooked:
		return "cooked"
	case EventCookFailed:
		return "cook_failed"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners registered with AddListener.
type Event struct {
	Kind     EventKind
	Node     graph.NodeID
	Trigger  graph.NodeID
	Duration time.Duration
	Err      error
}

// Listener receives cooker events. It is called synchronously, with no lock
// held, on the goroutine that produced the event.
type Listener func(Event)
