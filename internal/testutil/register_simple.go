package testutil

import (
	"context"
	"sync"

	"github.com/specialistvlad/cookgraph/internal/registry"
)

// SimpleModule is a test helper for easily creating a mock module that
// registers a set of node kinds.
type SimpleModule struct {
	Types []*registry.NodeType
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	for _, t := range m.Types {
		r.Register(t)
	}
}

// Cook is one cook observed by a RecorderModule.
type Cook struct {
	Path  string
	Frame int
	Input any
}

// RecorderModule registers the "recorder" kind, which passes its first input
// through and remembers every cook.
type RecorderModule struct {
	mu    sync.Mutex
	cooks []Cook
}

// Register implements the registry.Module interface.
func (m *RecorderModule) Register(r *registry.Registry) {
	r.Register(&registry.NodeType{
		Kind:      "recorder",
		MaxInputs: 1,
		New: func() registry.Operator {
			return registry.OperatorFunc(func(_ context.Context, in registry.CookInput) (any, error) {
				var v any
				if len(in.Inputs) > 0 {
					v = in.Inputs[0]
				}
				m.mu.Lock()
				m.cooks = append(m.cooks, Cook{Path: in.Path, Frame: in.Frame, Input: v})
				m.mu.Unlock()
				return v, nil
			})
		},
	})
}

// Cooks returns the recorded cooks in order.
func (m *RecorderModule) Cooks() []Cook {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Cook(nil), m.cooks...)
}
