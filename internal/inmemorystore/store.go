// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Purpose
//
// This package implements the cook result store for a scene living in one
// process. It uses sync.Map for fine-grained concurrent access without global
// lock contention.
//
// # Concurrency Model
//
// sync.Map suits this workload because:
//   - **Write-Heavy:** Every cook writes a status twice and an output or error once
//   - **Independent Keys:** Each node's results are independent of the others
//   - **Concurrent Reads + Writes:** Sibling cooks run on separate goroutines
package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
//
// The store maintains three independent sync.Maps keyed by graph.NodeID:
//   - states: nodestore.Status
//   - outputs: last successful output (any type)
//   - errors: last cook error
type Store struct {
	states  sync.Map
	outputs sync.Map
	errors  sync.Map
}

// New creates a new, empty in-memory store.
func New() nodestore.Store {
	return &Store{}
}

// SetStatus updates the cook status of a specific node.
func (s *Store) SetStatus(ctx context.Context, id graph.NodeID, status nodestore.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus retrieves the cook status of a specific node.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, id graph.NodeID) (nodestore.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return nodestore.StatusPending, nil
	}
	return status.(nodestore.Status), nil
}

// SetOutput records the successful output of a node.
func (s *Store) SetOutput(ctx context.Context, id graph.NodeID, output any) error {
	s.outputs.Store(id, output)
	return nil
}

// GetOutput retrieves the recorded output of a cooked node.
func (s *Store) GetOutput(ctx context.Context, id graph.NodeID) (any, error) {
	output, ok := s.outputs.Load(id)
	if !ok {
		return nil, nil // If not found, the output is nil.
	}
	return output, nil
}

// SetError records the cook error of a node. A nil error clears it.
func (s *Store) SetError(ctx context.Context, id graph.NodeID, nodeErr error) error {
	if nodeErr == nil {
		s.errors.Delete(id)
		return nil
	}
	s.errors.Store(id, nodeErr)
	return nil
}

// GetError retrieves the recorded error of a failed node.
func (s *Store) GetError(ctx context.Context, id graph.NodeID) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}

// Delete forgets everything stored for a node.
func (s *Store) Delete(ctx context.Context, id graph.NodeID) error {
	s.states.Delete(id)
	s.outputs.Delete(id)
	s.errors.Delete(id)
	return nil
}
