package scheduler

import (
	"sync"
	"time"

	"github.com/specialistvlad/cookgraph/internal/graph"
)

// NodeStats are the cook statistics of one node.
type NodeStats struct {
	CookCount     uint64        `json:"cook_count"`
	ErrorCount    uint64        `json:"error_count"`
	TotalDuration time.Duration `json:"total_duration_ns"`
	LastDuration  time.Duration `json:"last_duration_ns"`
	MaxDuration   time.Duration `json:"max_duration_ns"`
	LastCookStart time.Time     `json:"last_cook_start"`
	LastError     string        `json:"last_error,omitempty"`
}

// MeanDuration is TotalDuration spread over all cooks.
func (s NodeStats) MeanDuration() time.Duration {
	if s.CookCount == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.CookCount)
}

// Stats is a snapshot of the cooker's counters.
type Stats struct {
	Batches uint64                     `json:"batches"`
	Skipped uint64                     `json:"skipped"`
	Nodes   map[graph.NodeID]NodeStats `json:"nodes"`
}

type statsTable struct {
	mu      sync.Mutex
	batches uint64
	skipped uint64
	nodes   map[graph.NodeID]*NodeStats
}

func newStatsTable() *statsTable {
	return &statsTable{nodes: make(map[graph.NodeID]*NodeStats)}
}

func (t *statsTable) batch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batches++
}

func (t *statsTable) skip() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.skipped++
}

func (t *statsTable) record(id graph.NodeID, start time.Time, d time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.nodes[id]
	if !ok {
		s = &NodeStats{}
		t.nodes[id] = s
	}
	s.CookCount++
	s.TotalDuration += d
	s.LastDuration = d
	s.LastCookStart = start
	if d > s.MaxDuration {
		s.MaxDuration = d
	}
	if err != nil {
		s.ErrorCount++
		s.LastError = err.Error()
	} else {
		s.LastError = ""
	}
}

func (t *statsTable) forget(id graph.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.nodes, id)
}

func (t *statsTable) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := Stats{
		Batches: t.batches,
		Skipped: t.skipped,
		Nodes:   make(map[graph.NodeID]NodeStats, len(t.nodes)),
	}
	for id, s := range t.nodes {
		out.Nodes[id] = *s
	}
	return out
}

// Stats returns a snapshot of all counters.
func (c *Cooker) Stats() Stats {
	return c.stats.snapshot()
}

// NodeStats returns the counters of one node.
func (c *Cooker) NodeStats(id graph.NodeID) (NodeStats, bool) {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()
	s, ok := c.stats.nodes[id]
	if !ok {
		return NodeStats{}, false
	}
	return *s, true
}

// ResetStats zeroes every counter.
func (c *Cooker) ResetStats() {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()
	c.stats.batches = 0
	c.stats.skipped = 0
	c.stats.nodes = make(map[graph.NodeID]*NodeStats)
}
