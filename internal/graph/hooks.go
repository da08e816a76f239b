package graph

import "sync"

// hookList is an ordered, name-keyed set of callbacks. Adding a name that
// already exists replaces the callback in place and keeps its position.
type hookList[F any] struct {
	mu    sync.Mutex
	names []string
	fns   map[string]F
}

func (h *hookList[F]) add(name string, fn F) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fns == nil {
		h.fns = make(map[string]F)
	}
	if _, ok := h.fns[name]; !ok {
		h.names = append(h.names, name)
	}
	h.fns[name] = fn
}

func (h *hookList[F]) remove(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.fns[name]; !ok {
		return false
	}
	delete(h.fns, name)
	for i, n := range h.names {
		if n == name {
			h.names = append(h.names[:i], h.names[i+1:]...)
			break
		}
	}
	return true
}

func (h *hookList[F]) has(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.fns[name]
	return ok
}

// snapshot returns the callbacks in registration order so they can be run
// without holding the lock.
func (h *hookList[F]) snapshot() []F {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]F, 0, len(h.names))
	for _, n := range h.names {
		out = append(out, h.fns[n])
	}
	return out
}
