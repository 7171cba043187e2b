package gamepad

import (
	"sort"
	"sync"
)

// registry maps device ids to controllers.
type registry struct {
	mu          sync.RWMutex
	controllers map[int]*Controller
}

func newRegistry() *registry {
	return &registry{controllers: make(map[int]*Controller)}
}

func (r *registry) add(c *Controller) {
	r.mu.Lock()
	r.controllers[c.id] = c
	r.mu.Unlock()
}

func (r *registry) remove(id int) {
	r.mu.Lock()
	delete(r.controllers, id)
	r.mu.Unlock()
}

// get returns nil when id is not registered.
func (r *registry) get(id int) *Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.controllers[id]
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.controllers)
}

// all returns the registered controllers ordered by id.
func (r *registry) all() []*Controller {
	r.mu.RLock()
	out := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
