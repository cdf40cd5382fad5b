package notify

import (
	"sort"
	"sync"

	"github.com/bytedance/gg/gmap"
)

type Registry struct {
	notifiers map[string]Notifier
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier, 4),
	}
}

func (r *Registry) Register(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifiers[n.ID()] = n
}

func (r *Registry) Get(id string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notifiers[id]
	if !ok {
		return nil, ErrNotifierNotFound
	}
	return n, nil
}

// List returns the notifiers ordered by id.
func (r *Registry) List() []Notifier {
	r.mu.RLock()
	out := gmap.ToSlice(
		r.notifiers,
		func(_ string, v Notifier) Notifier { return v },
	)
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.notifiers, id)
}
