package metadata

import "sync"

// Registry holds the validation specs for all entities.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*EntityValidations
}

func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]*EntityValidations),
	}
}

// Get returns the validation spec for the given entity, or nil.
func (r *Registry) Get(entity string) *EntityValidations {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[entity]
}

// All returns all registered validation specs.
func (r *Registry) All() []*EntityValidations {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]*EntityValidations, 0, len(r.specs))
	for _, ev := range r.specs {
		specs = append(specs, ev)
	}
	return specs
}

// Load replaces all validation specs in the registry.
// Called during startup and after admin mutations.
func (r *Registry) Load(specs []*EntityValidations) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs = make(map[string]*EntityValidations, len(specs))
	for _, ev := range specs {
		r.specs[ev.Entity] = ev
	}
}
