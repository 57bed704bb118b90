package strategyrt

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps a strategy family name to its Constructor. Strategy
// modules register themselves against a package-level Registry at init
// time (see fixtures/*.go), and the Runtime consults it during Reconcile.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor under the given family name. Registering the
// same family twice overwrites the previous constructor — used by tests
// that want to stub a family.
func (r *Registry) Register(family string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[family] = ctor
}

// Get returns the constructor registered for family, or an error if none is
// registered.
func (r *Registry) Get(family string) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.constructors[family]
	if !ok {
		return nil, fmt.Errorf("strategy family %q not registered", family)
	}
	return ctor, nil
}

// List returns every registered family name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the package-level registry fixture strategies register
// themselves against via init(). Production wiring may use it directly, or
// construct an isolated Registry for tests.
var Default = NewRegistry()
