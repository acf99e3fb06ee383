// Package strategies holds the built-in optimization strategies and the
// registry the engine draws its active set from.
package strategies

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// Registry holds the configured set of strategies by name. Names are
// unique: registering a duplicate replaces the prior entry, so a strategy
// can never run twice in one cycle.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]cost.Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]cost.Strategy)}
}

// Register adds or replaces a strategy under the given name.
func (r *Registry) Register(name string, s cost.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[name] = s
}

// Unregister removes a strategy. Removing an unknown name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.strategies, name)
}

// Get returns the strategy registered under name, if any.
func (r *Registry) Get(name string) (cost.Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Active returns the registered strategies sorted by name, so callers see
// a stable order regardless of registration sequence.
func (r *Registry) Active() []cost.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	active := make([]cost.Strategy, 0, len(names))
	for _, name := range names {
		active = append(active, r.strategies[name])
	}
	return active
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates a registry from the enabled-strategy names in
// configuration. An unknown name is a ConfigurationError.
func Build(enabled []string, rightsizing RightsizingConfig, idle IdleConfig, commitment CommitmentConfig) (*Registry, error) {
	reg := NewRegistry()
	for _, name := range enabled {
		switch name {
		case "rightsizing":
			reg.Register(name, NewRightsizing(rightsizing))
		case "idle-resources":
			reg.Register(name, NewIdle(idle))
		case "commitment":
			reg.Register(name, NewCommitment(commitment))
		default:
			return nil, &cost.ConfigurationError{Reason: fmt.Sprintf("unknown strategy %q", name)}
		}
	}
	return reg, nil
}
