package behavior

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/canonical"
)

// Input is what a projection sees: the entity snapshot and read-only
// access to the capabilities it declared in Requires.
type Input struct {
	Snapshot     homeassistant.Snapshot
	Dependencies map[string]Handle
}

// Dependency returns a required sibling capability. Projections only see
// the capabilities listed in their descriptor's Requires.
func (in Input) Dependency(name string) (Handle, bool) {
	h, ok := in.Dependencies[name]
	return h, ok
}

// Projection maps an Input to the desired attribute values. It must be
// pure: no I/O, no retained state, same input same output. Malformed
// snapshot data is handled with fallbacks, never with an error; the error
// return is reserved for static misconfiguration.
type Projection func(in Input) (attribute.Patch, error)

// Descriptor describes one capability.
type Descriptor struct {
	// Name identifies the capability on an endpoint (e.g. "on_off").
	Name string
	// Cluster is the Matter cluster served, or matter.ClusterNone for
	// internal capabilities.
	Cluster matter.ClusterID
	// Requires lists capabilities that must be active first.
	Requires []string
	// StringLimits records the max length of every string attribute.
	// Each limit is validated at registration.
	StringLimits map[string]int
	// Defaults seed the container before the first projection.
	Defaults attribute.Patch
	// Project computes the desired attributes.
	Project Projection
}

// Registry holds capability descriptors by name.
//
// All public methods are thread-safe.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]Descriptor)}
}

// Register adds a descriptor.
//
// Returns:
//   - error: wraps matter.ErrConfiguration for an empty name, missing
//     projection, duplicate name or invalid string limit
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("%w: descriptor name is required", matter.ErrConfiguration)
	}
	if d.Project == nil {
		return fmt.Errorf("%w: descriptor %q has no projection", matter.ErrConfiguration, d.Name)
	}
	for attr, limit := range d.StringLimits {
		if err := canonical.ValidateLength(limit); err != nil {
			return fmt.Errorf("descriptor %q attribute %q: %w", d.Name, attr, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descriptors[d.Name]; exists {
		return fmt.Errorf("%w: descriptor %q already registered", matter.ErrConfiguration, d.Name)
	}
	d.Requires = append([]string(nil), d.Requires...)
	r.descriptors[d.Name] = d
	return nil
}

// Get returns a descriptor by name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every dependency is registered and that there are
// no dependency cycles. Call it once after all descriptors are registered.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	state := make(map[string]int, len(names)) // 0 unvisited, 1 visiting, 2 done
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case 1:
			return fmt.Errorf("%w: dependency cycle %s", matter.ErrConfiguration,
				strings.Join(append(path, name), " -> "))
		case 2:
			return nil
		}
		d, ok := r.descriptors[name]
		if !ok {
			return fmt.Errorf("%w: %q requires unknown capability %q", matter.ErrConfiguration,
				path[len(path)-1], name)
		}
		state[name] = 1
		for _, dep := range d.Requires {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = 2
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// Resolve expands names with their transitive dependencies and returns
// them in activation order (dependencies first). Unknown names are an
// ErrConfiguration.
func (r *Registry) Resolve(names ...string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var order []string
	seen := make(map[string]bool)
	var add func(name string, depth int) error
	add = func(name string, depth int) error {
		if seen[name] {
			return nil
		}
		if depth > len(r.descriptors) {
			return fmt.Errorf("%w: dependency cycle at %q", matter.ErrConfiguration, name)
		}
		d, ok := r.descriptors[name]
		if !ok {
			return fmt.Errorf("%w: unknown capability %q", matter.ErrConfiguration, name)
		}
		for _, dep := range d.Requires {
			if err := add(dep, depth+1); err != nil {
				return err
			}
		}
		seen[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := add(name, 0); err != nil {
			return nil, err
		}
	}
	return order, nil
}
