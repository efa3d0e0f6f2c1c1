package behavior

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
)

// ChangeFunc is notified of every attribute write on an endpoint.
type ChangeFunc func(ep *Endpoint, capability string, cluster matter.ClusterID, changes []attribute.Change)

// EndpointConfig configures an Endpoint.
type EndpointConfig struct {
	Number       uint16
	EntityID     string
	Capabilities []string
	Registry     *Registry
	Source       Source
	Logger       Logger
	// OnChange is optional. It runs on the reacting goroutine, possibly
	// while the endpoint is locked: it must not block and may only call
	// Number and EntityID on the endpoint.
	OnChange ChangeFunc
}

// Endpoint hosts the behaviors of one bridged device.
//
// Thread Safety:
//   - All public methods are safe for concurrent use.
type Endpoint struct {
	number   uint16
	entityID string
	registry *Registry
	source   Source
	logger   Logger
	onChange ChangeFunc

	mu         sync.Mutex
	declared   []string
	present    map[string]bool
	behaviors  map[string]*Behavior
	order      []string // activation order
	activating map[string]bool
	closed     bool
}

// NewEndpoint creates an endpoint carrying the given capabilities.
// Dependencies are not added automatically: a capability whose
// requirement is not carried fails activation with ErrDependencyMissing.
//
// Returns:
//   - error: wraps matter.ErrConfiguration for unknown capabilities or a
//     missing registry/source
func NewEndpoint(cfg EndpointConfig) (*Endpoint, error) {
	if cfg.Registry == nil || cfg.Source == nil {
		return nil, fmt.Errorf("%w: endpoint needs a registry and a source", matter.ErrConfiguration)
	}
	if cfg.EntityID == "" {
		return nil, fmt.Errorf("%w: endpoint needs an entity id", matter.ErrConfiguration)
	}
	present := make(map[string]bool, len(cfg.Capabilities))
	declared := make([]string, 0, len(cfg.Capabilities))
	for _, name := range cfg.Capabilities {
		if _, ok := cfg.Registry.Get(name); !ok {
			return nil, fmt.Errorf("%w: unknown capability %q", matter.ErrConfiguration, name)
		}
		if !present[name] {
			present[name] = true
			declared = append(declared, name)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Endpoint{
		number:     cfg.Number,
		entityID:   cfg.EntityID,
		registry:   cfg.Registry,
		source:     cfg.Source,
		logger:     logger,
		onChange:   cfg.OnChange,
		declared:   declared,
		present:    present,
		behaviors:  make(map[string]*Behavior),
		activating: make(map[string]bool),
	}, nil
}

// Number returns the Matter endpoint number.
func (e *Endpoint) Number() uint16 { return e.number }

// EntityID returns the bridged entity.
func (e *Endpoint) EntityID() string { return e.entityID }

// Capabilities returns the carried capability names in declaration order.
func (e *Endpoint) Capabilities() []string {
	return append([]string(nil), e.declared...)
}

// Activate activates every carried capability. On failure all behaviors
// activated so far are closed and the endpoint is unusable.
func (e *Endpoint) Activate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return matter.ErrTerminated
	}
	for _, name := range e.declared {
		if _, err := e.loadLocked(name); err != nil {
			e.closeLocked()
			return fmt.Errorf("endpoint %d (%s): %w", e.number, e.entityID, err)
		}
	}
	e.logger.Debug("endpoint active",
		"endpoint", e.number,
		"entity_id", e.entityID,
		"capabilities", e.order,
	)
	return nil
}

// Load returns the named capability, activating it first if needed.
//
// Returns:
//   - error: matter.ErrDependencyMissing if the endpoint does not carry
//     the capability, matter.ErrTerminated after Close
func (e *Endpoint) Load(name string) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, matter.ErrTerminated
	}
	return e.loadLocked(name)
}

func (e *Endpoint) loadLocked(name string) (Handle, error) {
	if b, ok := e.behaviors[name]; ok {
		return b, nil
	}
	if !e.present[name] {
		return nil, fmt.Errorf("%w: %q on endpoint %d", matter.ErrDependencyMissing, name, e.number)
	}
	if e.activating[name] {
		return nil, fmt.Errorf("%w: dependency cycle at %q", matter.ErrConfiguration, name)
	}
	desc, _ := e.registry.Get(name)

	e.activating[name] = true
	defer delete(e.activating, name)

	b := newBehavior(desc, e.entityID, e.source, e.logger)
	if e.onChange != nil {
		b.container.OnChange(func(changes []attribute.Change) {
			e.onChange(e, desc.Name, desc.Cluster, changes)
		})
	}
	if err := b.activate(e.loadLocked); err != nil {
		b.Close()
		return nil, fmt.Errorf("activating %s: %w", name, err)
	}
	e.behaviors[name] = b
	e.order = append(e.order, name)
	return b, nil
}

// Behavior returns an active behavior by capability name.
func (e *Endpoint) Behavior(name string) (*Behavior, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.behaviors[name]
	return b, ok
}

// ReplayFunc receives one capability's attribute values during Replay.
type ReplayFunc func(capability string, cluster matter.ClusterID, values map[string]any)

// Replay calls fn for every active behavior in activation order, each
// call made under that behavior's reaction lock (see Behavior.Replay).
// fn must not block and must not call back into the endpoint.
//
// Returns:
//   - int: number of behaviors replayed
func (e *Endpoint) Replay(fn ReplayFunc) int {
	e.mu.Lock()
	behaviors := make([]*Behavior, 0, len(e.order))
	for _, name := range e.order {
		behaviors = append(behaviors, e.behaviors[name])
	}
	e.mu.Unlock()

	n := 0
	for _, b := range behaviors {
		if b.Replay(func(values map[string]any) { fn(b.Name(), b.Cluster(), values) }) {
			n++
		}
	}
	return n
}

// Close tears the endpoint down, closing behaviors in reverse activation
// order. It is idempotent.
func (e *Endpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
}

func (e *Endpoint) closeLocked() {
	for i := len(e.order) - 1; i >= 0; i-- {
		e.behaviors[e.order[i]].Close()
	}
	e.closed = true
}

// Closed reports whether Close has been called.
func (e *Endpoint) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// CapabilityStatus is a point-in-time view of one behavior.
type CapabilityStatus struct {
	Name       string         `json:"name"`
	Cluster    string         `json:"cluster"`
	ClusterID  uint32         `json:"cluster_id"`
	State      string         `json:"state"`
	LastSeq    uint64         `json:"last_seq"`
	Attributes map[string]any `json:"attributes"`
}

// Status returns the state of every activated behavior, sorted by name.
func (e *Endpoint) Status() []CapabilityStatus {
	e.mu.Lock()
	behaviors := make([]*Behavior, 0, len(e.behaviors))
	for _, b := range e.behaviors {
		behaviors = append(behaviors, b)
	}
	e.mu.Unlock()

	out := make([]CapabilityStatus, 0, len(behaviors))
	for _, b := range behaviors {
		out = append(out, CapabilityStatus{
			Name:       b.Name(),
			Cluster:    b.Cluster().String(),
			ClusterID:  uint32(b.Cluster()),
			State:      b.State().String(),
			LastSeq:    b.LastSeq(),
			Attributes: b.Values(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
