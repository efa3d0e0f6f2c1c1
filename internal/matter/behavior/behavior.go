package behavior

import (
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
)

// State is the lifecycle state of a Behavior.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Source is the upstream entity source a behavior reads from.
// homeassistant.Hub implements it.
type Source interface {
	Current(entityID string) (homeassistant.Snapshot, bool)
	Subscribe(entityID string, fn func(homeassistant.Snapshot)) homeassistant.Subscription
}

// Handle is read-only access to an active capability.
type Handle interface {
	Name() string
	Cluster() matter.ClusterID
	Get(key string) (any, bool)
	Values() map[string]any
}

// Logger defines the logging interface used by endpoints and behaviors.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Behavior keeps one capability's attribute container in sync with one
// entity.
type Behavior struct {
	desc      Descriptor
	entityID  string
	container *attribute.Container
	source    Source
	logger    Logger

	// mu serialises activation, reactions and Close.
	mu      sync.Mutex
	state   State
	lastSeq uint64
	deps    map[string]Handle
	sub     homeassistant.Subscription
	applied uint64
}

func newBehavior(desc Descriptor, entityID string, source Source, logger Logger) *Behavior {
	return &Behavior{
		desc:      desc,
		entityID:  entityID,
		container: attribute.NewContainer(desc.Defaults),
		source:    source,
		logger:    logger,
	}
}

// Name returns the capability name.
func (b *Behavior) Name() string { return b.desc.Name }

// Cluster returns the Matter cluster served.
func (b *Behavior) Cluster() matter.ClusterID { return b.desc.Cluster }

// Get reads one attribute.
func (b *Behavior) Get(key string) (any, bool) { return b.container.Get(key) }

// Values returns a copy of all attributes.
func (b *Behavior) Values() map[string]any { return b.container.Values() }

// Container returns the live attribute container.
func (b *Behavior) Container() *attribute.Container { return b.container }

// State returns the lifecycle state.
func (b *Behavior) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// LastSeq returns the sequence number of the last applied snapshot.
func (b *Behavior) LastSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeq
}

// activate runs the Uninitialized -> Active transition.
//
// Parameters:
//   - load: resolves a required capability, activating it if needed
//
// Returns:
//   - error: wraps matter.ErrDependencyMissing when a required capability
//     is absent, or the projection's configuration error
func (b *Behavior) activate(load func(name string) (Handle, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateUninitialized {
		return fmt.Errorf("%w: %s is %s", matter.ErrConfiguration, b.desc.Name, b.state)
	}

	deps := make(map[string]Handle, len(b.desc.Requires))
	for _, name := range b.desc.Requires {
		h, err := load(name)
		if err != nil {
			return fmt.Errorf("%s requires %s: %w", b.desc.Name, name, err)
		}
		deps[name] = h
	}
	b.deps = deps

	snap, ok := b.source.Current(b.entityID)
	if !ok {
		snap = homeassistant.Placeholder(b.entityID)
	}
	if err := b.applyLocked(snap); err != nil {
		return err
	}

	b.sub = b.source.Subscribe(b.entityID, b.react)

	// A publish between Current and Subscribe would otherwise be missed.
	if cur, ok := b.source.Current(b.entityID); ok && cur.Seq > b.lastSeq {
		if err := b.applyLocked(cur); err != nil {
			b.sub.Cancel()
			return err
		}
	}

	b.state = StateActive
	return nil
}

// react handles one change notification.
func (b *Behavior) react(s homeassistant.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateActive {
		return
	}
	if s.Seq != 0 && s.Seq <= b.lastSeq {
		b.logger.Debug("dropping stale snapshot",
			"entity_id", b.entityID,
			"capability", b.desc.Name,
			"seq", s.Seq,
			"last_seq", b.lastSeq,
		)
		return
	}
	if err := b.applyLocked(s); err != nil {
		b.logger.Error("projection failed",
			"entity_id", b.entityID,
			"capability", b.desc.Name,
			"error", err,
		)
	}
}

func (b *Behavior) applyLocked(s homeassistant.Snapshot) error {
	patch, err := b.desc.Project(Input{Snapshot: s, Dependencies: b.deps})
	if err != nil {
		return fmt.Errorf("projecting %s for %s: %w", b.desc.Name, b.entityID, err)
	}
	b.container.ApplyPatch(patch)
	b.lastSeq = s.Seq
	b.applied++
	return nil
}

// Replay calls fn with the current attribute values while holding the
// reaction lock. Anything fn hands off is therefore ordered before the
// output of any later reaction. It returns false unless the behavior is
// active.
func (b *Behavior) Replay(fn func(values map[string]any)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateActive {
		return false
	}
	fn(b.container.Values())
	return true
}

// Close cancels the subscription and moves to Terminated. A reaction
// already running finishes first; any reaction queued behind it observes
// Terminated and does nothing. Close is idempotent.
func (b *Behavior) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		b.sub.Cancel()
		b.sub = nil
	}
	b.state = StateTerminated
}
