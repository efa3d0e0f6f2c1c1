package homeassistant

import (
	"sort"
	"sync"
	"time"
)

// EventType classifies a Hub watch event.
type EventType int

const (
	// EventAdded fires on the first publish for an entity.
	EventAdded EventType = iota
	// EventUpdated fires on every later publish.
	EventUpdated
	// EventRemoved fires when an entity is deleted upstream.
	EventRemoved
)

// String returns the event name used in logs.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to Watch callbacks.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}

// Subscription is a cancellable registration on the Hub.
type Subscription interface {
	// Cancel stops further deliveries. It is safe to call more than once.
	// A delivery already running when Cancel is called may still finish.
	Cancel()
}

// Hub stores the latest snapshot per entity and fans out changes.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Deliveries for one entity never overlap and arrive in Seq order.
//   - Callbacks may call any Hub method except Publish or Remove for the
//     entity being delivered, which would deadlock.
type Hub struct {
	schema Schema
	now    func() time.Time

	mu       sync.RWMutex
	current  map[string]Snapshot
	seq      map[string]uint64
	subs     map[string]map[uint64]func(Snapshot)
	watchers map[uint64]func(Event)
	nextID   uint64

	// dispatch serialises Publish/Remove per entity. Entries are never
	// removed so a re-added entity keeps the same lock.
	dispatchMu sync.Mutex
	dispatch   map[string]*sync.Mutex
}

// NewHub creates an empty hub that normalises attributes with DefaultSchema.
func NewHub() *Hub {
	return NewHubWithSchema(DefaultSchema)
}

// NewHubWithSchema creates an empty hub using the given schema.
func NewHubWithSchema(schema Schema) *Hub {
	return &Hub{
		schema:   schema,
		now:      time.Now,
		current:  make(map[string]Snapshot),
		seq:      make(map[string]uint64),
		subs:     make(map[string]map[uint64]func(Snapshot)),
		watchers: make(map[uint64]func(Event)),
		dispatch: make(map[string]*sync.Mutex),
	}
}

func (h *Hub) entityLock(entityID string) *sync.Mutex {
	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()
	m, ok := h.dispatch[entityID]
	if !ok {
		m = &sync.Mutex{}
		h.dispatch[entityID] = m
	}
	return m
}

// Publish normalises s, assigns the next sequence number for its entity,
// stores it as current and delivers it to watchers and subscribers before
// returning. The stored snapshot is returned.
func (h *Hub) Publish(s Snapshot) Snapshot {
	lock := h.entityLock(s.EntityID)
	lock.Lock()
	defer lock.Unlock()

	s.Attributes = h.schema.Normalize(s.Attributes)
	if s.LastUpdated.IsZero() {
		s.LastUpdated = h.now()
	}

	h.mu.Lock()
	prev, existed := h.current[s.EntityID]
	if s.LastChanged.IsZero() {
		if existed && prev.State == s.State {
			s.LastChanged = prev.LastChanged
		} else {
			s.LastChanged = s.LastUpdated
		}
	}
	h.seq[s.EntityID]++
	s.Seq = h.seq[s.EntityID]
	h.current[s.EntityID] = s
	subs := h.subscribersLocked(s.EntityID)
	watchers := h.watchersLocked()
	h.mu.Unlock()

	evType := EventUpdated
	if !existed {
		evType = EventAdded
	}
	for _, w := range watchers {
		w(Event{Type: evType, Snapshot: s})
	}
	for _, fn := range subs {
		fn(s)
	}
	return s
}

// Remove deletes an entity and notifies watchers. Subscribers are not
// called; whoever owns them is expected to react to EventRemoved.
// It returns false if the entity was unknown.
func (h *Hub) Remove(entityID string) bool {
	lock := h.entityLock(entityID)
	lock.Lock()
	defer lock.Unlock()

	h.mu.Lock()
	prev, existed := h.current[entityID]
	delete(h.current, entityID)
	watchers := h.watchersLocked()
	h.mu.Unlock()

	if !existed {
		return false
	}
	for _, w := range watchers {
		w(Event{Type: EventRemoved, Snapshot: prev})
	}
	return true
}

// Current returns the latest snapshot for an entity.
func (h *Hub) Current(entityID string) (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.current[entityID]
	return s, ok
}

// EntityIDs returns all known entity IDs, sorted.
func (h *Hub) EntityIDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.current))
	for id := range h.current {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of known entities.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.current)
}

// Subscribe registers fn for every future publish of entityID.
func (h *Hub) Subscribe(entityID string, fn func(Snapshot)) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	if h.subs[entityID] == nil {
		h.subs[entityID] = make(map[uint64]func(Snapshot))
	}
	h.subs[entityID][id] = fn
	return &hubSubscription{cancel: func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[entityID], id)
		if len(h.subs[entityID]) == 0 {
			delete(h.subs, entityID)
		}
	}}
}

// Watch registers fn for add, update and remove events of every entity.
func (h *Hub) Watch(fn func(Event)) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.watchers[id] = fn
	return &hubSubscription{cancel: func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.watchers, id)
	}}
}

// SubscriberCount returns the number of live subscriptions for an entity.
func (h *Hub) SubscriberCount(entityID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[entityID])
}

func (h *Hub) subscribersLocked(entityID string) []func(Snapshot) {
	m := h.subs[entityID]
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func (h *Hub) watchersLocked() []func(Event) {
	ids := make([]uint64, 0, len(h.watchers))
	for id := range h.watchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, h.watchers[id])
	}
	return out
}

type hubSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *hubSubscription) Cancel() {
	s.once.Do(s.cancel)
}
