package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
)

const (
	pruneInterval = time.Hour
	assignTimeout = 5 * time.Second
)

// Skip reasons reported by Status.
const (
	SkipFiltered    = "filtered"
	SkipUnsupported = "unsupported"
	SkipFailed      = "activation_failed"
)

// Config wires a Bridge.
type Config struct {
	Hub       *homeassistant.Hub
	Registry  *behavior.Registry
	Filter    *Filter
	Endpoints EndpointRepository

	// Reporter is optional. Without it attribute changes stay in memory.
	Reporter *Reporter

	// History and HistoryRetention enable periodic pruning. A zero
	// retention keeps everything.
	History          AttributeHistoryRepository
	HistoryRetention time.Duration

	Logger Logger
}

// EndpointInfo describes one bridged endpoint.
type EndpointInfo struct {
	Number       uint16                      `json:"number"`
	EntityID     string                      `json:"entity_id"`
	Capabilities []string                    `json:"capabilities"`
	Clusters     []behavior.CapabilityStatus `json:"clusters,omitempty"`
}

// Status summarises the bridge.
type Status struct {
	Running   bool              `json:"running"`
	Endpoints int               `json:"endpoints"`
	Skipped   map[string]string `json:"skipped"`
	Reporter  *ReporterStats    `json:"reporter,omitempty"`
}

// Bridge keeps one activated behavior.Endpoint per bridged entity, in step
// with the Hub's entity set.
//
// Endpoint lifecycle changes are queued from the Hub watcher and applied
// by Run on its own goroutine, so Hub delivery never waits on the
// database.
//
// Thread Safety:
//   - All public methods are safe for concurrent use.
type Bridge struct {
	hub       *homeassistant.Hub
	registry  *behavior.Registry
	filter    *Filter
	endpoints EndpointRepository
	reporter  *Reporter
	history   AttributeHistoryRepository
	retention time.Duration
	logger    Logger

	events  *eventQueue
	running atomic.Bool

	mu       sync.RWMutex
	byEntity map[string]*behavior.Endpoint
	byNumber map[uint16]*behavior.Endpoint
	skipped  map[string]string
}

// New validates cfg and creates a Bridge. Call Run to start it.
func New(cfg Config) (*Bridge, error) {
	if cfg.Hub == nil || cfg.Registry == nil || cfg.Endpoints == nil {
		return nil, fmt.Errorf("%w: bridge needs a hub, a registry and an endpoint repository", matter.ErrConfiguration)
	}
	filter := cfg.Filter
	if filter == nil {
		filter = &Filter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		hub:       cfg.Hub,
		registry:  cfg.Registry,
		filter:    filter,
		endpoints: cfg.Endpoints,
		reporter:  cfg.Reporter,
		history:   cfg.History,
		retention: cfg.HistoryRetention,
		logger:    logger,
		events:    newEventQueue(),
		byEntity:  make(map[string]*behavior.Endpoint),
		byNumber:  make(map[uint16]*behavior.Endpoint),
		skipped:   make(map[string]string),
	}, nil
}

// Run bridges every entity already in the Hub, then follows additions and
// removals until ctx is cancelled. On return every endpoint is closed.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return fmt.Errorf("bridge already running")
	}
	defer b.running.Store(false)

	watch := b.hub.Watch(b.onHubEvent)
	defer watch.Cancel()
	defer b.closeAll()

	for _, id := range b.hub.EntityIDs() {
		if s, ok := b.hub.Current(id); ok {
			b.events.push(homeassistant.Event{Type: homeassistant.EventAdded, Snapshot: s})
		}
	}

	var prune <-chan time.Time
	if b.history != nil && b.retention > 0 {
		b.pruneHistory(ctx)
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		prune = ticker.C
	}

	b.logger.Info("bridge started", "entities", b.hub.Len())

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bridge stopping")
			return nil
		case <-b.events.ready():
			for _, ev := range b.events.drain() {
				b.apply(ctx, ev)
			}
		case <-prune:
			b.pruneHistory(ctx)
		}
	}
}

// onHubEvent runs on the Hub's dispatch path and must not block. Updates
// are ignored except for entities skipped for a reason other than the
// filter: a later snapshot may carry the attributes they were missing.
func (b *Bridge) onHubEvent(ev homeassistant.Event) {
	if ev.Type == homeassistant.EventUpdated {
		b.mu.RLock()
		reason, skipped := b.skipped[ev.Snapshot.EntityID]
		b.mu.RUnlock()
		if !skipped || reason == SkipFiltered {
			return
		}
	}
	b.events.push(ev)
}

func (b *Bridge) apply(ctx context.Context, ev homeassistant.Event) {
	switch ev.Type {
	case homeassistant.EventAdded, homeassistant.EventUpdated:
		if err := b.add(ctx, ev.Snapshot); err != nil {
			b.logger.Debug("entity not bridged",
				"entity_id", ev.Snapshot.EntityID,
				"reason", err,
			)
		}
	case homeassistant.EventRemoved:
		b.remove(ev.Snapshot.EntityID)
	}
}

// add bridges one entity. It is a no-op for an entity already bridged.
// Capabilities are derived from the hub's latest snapshot, so a retry
// queued by an update sees the newest attributes.
func (b *Bridge) add(ctx context.Context, s homeassistant.Snapshot) error {
	id := s.EntityID

	b.mu.RLock()
	_, exists := b.byEntity[id]
	b.mu.RUnlock()
	if exists {
		return nil
	}
	// A queued add can trail a removal that already happened.
	current, ok := b.hub.Current(id)
	if !ok {
		return nil
	}
	s = current

	if !b.filter.Allow(id) {
		b.skip(id, SkipFiltered)
		return ErrFiltered
	}
	caps := CapabilitiesFor(s)
	if caps == nil {
		b.skip(id, SkipUnsupported)
		return ErrUnsupported
	}

	assignCtx, cancel := context.WithTimeout(ctx, assignTimeout)
	number, err := b.endpoints.Assign(assignCtx, id, caps)
	cancel()
	if err != nil {
		b.logger.Error("assigning endpoint number failed", "entity_id", id, "error", err)
		b.skip(id, SkipFailed)
		return err
	}

	ep, err := behavior.NewEndpoint(behavior.EndpointConfig{
		Number:       number,
		EntityID:     id,
		Capabilities: caps,
		Registry:     b.registry,
		Source:       b.hub,
		Logger:       b.logger,
		OnChange:     b.onChange,
	})
	if err == nil {
		err = ep.Activate()
	}
	if err != nil {
		level := b.logger.Error
		if errors.Is(err, matter.ErrDependencyMissing) {
			level = b.logger.Warn
		}
		level("endpoint activation failed", "entity_id", id, "endpoint", number, "error", err)
		b.skip(id, SkipFailed)
		return err
	}

	b.mu.Lock()
	b.byEntity[id] = ep
	b.byNumber[number] = ep
	delete(b.skipped, id)
	b.mu.Unlock()

	if b.reporter != nil {
		b.reporter.SetAvailability(number, true)
	}
	b.logger.Info("endpoint bridged",
		"entity_id", id,
		"endpoint", number,
		"capabilities", caps,
	)
	return nil
}

func (b *Bridge) remove(entityID string) {
	b.mu.Lock()
	ep, ok := b.byEntity[entityID]
	if ok {
		delete(b.byEntity, entityID)
		delete(b.byNumber, ep.Number())
	}
	delete(b.skipped, entityID)
	b.mu.Unlock()

	if !ok {
		return
	}
	ep.Close()
	if b.reporter != nil {
		b.reporter.SetAvailability(ep.Number(), false)
	}
	b.logger.Info("endpoint removed", "entity_id", entityID, "endpoint", ep.Number())
}

func (b *Bridge) skip(entityID, reason string) {
	b.mu.Lock()
	b.skipped[entityID] = reason
	b.mu.Unlock()
}

func (b *Bridge) closeAll() {
	b.mu.Lock()
	eps := make([]*behavior.Endpoint, 0, len(b.byEntity))
	for _, ep := range b.byEntity {
		eps = append(eps, ep)
	}
	b.byEntity = make(map[string]*behavior.Endpoint)
	b.byNumber = make(map[uint16]*behavior.Endpoint)
	b.mu.Unlock()

	for _, ep := range eps {
		ep.Close()
	}
}

// onChange forwards container writes to the reporter. It runs on the
// reacting goroutine and may only use ep.Number and ep.EntityID.
func (b *Bridge) onChange(ep *behavior.Endpoint, capability string, cluster matter.ClusterID, changes []attribute.Change) {
	if b.reporter == nil {
		return
	}
	b.reporter.Enqueue(Report{
		Endpoint:   ep.Number(),
		EntityID:   ep.EntityID(),
		Capability: capability,
		Cluster:    cluster,
		Changes:    changes,
	})
}

// Republish queues the full current state of every endpoint, as after a
// broker reconnect. It returns the number of endpoints queued.
func (b *Bridge) Republish() int {
	if b.reporter == nil {
		return 0
	}
	b.mu.RLock()
	eps := make([]*behavior.Endpoint, 0, len(b.byEntity))
	for _, ep := range b.byEntity {
		eps = append(eps, ep)
	}
	b.mu.RUnlock()

	// Enqueueing under each behavior's reaction lock keeps a replayed value
	// from overtaking a newer one reported by a concurrent reaction.
	for _, ep := range eps {
		b.reporter.SetAvailability(ep.Number(), true)
		ep.Replay(func(capability string, cluster matter.ClusterID, values map[string]any) {
			changes := make([]attribute.Change, 0, len(values))
			for _, key := range sortedKeys(values) {
				changes = append(changes, attribute.Change{Key: key, New: values[key], Existed: true})
			}
			b.reporter.Enqueue(Report{
				Endpoint:   ep.Number(),
				EntityID:   ep.EntityID(),
				Capability: capability,
				Cluster:    cluster,
				Changes:    changes,
			})
		})
	}
	return len(eps)
}

func (b *Bridge) pruneHistory(ctx context.Context) {
	n, err := b.history.Prune(ctx, time.Now().Add(-b.retention))
	if err != nil {
		b.logger.Warn("pruning attribute history failed", "error", err)
		return
	}
	if n > 0 {
		b.logger.Debug("pruned attribute history", "rows", n)
	}
}

// Endpoints lists bridged endpoints ordered by number, without attribute
// values.
func (b *Bridge) Endpoints() []EndpointInfo {
	b.mu.RLock()
	out := make([]EndpointInfo, 0, len(b.byNumber))
	for _, ep := range b.byNumber {
		out = append(out, EndpointInfo{
			Number:       ep.Number(),
			EntityID:     ep.EntityID(),
			Capabilities: ep.Capabilities(),
		})
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Endpoint returns one endpoint with its live attribute values.
func (b *Bridge) Endpoint(number uint16) (EndpointInfo, bool) {
	b.mu.RLock()
	ep, ok := b.byNumber[number]
	b.mu.RUnlock()
	if !ok {
		return EndpointInfo{}, false
	}
	return describe(ep), true
}

// EndpointForEntity returns the endpoint bridging entityID.
func (b *Bridge) EndpointForEntity(entityID string) (EndpointInfo, bool) {
	b.mu.RLock()
	ep, ok := b.byEntity[entityID]
	b.mu.RUnlock()
	if !ok {
		return EndpointInfo{}, false
	}
	return describe(ep), true
}

// Skipped returns why an entity is not bridged, if it was considered.
func (b *Bridge) Skipped(entityID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	reason, ok := b.skipped[entityID]
	return reason, ok
}

// Status returns a summary of the bridge.
func (b *Bridge) Status() Status {
	b.mu.RLock()
	skipped := make(map[string]string, len(b.skipped))
	for id, reason := range b.skipped {
		skipped[id] = reason
	}
	st := Status{
		Running:   b.running.Load(),
		Endpoints: len(b.byEntity),
		Skipped:   skipped,
	}
	b.mu.RUnlock()

	if b.reporter != nil {
		stats := b.reporter.Stats()
		st.Reporter = &stats
	}
	return st
}

func describe(ep *behavior.Endpoint) EndpointInfo {
	return EndpointInfo{
		Number:       ep.Number(),
		EntityID:     ep.EntityID(),
		Capabilities: ep.Capabilities(),
		Clusters:     ep.Status(),
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// eventQueue is an unbounded FIFO with a wake-up channel, so the Hub
// watcher can hand off lifecycle events without blocking.
type eventQueue struct {
	mu     sync.Mutex
	items  []homeassistant.Event
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev homeassistant.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) ready() <-chan struct{} {
	return q.signal
}

func (q *eventQueue) drain() []homeassistant.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
