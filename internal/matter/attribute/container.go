package attribute

import (
	"sync"
)

// Listener is called with the changes made by one patch.
type Listener func(changes []Change)

// Container is the live attribute state for one capability on one endpoint.
type Container struct {
	mu     sync.RWMutex
	values map[string]any

	listenerMu sync.RWMutex
	listeners  map[int]Listener
	nextID     int
}

// NewContainer creates a container seeded with initial values.
// Seeding does not notify listeners.
func NewContainer(initial Patch) *Container {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Container{
		values:    values,
		listeners: make(map[int]Listener),
	}
}

// Get returns the current value of key.
func (c *Container) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set writes a single attribute through the patch path.
func (c *Container) Set(key string, value any) {
	c.ApplyPatch(Patch{key: value})
}

// Values returns a copy of all attribute values.
func (c *Container) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// ApplyPatch applies patch under the write lock and notifies listeners of
// the resulting changes once the lock is released. It returns the changes,
// which is empty when the container already matched the patch.
func (c *Container) ApplyPatch(patch Patch) []Change {
	c.mu.Lock()
	changes := ApplyPatch(mapStore(c.values), patch)
	c.mu.Unlock()

	if len(changes) > 0 {
		c.notify(changes)
	}
	return changes
}

// OnChange registers a listener and returns a function that removes it.
func (c *Container) OnChange(l Listener) (cancel func()) {
	c.listenerMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenerMu.Lock()
			delete(c.listeners, id)
			c.listenerMu.Unlock()
		})
	}
}

func (c *Container) notify(changes []Change) {
	c.listenerMu.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenerMu.RUnlock()

	for _, l := range listeners {
		l(changes)
	}
}

// mapStore adapts a plain map to Store. Callers hold the container lock.
type mapStore map[string]any

func (m mapStore) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapStore) Set(key string, value any) {
	m[key] = value
}
