package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-matterhub/migrations"
)

// openTestDB returns a migrated in-memory database.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type attributeMessage struct {
	endpoint  uint16
	cluster   string
	attribute string
	value     any
}

// fakePublisher records everything the reporter publishes.
type fakePublisher struct {
	mu           sync.Mutex
	attributes   []attributeMessage
	availability map[uint16]bool
	err          error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{availability: make(map[uint16]bool)}
}

func (p *fakePublisher) PublishAttribute(endpoint uint16, cluster, attribute string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.attributes = append(p.attributes, attributeMessage{endpoint, cluster, attribute, value})
	return nil
}

func (p *fakePublisher) PublishAvailability(endpoint uint16, online bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.availability[endpoint] = online
	return nil
}

// latest returns the last value published for an attribute.
func (p *fakePublisher) latest(endpoint uint16, cluster, attribute string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.attributes) - 1; i >= 0; i-- {
		m := p.attributes[i]
		if m.endpoint == endpoint && m.cluster == cluster && m.attribute == attribute {
			return m.value, true
		}
	}
	return nil, false
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attributes)
}

func (p *fakePublisher) online(endpoint uint16) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.availability[endpoint]
	return v, ok
}
