package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestSQLiteEndpointRepository_Assign(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteEndpointRepository(db.DB)
	ctx := context.Background()

	first, err := repo.Assign(ctx, "light.kitchen", []string{"homeassistant", "on_off"})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if first != FirstEndpointNumber {
		t.Errorf("first number = %d, want %d", first, FirstEndpointNumber)
	}

	second, err := repo.Assign(ctx, "switch.kettle", nil)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if second != first+1 {
		t.Errorf("second number = %d, want %d", second, first+1)
	}

	again, err := repo.Assign(ctx, "light.kitchen", []string{"homeassistant", "on_off", "level_control"})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if again != first {
		t.Errorf("re-assigned number = %d, want stable %d", again, first)
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
	if records[0].EntityID != "light.kitchen" || !slices.Equal(records[0].Capabilities, []string{"homeassistant", "on_off", "level_control"}) {
		t.Errorf("records[0] = %+v", records[0])
	}
	if records[1].Capabilities == nil || len(records[1].Capabilities) != 0 {
		t.Errorf("records[1].Capabilities = %#v, want empty", records[1].Capabilities)
	}
}

func TestSQLiteEndpointRepository_NumbersSurviveReopen(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n, err := NewSQLiteEndpointRepository(db.DB).Assign(ctx, "sensor.lounge", nil)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	// A fresh repository on the same database sees the same assignment.
	got, err := NewSQLiteEndpointRepository(db.DB).Assign(ctx, "sensor.lounge", nil)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if got != n {
		t.Errorf("number after reopen = %d, want %d", got, n)
	}
}

func TestSQLiteEndpointRepository_Exhausted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO endpoints (entity_id, number, capabilities, created_at, last_seen)
		 VALUES ('sensor.last', ?, '[]', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`,
		LastEndpointNumber,
	); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	_, err := NewSQLiteEndpointRepository(db.DB).Assign(ctx, "sensor.one_more", nil)
	if !errors.Is(err, ErrEndpointsExhausted) {
		t.Errorf("Assign() error = %v, want ErrEndpointsExhausted", err)
	}
}

func TestSQLiteAttributeHistoryRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteAttributeHistoryRepository(db.DB)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []HistoryRecord{
		{Endpoint: 2, EntityID: "light.kitchen", Capability: "on_off", Cluster: "on_off", Attribute: "onOff", Value: json.RawMessage("false"), RecordedAt: base},
		{Endpoint: 2, EntityID: "light.kitchen", Capability: "on_off", Cluster: "on_off", Attribute: "onOff", Value: json.RawMessage("true"), RecordedAt: base.Add(500 * time.Millisecond)},
		{Endpoint: 2, EntityID: "light.kitchen", Capability: "level_control", Cluster: "level_control", Attribute: "currentLevel", Value: nil, RecordedAt: base.Add(time.Second)},
		{Endpoint: 3, EntityID: "switch.kettle", Capability: "on_off", Cluster: "on_off", Attribute: "onOff", Value: json.RawMessage("true"), RecordedAt: base},
	}
	if err := repo.Record(ctx, records); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, nil); err != nil {
		t.Errorf("Record(nil) error = %v", err)
	}

	got, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List() returned %d records, want 3", len(got))
	}
	if got[0].Attribute != "currentLevel" || string(got[0].Value) != "null" {
		t.Errorf("newest = %+v, want null currentLevel", got[0])
	}
	if string(got[1].Value) != "true" || string(got[2].Value) != "false" {
		t.Errorf("order = %s, %s; want true, false", got[1].Value, got[2].Value)
	}
	if !got[1].RecordedAt.Equal(base.Add(500 * time.Millisecond)) {
		t.Errorf("RecordedAt = %v", got[1].RecordedAt)
	}

	limited, err := repo.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("List(limit 1) returned %d", len(limited))
	}

	pruned, err := repo.Prune(ctx, base.Add(750*time.Millisecond))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 3 {
		t.Errorf("Prune() = %d, want 3", pruned)
	}
	remaining, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].Attribute != "currentLevel" {
		t.Errorf("remaining = %+v", remaining)
	}
}
