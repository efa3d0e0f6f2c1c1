package attribute

import (
	"testing"
)

// countingStore records every Set so tests can observe writes.
type countingStore struct {
	values map[string]any
	sets   []string
}

func newCountingStore(initial map[string]any) *countingStore {
	s := &countingStore{values: make(map[string]any)}
	for k, v := range initial {
		s.values[k] = v
	}
	return s
}

func (s *countingStore) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *countingStore) Set(key string, value any) {
	s.sets = append(s.sets, key)
	s.values[key] = value
}

func TestApplyPatch_Idempotent(t *testing.T) {
	store := newCountingStore(nil)
	patch := Patch{"nodeLabel": "Kitchen", "reachable": true, "vendorId": uint16(0xFFF1)}

	first := ApplyPatch(store, patch)
	if len(first) != 3 {
		t.Fatalf("first apply changes = %d, want 3", len(first))
	}
	writes := len(store.sets)

	second := ApplyPatch(store, patch)
	if len(second) != 0 {
		t.Errorf("second apply changes = %v, want none", second)
	}
	if len(store.sets) != writes {
		t.Errorf("second apply wrote %d keys, want 0", len(store.sets)-writes)
	}
}

func TestApplyPatch_PartialUpdate(t *testing.T) {
	store := newCountingStore(map[string]any{"a": 1, "b": 2})

	changes := ApplyPatch(store, Patch{"a": 1})

	if len(changes) != 0 {
		t.Errorf("changes = %v, want none", changes)
	}
	if store.values["b"] != 2 {
		t.Errorf("b = %v, want 2", store.values["b"])
	}
	if len(store.sets) != 0 {
		t.Errorf("sets = %v, want none", store.sets)
	}
}

func TestApplyPatch_WritesOnlyDifferences(t *testing.T) {
	store := newCountingStore(map[string]any{"a": 1, "b": 2, "c": "x"})

	changes := ApplyPatch(store, Patch{"a": 1, "b": 3})

	if len(changes) != 1 {
		t.Fatalf("changes = %v, want exactly one", changes)
	}
	ch := changes[0]
	if ch.Key != "b" || ch.Old != 2 || ch.New != 3 || !ch.Existed {
		t.Errorf("change = %+v, want b 2->3", ch)
	}
	if store.values["c"] != "x" {
		t.Errorf("c = %v, want untouched", store.values["c"])
	}
}

func TestApplyPatch_NullValues(t *testing.T) {
	store := newCountingStore(nil)

	changes := ApplyPatch(store, Patch{"currentLevel": nil})
	if len(changes) != 1 || changes[0].Existed {
		t.Fatalf("changes = %+v, want one new key", changes)
	}
	if changes := ApplyPatch(store, Patch{"currentLevel": nil}); len(changes) != 0 {
		t.Errorf("repeat null changes = %v, want none", changes)
	}
	if changes := ApplyPatch(store, Patch{"currentLevel": uint8(10)}); len(changes) != 1 {
		t.Errorf("null -> value changes = %v, want one", changes)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil nil", nil, nil, true},
		{"nil vs zero", nil, 0, false},
		{"uint8 vs int", uint8(5), 5, true},
		{"int16 vs float", int16(-20), -20.0, true},
		{"negative vs unsigned", -1, uint64(1<<64 - 1), false},
		{"unsigned vs signed", uint32(7), int64(7), true},
		{"float mismatch", 1.5, 1, false},
		{"strings", "a", "a", true},
		{"string vs number", "1", 1, false},
		{"bools", true, false, false},
		{"slices", []string{"a"}, []string{"a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Equal(tt.b, tt.a); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v (reversed)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}
