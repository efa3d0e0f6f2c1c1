package homeassistant

import (
	"encoding/json"
	"math"
	"testing"
)

func TestSchema_Normalize(t *testing.T) {
	raw := map[string]any{
		"friendly_name":         "Kitchen",
		"device_class":          nil,
		"brightness":            json.Number("200"),
		"supported_features":    "not a number",
		"assumed_state":         "true",
		"supported_color_modes": []any{"brightness"},
		"temperature":           math.NaN(),
		"custom":                map[string]any{"x": 1},
	}

	got := DefaultSchema.Normalize(raw)

	tests := []struct {
		key     string
		want    any
		present bool
	}{
		{"friendly_name", "Kitchen", true},
		{"device_class", nil, false},
		{"brightness", 200.0, true},
		{"supported_features", nil, false},
		{"assumed_state", true, true},
		{"temperature", nil, false},
	}
	for _, tt := range tests {
		v, ok := got[tt.key]
		if ok != tt.present {
			t.Errorf("%s present = %v, want %v", tt.key, ok, tt.present)
			continue
		}
		if ok && v != tt.want {
			t.Errorf("%s = %v (%T), want %v", tt.key, v, v, tt.want)
		}
	}
	if _, ok := got["supported_color_modes"].([]any); !ok {
		t.Error("list attribute lost")
	}
	if _, ok := got["custom"]; !ok {
		t.Error("unknown attribute not passed through")
	}
	if _, ok := raw["brightness"].(json.Number); !ok {
		t.Error("Normalize() modified its input")
	}
}

func TestSnapshot_Accessors(t *testing.T) {
	s := Snapshot{
		EntityID: "sensor.outdoor_temperature",
		State:    "21.5",
		Attributes: map[string]any{
			"unit_of_measurement": "°C",
			"device_class":        "temperature",
		},
	}

	if s.Domain() != "sensor" {
		t.Errorf("Domain() = %q", s.Domain())
	}
	if v, ok := s.NumericState(); !ok || v != 21.5 {
		t.Errorf("NumericState() = %v, %v", v, ok)
	}
	if s.Unit() != "°C" || s.DeviceClass() != "temperature" {
		t.Errorf("Unit/DeviceClass = %q/%q", s.Unit(), s.DeviceClass())
	}
	if s.FriendlyName() != "" {
		t.Errorf("FriendlyName() = %q, want empty", s.FriendlyName())
	}
	if !s.Available() {
		t.Error("Available() = false")
	}
	if Placeholder("light.x").Available() {
		t.Error("placeholder should be unavailable")
	}
	if Domain("nodot") != "" {
		t.Error("Domain of malformed id should be empty")
	}
}
