package bridge

import (
	"slices"
	"testing"

	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/clusters"
)

func TestCapabilitiesFor(t *testing.T) {
	base := []string{clusters.HomeAssistant, clusters.BasicInformation}

	tests := []struct {
		name  string
		id    string
		attrs map[string]any
		want  []string
	}{
		{"dimmable light", "light.kitchen", map[string]any{"supported_color_modes": []any{"brightness"}}, append(base, clusters.OnOff, clusters.LevelControl)},
		{"light without modes", "light.hall", nil, append(base, clusters.OnOff, clusters.LevelControl)},
		{"on/off light", "light.porch", map[string]any{"supported_color_modes": []any{"onoff"}}, append(base, clusters.OnOff)},
		{"switch", "switch.kettle", nil, append(base, clusters.OnOff)},
		{"input boolean", "input_boolean.guest_mode", nil, append(base, clusters.OnOff)},
		{"fan", "fan.bedroom", nil, append(base, clusters.OnOff)},
		{"temperature", "sensor.lounge", map[string]any{"device_class": "temperature"}, append(base, clusters.TemperatureMeasurement)},
		{"humidity", "sensor.bathroom", map[string]any{"device_class": "humidity"}, append(base, clusters.RelativeHumidityMeasurement)},
		{"power sensor", "sensor.power", map[string]any{"device_class": "power"}, nil},
		{"motion", "binary_sensor.hall_motion", map[string]any{"device_class": "motion"}, append(base, clusters.OccupancySensing)},
		{"door", "binary_sensor.front_door", map[string]any{"device_class": "door"}, append(base, clusters.BooleanState)},
		{"plain binary sensor", "binary_sensor.leak", nil, append(base, clusters.BooleanState)},
		{"unsupported domain", "media_player.tv", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := homeassistant.Snapshot{EntityID: tt.id, State: "on", Attributes: tt.attrs}
			got := CapabilitiesFor(s)
			if !slices.Equal(got, tt.want) {
				t.Errorf("CapabilitiesFor(%s) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
