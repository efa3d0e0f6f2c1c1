package clusters

import (
	"fmt"

	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
)

// Capability names.
const (
	HomeAssistant               = "homeassistant"
	BasicInformation            = "basic_information"
	OnOff                       = "on_off"
	LevelControl                = "level_control"
	TemperatureMeasurement      = "temperature_measurement"
	RelativeHumidityMeasurement = "relative_humidity_measurement"
	BooleanState                = "boolean_state"
	OccupancySensing            = "occupancy_sensing"
)

// Register adds every capability descriptor to reg and validates the
// resulting dependency graph.
//
// Parameters:
//   - reg: Registry to populate
//   - info: Bridge identity shared by all bridged devices
//
// Returns:
//   - error: wraps matter.ErrConfiguration on any invalid descriptor
func Register(reg *behavior.Registry, info DeviceInfo) error {
	descriptors := []behavior.Descriptor{
		homeAssistantDescriptor(info),
		basicInformationDescriptor(),
		onOffDescriptor(),
		levelControlDescriptor(),
		temperatureDescriptor(),
		humidityDescriptor(),
		booleanStateDescriptor(),
		occupancyDescriptor(),
	}
	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("registering %s: %w", d.Name, err)
		}
	}
	return reg.Validate()
}
