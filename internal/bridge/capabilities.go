package bridge

import (
	"slices"

	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/clusters"
)

// Capabilities every bridged endpoint carries.
var baseCapabilities = []string{clusters.HomeAssistant, clusters.BasicInformation}

// onOffDomains are switched with nothing more than on/off.
var onOffDomains = map[string]bool{
	"switch":        true,
	"input_boolean": true,
	"fan":           true,
}

// occupancyClasses are binary_sensor device classes reported through
// occupancy sensing rather than boolean state.
var occupancyClasses = map[string]bool{
	"occupancy": true,
	"motion":    true,
	"presence":  true,
}

// CapabilitiesFor returns the capabilities an entity is bridged with,
// dependencies first, or nil if nothing can represent it.
//
// Domain mapping:
//   - light: on/off, plus level control unless the light only supports
//     the "onoff" color mode
//   - switch, input_boolean, fan: on/off
//   - sensor: temperature or humidity measurement by device class
//   - binary_sensor: occupancy sensing for motion/occupancy/presence,
//     boolean state otherwise
func CapabilitiesFor(s homeassistant.Snapshot) []string {
	var extra []string

	switch domain := s.Domain(); {
	case domain == "light":
		extra = []string{clusters.OnOff}
		if dimmable(s) {
			extra = append(extra, clusters.LevelControl)
		}
	case onOffDomains[domain]:
		extra = []string{clusters.OnOff}
	case domain == "sensor":
		switch s.DeviceClass() {
		case "temperature":
			extra = []string{clusters.TemperatureMeasurement}
		case "humidity":
			extra = []string{clusters.RelativeHumidityMeasurement}
		}
	case domain == "binary_sensor":
		if occupancyClasses[s.DeviceClass()] {
			extra = []string{clusters.OccupancySensing}
		} else {
			extra = []string{clusters.BooleanState}
		}
	}

	if len(extra) == 0 {
		return nil
	}
	return slices.Concat(baseCapabilities, extra)
}

// dimmable is false only when the light declares "onoff" as its sole
// color mode. Lights that declare nothing are assumed dimmable and report
// a null level until a brightness arrives.
func dimmable(s homeassistant.Snapshot) bool {
	modes, ok := s.Attributes[homeassistant.AttrColorModes].([]any)
	if !ok || len(modes) == 0 {
		return true
	}
	return len(modes) != 1 || modes[0] != "onoff"
}
