package clusters

import (
	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/canonical"
)

// contactClasses are binary_sensor device classes where "on" means open.
// Matter's BooleanState on a contact sensor is true when closed.
var contactClasses = []string{"door", "window", "opening", "garage_door"}

func booleanStateDescriptor() behavior.Descriptor {
	return behavior.Descriptor{
		Name:     BooleanState,
		Cluster:  matter.ClusterBooleanState,
		Defaults: attribute.Patch{"stateValue": false},
		Project: func(in behavior.Input) (attribute.Patch, error) {
			s := in.Snapshot
			active := s.State == homeassistant.StateOn
			if canonical.Enum(s.DeviceClass(), contactClasses, "") != "" {
				// Unknown or unavailable contact sensors report open.
				active = s.State == homeassistant.StateOff
			}
			return attribute.Patch{"stateValue": active}, nil
		},
	}
}

// Occupancy bitmap values.
const (
	unoccupied uint8 = 0
	occupied   uint8 = 1
)

func occupancyDescriptor() behavior.Descriptor {
	return behavior.Descriptor{
		Name:     OccupancySensing,
		Cluster:  matter.ClusterOccupancySensing,
		Defaults: attribute.Patch{"occupancy": unoccupied},
		Project: func(in behavior.Input) (attribute.Patch, error) {
			value := unoccupied
			if in.Snapshot.State == homeassistant.StateOn {
				value = occupied
			}
			return attribute.Patch{"occupancy": value}, nil
		},
	}
}
