package clusters

import (
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
)

// DeviceInfo is the bridge-wide identity reported by every bridged device.
// Values are raw configuration; basic_information canonicalises them.
type DeviceInfo struct {
	VendorID              int
	VendorName            string
	ProductName           string
	ProductLabel          string
	HardwareVersion       int64
	HardwareVersionString string
	SoftwareVersion       int64
	SoftwareVersionString string
}

// Attribute keys of the homeassistant capability.
const (
	attrEntityID  = "entityId"
	attrState     = "state"
	attrAvailable = "available"
	attrDomain    = "domain"
	attrDevInfo   = "deviceInfo"
)

func homeAssistantDescriptor(info DeviceInfo) behavior.Descriptor {
	return behavior.Descriptor{
		Name:     HomeAssistant,
		Cluster:  matter.ClusterNone,
		Defaults: attribute.Patch{attrDevInfo: info},
		Project: func(in behavior.Input) (attribute.Patch, error) {
			s := in.Snapshot
			return attribute.Patch{
				attrEntityID:  s.EntityID,
				attrState:     s.State,
				attrAvailable: s.Available(),
				attrDomain:    s.Domain(),
				attrDevInfo:   info,
			}, nil
		},
	}
}

// deviceInfo reads the bridge identity from a homeassistant capability.
func deviceInfo(h behavior.Handle) DeviceInfo {
	v, _ := h.Get(attrDevInfo)
	info, _ := v.(DeviceInfo)
	return info
}
