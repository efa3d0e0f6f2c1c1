package clusters

import (
	"fmt"

	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/canonical"
)

// BridgedDeviceBasicInformation string limits.
const (
	limitName    = 32
	limitLabel   = 64
	limitVersion = 64
)

var basicInformationLimits = map[string]int{
	"vendorName":            limitName,
	"productName":           limitName,
	"productLabel":          limitLabel,
	"nodeLabel":             limitName,
	"hardwareVersionString": limitVersion,
	"softwareVersionString": limitVersion,
	"serialNumber":          limitName,
	"uniqueId":              limitName,
}

func basicInformationDescriptor() behavior.Descriptor {
	return behavior.Descriptor{
		Name:         BasicInformation,
		Cluster:      matter.ClusterBridgedDeviceBasicInfo,
		Requires:     []string{HomeAssistant},
		StringLimits: basicInformationLimits,
		Project:      projectBasicInformation,
	}
}

func projectBasicInformation(in behavior.Input) (attribute.Patch, error) {
	ha, ok := in.Dependency(HomeAssistant)
	if !ok {
		return nil, fmt.Errorf("%w: %s", matter.ErrDependencyMissing, HomeAssistant)
	}
	info := deviceInfo(ha)
	s := in.Snapshot

	label := s.FriendlyName()
	if label == "" {
		label = s.EntityID
	}

	patch := attribute.Patch{
		"vendorId":        canonical.VendorID(info.VendorID),
		"hardwareVersion": canonical.Uint32(info.HardwareVersion),
		"softwareVersion": canonical.Uint32(info.SoftwareVersion),
		"reachable":       s.Available(),
	}
	strs := map[string]string{
		"vendorName":            info.VendorName,
		"productName":           info.ProductName,
		"productLabel":          info.ProductLabel,
		"nodeLabel":             label,
		"hardwareVersionString": info.HardwareVersionString,
		"softwareVersionString": info.SoftwareVersionString,
		"serialNumber":          s.EntityID,
		"uniqueId":              canonical.UniqueID(s.EntityID),
	}
	for key, value := range strs {
		v, err := canonical.String(value, basicInformationLimits[key])
		if err != nil {
			return nil, err
		}
		patch[key] = v
	}
	return patch, nil
}
