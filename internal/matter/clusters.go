package matter

// ClusterID is a Matter cluster identifier.
type ClusterID uint32

// Cluster identifiers exposed by the hub.
const (
	ClusterNone                        ClusterID = 0
	ClusterOnOff                       ClusterID = 0x0006
	ClusterLevelControl                ClusterID = 0x0008
	ClusterBridgedDeviceBasicInfo      ClusterID = 0x0039
	ClusterBooleanState                ClusterID = 0x0045
	ClusterTemperatureMeasurement      ClusterID = 0x0402
	ClusterRelativeHumidityMeasurement ClusterID = 0x0405
	ClusterOccupancySensing            ClusterID = 0x0406
)

// clusterNames maps cluster identifiers to the names used in topics and the API.
var clusterNames = map[ClusterID]string{
	ClusterNone:                        "none",
	ClusterOnOff:                       "on_off",
	ClusterLevelControl:                "level_control",
	ClusterBridgedDeviceBasicInfo:      "bridged_device_basic_information",
	ClusterBooleanState:                "boolean_state",
	ClusterTemperatureMeasurement:      "temperature_measurement",
	ClusterRelativeHumidityMeasurement: "relative_humidity_measurement",
	ClusterOccupancySensing:            "occupancy_sensing",
}

// String returns the snake_case cluster name, or "unknown".
func (c ClusterID) String() string {
	if name, ok := clusterNames[c]; ok {
		return name
	}
	return "unknown"
}
