package mqtt

import "fmt"

// TopicPrefix is the root of every topic the bridge publishes.
const TopicPrefix = "matterhub"

// Topics provides builders for the bridge's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.EndpointAttribute(3, "on_off", "onOff")
//	// Returns: "matterhub/endpoint/3/on_off/onOff"
type Topics struct{}

// EndpointAttribute returns the retained topic carrying one attribute of
// one capability on an endpoint.
//
// Example: matterhub/endpoint/3/level_control/currentLevel
func (Topics) EndpointAttribute(endpoint uint16, cluster, attribute string) string {
	return fmt.Sprintf("%s/endpoint/%d/%s/%s", TopicPrefix, endpoint, cluster, attribute)
}

// EndpointAvailability returns the retained topic saying whether an
// endpoint is currently bridged.
//
// Example: matterhub/endpoint/3/availability
func (Topics) EndpointAvailability(endpoint uint16) string {
	return fmt.Sprintf("%s/endpoint/%d/availability", TopicPrefix, endpoint)
}

// SystemStatus returns the bridge status topic, also used for the LWT.
//
// Example: matterhub/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllEndpointAttributes matches every attribute report.
//
// Pattern: matterhub/endpoint/+/+/+
func (Topics) AllEndpointAttributes() string {
	return TopicPrefix + "/endpoint/+/+/+"
}

// AllTopics matches everything the bridge publishes.
//
// Pattern: matterhub/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
