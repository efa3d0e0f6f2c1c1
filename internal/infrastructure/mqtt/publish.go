package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize caps a single message at 1MB, in line with broker defaults.
const maxPayloadSize = 1 << 20

// Payload values for EndpointAvailability topics.
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
)

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "matterhub/endpoint/3/on_off/onOff")
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker keeps the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishRetained publishes a retained message with the configured QoS.
// Attribute reports and availability are retained so a late subscriber
// sees the current value immediately.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// PublishAttribute publishes the JSON encoding of one attribute value to
// its endpoint topic. A nil value is published as JSON null, which is how
// a nullable attribute such as currentLevel reports "unknown".
func (c *Client) PublishAttribute(endpoint uint16, cluster, attribute string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encoding %s/%s: %w", ErrPublishFailed, cluster, attribute, err)
	}
	return c.PublishRetained(Topics{}.EndpointAttribute(endpoint, cluster, attribute), payload)
}

// PublishAvailability marks an endpoint online or offline.
func (c *Client) PublishAvailability(endpoint uint16, online bool) error {
	state := AvailabilityOffline
	if online {
		state = AvailabilityOnline
	}
	return c.PublishRetained(Topics{}.EndpointAvailability(endpoint), []byte(state))
}
