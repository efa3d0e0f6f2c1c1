package homeassistant

import (
	"strings"
	"time"
)

// Well-known lifecycle states.
const (
	StateOn          = "on"
	StateOff         = "off"
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// Well-known attribute names.
const (
	AttrFriendlyName      = "friendly_name"
	AttrDeviceClass       = "device_class"
	AttrUnitOfMeasurement = "unit_of_measurement"
	AttrBrightness        = "brightness"
	AttrSupportedFeatures = "supported_features"
	AttrColorModes        = "supported_color_modes"
)

// Snapshot is a point-in-time view of one Home Assistant entity.
// It is immutable once published: consumers must not modify Attributes.
type Snapshot struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`

	// Seq is assigned by the Hub and increases with every publish for
	// the same entity. Zero means the snapshot was never published.
	Seq uint64 `json:"seq"`
}

// Placeholder returns the snapshot used for an entity the source has not
// reported yet: unavailable, with no attributes.
func Placeholder(entityID string) Snapshot {
	return Snapshot{EntityID: entityID, State: StateUnavailable}
}

// Domain returns the entity domain ("light" for "light.kitchen").
func (s Snapshot) Domain() string {
	return Domain(s.EntityID)
}

// Domain returns the domain part of an entity ID.
func Domain(entityID string) string {
	domain, _, found := strings.Cut(entityID, ".")
	if !found {
		return ""
	}
	return domain
}

// Available reports whether the entity is reachable.
func (s Snapshot) Available() bool {
	return s.State != StateUnavailable
}

// String returns a string attribute.
func (s Snapshot) String(key string) (string, bool) {
	v, ok := s.Attributes[key].(string)
	return v, ok
}

// Number returns a numeric attribute.
func (s Snapshot) Number(key string) (float64, bool) {
	v, ok := s.Attributes[key].(float64)
	return v, ok
}

// Bool returns a boolean attribute.
func (s Snapshot) Bool(key string) (bool, bool) {
	v, ok := s.Attributes[key].(bool)
	return v, ok
}

// FriendlyName returns the human label, or "" when none is set.
func (s Snapshot) FriendlyName() string {
	v, _ := s.String(AttrFriendlyName)
	return v
}

// DeviceClass returns the device_class attribute, or "".
func (s Snapshot) DeviceClass() string {
	v, _ := s.String(AttrDeviceClass)
	return v
}

// Unit returns the unit_of_measurement attribute, or "".
func (s Snapshot) Unit() string {
	v, _ := s.String(AttrUnitOfMeasurement)
	return v
}

// NumericState parses the state label as a number. Sensor entities carry
// their reading in the state rather than an attribute.
func (s Snapshot) NumericState() (float64, bool) {
	return parseNumber(s.State)
}
