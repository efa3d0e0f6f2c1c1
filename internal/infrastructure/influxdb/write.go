package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementAttribute is the measurement every attribute change is
// written to.
const MeasurementAttribute = "matter_attribute"

// AttributeChange is one attribute value applied on an endpoint.
type AttributeChange struct {
	Endpoint  uint16
	EntityID  string
	Cluster   string
	Attribute string
	Value     any
	At        time.Time
}

// WriteAttributeChange queues a point for a numeric or boolean attribute
// value. Strings, nulls and other shapes are not telemetry and are
// skipped.
//
// Point layout:
//
//	matter_attribute,endpoint=3,entity_id=light.kitchen,cluster=level_control,attribute=currentLevel value=127
//
// Returns:
//   - bool: true if a point was queued
func (c *Client) WriteAttributeChange(change AttributeChange) bool {
	if !c.IsConnected() {
		return false
	}

	point, ok := attributePoint(change)
	if !ok {
		return false
	}
	c.writeAPI.WritePoint(point)
	return true
}

// attributePoint builds the line protocol point for a change.
func attributePoint(change AttributeChange) (*write.Point, bool) {
	value, ok := fieldValue(change.Value)
	if !ok {
		return nil, false
	}

	at := change.At
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(
		MeasurementAttribute,
		map[string]string{
			"endpoint":  strconv.FormatUint(uint64(change.Endpoint), 10),
			"entity_id": change.EntityID,
			"cluster":   change.Cluster,
			"attribute": change.Attribute,
		},
		map[string]interface{}{"value": value},
		at,
	), true
}

// fieldValue maps an attribute value onto an InfluxDB field type. Numbers
// are widened to float64 so one field keeps one type across writes.
func fieldValue(v any) (any, bool) {
	switch n := v.(type) {
	case bool:
		return n, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return nil, false
	}
}
