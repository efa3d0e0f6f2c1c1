package homeassistant

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind is the semantic type of a known attribute.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindList
)

// Schema maps known attribute names to their kind. Attributes not in the
// schema pass through untouched.
type Schema map[string]Kind

// DefaultSchema covers the attributes read by the bridge's projections.
var DefaultSchema = Schema{
	AttrFriendlyName:        KindString,
	AttrDeviceClass:         KindString,
	AttrUnitOfMeasurement:   KindString,
	AttrBrightness:          KindNumber,
	AttrSupportedFeatures:   KindNumber,
	AttrColorModes:          KindList,
	"color_mode":            KindString,
	"color_temp_kelvin":     KindNumber,
	"min_color_temp_kelvin": KindNumber,
	"max_color_temp_kelvin": KindNumber,
	"percentage":            KindNumber,
	"current_temperature":   KindNumber,
	"temperature":           KindNumber,
	"current_position":      KindNumber,
	"assumed_state":         KindBool,
}

// Normalize returns a copy of raw in which every known attribute either
// has its schema type or is absent.
//
// Coercion rules:
//   - KindNumber: any JSON number, or a string that parses as a finite float
//   - KindString: strings only; empty strings are kept
//   - KindBool: bools, or the strings "true"/"false"
//   - KindList: JSON arrays
//
// Values that cannot be coerced without loss are dropped, so projections
// fall back to their documented defaults instead of failing.
func (sc Schema) Normalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		kind, known := sc[key]
		if !known {
			out[key] = value
			continue
		}
		if v, ok := coerce(kind, value); ok {
			out[key] = v
		}
	}
	return out
}

func coerce(kind Kind, value any) (any, bool) {
	switch kind {
	case KindNumber:
		return toNumber(value)
	case KindString:
		s, ok := value.(string)
		return s, ok
	case KindBool:
		switch v := value.(type) {
		case bool:
			return v, true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			return b, err == nil
		}
	case KindList:
		l, ok := value.([]any)
		return l, ok
	}
	return nil, false
}

func toNumber(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		return parseNumber(v)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
