package attribute

import (
	"reflect"
)

// Patch is a desired attribute mapping produced by a projection.
// A nil value means the attribute should be null.
type Patch map[string]any

// Change records one attribute write made by ApplyPatch.
type Change struct {
	Key     string `json:"key"`
	Old     any    `json:"old"`
	New     any    `json:"new"`
	Existed bool   `json:"existed"`
}

// Store is the single-key read/write primitive ApplyPatch works against.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// ApplyPatch writes every key of patch whose value differs from the value in
// store and returns the writes made. Keys not present in patch are never
// read or written. The order of the returned changes is unspecified.
func ApplyPatch(store Store, patch Patch) []Change {
	var changes []Change
	for key, want := range patch {
		current, ok := store.Get(key)
		if ok && Equal(current, want) {
			continue
		}
		store.Set(key, want)
		changes = append(changes, Change{Key: key, Old: current, New: want, Existed: ok})
	}
	return changes
}

// Equal reports whether two attribute values are equal. Numbers compare by
// value regardless of their Go type, so uint8(5) equals 5 and 5.0.
// Everything else uses reflect.DeepEqual.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isNumber(va.Kind()) && isNumber(vb.Kind()) {
		return numbersEqual(va, vb)
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func numbersEqual(a, b reflect.Value) bool {
	ka, kb := a.Kind(), b.Kind()
	switch {
	case isFloat(ka) || isFloat(kb):
		return toFloat(a) == toFloat(b)
	case isSigned(ka) && isSigned(kb):
		return a.Int() == b.Int()
	case !isSigned(ka) && !isSigned(kb):
		return a.Uint() == b.Uint()
	case isSigned(ka):
		return a.Int() >= 0 && uint64(a.Int()) == b.Uint()
	default:
		return b.Int() >= 0 && uint64(b.Int()) == a.Uint()
	}
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isFloat(v.Kind()):
		return v.Float()
	case isSigned(v.Kind()):
		return float64(v.Int())
	default:
		return float64(v.Uint())
	}
}
