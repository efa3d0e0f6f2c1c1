package canonical

import "math"

// Protocol numeric bounds.
const (
	// TestVendorID is the Matter test vendor used when no valid vendor is configured.
	TestVendorID uint16 = 0xFFF1

	// MinLevel and MaxLevel bound the LevelControl currentLevel attribute.
	MinLevel uint8 = 1
	MaxLevel uint8 = 254

	// maxBrightness is the top of Home Assistant's brightness scale.
	maxBrightness = 255

	// MaxHumidity is 100.00 % expressed in hundredths.
	MaxHumidity uint16 = 10000

	// MinTemperature is absolute zero in hundredths of a degree Celsius.
	MinTemperature int16 = -27315
	MaxTemperature int16 = math.MaxInt16
)

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFloat limits v to [lo, hi]. NaN yields fallback.
func ClampFloat(v, lo, hi, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return math.Max(lo, math.Min(hi, v))
}

// VendorID converts a configured vendor number to a Matter vendor ID.
// Zero, negative and out of range values fall back to TestVendorID.
func VendorID(raw int) uint16 {
	if raw <= 0 || raw >= math.MaxUint16 {
		return TestVendorID
	}
	return uint16(raw)
}

// Uint32 converts a configured version number to a uint32, clamping
// negative values to zero.
func Uint32(raw int64) uint32 {
	return uint32(ClampInt(raw, 0, math.MaxUint32))
}

// Level maps Home Assistant brightness (0..255) onto LevelControl
// currentLevel (1..254).
func Level(brightness float64) uint8 {
	scaled := math.Round(ClampFloat(brightness, 0, maxBrightness, 0) * float64(MaxLevel) / maxBrightness)
	return uint8(ClampInt(int64(scaled), int64(MinLevel), int64(MaxLevel)))
}

// Temperature converts a reading to hundredths of a degree Celsius.
// Fahrenheit readings ("°F" or "F") are converted first.
//
// Returns:
//   - int16: measuredValue, clamped to the protocol range
//   - bool: false when the reading is not a finite number
func Temperature(value float64, unit string) (int16, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	if unit == "°F" || unit == "F" {
		value = (value - 32) * 5 / 9
	}
	hundredths := math.Round(value * 100)
	return int16(ClampFloat(hundredths, float64(MinTemperature), float64(MaxTemperature), 0)), true
}

// Humidity converts a relative humidity percentage to hundredths.
//
// Returns:
//   - uint16: measuredValue in 0..10000
//   - bool: false when the reading is not a finite number
func Humidity(percent float64) (uint16, bool) {
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return 0, false
	}
	return uint16(ClampFloat(math.Round(percent*100), 0, float64(MaxHumidity), 0)), true
}
