package canonical

import (
	"math"
	"testing"
)

func TestVendorIDFrom(t *testing.T) {
	tests := []struct {
		raw  int
		want uint16
	}{
		{0, TestVendorID},
		{-5, TestVendorID},
		{0xFFFF, TestVendorID},
		{1 << 20, TestVendorID},
		{0x1234, 0x1234},
		{1, 1},
	}
	for _, tt := range tests {
		if got := VendorID(tt.raw); got != tt.want {
			t.Errorf("VendorID(%d) = %#x, want %#x", tt.raw, got, tt.want)
		}
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		brightness float64
		want       uint8
	}{
		{0, 1},
		{1, 1},
		{128, 127},
		{255, 254},
		{300, 254},
		{-10, 1},
		{math.NaN(), 1},
	}
	for _, tt := range tests {
		if got := Level(tt.brightness); got != tt.want {
			t.Errorf("Level(%v) = %d, want %d", tt.brightness, got, tt.want)
		}
	}
}

func TestTemperature(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		unit   string
		want   int16
		wantOK bool
	}{
		{"celsius", 21.5, "°C", 2150, true},
		{"fahrenheit", 212, "°F", 10000, true},
		{"fahrenheit freezing", 32, "F", 0, true},
		{"negative", -12.34, "°C", -1234, true},
		{"below absolute zero", -400, "°C", MinTemperature, true},
		{"too hot", 1000, "°C", MaxTemperature, true},
		{"nan", math.NaN(), "°C", 0, false},
		{"inf", math.Inf(1), "°C", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Temperature(tt.value, tt.unit)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Temperature(%v, %q) = (%d, %v), want (%d, %v)",
					tt.value, tt.unit, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHumidity(t *testing.T) {
	tests := []struct {
		percent float64
		want    uint16
		ok      bool
	}{
		{45.5, 4550, true},
		{0, 0, true},
		{100, 10000, true},
		{120, 10000, true},
		{-3, 0, true},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		got, ok := Humidity(tt.percent)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Humidity(%v) = (%d, %v), want (%d, %v)", tt.percent, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := ClampInt(5, 1, 3); got != 3 {
		t.Errorf("ClampInt high = %d", got)
	}
	if got := ClampInt(-5, 1, 3); got != 1 {
		t.Errorf("ClampInt low = %d", got)
	}
	if got := ClampFloat(math.NaN(), 0, 1, 0.5); got != 0.5 {
		t.Errorf("ClampFloat NaN = %v", got)
	}
	if got := Uint32(-1); got != 0 {
		t.Errorf("Uint32(-1) = %d", got)
	}
	if got := Uint32(math.MaxInt64); got != math.MaxUint32 {
		t.Errorf("Uint32(max) = %d", got)
	}
}
