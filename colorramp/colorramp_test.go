package colorramp

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetWhitePointNeutral(t *testing.T) {
	white, ok := GetWhitePoint(Neutral)
	if !ok {
		t.Errorf("neutral temperature reported out of range")
	}
	if white != (WhitePoint{1, 1, 1}) {
		t.Errorf("white point at %d K = %v, want exactly (1, 1, 1)", Neutral, white)
	}
}

func TestGetWhitePointRange(t *testing.T) {
	for temperature := Min; temperature <= Max; temperature += 50 {
		white, ok := GetWhitePoint(temperature)
		if !ok {
			t.Errorf("%d K reported out of range", temperature)
		}
		for c, gain := range white {
			if math.IsNaN(gain) || math.IsInf(gain, 0) {
				t.Fatalf("%d K channel %d: gain %v is not finite", temperature, c, gain)
			}
			if gain <= 0 || gain > 1 {
				t.Errorf("%d K channel %d: gain %v outside (0, 1]", temperature, c, gain)
			}
		}
	}
}

func TestGetWhitePointClamp(t *testing.T) {
	for _, tc := range []struct {
		temperature Temperature
		clamped     Temperature
	}{
		{500, Min},
		{Min - 1, Min},
		{Max + 1, Max},
		{100000, Max},
	} {
		white, ok := GetWhitePoint(tc.temperature)
		if ok {
			t.Errorf("%d K not reported out of range", tc.temperature)
		}
		expected, _ := GetWhitePoint(tc.clamped)
		if white != expected {
			t.Errorf("%d K = %v, want clamped value %v (%d K)", tc.temperature, white, expected, tc.clamped)
		}
	}
}

func TestGetWhitePointContinuity(t *testing.T) {
	// no jump on either side of the neutral anchor
	below, _ := GetWhitePoint(Neutral - 1)
	above, _ := GetWhitePoint(Neutral + 1)
	for c := range below {
		if diff := math.Abs(above[c] - below[c]); diff > 0.01 {
			t.Errorf("channel %d: |%v - %v| = %v across the %d K anchor", c, above[c], below[c], diff, Neutral)
		}
	}
}

func TestGetWhitePointWarmth(t *testing.T) {
	// warmer means less blue, never more
	previous, _ := GetWhitePoint(Min)
	for temperature := Min + 100; temperature <= Neutral; temperature += 100 {
		white, _ := GetWhitePoint(temperature)
		if white[2] < previous[2] {
			t.Errorf("blue gain decreased from %v to %v between %d K and %d K", previous[2], white[2], temperature-100, temperature)
		}
		previous = white
	}

	warm, _ := GetWhitePoint(Min)
	if warm[0] < 0.9 {
		t.Errorf("red gain at %d K = %v, want near 1", Min, warm[0])
	}
	if warm[2] >= 0.5 {
		t.Errorf("blue gain at %d K = %v, want substantially below 1", Min, warm[2])
	}

	// cooler than neutral reduces red
	cool, _ := GetWhitePoint(10000)
	if cool[0] >= 1 {
		t.Errorf("red gain at 10000 K = %v, want below 1", cool[0])
	}
}

func TestScale(t *testing.T) {
	white := WhitePoint{1, 0.8, 0.5}.Scale(0.5)
	if expected := (WhitePoint{0.5, 0.4, 0.25}); white != expected {
		t.Errorf("scaled white point = %v, want %v", white, expected)
	}
	for c, gain := range (WhitePoint{1, 1, 1}).Scale(0) {
		if gain <= 0 {
			t.Errorf("channel %d: gain %v not strictly positive after scaling to zero", c, gain)
		}
	}
}

func TestIdentity(t *testing.T) {
	for _, size := range []int{2, 16, 256, 1024} {
		ramp := Identity(size)
		if diff := cmp.Diff(NewRamp(size, WhitePoint{1, 1, 1}), ramp); diff != "" {
			t.Errorf("size %d: identity differs from neutral ramp:\n%s", size, diff)
		}
		for _, channel := range [][]uint16{ramp.Red, ramp.Green, ramp.Blue} {
			if channel[0] != 0 || channel[size-1] != math.MaxUint16 {
				t.Errorf("size %d: identity endpoints %d..%d, want 0..%d", size, channel[0], channel[size-1], math.MaxUint16)
			}
		}
		for i := range size {
			expected := uint16(math.Round(float64(i) / float64(size-1) * math.MaxUint16))
			if ramp.Red[i] != expected {
				t.Fatalf("size %d: identity[%d] = %d, want %d", size, i, ramp.Red[i], expected)
			}
		}
	}
}

func TestNewRampMonotonic(t *testing.T) {
	whites := []WhitePoint{
		{1, 1, 1},
		{minGain, minGain, minGain},
		{1, 0.69, 0.42},
	}
	for _, temperature := range []Temperature{Min, 2500, 4500, Neutral, 10000, Max} {
		white, _ := GetWhitePoint(temperature)
		whites = append(whites, white)
	}
	for _, white := range whites {
		for _, size := range []int{2, 16, 256, 1024} {
			ramp := NewRamp(size, white)
			for c, channel := range [][]uint16{ramp.Red, ramp.Green, ramp.Blue} {
				for i := 1; i < size; i++ {
					if channel[i] < channel[i-1] {
						t.Fatalf("white %v size %d channel %d: ramp decreases at %d (%d < %d)",
							white, size, c, i, channel[i], channel[i-1])
					}
				}
				limit := float64(math.MaxUint16)
				if got, max := float64(channel[size-1]), math.Round(limit*white[c]); got > max {
					t.Errorf("white %v size %d channel %d: top level %v exceeds %v", white, size, c, got, max)
				}
			}
		}
	}
}

func TestFillWidths(t *testing.T) {
	r, g, b := make([]uint8, 256), make([]uint8, 256), make([]uint8, 256)
	Fill(r, g, b, WhitePoint{1, 0.5, 1})
	if r[255] != 255 {
		t.Errorf("uint8 identity top level = %d, want 255", r[255])
	}
	if g[255] != 128 {
		t.Errorf("uint8 half-gain top level = %d, want 128", g[255])
	}

	r16, g16, b16 := []uint16{0}, []uint16{0}, []uint16{0}
	Fill(r16, g16, b16, WhitePoint{1, 1, 0.5})
	if r16[0] != math.MaxUint16 {
		t.Errorf("single-level identity = %d, want %d", r16[0], math.MaxUint16)
	}
	if b16[0] != 32768 {
		t.Errorf("single-level half gain = %d, want 32768", b16[0])
	}
}
