// Package colorramp computes white points for color temperatures and builds
// the per-channel gamma ramps which apply them to a display.
package colorramp

import "math"

// Temperature is a color temperature in kelvins.
type Temperature int

const (
	// Min and Max bound the supported temperature range.
	Min Temperature = 1000
	Max Temperature = 25000

	// Neutral is the temperature at which the white point is exactly
	// (1, 1, 1), leaving the display unchanged.
	Neutral Temperature = 6500
)

// WhitePoint contains the red, green, and blue gain for a color temperature.
// A component value of 1 is neutral. All components are in (0, 1].
type WhitePoint [3]float64

// minGain is the floor for each component of a white point. The blackbody fit
// reaches zero for blue below ~1900 K; keeping the gain strictly positive
// keeps every generated ramp usable.
const minGain = 1.0 / 256

// GetWhitePoint computes the white point for a color temperature using Tanner
// Helland's blackbody curve fit, with each channel normalized against its
// value at [Neutral] so 6500 K is exactly neutral. Components exceeding the
// anchor value (blue and green slightly above 6500 K) are clamped to 1 rather
// than renormalized, keeping the mapping deterministic.
//
// Temperatures outside [Min, Max] are clamped, and ok is false.
func GetWhitePoint(t Temperature) (white WhitePoint, ok bool) {
	ok = true
	if t < Min {
		t, ok = Min, false
	}
	if t > Max {
		t, ok = Max, false
	}
	w := blackbody(float64(t))
	n := blackbody(float64(Neutral))
	for c := range w {
		white[c] = min(max(w[c]/n[c], minGain), 1)
	}
	return white, ok
}

// Scale multiplies all components by the provided brightness, keeping each
// one strictly positive.
func (w WhitePoint) Scale(brightness float64) WhitePoint {
	for c := range w {
		w[c] = min(max(w[c]*brightness, minGain), 1)
	}
	return w
}

// blackbody is Tanner Helland's piecewise curve fit for the RGB appearance of
// a blackbody radiator at kelvins k, with each channel in [0, 1]. The fit is
// continuous around 6500 K (its knee is at 6600 K).
func blackbody(k float64) [3]float64 {
	var r, g, b float64
	t := k / 100
	if t <= 66 {
		r = 1
	} else {
		r = 329.698727446 * math.Pow(t-60, -0.1332047592) / 255
	}
	if t <= 66 {
		g = (99.4708025861*math.Log(t) - 161.1195681661) / 255
	} else {
		g = 288.1221695283 * math.Pow(t-60, -0.0755148492) / 255
	}
	switch {
	case t >= 66:
		b = 1
	case t <= 19:
		b = 0
	default:
		b = (138.5177312231*math.Log(t-10) - 305.0447927307) / 255
	}
	return [3]float64{r, g, b}
}

// Fill fills the per-channel gamma ramps for the white point, scaling a
// linear identity ramp by each component's gain. Levels are rounded to the
// nearest representable value and clamped to the channel maximum, so each
// ramp is monotonically non-decreasing for any valid white point.
func Fill[C ~uint8 | ~uint16 | ~uint32 | ~uint64](r, g, b []C, white WhitePoint) {
	fillChannel(r, white[0])
	fillChannel(g, white[1])
	fillChannel(b, white[2])
}

func fillChannel[C ~uint8 | ~uint16 | ~uint32 | ~uint64](s []C, gain float64) {
	limit := float64(^C(0))
	if len(s) == 1 {
		s[0] = C(math.Round(limit * gain))
		return
	}
	for i := range s {
		s[i] = C(min(math.Round(float64(i)/float64(len(s)-1)*limit*gain), limit))
	}
}

// Ramp is a set of 16-bit gamma ramps of equal length, one per channel.
type Ramp struct {
	Red, Green, Blue []uint16
}

// NewRamp builds a ramp of the provided size for the white point.
func NewRamp(size int, white WhitePoint) Ramp {
	ramp := Ramp{
		Red:   make([]uint16, size),
		Green: make([]uint16, size),
		Blue:  make([]uint16, size),
	}
	Fill(ramp.Red, ramp.Green, ramp.Blue, white)
	return ramp
}

// Identity builds the neutral ramp of the provided size, where every output
// level equals its input level. It is bit-for-bit identical to
// NewRamp(size, WhitePoint{1, 1, 1}).
func Identity(size int) Ramp {
	return NewRamp(size, WhitePoint{1, 1, 1})
}
