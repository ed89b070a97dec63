package encode

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Named colors of the default scale.
var (
	Red       = mustHex("#ff0000")
	LightGray = mustHex("#d3d3d3")
	Green     = mustHex("#008000")
	Black     = mustHex("#000000")
	White     = mustHex("#ffffff")
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Stop is one control point of a ColorScale.
type Stop struct {
	Value float64
	Color colorful.Color
}

// ColorScale maps a percentage change to a color by linear RGB
// interpolation between sorted stops. Values outside the first and last stop
// clamp to the endpoint colors.
type ColorScale struct {
	Stops []Stop
	// Neutral is used for NaN and infinite values.
	Neutral colorful.Color
}

// DefaultScale maps -5% to red, 0% to light gray and +5% to green.
func DefaultScale() ColorScale {
	return ColorScale{
		Stops: []Stop{
			{Value: -5, Color: Red},
			{Value: 0, Color: LightGray},
			{Value: 5, Color: Green},
		},
		Neutral: LightGray,
	}
}

// Domain returns the values of the first and last stop.
func (s ColorScale) Domain() (lo, hi float64) {
	if len(s.Stops) == 0 {
		return 0, 0
	}
	return s.Stops[0].Value, s.Stops[len(s.Stops)-1].Value
}

// At returns the color for v.
func (s ColorScale) At(v float64) colorful.Color {
	if math.IsNaN(v) || math.IsInf(v, 0) || len(s.Stops) == 0 {
		return s.Neutral
	}
	first, last := s.Stops[0], s.Stops[len(s.Stops)-1]
	if v <= first.Value {
		return first.Color
	}
	if v >= last.Value {
		return last.Color
	}
	for i := 1; i < len(s.Stops); i++ {
		a, b := s.Stops[i-1], s.Stops[i]
		if v > b.Value {
			continue
		}
		span := b.Value - a.Value
		if span <= 0 {
			return b.Color
		}
		return a.Color.BlendRgb(b.Color, (v-a.Value)/span).Clamped()
	}
	return last.Color
}

// Hex returns the color for v as "#rrggbb".
func (s ColorScale) Hex(v float64) string {
	return s.At(v).Hex()
}
