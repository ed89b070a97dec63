// Package viewport holds the pan/zoom transform applied on top of a layout.
//
// A [Transform] maps layout coordinates to screen coordinates:
//
//	screen = layout * K + (X, Y)
//
// The transform is owned by the presentation layer and survives every
// recompute: a new selection or a resize produces a new layout, but the
// transform is re-applied unchanged. Layouts never store it.
package viewport

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/marketmap/pkg/errors"
)

// Default zoom limits.
const (
	MinScale = 0.5
	MaxScale = 10
)

// Transform is a uniform scale followed by a translation.
type Transform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the transform that leaves coordinates unchanged.
var Identity = Transform{K: 1}

// IsIdentity reports whether t is the identity.
func (t Transform) IsIdentity() bool { return t == Identity }

// Apply maps a layout point to screen space.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen point back to layout space.
func (t Transform) Invert(x, y float64) (float64, float64) {
	return (x - t.X) / t.K, (y - t.Y) / t.K
}

// Translate pans by (dx, dy) in layout units.
func (t Transform) Translate(dx, dy float64) Transform {
	return Transform{K: t.K, X: t.X + t.K*dx, Y: t.Y + t.K*dy}
}

// ScaleAt multiplies the scale by factor while keeping the screen point
// (px, py) fixed. The resulting scale is clamped to [MinScale, MaxScale].
func (t Transform) ScaleAt(factor, px, py float64) Transform {
	k := clampScale(t.K * factor)
	lx, ly := t.Invert(px, py)
	return Transform{K: k, X: px - lx*k, Y: py - ly*k}
}

// Constrain clamps the scale into [MinScale, MaxScale] and replaces
// non-finite components with the identity's.
func (t Transform) Constrain() Transform {
	if !finite(t.K) || t.K <= 0 {
		t.K = 1
	}
	if !finite(t.X) {
		t.X = 0
	}
	if !finite(t.Y) {
		t.Y = 0
	}
	t.K = clampScale(t.K)
	return t
}

// SVG formats t as an SVG transform attribute. The identity formats as "".
func (t Transform) SVG() string {
	if t.IsIdentity() {
		return ""
	}
	return fmt.Sprintf("translate(%s,%s) scale(%s)", num(t.X), num(t.Y), num(t.K))
}

// String formats t as "k,x,y", the form accepted by Parse.
func (t Transform) String() string {
	return num(t.K) + "," + num(t.X) + "," + num(t.Y)
}

// Parse reads a "k,x,y" transform. An empty string is the identity.
func Parse(s string) (Transform, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Transform{}, errors.New(errors.ErrCodeInvalidInput, "invalid viewport %q: want k,x,y", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || !finite(f) {
			return Transform{}, errors.New(errors.ErrCodeInvalidInput, "invalid viewport %q: component %d is not a number", s, i+1)
		}
		v[i] = f
	}
	if v[0] <= 0 {
		return Transform{}, errors.New(errors.ErrCodeInvalidInput, "invalid viewport %q: scale must be positive", s)
	}
	return Transform{K: v[0], X: v[1], Y: v[2]}.Constrain(), nil
}

func clampScale(k float64) float64 {
	return math.Min(math.Max(k, MinScale), MaxScale)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
