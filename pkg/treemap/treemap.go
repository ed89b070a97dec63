// Package treemap computes the squarified treemap layout of a market
// hierarchy.
//
// [Layout] takes a hierarchy root and canvas [Bounds] and returns a [Result]:
// a tree of [Tile] values mirroring the hierarchy, each carrying its screen
// rectangle, plus the header band reserved for the title and legend.
//
//	res, err := treemap.Layout(root, treemap.Bounds{Width: 1200, Height: 800}, treemap.DefaultOptions())
//	for _, t := range res.Leaves() {
//	    fmt.Println(t.Node.Name, t.Rect)
//	}
//
// # Geometry
//
// The canvas is split into a header band of Options.HeaderHeight across the
// full width and the tiling region beneath it. Sectors are tiled into the
// tiling region; leaves are tiled into each sector below a label band of
// Options.PaddingTop. Siblings are separated by Options.PaddingInner.
//
// Every child rectangle lies inside its parent's rectangle and siblings never
// overlap. Nodes with zero weight get a zero-area rectangle; consumers skip
// them with [Tile.Visible].
//
// # Determinism
//
// Layout is a pure function of its inputs. Siblings are ordered by weight
// descending with ties kept in hierarchy order, so identical trees and bounds
// produce bit-identical rectangles.
package treemap

import (
	"fmt"
	"math"

	"github.com/matzehuels/marketmap/pkg/hierarchy"
)

// Phi is the golden ratio, the default target aspect ratio of squarified rows.
var Phi = (1 + math.Sqrt(5)) / 2

// Bounds is the size of the drawing canvas in pixels.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle with X1 >= X0 and Y1 >= Y0.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns X1 - X0.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns Y1 - Y0.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Area returns Width * Height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return !(r.X1 > r.X0 && r.Y1 > r.Y0) }

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	return o.X0 >= r.X0 && o.Y0 >= r.Y0 && o.X1 <= r.X1 && o.Y1 <= r.Y1
}

// Overlaps reports whether r and o share interior area. Touching edges do
// not count.
func (r Rect) Overlaps(o Rect) bool {
	return r.X0 < o.X1 && o.X0 < r.X1 && r.Y0 < o.Y1 && o.Y0 < r.Y1
}

// Center returns the midpoint of r.
func (r Rect) Center() (x, y float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

func (r Rect) String() string {
	return fmt.Sprintf("[%g,%g %gx%g]", r.X0, r.Y0, r.Width(), r.Height())
}

// clamp returns r moved inside p, shrinking it where it does not fit.
func (r Rect) clamp(p Rect) Rect {
	c := func(v, lo, hi float64) float64 { return math.Min(math.Max(v, lo), hi) }
	return Rect{
		X0: c(r.X0, p.X0, p.X1),
		Y0: c(r.Y0, p.Y0, p.Y1),
		X1: c(r.X1, p.X0, p.X1),
		Y1: c(r.Y1, p.Y0, p.Y1),
	}
}

// Options configures the layout engine.
type Options struct {
	// PaddingInner is the gap in pixels between sibling cells.
	PaddingInner float64 `json:"padding_inner" toml:"padding_inner"`

	// PaddingTop is reserved atop each sector for its label band.
	PaddingTop float64 `json:"padding_top" toml:"padding_top"`

	// HeaderHeight is the band reserved across the top of the canvas for
	// the title and legend.
	HeaderHeight float64 `json:"header_height" toml:"header_height"`

	// Ratio is the target aspect ratio of squarified rows. Zero means Phi.
	Ratio float64 `json:"ratio,omitempty" toml:"ratio"`
}

// Layout defaults.
const (
	DefaultPaddingInner = 1
	DefaultPaddingTop   = 20
	DefaultHeaderHeight = 40
)

// DefaultOptions returns PaddingInner 1, PaddingTop 20 and HeaderHeight 40.
func DefaultOptions() Options {
	return Options{
		PaddingInner: DefaultPaddingInner,
		PaddingTop:   DefaultPaddingTop,
		HeaderHeight: DefaultHeaderHeight,
	}
}

// Tile is a hierarchy node placed on the canvas.
type Tile struct {
	Node     *hierarchy.Node `json:"-"`
	Rect     Rect            `json:"rect"`
	Children []*Tile         `json:"children,omitempty"`
}

// Visible reports whether the tile should be drawn: it has positive weight
// and non-zero area.
func (t *Tile) Visible() bool {
	return t.Node.Weight > 0 && !t.Rect.Empty()
}

// Walk visits t and its descendants depth-first, parents first. Returning
// false from fn skips the tile's children.
func (t *Tile) Walk(fn func(*Tile) bool) {
	if !fn(t) {
		return
	}
	for _, c := range t.Children {
		c.Walk(fn)
	}
}

// Result is the output of [Layout].
type Result struct {
	Bounds Bounds `json:"bounds"`
	// Header is the band carved out of the top of the canvas.
	Header Rect `json:"header"`
	// Root covers the tiling region below the header.
	Root *Tile `json:"root"`
}

// Walk visits every tile in depth-first order.
func (r *Result) Walk(fn func(*Tile) bool) {
	if r.Root != nil {
		r.Root.Walk(fn)
	}
}

// Sectors returns the sector tiles in layout order.
func (r *Result) Sectors() []*Tile {
	if r.Root == nil {
		return nil
	}
	return r.Root.Children
}

// Leaves returns the leaf tiles in layout order.
func (r *Result) Leaves() []*Tile {
	var out []*Tile
	r.Walk(func(t *Tile) bool {
		if t.Node.IsLeaf() {
			out = append(out, t)
		}
		return true
	})
	return out
}
