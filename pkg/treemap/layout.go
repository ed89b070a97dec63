package treemap

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/hierarchy"
)

// Layout places root and all its descendants within bounds.
//
// It returns an *errors.LayoutError when either dimension is not a positive
// finite number. A canvas shorter than the header band is valid: the tiling
// region is then empty and every tile is degenerate.
func Layout(root *hierarchy.Node, bounds Bounds, opts Options) (*Result, error) {
	if !positive(bounds.Width) || !positive(bounds.Height) {
		return nil, &errors.LayoutError{Width: bounds.Width, Height: bounds.Height}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layout: nil hierarchy")
	}
	if opts.Ratio == 0 {
		opts.Ratio = Phi
	}

	header := math.Min(opts.HeaderHeight, bounds.Height)
	res := &Result{
		Bounds: bounds,
		Header: Rect{X0: 0, Y0: 0, X1: bounds.Width, Y1: header},
	}

	e := engine{opts: opts}
	res.Root = &Tile{Node: root, Rect: Rect{X0: 0, Y0: header, X1: bounds.Width, Y1: bounds.Height}}
	e.position(res.Root)
	return res, nil
}

// Validate checks that all paddings are finite and non-negative and that
// Ratio is either zero or at least 1.
func (o Options) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"padding_inner", o.PaddingInner},
		{"padding_top", o.PaddingTop},
		{"header_height", o.HeaderHeight},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return errors.New(errors.ErrCodeInvalidLayout, "layout option %s must be a non-negative number, got %g", f.name, f.v)
		}
	}
	if o.Ratio != 0 && !(o.Ratio >= 1) {
		return errors.New(errors.ErrCodeInvalidLayout, "layout option ratio must be >= 1, got %g", o.Ratio)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

type engine struct {
	opts Options
}

// position tiles the children of t into its content box. Each child is
// inset by half the inner padding and clamped into t.Rect before recursing.
func (e *engine) position(t *Tile) {
	r := t.Rect
	n := t.Node
	if len(n.Children) == 0 {
		return
	}

	half := e.opts.PaddingInner / 2
	top := 0.0
	if n.Kind == hierarchy.KindSector {
		top = e.opts.PaddingTop
	}
	content := normalize(Rect{
		X0: r.X0 - half,
		Y0: r.Y0 + top - half,
		X1: r.X1 + half,
		Y1: r.Y1 + half,
	})

	children := sortedByWeight(n.Children)
	t.Children = make([]*Tile, len(children))
	weights := make([]float64, len(children))
	for i, c := range children {
		t.Children[i] = &Tile{Node: c}
		weights[i] = math.Max(c.Weight, 0)
	}

	rects := squarify(weights, content, e.opts.Ratio)
	for i, c := range t.Children {
		c.Rect = inset(rects[i], half).clamp(r)
		e.position(c)
	}
}

// inset shrinks r by p on every side, collapsing inverted axes to their
// midpoint.
func inset(r Rect, p float64) Rect {
	return normalize(Rect{X0: r.X0 + p, Y0: r.Y0 + p, X1: r.X1 - p, Y1: r.Y1 - p})
}

func normalize(r Rect) Rect {
	if r.X1 < r.X0 {
		m := (r.X0 + r.X1) / 2
		r.X0, r.X1 = m, m
	}
	if r.Y1 < r.Y0 {
		m := (r.Y0 + r.Y1) / 2
		r.Y0, r.Y1 = m, m
	}
	return r
}

// sortedByWeight orders siblings by weight descending, keeping hierarchy
// order for ties. The input slice is not modified.
func sortedByWeight(nodes []*hierarchy.Node) []*hierarchy.Node {
	out := slices.Clone(nodes)
	slices.SortStableFunc(out, func(a, b *hierarchy.Node) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	return out
}
