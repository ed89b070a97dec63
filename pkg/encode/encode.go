// Package encode maps laid-out tiles to drawable cells.
//
// Each leaf gets a fill color from its percentage change and up to two
// labels: the ticker and the formatted change. Sector and root tiles get a
// fixed dark fill and the sector name. Encoding is a pure function of the
// tile; it performs no I/O.
//
//	scene := encode.New(encode.DefaultOptions()).Scene(layout)
//	for _, c := range scene.Leaves {
//	    fmt.Println(c.ID, c.Fill, c.Primary.Text, c.Secondary.Text)
//	}
//
// # Label Fitting
//
// Leaf labels are sized min(width, height)/5 for the ticker and 0.8 times
// that for the change. A label wider than the cell minus an 8px margin is
// blanked rather than truncated.
package encode

import (
	"math"

	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/hierarchy"
	"github.com/matzehuels/marketmap/pkg/treemap"
)

// Defaults of the header and sector label styling.
const (
	DefaultTitle      = "S&P 500 Stock Screener"
	DefaultFontSize   = 16.0
	SectorLabelX      = 4.0
	SectorLabelY      = 14.0
	HeaderTitleX      = 5.0
	HeaderTitleY      = 17.0
	DefaultLegendSize = 5
)

// Options configures an Encoder.
type Options struct {
	Scale      ColorScale
	Title      string
	SectorFill string
	TextFill   string
	Stroke     string
	// LegendStops is the number of swatches in the header legend. Zero
	// disables the legend.
	LegendStops int
}

// DefaultOptions returns the standard styling: black sectors, white text and
// strokes, the default color scale and a five-swatch legend.
func DefaultOptions() Options {
	return Options{
		Scale:       DefaultScale(),
		Title:       DefaultTitle,
		SectorFill:  Black.Hex(),
		TextFill:    White.Hex(),
		Stroke:      White.Hex(),
		LegendStops: DefaultLegendSize,
	}
}

// Cell is one drawable rectangle with its labels.
type Cell struct {
	ID        string       `json:"id"`
	Kind      string       `json:"kind"`
	Sector    string       `json:"sector,omitempty"`
	Rect      treemap.Rect `json:"rect"`
	Fill      string       `json:"fill"`
	Stroke    string       `json:"stroke"`
	TextFill  string       `json:"text_fill"`
	Weight    float64      `json:"weight"`
	PctChange float64      `json:"pct_change"`
	Primary   Label        `json:"primary"`
	Secondary Label        `json:"secondary"`
}

// LegendItem is one swatch of the header legend.
type LegendItem struct {
	Value float64 `json:"value"`
	Fill  string  `json:"fill"`
	Label string  `json:"label"`
}

// Header is the synthetic cell spanning the top band.
type Header struct {
	Rect   treemap.Rect `json:"rect"`
	Fill   string       `json:"fill"`
	Title  Label        `json:"title"`
	Legend []LegendItem `json:"legend,omitempty"`
}

// Scene is the encoded output of one layout, in drawing order.
type Scene struct {
	Bounds  treemap.Bounds          `json:"bounds"`
	Header  Header                  `json:"header"`
	Sectors []Cell                  `json:"sectors"`
	Leaves  []Cell                  `json:"leaves"`
	Skipped []*errors.EncodingError `json:"-"`
}

// Encoder encodes tiles with fixed options. It is safe for concurrent use.
type Encoder struct {
	opts Options
}

// New creates an Encoder. Empty style fields fall back to DefaultOptions.
func New(opts Options) *Encoder {
	def := DefaultOptions()
	if len(opts.Scale.Stops) == 0 {
		opts.Scale = def.Scale
	}
	if opts.SectorFill == "" {
		opts.SectorFill = def.SectorFill
	}
	if opts.TextFill == "" {
		opts.TextFill = def.TextFill
	}
	if opts.Stroke == "" {
		opts.Stroke = def.Stroke
	}
	if opts.LegendStops < 0 {
		opts.LegendStops = 0
	}
	return &Encoder{opts: opts}
}

// Options returns the encoder's effective options.
func (e *Encoder) Options() Options { return e.opts }

// Encode maps a tile to a cell. It fails with an *errors.EncodingError when
// the tile's rectangle or weight is not finite. A non-finite change is not
// an error: it yields the neutral color and an empty secondary label.
func (e *Encoder) Encode(t *treemap.Tile) (Cell, error) {
	c, err := e.encode(t)
	if err != nil {
		return Cell{}, err
	}
	return c, nil
}

func (e *Encoder) encode(t *treemap.Tile) (Cell, *errors.EncodingError) {
	n := t.Node
	if err := checkFinite(n, t.Rect); err != nil {
		return Cell{}, err
	}

	c := Cell{
		ID:        n.Name,
		Kind:      n.Kind.String(),
		Sector:    n.Sector,
		Rect:      t.Rect,
		Stroke:    e.opts.Stroke,
		TextFill:  e.opts.TextFill,
		Weight:    n.Weight,
		PctChange: n.PctChange,
	}
	w, h := t.Rect.Width(), t.Rect.Height()

	if !n.IsLeaf() {
		c.Fill = e.opts.SectorFill
		if n.Kind == hierarchy.KindSector {
			c.Primary = fit(n.Name, DefaultFontSize, 0, w)
		}
		return c, nil
	}

	c.Fill = e.opts.Scale.Hex(n.PctChange)
	size := LeafFontSize(w, h)
	c.Primary = fit(n.Name, size, -size/3, w)
	c.Secondary = fit(FormatChange(n.PctChange), size*SecondaryRatio, size/2, w)
	return c, nil
}

func checkFinite(n *hierarchy.Node, r treemap.Rect) *errors.EncodingError {
	if !finite(n.Weight) {
		return &errors.EncodingError{ID: n.Name, Reason: "weight is not finite"}
	}
	for _, v := range [...]float64{r.X0, r.Y0, r.X1, r.Y1} {
		if !finite(v) {
			return &errors.EncodingError{ID: n.Name, Reason: "rectangle is not finite"}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Scene encodes a full layout. Invisible tiles are omitted; leaves that fail
// to encode are skipped and reported in Scene.Skipped so one bad cell never
// aborts the frame.
func (e *Encoder) Scene(res *treemap.Result) Scene {
	s := Scene{
		Bounds: res.Bounds,
		Header: e.Header(res.Header),
	}
	for _, sec := range res.Sectors() {
		if !sec.Visible() {
			continue
		}
		c, err := e.encode(sec)
		if err != nil {
			s.Skipped = append(s.Skipped, err)
			continue
		}
		s.Sectors = append(s.Sectors, c)
		for _, leaf := range sec.Children {
			if !leaf.Visible() {
				continue
			}
			c, err := e.encode(leaf)
			if err != nil {
				s.Skipped = append(s.Skipped, err)
				continue
			}
			s.Leaves = append(s.Leaves, c)
		}
	}
	return s
}

// Header encodes the title band with its legend.
func (e *Encoder) Header(r treemap.Rect) Header {
	return Header{
		Rect:   r,
		Fill:   e.opts.SectorFill,
		Title:  Label{Text: e.opts.Title, Size: DefaultFontSize},
		Legend: e.Legend(),
	}
}

// Legend returns evenly spaced swatches across the scale domain.
func (e *Encoder) Legend() []LegendItem {
	n := e.opts.LegendStops
	if n == 0 {
		return nil
	}
	lo, hi := e.opts.Scale.Domain()
	items := make([]LegendItem, n)
	for i := range items {
		v := lo
		if n > 1 {
			v = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		items[i] = LegendItem{Value: v, Fill: e.opts.Scale.Hex(v), Label: FormatChange(v)}
	}
	return items
}
