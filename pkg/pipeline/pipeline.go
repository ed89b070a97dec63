// Package pipeline runs the heatmap data-to-layout pipeline.
//
// The pipeline has four stages:
//
//  1. Build: join constituents with the selected change row, group by
//     sector, rank, cap and wrap into a hierarchy
//  2. Layout: squarified treemap of the hierarchy within the canvas bounds
//  3. Encode: colors and fitted labels for every visible tile
//  4. Render: SVG, PNG or JSON artifacts
//
// A selection change (date or maturity) re-runs all four stages. A resize
// re-runs layout onward and reuses the hierarchy.
//
// # Usage
//
// One-shot rendering with a [Runner]:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Execute(ctx, source, pipeline.Options{
//	    Date:     "2024-01-02",
//	    Maturity: dataset.Daily,
//	    Formats:  []string{"svg"},
//	})
//	svg := res.Artifacts["svg"]
//
// Interactive use with a [Session], which applies last-write-wins to
// overlapping requests and keeps the viewport across recomputes:
//
//	s := pipeline.NewSession(runner, source, opts)
//	s.Select(ctx, dataset.Selection{Date: "2024-01-02", Maturity: dataset.Daily})
//	s.Resize(ctx, 1440, 900)
//	frame := s.Frame()
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/marketmap/pkg/aggregate"
	"github.com/matzehuels/marketmap/pkg/cache"
	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/encode"
	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/hierarchy"
	"github.com/matzehuels/marketmap/pkg/render"
	"github.com/matzehuels/marketmap/pkg/treemap"
	"github.com/matzehuels/marketmap/pkg/viewport"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWidth is the default canvas width in pixels.
	DefaultWidth = 1200.0

	// DefaultHeight is the default canvas height in pixels.
	DefaultHeight = 800.0
)

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run. It supports JSON for API requests.
type Options struct {
	// Selection
	Date     string           `json:"date"`
	Maturity dataset.Maturity `json:"maturity,omitempty"`

	// Build options
	Caps     aggregate.Caps `json:"caps,omitempty"`
	RootName string         `json:"root_name,omitempty"`

	// Layout options
	Width  float64         `json:"width,omitempty"`
	Height float64         `json:"height,omitempty"`
	Layout treemap.Options `json:"layout"`

	// Render options
	Formats  []string           `json:"formats,omitempty"`
	Title    string             `json:"title,omitempty"`
	Margin   float64            `json:"margin,omitempty"`
	Scale    float64            `json:"scale,omitempty"`
	Viewport viewport.Transform `json:"viewport"`

	// Refresh bypasses cached layouts and artifacts.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// DefaultOptions returns options with every default applied and no date.
func DefaultOptions() Options {
	o := Options{}
	o.SetBuildDefaults()
	o.SetLayoutDefaults()
	o.SetRenderDefaults()
	return o
}

// Selection returns the date and maturity of o.
func (o *Options) Selection() dataset.Selection {
	return dataset.Selection{Date: o.Date, Maturity: o.Maturity}
}

// Bounds returns the canvas size.
func (o *Options) Bounds() treemap.Bounds {
	return treemap.Bounds{Width: o.Width, Height: o.Height}
}

// SetBuildDefaults fills in maturity, caps and the logger.
func (o *Options) SetBuildDefaults() {
	if o.Maturity == "" {
		o.Maturity = dataset.DefaultMaturity
	}
	if o.Caps == nil {
		o.Caps = aggregate.DefaultCaps()
	}
	if o.RootName == "" {
		o.RootName = hierarchy.DefaultRootName
	}
	o.setLogger()
}

// ValidateForBuild applies build defaults and checks the selection.
func (o *Options) ValidateForBuild() error {
	o.SetBuildDefaults()
	if err := errors.ValidateDate(o.Date); err != nil {
		return err
	}
	if !o.Maturity.Valid() {
		_, err := dataset.ParseMaturity(string(o.Maturity))
		return err
	}
	return nil
}

// SetLayoutDefaults fills in the canvas size and layout options. A zero
// layout config means the standard paddings.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	o.setLayoutOptionDefaults()
}

// setLayoutOptionDefaults fills in paddings only. Bounds are left alone so
// a zero width reaches the layout engine and fails there.
func (o *Options) setLayoutOptionDefaults() {
	if o.Layout == (treemap.Options{}) {
		o.Layout = treemap.DefaultOptions()
	}
	o.setLogger()
}

// ValidateForLayout checks the layout options. Bounds are checked by the
// layout engine itself so callers get a typed LayoutError.
func (o *Options) ValidateForLayout() error {
	return o.Layout.Validate()
}

// SetRenderDefaults fills in formats, title and viewport.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{render.FormatSVG}
	}
	if o.Title == "" {
		o.Title = encode.DefaultTitle
	}
	if o.Viewport == (viewport.Transform{}) {
		o.Viewport = viewport.Identity
	}
	o.setLogger()
}

// ValidateForRender applies render defaults and checks formats.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	for _, f := range o.Formats {
		if err := render.ValidateFormat(f); err != nil {
			return err
		}
	}
	if o.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "margin must be non-negative, got %g", o.Margin)
	}
	return nil
}

// ValidateAndSetDefaults prepares o for a full run.
func (o *Options) ValidateAndSetDefaults() error {
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	o.SetLayoutDefaults()
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	return o.ValidateForRender()
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// LayoutKeyOpts returns the cache key inputs of the layout stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Width:        o.Width,
		Height:       o.Height,
		PaddingInner: o.Layout.PaddingInner,
		PaddingTop:   o.Layout.PaddingTop,
		HeaderHeight: o.Layout.HeaderHeight,
	}
}

// ArtifactKeyOpts returns the cache key inputs of the render stage.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Format:    format,
		Selection: o.Date + "/" + string(o.Maturity),
		Title:     o.Title,
		Margin:    o.Margin,
		Viewport:  o.Viewport.String(),
	}
	if format == render.FormatPNG {
		k.Scale = o.Scale
	}
	return k
}

// RenderOptions returns the artifact options for o.
func (o *Options) RenderOptions() render.Options {
	return render.Options{
		Viewport: o.Viewport,
		Margin:   o.Margin,
		Scale:    o.Scale,
		Meta: map[string]string{
			"date":     o.Date,
			"maturity": string(o.Maturity),
		},
	}
}

// EncodeOptions returns the cell encoder options for o.
func (o *Options) EncodeOptions() encode.Options {
	e := encode.DefaultOptions()
	e.Title = o.Title
	return e
}

// =============================================================================
// Results
// =============================================================================

// Tree is the output of the build stage. It is immutable and reused by
// every relayout of the same selection.
type Tree struct {
	Selection dataset.Selection
	Root      *hierarchy.Node
	// Hash is the content hash of Root; empty when it cannot be computed,
	// in which case layouts are not cached.
	Hash      string
	Excluded  []*errors.InvalidDataError
	Truncated int
	Summary   []aggregate.SectorSummary
}

// Result contains the outputs of one pipeline run.
type Result struct {
	RunID     string
	Tree      *Tree
	Layout    *treemap.Result
	Scene     encode.Scene
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Selection returns the selection the result was computed for.
func (r *Result) Selection() dataset.Selection {
	if r == nil || r.Tree == nil {
		return dataset.Selection{}
	}
	return r.Tree.Selection
}

// Formats returns the rendered formats, sorted.
func (r *Result) Formats() []string {
	out := make([]string, 0, len(r.Artifacts))
	for f := range r.Artifacts {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Sectors    int
	Leaves     int
	Excluded   int
	Truncated  int
	Skipped    int
	BuildTime  time.Duration
	LayoutTime time.Duration
	EncodeTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each cached stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}
