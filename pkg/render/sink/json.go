package sink

import (
	"encoding/json"
	"math"

	"github.com/matzehuels/marketmap/pkg/encode"
	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/viewport"
)

// JSONOption configures RenderJSON.
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	view   viewport.Transform
	meta   map[string]string
	indent bool
}

// WithJSONViewport records the viewport the client should re-apply.
func WithJSONViewport(t viewport.Transform) JSONOption {
	return func(r *jsonRenderer) { r.view = t }
}

// WithJSONMeta attaches string metadata such as the date and maturity.
func WithJSONMeta(key, value string) JSONOption {
	return func(r *jsonRenderer) {
		if r.meta == nil {
			r.meta = make(map[string]string)
		}
		r.meta[key] = value
	}
}

// WithJSONIndent pretty-prints the output.
func WithJSONIndent() JSONOption { return func(r *jsonRenderer) { r.indent = true } }

type jsonOutput struct {
	Width    float64            `json:"width"`
	Height   float64            `json:"height"`
	Meta     map[string]string  `json:"meta,omitempty"`
	Viewport viewport.Transform `json:"viewport"`
	Header   encode.Header      `json:"header"`
	Sectors  []jsonCell         `json:"sectors"`
	Leaves   []jsonCell         `json:"leaves"`
}

type jsonCell struct {
	ID        string       `json:"id"`
	Sector    string       `json:"sector,omitempty"`
	X0        float64      `json:"x0"`
	Y0        float64      `json:"y0"`
	X1        float64      `json:"x1"`
	Y1        float64      `json:"y1"`
	Fill      string       `json:"fill"`
	Weight    float64      `json:"weight"`
	PctChange *float64     `json:"pct_change"`
	Primary   encode.Label `json:"primary"`
	Secondary encode.Label `json:"secondary"`
}

// RenderJSON encodes the scene. Non-finite changes are written as null.
func RenderJSON(s encode.Scene, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{view: viewport.Identity}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Width:    s.Bounds.Width,
		Height:   s.Bounds.Height,
		Meta:     r.meta,
		Viewport: r.view,
		Header:   s.Header,
		Sectors:  toJSONCells(s.Sectors),
		Leaves:   toJSONCells(s.Leaves),
	}

	var (
		data []byte
		err  error
	)
	if r.indent {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode json")
	}
	return data, nil
}

func toJSONCells(cells []encode.Cell) []jsonCell {
	out := make([]jsonCell, len(cells))
	for i, c := range cells {
		jc := jsonCell{
			ID:        c.ID,
			Sector:    c.Sector,
			X0:        c.Rect.X0,
			Y0:        c.Rect.Y0,
			X1:        c.Rect.X1,
			Y1:        c.Rect.Y1,
			Fill:      c.Fill,
			Weight:    c.Weight,
			Primary:   c.Primary,
			Secondary: c.Secondary,
		}
		if c.Kind == "leaf" && !math.IsNaN(c.PctChange) && !math.IsInf(c.PctChange, 0) {
			v := c.PctChange
			jc.PctChange = &v
		}
		out[i] = jc
	}
	return out
}
