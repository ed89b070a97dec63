package sink

import (
	"bytes"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/matzehuels/marketmap/pkg/encode"
	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/viewport"
)

// DefaultPNGScale renders at 2x for high-DPI displays.
const DefaultPNGScale = 2.0

// minTextSize is the smallest font size worth rasterizing.
const minTextSize = 1.0

// PNGOption configures RenderPNG.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	scale  float64
	view   viewport.Transform
	margin float64
}

// WithScale sets the output resolution multiplier.
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// WithPNGViewport applies a pan/zoom transform to the map.
func WithPNGViewport(t viewport.Transform) PNGOption {
	return func(r *pngRenderer) { r.view = t }
}

// WithPNGMargin pads the canvas by m pixels on every side.
func WithPNGMargin(m float64) PNGOption {
	return func(r *pngRenderer) {
		if m > 0 {
			r.margin = m
		}
	}
}

// RenderPNG rasterizes the scene. Text uses the embedded Go Regular font so
// output does not depend on system fonts.
func RenderPNG(s encode.Scene, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{scale: DefaultPNGScale, view: viewport.Identity}
	for _, opt := range opts {
		opt(&r)
	}

	w := int(math.Ceil((s.Bounds.Width + 2*r.margin) * r.scale))
	h := int(math.Ceil((s.Bounds.Height + 2*r.margin) * r.scale))
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidLayout, "png: empty canvas %dx%d", w, h)
	}

	dc := gg.NewContext(w, h)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	dc.Scale(r.scale, r.scale)
	dc.Translate(r.margin, r.margin)
	dc.Translate(r.view.X, r.view.Y)
	dc.Scale(r.view.K, r.view.K)
	dc.SetLineWidth(1)

	faces := newFaceCache()
	drawHeader(dc, faces, s.Header)
	for _, c := range s.Sectors {
		drawRect(dc, c)
		if c.Primary.Visible() {
			drawText(dc, faces, c.Primary, c.TextFill, c.Rect.X0+encode.SectorLabelX, c.Rect.Y0+encode.SectorLabelY, 0)
		}
	}
	for _, c := range s.Leaves {
		drawRect(dc, c)
		cx, cy := c.Rect.Center()
		drawText(dc, faces, c.Primary, c.TextFill, cx, cy+c.Primary.DY, 0.5)
		drawText(dc, faces, c.Secondary, c.TextFill, cx, cy+c.Secondary.DY, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

func drawHeader(dc *gg.Context, faces *faceCache, h encode.Header) {
	r := h.Rect
	dc.DrawRectangle(r.X0, r.Y0, r.Width(), r.Height())
	dc.SetHexColor(h.Fill)
	dc.FillPreserve()
	dc.SetHexColor("#ffffff")
	dc.Stroke()

	drawText(dc, faces, h.Title, "#ffffff", r.X0+encode.HeaderTitleX, r.Y0+encode.HeaderTitleY, 0)

	x0, ok := legendOrigin(h)
	if !ok {
		return
	}
	for i, item := range h.Legend {
		x := x0 + float64(i)*legendSwatchW
		dc.DrawRectangle(x, r.Y0+legendSwatchY, legendSwatchW, legendSwatchH)
		dc.SetHexColor(item.Fill)
		dc.Fill()
		label := encode.Label{Text: item.Label, Size: legendLabelSize}
		drawText(dc, faces, label, "#ffffff", x+legendSwatchW/2, r.Y0+legendLabelY, 0.5)
	}
}

func drawRect(dc *gg.Context, c encode.Cell) {
	dc.DrawRectangle(c.Rect.X0, c.Rect.Y0, c.Rect.Width(), c.Rect.Height())
	dc.SetHexColor(c.Fill)
	dc.FillPreserve()
	dc.SetHexColor(c.Stroke)
	dc.Stroke()
}

// drawText draws l with its baseline at y. ax is the horizontal anchor:
// 0 for start, 0.5 for middle.
func drawText(dc *gg.Context, faces *faceCache, l encode.Label, fill string, x, y, ax float64) {
	if !l.Visible() || l.Size < minTextSize {
		return
	}
	face := faces.get(l.Size)
	if face == nil {
		return
	}
	dc.SetFontFace(face)
	dc.SetHexColor(fill)
	dc.DrawStringAnchored(l.Text, x, y, ax, 0)
}

var (
	goRegularOnce sync.Once
	goRegular     *opentype.Font
)

func loadGoRegular() *opentype.Font {
	goRegularOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err == nil {
			goRegular = f
		}
	})
	return goRegular
}

// faceCache holds one face per rounded font size for a single render.
type faceCache struct {
	faces map[float64]font.Face
}

func newFaceCache() *faceCache {
	return &faceCache{faces: make(map[float64]font.Face)}
}

func (c *faceCache) get(size float64) font.Face {
	size = math.Round(size*2) / 2
	if f, ok := c.faces[size]; ok {
		return f
	}
	ttf := loadGoRegular()
	if ttf == nil {
		return nil
	}
	f, err := opentype.NewFace(ttf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil
	}
	c.faces[size] = f
	return f
}
