package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/matzehuels/marketmap/pkg/encode"
	"github.com/matzehuels/marketmap/pkg/viewport"
)

// Legend swatch geometry inside the header band.
const (
	legendSwatchW   = 44.0
	legendSwatchH   = 12.0
	legendSwatchY   = 6.0
	legendLabelY    = 32.0
	legendLabelSize = 10.0
	legendPadRight  = 8.0
)

const cellCSS = `
    .leaf rect { shape-rendering: crispEdges; }
    .leaf:hover rect { stroke-width: 2; }
    text { pointer-events: none; }`

// SVGOption configures RenderSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	view   viewport.Transform
	margin float64
}

// WithViewport applies a pan/zoom transform to the map group.
func WithViewport(t viewport.Transform) SVGOption {
	return func(r *svgRenderer) { r.view = t }
}

// WithMargin pads the canvas by m pixels on every side.
func WithMargin(m float64) SVGOption {
	return func(r *svgRenderer) {
		if m > 0 {
			r.margin = m
		}
	}
}

// RenderSVG renders the scene as a standalone SVG document.
func RenderSVG(s encode.Scene, opts ...SVGOption) []byte {
	r := svgRenderer{view: viewport.Identity}
	for _, opt := range opts {
		opt(&r)
	}

	w := s.Bounds.Width + 2*r.margin
	h := s.Bounds.Height + 2*r.margin

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="sans-serif">`+"\n",
		w, h, w, h)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", cellCSS)

	if r.margin > 0 {
		fmt.Fprintf(&buf, `  <g transform="translate(%.2f,%.2f)">`+"\n", r.margin, r.margin)
	}
	if tr := r.view.SVG(); tr != "" {
		fmt.Fprintf(&buf, `  <g id="viewport" transform="%s">`+"\n", tr)
	} else {
		buf.WriteString(`  <g id="viewport">` + "\n")
	}

	renderHeader(&buf, s.Header)
	for _, c := range s.Sectors {
		renderSector(&buf, c)
	}
	for _, c := range s.Leaves {
		renderLeaf(&buf, c)
	}

	buf.WriteString("  </g>\n")
	if r.margin > 0 {
		buf.WriteString("  </g>\n")
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderHeader(buf *bytes.Buffer, h encode.Header) {
	r := h.Rect
	buf.WriteString(`    <g class="header">` + "\n")
	fmt.Fprintf(buf, `      <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" stroke="white"/>`+"\n",
		r.X0, r.Y0, r.Width(), r.Height(), h.Fill)
	if h.Title.Text != "" {
		fmt.Fprintf(buf, `      <text x="%.0f" y="%.0f" font-size="%.0f" fill="white">%s</text>`+"\n",
			r.X0+encode.HeaderTitleX, r.Y0+encode.HeaderTitleY, h.Title.Size, escapeXML(h.Title.Text))
	}
	if x0, ok := legendOrigin(h); ok {
		for i, item := range h.Legend {
			x := x0 + float64(i)*legendSwatchW
			fmt.Fprintf(buf, `      <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"/>`+"\n",
				x, r.Y0+legendSwatchY, legendSwatchW, legendSwatchH, item.Fill)
			fmt.Fprintf(buf, `      <text x="%.2f" y="%.2f" font-size="%.0f" text-anchor="middle" fill="white">%s</text>`+"\n",
				x+legendSwatchW/2, r.Y0+legendLabelY, legendLabelSize, escapeXML(item.Label))
		}
	}
	buf.WriteString("    </g>\n")
}

// legendOrigin right-aligns the legend in the header. It reports false when
// the legend would collide with the title or the band is too short.
func legendOrigin(h encode.Header) (float64, bool) {
	if len(h.Legend) == 0 || h.Rect.Height() < legendLabelY {
		return 0, false
	}
	x0 := h.Rect.X1 - legendPadRight - float64(len(h.Legend))*legendSwatchW
	titleEnd := h.Rect.X0 + encode.HeaderTitleX + encode.TextWidth(h.Title.Text, h.Title.Size)
	return x0, x0 > titleEnd+legendPadRight
}

func renderSector(buf *bytes.Buffer, c encode.Cell) {
	fmt.Fprintf(buf, `    <g class="sector" transform="translate(%.2f,%.2f)">`+"\n", c.Rect.X0, c.Rect.Y0)
	fmt.Fprintf(buf, `      <rect width="%.2f" height="%.2f" fill="%s" stroke="%s"/>`+"\n",
		c.Rect.Width(), c.Rect.Height(), c.Fill, c.Stroke)
	if c.Primary.Visible() {
		fmt.Fprintf(buf, `      <text x="%.0f" y="%.0f" font-size="%.0f" fill="%s">%s</text>`+"\n",
			encode.SectorLabelX, encode.SectorLabelY, c.Primary.Size, c.TextFill, escapeXML(c.Primary.Text))
	}
	buf.WriteString("    </g>\n")
}

func renderLeaf(buf *bytes.Buffer, c encode.Cell) {
	w, h := c.Rect.Width(), c.Rect.Height()
	fmt.Fprintf(buf, `    <g class="leaf" id="cell-%s" transform="translate(%.2f,%.2f)">`+"\n",
		escapeXML(c.ID), c.Rect.X0, c.Rect.Y0)
	fmt.Fprintf(buf, `      <rect width="%.2f" height="%.2f" fill="%s" stroke="%s"><title>%s</title></rect>`+"\n",
		w, h, c.Fill, c.Stroke, escapeXML(tooltip(c)))
	if c.Primary.Visible() || c.Secondary.Visible() {
		fmt.Fprintf(buf, `      <g transform="translate(%.2f,%.2f)">`+"\n", w/2, h/2)
		renderCenteredText(buf, c.Primary, c.TextFill)
		renderCenteredText(buf, c.Secondary, c.TextFill)
		buf.WriteString("      </g>\n")
	}
	buf.WriteString("    </g>\n")
}

func renderCenteredText(buf *bytes.Buffer, l encode.Label, fill string) {
	if !l.Visible() {
		return
	}
	fmt.Fprintf(buf, `        <text dy="%.2f" font-size="%.2f" text-anchor="middle" fill="%s">%s</text>`+"\n",
		l.DY, l.Size, fill, escapeXML(l.Text))
}

func tooltip(c encode.Cell) string {
	if pct := encode.FormatChange(c.PctChange); pct != "" {
		return fmt.Sprintf("%s (%s) %s", c.ID, c.Sector, pct)
	}
	return fmt.Sprintf("%s (%s)", c.ID, c.Sector)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
