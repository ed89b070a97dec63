package encode

import (
	"fmt"
	"math"

	"github.com/mattn/go-runewidth"
)

// Label fitting constants.
const (
	// LabelMargin is subtracted from the cell width before fitting a label.
	LabelMargin = 8.0

	// FontDivisor scales the primary font size: min(width, height) / 5.
	FontDivisor = 5.0

	// SecondaryRatio scales the secondary font size from the primary.
	SecondaryRatio = 0.8

	// CharWidth approximates a glyph's advance as a fraction of font size.
	CharWidth = 0.6
)

// Label is a line of text placed relative to its cell.
type Label struct {
	Text string  `json:"text"`
	Size float64 `json:"size"`
	// DY is the vertical offset from the anchor point.
	DY float64 `json:"dy,omitempty"`
}

// Visible reports whether the label has text to draw.
func (l Label) Visible() bool { return l.Text != "" && l.Size > 0 }

// TextWidth estimates the rendered width of text at size using terminal
// cell widths, so wide CJK runes count double.
func TextWidth(text string, size float64) float64 {
	return float64(runewidth.StringWidth(text)) * size * CharWidth
}

// Fits reports whether text at size fits a cell of width w with the margin.
func Fits(text string, size, w float64) bool {
	return TextWidth(text, size) <= w-LabelMargin
}

// fit returns a label for text, blank when it does not fit within w.
func fit(text string, size, dy, w float64) Label {
	l := Label{Text: text, Size: size, DY: dy}
	if !Fits(text, size, w) {
		l.Text = ""
	}
	return l
}

// LeafFontSize returns min(w/5, h/5), the primary font size of a leaf cell.
func LeafFontSize(w, h float64) float64 {
	return math.Max(0, math.Min(w/FontDivisor, h/FontDivisor))
}

// FormatChange formats a percentage with two decimals, e.g. "1.50%" or
// "-0.25%". Non-finite values format as "".
func FormatChange(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return ""
	}
	return fmt.Sprintf("%.2f%%", pct)
}
