// Package render turns encoded heatmap scenes into output artifacts.
//
// [Artifact] dispatches on the output format to the writers in [sink]:
//
//	svg, err := render.Artifact(scene, render.FormatSVG, render.Options{})
//	png, err := render.Artifact(scene, render.FormatPNG, render.Options{Scale: 2})
//
// The viewport transform is an input of every writer, never part of the
// scene, so a pan or zoom re-renders without recomputing the layout.
package render

import (
	"slices"
	"strings"

	"github.com/matzehuels/marketmap/pkg/encode"
	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/render/sink"
	"github.com/matzehuels/marketmap/pkg/viewport"
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// Formats returns the supported formats.
func Formats() []string { return []string{FormatSVG, FormatPNG, FormatJSON} }

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats(), format) {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(Formats(), ", "))
	}
	return nil
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

// Options configures artifact rendering.
type Options struct {
	Viewport viewport.Transform
	Margin   float64
	// Scale is the PNG resolution multiplier. Zero means sink.DefaultPNGScale.
	Scale float64
	// Meta is copied into JSON output.
	Meta map[string]string
}

// Artifact renders scene in format.
func Artifact(scene encode.Scene, format string, opts Options) ([]byte, error) {
	view := opts.Viewport
	if view == (viewport.Transform{}) {
		view = viewport.Identity
	}

	switch format {
	case FormatSVG:
		return sink.RenderSVG(scene, sink.WithViewport(view), sink.WithMargin(opts.Margin)), nil
	case FormatPNG:
		return sink.RenderPNG(scene,
			sink.WithPNGViewport(view),
			sink.WithPNGMargin(opts.Margin),
			sink.WithScale(opts.Scale))
	case FormatJSON:
		jopts := []sink.JSONOption{sink.WithJSONViewport(view)}
		for _, k := range sortedKeys(opts.Meta) {
			jopts = append(jopts, sink.WithJSONMeta(k, opts.Meta[k]))
		}
		return sink.RenderJSON(scene, jopts...)
	}
	return nil, ValidateFormat(format)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
