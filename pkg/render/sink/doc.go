// Package sink writes encoded heatmap scenes to output formats.
//
//   - [RenderSVG]: standalone SVG; cells are grouped under a single viewport
//     group so a pan/zoom transform applies to the whole map
//   - [RenderPNG]: raster output drawn in-process with fogleman/gg
//   - [RenderJSON]: the scene as JSON for browser front-ends
//
// All sinks take an [encode.Scene] and never recompute geometry.
package sink
