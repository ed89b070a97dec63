// Package pkg holds the libraries behind the marketmap heatmap.
//
// # Overview
//
// Marketmap renders index constituents as a treemap heatmap: one cell per
// ticker, sized by index weight, colored by percentage change and grouped by
// GICS sector. The pkg directory is organized by pipeline stage:
//
//  1. [dataset] and [io] - input tables (CSV, XLSX) and the file source
//  2. [aggregate] - join, group, rank and cap constituents per sector
//  3. [hierarchy] - the three-level Market/Sector/Ticker tree
//  4. [treemap] - squarified layout with padding and sector headers
//  5. [encode] - colors and labels per cell
//  6. [render] - SVG, PNG and JSON artifacts under a pan/zoom [viewport]
//  7. [pipeline] - orchestration, caching and the interactive session
//
// Supporting packages: [cache] (file, redis and null backends), [config]
// (TOML settings), [errors] (coded errors), [observability] (hooks) and
// [buildinfo].
//
// # Data Flow
//
//	stock_data.csv + <maturity>_stock_changes.csv
//	         ↓
//	    aggregate → hierarchy → treemap → encode → render
//	                                 ↑
//	                     resize reuses the tree
package pkg
