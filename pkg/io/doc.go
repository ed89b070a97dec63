// Package io loads and writes the tabular inputs of the heatmap.
//
// # Formats
//
// Tables are read from CSV ([ReadCSV]) or Excel workbooks ([ReadXLSX]).
// [ImportTable] picks the reader from the file extension:
//
//	t, err := io.ImportTable("data/stock_data.csv")
//	rows, rejected, err := dataset.ConstituentsFromTable(t)
//
// Both readers return a [dataset.Table]: the first non-empty row is the
// header, every following non-empty row is a record. Cells stay strings;
// typing happens in package dataset.
//
// # File Source
//
// [FileSource] implements pipeline.Source over a directory of tables. Each
// maturity maps to its own change file (see [DefaultPaths]):
//
//	src := io.NewFileSource("data", io.DefaultPaths(), logger)
//	dates, err := src.Dates(ctx)
//
// Tables are loaded on first use and kept in memory. [FileSource.Reload]
// drops them so the next request reads the files again.
//
// # Export
//
// [WriteCSV], [WriteXLSX] and [ExportTable] write a table back out, used for the sector
// summary export of the CLI.
package io
