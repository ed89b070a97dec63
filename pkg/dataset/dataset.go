// Package dataset holds the typed tabular inputs of the heatmap pipeline.
//
// Raw tables (from CSV, XLSX or any other acquisition layer) arrive as
// header + string records in a [Table]. This package validates them once at
// the boundary and produces typed values:
//
//   - [ConstituentRow]: one index constituent (ticker, GICS sector, weight)
//   - [ChangeTable]: per-date fractional changes for one [Maturity]
//
// The pipeline core never sees untyped records.
//
// # Column Names
//
// The reference table must provide [ColTicker], [ColSector] and [ColWeight].
// A change table must provide [ColDate]; every other column is a ticker whose
// cells are fractional changes (0.0123 = +1.23%).
//
// # Parsing Policy
//
// Weights are parsed with shopspring/decimal. A non-numeric or negative
// weight excludes the row and is reported as an InvalidDataError. Change
// cells that do not parse are treated as 0, mirroring the join policy of the
// aggregator (missing data renders as neutral).
package dataset

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/matzehuels/marketmap/pkg/errors"
)

// Column names of the source tables.
const (
	ColTicker = "Ticker"
	ColSector = "GICS Sector"
	ColWeight = "Weight"
	ColDate   = "Date"
)

// Table is a parsed but untyped table: a header row and data records.
// Records shorter than the header are padded with empty cells on access.
type Table struct {
	Header  []string
	Records [][]string
}

// Index returns the position of column name in the header, or -1.
// Header cells are compared after trimming surrounding whitespace.
func (t Table) Index(name string) int {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// Cell returns record[row][col] trimmed, or "" when out of range.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Records) || col < 0 {
		return ""
	}
	rec := t.Records[row]
	if col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

// ConstituentRow is one row of the reference table.
type ConstituentRow struct {
	Ticker string  `json:"ticker"`
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"`
}

// ParseWeight parses a decimal weight string. Negative values are rejected.
func ParseWeight(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative weight: %s", d.String())
	}
	return d.InexactFloat64(), nil
}

// ParseChange parses a fractional change cell, returning 0 for empty or
// unparsable input.
func ParseChange(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// ConstituentsFromTable converts the reference table into typed rows.
//
// Rows with an invalid ticker, empty sector, or non-numeric/negative weight
// are excluded and reported. The error return is reserved for structural
// problems (missing required columns).
func ConstituentsFromTable(t Table) ([]ConstituentRow, []*errors.InvalidDataError, error) {
	ti, si, wi := t.Index(ColTicker), t.Index(ColSector), t.Index(ColWeight)
	for _, col := range []struct {
		name string
		idx  int
	}{{ColTicker, ti}, {ColSector, si}, {ColWeight, wi}} {
		if col.idx < 0 {
			return nil, nil, errors.New(errors.ErrCodeInvalidData, "reference table is missing column %q", col.name)
		}
	}

	rows := make([]ConstituentRow, 0, len(t.Records))
	var rejected []*errors.InvalidDataError
	for i := range t.Records {
		ticker := t.Cell(i, ti)
		if err := errors.ValidateTicker(ticker); err != nil {
			rejected = append(rejected, &errors.InvalidDataError{
				Row: i, Ticker: ticker, Field: ColTicker, Reason: errors.UserMessage(err),
			})
			continue
		}
		sector := t.Cell(i, si)
		if err := errors.ValidateSectorName(sector); err != nil {
			rejected = append(rejected, &errors.InvalidDataError{
				Row: i, Ticker: ticker, Field: ColSector, Reason: errors.UserMessage(err),
			})
			continue
		}
		w, err := ParseWeight(t.Cell(i, wi))
		if err != nil {
			rejected = append(rejected, &errors.InvalidDataError{
				Row: i, Ticker: ticker, Field: ColWeight, Reason: err.Error(),
			})
			continue
		}
		rows = append(rows, ConstituentRow{Ticker: ticker, Sector: sector, Weight: w})
	}
	return rows, rejected, nil
}

// DatesFromTable extracts the non-empty, trimmed values of the Date column in
// source order.
func DatesFromTable(t Table) ([]string, error) {
	di := t.Index(ColDate)
	if di < 0 {
		return nil, errors.New(errors.ErrCodeInvalidData, "date table is missing column %q", ColDate)
	}
	dates := make([]string, 0, len(t.Records))
	for i := range t.Records {
		if d := t.Cell(i, di); d != "" {
			dates = append(dates, d)
		}
	}
	return dates, nil
}
