package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/marketmap/pkg/dataset"
)

// DefaultSheet names the sheet written by [WriteXLSX].
const DefaultSheet = "Sheet1"

// WriteCSV encodes t as CSV, header first.
func WriteCSV(t dataset.Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

// WriteXLSX encodes t as a single-sheet workbook. Cells that parse as
// numbers are stored as numbers so spreadsheets can sort them.
func WriteXLSX(t dataset.Table, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	rows := append([][]string{t.Header}, t.Records...)
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			var v any = cell
			if i > 0 {
				if d, err := decimal.NewFromString(strings.TrimSpace(cell)); err == nil {
					v = d.InexactFloat64()
				}
			}
			if err := f.SetCellValue(DefaultSheet, ref, v); err != nil {
				return fmt.Errorf("set %s: %w", ref, err)
			}
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportTable writes t to path, as a workbook when path ends in .xlsx and as
// CSV otherwise.
func ExportTable(t dataset.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return WriteXLSX(t, f)
	}
	return WriteCSV(t, f)
}
