package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/errors"
)

// utf8BOM is stripped from the first header cell of CSV input.
const utf8BOM = "\ufeff"

// ReadCSV decodes a comma-separated table from r.
//
// Records may have fewer or more cells than the header; short records read
// as empty cells through [dataset.Table.Cell]. Blank lines are skipped.
// ReadCSV does not close r.
func ReadCSV(r io.Reader) (dataset.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return dataset.Table{}, errors.Wrap(errors.ErrCodeInvalidData, err, "decode csv")
	}
	return tableFromRows(records, "csv")
}

// ReadXLSX decodes one sheet of an Excel workbook from r. An empty sheet name
// selects the first sheet of the workbook.
func ReadXLSX(r io.Reader, sheet string) (dataset.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return dataset.Table{}, errors.Wrap(errors.ErrCodeInvalidData, err, "open workbook")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return dataset.Table{}, errors.New(errors.ErrCodeInvalidData, "workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return dataset.Table{}, errors.Wrap(errors.ErrCodeInvalidData, err, "read sheet %q", sheet)
	}
	return tableFromRows(rows, "sheet "+sheet)
}

// ImportTable reads the table at path. Files ending in .xlsx are read as
// workbooks (first sheet), everything else as CSV.
func ImportTable(path string) (dataset.Table, error) {
	if err := errors.ValidatePath(path); err != nil {
		return dataset.Table{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dataset.Table{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return dataset.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var t dataset.Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		t, err = ReadXLSX(f, "")
	default:
		t, err = ReadCSV(f)
	}
	if err != nil {
		return dataset.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// tableFromRows splits rows into header and records, dropping rows whose
// cells are all blank.
func tableFromRows(rows [][]string, what string) (dataset.Table, error) {
	var t dataset.Table
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if t.Header == nil {
			row[0] = strings.TrimPrefix(row[0], utf8BOM)
			t.Header = row
			continue
		}
		t.Records = append(t.Records, row)
	}
	if t.Header == nil {
		return dataset.Table{}, errors.New(errors.ErrCodeInvalidData, "%s has no header row", what)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
