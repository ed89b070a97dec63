package io

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/errors"
)

const referenceCSV = "\ufeffTicker,GICS Sector,Weight\n" +
	"AAPL,Information Technology,7.1\n" +
	"MSFT,Information Technology,6.8\n" +
	"\n" +
	"XOM,Energy,abc\n"

const dailyCSV = "Date,AAPL,MSFT\n" +
	"2024-01-02,0.015,-0.009\n" +
	"2024-01-03,-0.01,\n" +
	"2024-01-02,0.5,0.5\n"

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(referenceCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Header[0] != dataset.ColTicker {
		t.Errorf("BOM not stripped: %q", tbl.Header[0])
	}
	if len(tbl.Records) != 3 {
		t.Fatalf("records = %d, want 3 (blank line skipped)", len(tbl.Records))
	}

	rows, rejected, err := dataset.ConstituentsFromTable(tbl)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || len(rejected) != 1 || rejected[0].Ticker != "XOM" {
		t.Errorf("rows = %v, rejected = %v", rows, rejected)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"blank lines only", "\n ,\n"},
		{"bad quoting", "Ticker,Weight\n\"AAPL,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			if !errors.Is(err, errors.ErrCodeInvalidData) {
				t.Errorf("err = %v, want INVALID_DATA", err)
			}
		})
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	src, err := ReadCSV(strings.NewReader(dailyCSV))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteXLSX(src, &buf); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	got, err := ReadXLSX(&buf, "")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}

	ct, err := dataset.ChangesFromTable(got, dataset.Daily)
	if err != nil {
		t.Fatal(err)
	}
	if ct.Len() != 2 {
		t.Errorf("dates = %v, want 2 (duplicate dropped)", ct.Dates())
	}
	row, ok := ct.Row("2024-01-02")
	if !ok || row["AAPL"] != 0.015 || row["MSFT"] != -0.009 {
		t.Errorf("row = %v", row)
	}
}

func TestReadXLSXMissingSheet(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(dataset.Table{Header: []string{"Date"}}, &buf); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadXLSX(&buf, "Nope"); err == nil {
		t.Error("missing sheet accepted")
	}
}

func TestWriteCSV(t *testing.T) {
	tbl := dataset.Table{
		Header:  []string{"Sector", "Members"},
		Records: [][]string{{"Energy, Oil", "2"}},
	}
	var buf bytes.Buffer
	if err := WriteCSV(tbl, &buf); err != nil {
		t.Fatal(err)
	}
	want := "Sector,Members\n\"Energy, Oil\",2\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestImportTableNotFound(t *testing.T) {
	_, err := ImportTable(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
	if _, err := ImportTable(""); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("empty path err = %v", err)
	}
}

func TestExportTable(t *testing.T) {
	dir := t.TempDir()
	tbl := dataset.Table{Header: []string{"Date"}, Records: [][]string{{"2024-01-02"}}}
	for _, name := range []string{"out.csv", "out.xlsx"} {
		path := filepath.Join(dir, name)
		if err := ExportTable(tbl, path); err != nil {
			t.Fatalf("ExportTable(%s): %v", name, err)
		}
		got, err := ImportTable(path)
		if err != nil {
			t.Fatalf("ImportTable(%s): %v", name, err)
		}
		if got.Cell(0, 0) != "2024-01-02" {
			t.Errorf("%s: cell = %q", name, got.Cell(0, 0))
		}
	}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFileSource(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"stock_data.csv":            referenceCSV,
		"daily_stock_changes.csv":   dailyCSV,
		"monthly_stock_changes.csv": "Date,AAPL\n2024-01-31,0.05\n",
		"annual_stock_changes.csv":  "Date,AAPL\n2023-12-29,0.4\n",
		"date_only.csv":             "Date\n2024-01-03\n2024-01-02\n",
	})
	src := NewFileSource(dir, Paths{}, nil)
	ctx := context.Background()

	if err := src.Preload(ctx); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	rows, err := src.Constituents(ctx)
	if err != nil || len(rows) != 2 {
		t.Fatalf("Constituents = %v, %v", rows, err)
	}
	if len(src.Rejected()) != 1 {
		t.Errorf("Rejected = %v", src.Rejected())
	}

	monthly, err := src.Changes(ctx, dataset.Monthly)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := monthly.Row("2024-01-31"); !ok {
		t.Error("monthly row missing")
	}

	sel, err := src.DefaultSelection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Date != "2024-01-03" || sel.Maturity != dataset.Daily {
		t.Errorf("DefaultSelection = %+v", sel)
	}

	if _, err := src.Changes(ctx, "Weekly"); !errors.Is(err, errors.ErrCodeInvalidMaturity) {
		t.Errorf("err = %v, want INVALID_MATURITY", err)
	}
}

func TestFileSourceDatesFallback(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"daily_stock_changes.csv": dailyCSV,
	})
	src := NewFileSource(dir, Paths{}, nil)

	dates, err := src.Dates(context.Background())
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2024-01-02" {
		t.Errorf("dates = %v", dates)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(t.TempDir(), Paths{}, nil)
	_, err := src.Changes(context.Background(), dataset.Annual)
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestFileSourceReload(t *testing.T) {
	dir := writeFiles(t, map[string]string{"daily_stock_changes.csv": dailyCSV})
	src := NewFileSource(dir, Paths{}, nil)
	ctx := context.Background()

	first, err := src.Changes(ctx, dataset.Daily)
	if err != nil {
		t.Fatal(err)
	}
	update := "Date,AAPL\n2024-02-01,0.01\n"
	if err := os.WriteFile(filepath.Join(dir, "daily_stock_changes.csv"), []byte(update), 0o644); err != nil {
		t.Fatal(err)
	}

	cached, _ := src.Changes(ctx, dataset.Daily)
	if cached != first {
		t.Error("table re-read without Reload")
	}
	src.Reload()
	fresh, err := src.Changes(ctx, dataset.Daily)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fresh.Row("2024-02-01"); !ok {
		t.Error("Reload did not pick up the new file")
	}
}

func TestFileSourceConcurrent(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"stock_data.csv":          referenceCSV,
		"daily_stock_changes.csv": dailyCSV,
	})
	src := NewFileSource(dir, Paths{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	tables := make([]*dataset.ChangeTable, 8)
	for i := range tables {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tables[i], _ = src.Changes(ctx, dataset.Daily)
			_, _ = src.Constituents(ctx)
		}()
	}
	wg.Wait()
	for i, tbl := range tables {
		if tbl == nil || tbl != tables[0] {
			t.Errorf("table %d differs", i)
		}
	}
}

func TestPathsWithDefaults(t *testing.T) {
	p := Paths{Daily: "d.xlsx"}.WithDefaults()
	if p.Daily != "d.xlsx" || p.Monthly != "monthly_stock_changes.csv" {
		t.Errorf("paths = %+v", p)
	}
	if p.Changes("Weekly") != "" {
		t.Error("unknown maturity has a path")
	}
}
