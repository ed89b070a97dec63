package dataset

import (
	"testing"

	"github.com/matzehuels/marketmap/pkg/errors"
)

func referenceTable() Table {
	return Table{
		Header: []string{"Ticker", "GICS Sector", "Weight"},
		Records: [][]string{
			{"AAPL", "Information Technology", "7.1"},
			{"MSFT", "Information Technology", " 6.8 "},
			{"XOM", "Energy", "abc"},
			{"", "Energy", "1.0"},
			{"NEE", "Utilities", "-0.5"},
			{"JNJ", "", "1.2"},
			{"PG", "Consumer Staples"},
		},
	}
}

func TestConstituentsFromTable(t *testing.T) {
	rows, rejected, err := ConstituentsFromTable(referenceTable())
	if err != nil {
		t.Fatalf("ConstituentsFromTable: %v", err)
	}

	want := []ConstituentRow{
		{Ticker: "AAPL", Sector: "Information Technology", Weight: 7.1},
		{Ticker: "MSFT", Sector: "Information Technology", Weight: 6.8},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("rows[%d] = %+v, want %+v", i, rows[i], want[i])
		}
	}

	wantRejected := map[int]string{2: ColWeight, 3: ColTicker, 4: ColWeight, 5: ColSector, 6: ColWeight}
	if len(rejected) != len(wantRejected) {
		t.Fatalf("got %d rejected rows, want %d", len(rejected), len(wantRejected))
	}
	for _, r := range rejected {
		if field, ok := wantRejected[r.Row]; !ok || field != r.Field {
			t.Errorf("unexpected rejection %+v", r)
		}
		if r.Code() != errors.ErrCodeInvalidData {
			t.Errorf("Code() = %v, want %v", r.Code(), errors.ErrCodeInvalidData)
		}
	}
}

func TestConstituentsFromTableMissingColumn(t *testing.T) {
	_, _, err := ConstituentsFromTable(Table{Header: []string{"Ticker", "Weight"}})
	if !errors.Is(err, errors.ErrCodeInvalidData) {
		t.Fatalf("expected INVALID_DATA, got %v", err)
	}
}

func TestParseWeight(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"7.1", 7.1, false},
		{"0", 0, false},
		{"  0.25 ", 0.25, false},
		{"1e-3", 0.001, false},
		{"", 0, true},
		{"abc", 0, true},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeight(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWeight(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWeight(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseChange(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0.015", 0.015},
		{"-0.009", -0.009},
		{"", 0},
		{"n/a", 0},
		{" 0.5 ", 0.5},
	}
	for _, tt := range tests {
		if got := ParseChange(tt.in); got != tt.want {
			t.Errorf("ParseChange(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDatesFromTable(t *testing.T) {
	dates, err := DatesFromTable(Table{
		Header:  []string{"Date"},
		Records: [][]string{{"2024-01-02 "}, {""}, {"2024-01-03"}},
	})
	if err != nil {
		t.Fatalf("DatesFromTable: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2024-01-02" || dates[1] != "2024-01-03" {
		t.Errorf("dates = %v", dates)
	}

	if _, err := DatesFromTable(Table{Header: []string{"When"}}); err == nil {
		t.Error("expected error for missing Date column")
	}
}

func TestTableCell(t *testing.T) {
	tbl := Table{Header: []string{"a", "b"}, Records: [][]string{{"1"}}}
	if got := tbl.Cell(0, 1); got != "" {
		t.Errorf("short record cell = %q, want empty", got)
	}
	if got := tbl.Cell(5, 0); got != "" {
		t.Errorf("out of range row = %q, want empty", got)
	}
	if got := tbl.Index(" b"); got != -1 {
		t.Errorf("Index should compare trimmed header to exact name, got %d", got)
	}
}
