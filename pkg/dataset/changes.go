package dataset

import (
	"strings"

	"github.com/matzehuels/marketmap/pkg/errors"
)

// Maturity is the time granularity of a change table.
type Maturity string

// Supported maturities.
const (
	Daily   Maturity = "Daily"
	Monthly Maturity = "Monthly"
	Annual  Maturity = "Annual"
)

// DefaultMaturity is selected when none is given.
const DefaultMaturity = Daily

// Maturities returns all maturities in display order.
func Maturities() []Maturity {
	return []Maturity{Daily, Monthly, Annual}
}

// Valid reports whether m is one of the supported maturities.
func (m Maturity) Valid() bool {
	switch m {
	case Daily, Monthly, Annual:
		return true
	}
	return false
}

func (m Maturity) String() string { return string(m) }

// ParseMaturity parses a maturity name case-insensitively.
func ParseMaturity(s string) (Maturity, error) {
	for _, m := range Maturities() {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidMaturity, "invalid maturity: %q (must be one of: Daily, Monthly, Annual)", s)
}

// Selection identifies one heatmap: a change table row by exact date string
// within the table of the chosen maturity.
type Selection struct {
	Date     string   `json:"date"`
	Maturity Maturity `json:"maturity"`
}

// ChangeTable holds the fractional changes of one maturity, one row per date.
// The zero value is not usable; create tables with [NewChangeTable].
type ChangeTable struct {
	maturity Maturity
	dates    []string
	rows     map[string]map[string]float64
}

// NewChangeTable creates an empty table for maturity m.
func NewChangeTable(m Maturity) *ChangeTable {
	return &ChangeTable{maturity: m, rows: make(map[string]map[string]float64)}
}

// Maturity returns the table's maturity.
func (t *ChangeTable) Maturity() Maturity { return t.maturity }

// Add stores the change row for date. If the date already exists the first
// row is kept and Add returns false.
func (t *ChangeTable) Add(date string, changes map[string]float64) bool {
	if _, ok := t.rows[date]; ok {
		return false
	}
	if changes == nil {
		changes = map[string]float64{}
	}
	t.dates = append(t.dates, date)
	t.rows[date] = changes
	return true
}

// Row returns the ticker → fraction mapping for an exact date match.
func (t *ChangeTable) Row(date string) (map[string]float64, bool) {
	r, ok := t.rows[date]
	return r, ok
}

// Dates returns the table's dates in source order.
func (t *ChangeTable) Dates() []string {
	out := make([]string, len(t.dates))
	copy(out, t.dates)
	return out
}

// Len returns the number of dates.
func (t *ChangeTable) Len() int { return len(t.dates) }

// ChangesFromTable converts a change table. Rows with an empty Date cell are
// skipped; duplicate dates keep their first row.
func ChangesFromTable(t Table, m Maturity) (*ChangeTable, error) {
	if !m.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidMaturity, "invalid maturity: %q", m)
	}
	di := t.Index(ColDate)
	if di < 0 {
		return nil, errors.New(errors.ErrCodeInvalidData, "change table is missing column %q", ColDate)
	}

	ct := NewChangeTable(m)
	for i := range t.Records {
		date := t.Cell(i, di)
		if date == "" {
			continue
		}
		changes := make(map[string]float64, len(t.Header)-1)
		for col, name := range t.Header {
			name = strings.TrimSpace(name)
			if col == di || name == "" {
				continue
			}
			changes[name] = ParseChange(t.Cell(i, col))
		}
		ct.Add(date, changes)
	}
	return ct, nil
}
