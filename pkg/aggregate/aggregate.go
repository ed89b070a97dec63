// Package aggregate groups index constituents by sector for the heatmap.
//
// [Aggregate] joins each constituent with its percentage change for the
// selected date, groups by GICS sector, ranks each group by weight and caps
// it to a fixed number of cells:
//
//	res, err := aggregate.Aggregate(rows, changes, aggregate.DefaultCaps())
//	for _, g := range res.Groups {
//	    fmt.Println(g.Name, len(g.Members))
//	}
//
// # Join Policy
//
// A ticker absent from the change row gets a change of 0 ([JoinPolicy]).
// Missing data renders as neutral, never as an error.
//
// # Row Errors
//
// Rows with an empty ticker, a non-finite or negative weight, or a ticker
// already seen are excluded and reported in [Result.Excluded]. Aggregation
// itself does not fail on row errors.
package aggregate

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/errors"
)

// JoinPolicy documents how constituents without a change value are treated:
// their change defaults to 0 percent.
const JoinPolicy = "missing-change-is-zero"

// pctScale converts fractional changes to percentage units.
const pctScale = 100

// Constituent is a ConstituentRow joined with its percentage change.
type Constituent struct {
	dataset.ConstituentRow
	PctChange float64 `json:"pct_change"` // percent units, 1.5 = +1.5%
	HasChange bool    `json:"has_change"` // false when the join defaulted to 0
}

// SectorGroup is the ranked, capped membership of one sector.
type SectorGroup struct {
	Name    string        `json:"name"`
	Members []Constituent `json:"members"`
}

// TotalWeight returns the sum of member weights.
func (g SectorGroup) TotalWeight() float64 {
	var sum float64
	for _, m := range g.Members {
		sum += m.Weight
	}
	return sum
}

// Result is the output of [Aggregate].
type Result struct {
	Groups   []SectorGroup
	Excluded []*errors.InvalidDataError
	// Truncated counts constituents dropped by sector caps.
	Truncated int
}

// MemberCount returns the total number of members across all groups.
func (r Result) MemberCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Members)
	}
	return n
}

// Aggregate joins, groups, ranks and caps constituents.
//
// Groups appear in order of their sector's first occurrence in rows. Within
// a group members are sorted by weight descending; equal weights keep their
// original row order. Each group is truncated to caps.Cap(sector).
// The error is currently always nil.
func Aggregate(rows []dataset.ConstituentRow, changes map[string]float64, caps Caps) (Result, error) {
	var res Result

	index := make(map[string]int)
	seen := make(map[string]struct{}, len(rows))

	for i, row := range rows {
		if err := validateRow(i, row, seen); err != nil {
			res.Excluded = append(res.Excluded, err)
			continue
		}
		seen[row.Ticker] = struct{}{}

		c := Constituent{ConstituentRow: row}
		if v, ok := changes[row.Ticker]; ok {
			c.PctChange = v * pctScale
			c.HasChange = true
		}

		gi, ok := index[row.Sector]
		if !ok {
			gi = len(res.Groups)
			index[row.Sector] = gi
			res.Groups = append(res.Groups, SectorGroup{Name: row.Sector})
		}
		res.Groups[gi].Members = append(res.Groups[gi].Members, c)
	}

	for i := range res.Groups {
		g := &res.Groups[i]
		slices.SortStableFunc(g.Members, func(a, b Constituent) int {
			return cmp.Compare(b.Weight, a.Weight)
		})
		if limit := caps.Cap(g.Name); len(g.Members) > limit {
			res.Truncated += len(g.Members) - limit
			g.Members = g.Members[:limit:limit]
		}
	}

	return res, nil
}

func validateRow(i int, row dataset.ConstituentRow, seen map[string]struct{}) *errors.InvalidDataError {
	switch {
	case row.Ticker == "":
		return &errors.InvalidDataError{Row: i, Field: dataset.ColTicker, Reason: "empty ticker"}
	case math.IsNaN(row.Weight) || math.IsInf(row.Weight, 0):
		return &errors.InvalidDataError{Row: i, Ticker: row.Ticker, Field: dataset.ColWeight, Reason: "weight is not a finite number"}
	case row.Weight < 0:
		return &errors.InvalidDataError{Row: i, Ticker: row.Ticker, Field: dataset.ColWeight, Reason: "negative weight"}
	}
	if _, dup := seen[row.Ticker]; dup {
		return &errors.InvalidDataError{Row: i, Ticker: row.Ticker, Field: dataset.ColTicker, Reason: "duplicate ticker"}
	}
	return nil
}
