package aggregate

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SectorSummary condenses one group for tables and JSON output.
type SectorSummary struct {
	Name        string  `json:"name"`
	Members     int     `json:"members"`
	TotalWeight float64 `json:"total_weight"`
	// WeightedChange is the weight-weighted mean percentage change.
	// It is NaN when every member has zero weight.
	WeightedChange float64 `json:"weighted_change"`
	Best           string  `json:"best,omitempty"`
	Worst          string  `json:"worst,omitempty"`
}

// Summarize computes a SectorSummary for every group, in group order.
func Summarize(groups []SectorGroup) []SectorSummary {
	out := make([]SectorSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, summarize(g))
	}
	return out
}

func summarize(g SectorGroup) SectorSummary {
	s := SectorSummary{Name: g.Name, Members: len(g.Members), WeightedChange: math.NaN()}
	if len(g.Members) == 0 {
		return s
	}

	changes := make([]float64, len(g.Members))
	weights := make([]float64, len(g.Members))
	best, worst := 0, 0
	for i, m := range g.Members {
		changes[i] = m.PctChange
		weights[i] = m.Weight
		s.TotalWeight += m.Weight
		if m.PctChange > g.Members[best].PctChange {
			best = i
		}
		if m.PctChange < g.Members[worst].PctChange {
			worst = i
		}
	}
	if s.TotalWeight > 0 {
		s.WeightedChange = stat.Mean(changes, weights)
	}
	s.Best = g.Members[best].Ticker
	s.Worst = g.Members[worst].Ticker
	return s
}
