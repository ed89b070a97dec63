package aggregate_test

import (
	"fmt"

	"github.com/matzehuels/marketmap/pkg/aggregate"
	"github.com/matzehuels/marketmap/pkg/dataset"
)

func ExampleAggregate() {
	rows := []dataset.ConstituentRow{
		{Ticker: "AAPL", Sector: "Tech", Weight: 7.1},
		{Ticker: "XOM", Sector: "Energy", Weight: 1.2},
		{Ticker: "MSFT", Sector: "Tech", Weight: 6.8},
		{Ticker: "NVDA", Sector: "Tech", Weight: 6.5},
		{Ticker: "CVX", Sector: "Energy", Weight: 0.9},
		{Ticker: "BAD", Sector: "Energy", Weight: -1},
	}
	// Fractional changes for the selected date; CVX has none.
	changes := map[string]float64{"AAPL": 0.015, "MSFT": -0.009, "NVDA": 0.02, "XOM": 0.003}

	res, _ := aggregate.Aggregate(rows, changes, aggregate.Caps{"Tech": 2})
	for _, g := range res.Groups {
		for _, m := range g.Members {
			fmt.Printf("%s/%s weight=%.1f change=%.2f%% joined=%v\n", g.Name, m.Ticker, m.Weight, m.PctChange, m.HasChange)
		}
	}
	fmt.Println("truncated:", res.Truncated)
	for _, ex := range res.Excluded {
		fmt.Println("excluded:", ex.Ticker, ex.Reason)
	}
	// Output:
	// Tech/AAPL weight=7.1 change=1.50% joined=true
	// Tech/MSFT weight=6.8 change=-0.90% joined=true
	// Energy/XOM weight=1.2 change=0.30% joined=true
	// Energy/CVX weight=0.9 change=0.00% joined=false
	// truncated: 1
	// excluded: BAD negative weight
}
