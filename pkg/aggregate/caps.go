package aggregate

import (
	"maps"
	"slices"
)

// DefaultCap is the member limit for sectors without an explicit cap.
const DefaultCap = 25

// Caps maps sector names to their maximum number of members.
// Sectors missing from the map, or mapped to a value ≤ 0, use DefaultCap.
type Caps map[string]int

// Cap returns the member limit for sector.
func (c Caps) Cap(sector string) int {
	if n, ok := c[sector]; ok && n > 0 {
		return n
	}
	return DefaultCap
}

// Merge returns a copy of c with the entries of override applied on top.
func (c Caps) Merge(override map[string]int) Caps {
	out := make(Caps, len(c)+len(override))
	maps.Copy(out, c)
	maps.Copy(out, override)
	return out
}

// Sectors returns the sector names with an explicit cap, sorted.
func (c Caps) Sectors() []string {
	return slices.Sorted(maps.Keys(c))
}

// DefaultCaps returns the standard per-sector cell budget. Sectors with more
// name-level diversity get more cells; Information Technology, Financials and
// Health Care fall through to DefaultCap.
func DefaultCaps() Caps {
	return Caps{
		"Communication Services": 10,
		"Consumer Discretionary": 12,
		"Energy":                 8,
		"Utilities":              5,
		"Real Estate":            8,
		"Materials":              8,
		"Industrials":            25,
		"Consumer Staples":       12,
	}
}
