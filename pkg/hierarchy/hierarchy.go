// Package hierarchy builds the three-level tree behind the heatmap.
//
// The tree always has exactly three levels:
//
//	Root ("Market")           depth 0
//	└── Sector                depth 1, Weight = sum of member weights
//	    └── Leaf (ticker)     depth 2, Weight = constituent weight
//
// Trees are immutable once built. A resize reuses the same tree and only
// recomputes the layout; a new selection builds a new tree.
package hierarchy

import (
	"encoding/json"

	"github.com/matzehuels/marketmap/pkg/aggregate"
	"github.com/matzehuels/marketmap/pkg/cache"
	"github.com/matzehuels/marketmap/pkg/errors"
)

// DefaultRootName names the synthetic root node.
const DefaultRootName = "Market"

// Kind tags the variant of a Node.
type Kind int

// Node kinds, in depth order.
const (
	KindRoot Kind = iota
	KindSector
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindSector:
		return "sector"
	case KindLeaf:
		return "leaf"
	}
	return "unknown"
}

// Node is one vertex of the hierarchy.
//
// Name holds the root name, the sector name, or the ticker. PctChange is only
// meaningful for leaves; Sector is set on leaves to their parent's name.
type Node struct {
	Kind      Kind    `json:"kind"`
	Name      string  `json:"name"`
	Sector    string  `json:"sector,omitempty"`
	Weight    float64 `json:"weight"`
	PctChange float64 `json:"pct_change,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// Depth returns 0 for the root, 1 for sectors and 2 for leaves.
func (n *Node) Depth() int { return int(n.Kind) }

// IsLeaf reports whether n is a constituent leaf.
func (n *Node) IsLeaf() bool { return n.Kind == KindLeaf }

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Leaves returns all leaf nodes in tree order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Walk(func(x *Node) bool {
		if x.IsLeaf() {
			out = append(out, x)
		}
		return true
	})
	return out
}

// Option configures Build.
type Option func(*builder)

type builder struct {
	rootName string
	date     string
	maturity string
}

// WithRootName overrides the root label (default "Market").
func WithRootName(name string) Option {
	return func(b *builder) {
		if name != "" {
			b.rootName = name
		}
	}
}

// WithSelection records the selection in the EmptyHierarchyError returned
// when nothing survives aggregation.
func WithSelection(date, maturity string) Option {
	return func(b *builder) { b.date, b.maturity = date, maturity }
}

// Build wraps sector groups into a rooted tree.
//
// Empty groups are dropped. If no group remains, Build returns an
// *errors.EmptyHierarchyError; callers must surface it instead of rendering
// an empty canvas.
func Build(groups []aggregate.SectorGroup, opts ...Option) (*Node, error) {
	b := builder{rootName: DefaultRootName}
	for _, opt := range opts {
		opt(&b)
	}

	root := &Node{Kind: KindRoot, Name: b.rootName}
	for _, g := range groups {
		if len(g.Members) == 0 {
			continue
		}
		sector := &Node{
			Kind:     KindSector,
			Name:     g.Name,
			Children: make([]*Node, 0, len(g.Members)),
		}
		for _, m := range g.Members {
			sector.Children = append(sector.Children, &Node{
				Kind:      KindLeaf,
				Name:      m.Ticker,
				Sector:    g.Name,
				Weight:    m.Weight,
				PctChange: m.PctChange,
			})
			sector.Weight += m.Weight
		}
		root.Weight += sector.Weight
		root.Children = append(root.Children, sector)
	}

	if len(root.Children) == 0 {
		return nil, &errors.EmptyHierarchyError{Date: b.date, Maturity: b.maturity}
	}
	return root, nil
}

// Hash returns a content hash of the tree, stable across runs for equal
// input. Layout cache keys are derived from it.
func Hash(root *Node) string {
	data, err := json.Marshal(root)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}
