package hierarchy

import (
	"errors"
	"math"
	"testing"

	"github.com/matzehuels/marketmap/pkg/aggregate"
	"github.com/matzehuels/marketmap/pkg/dataset"
	mmerrors "github.com/matzehuels/marketmap/pkg/errors"
)

func member(ticker string, weight, pct float64) aggregate.Constituent {
	return aggregate.Constituent{
		ConstituentRow: dataset.ConstituentRow{Ticker: ticker, Weight: weight},
		PctChange:      pct,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func sampleGroups() []aggregate.SectorGroup {
	return []aggregate.SectorGroup{
		{Name: "Tech", Members: []aggregate.Constituent{member("AAPL", 7.1, 1.5), member("MSFT", 6.8, -0.9)}},
		{Name: "Empty"},
		{Name: "Energy", Members: []aggregate.Constituent{member("XOM", 1.2, 0.3)}},
	}
}

func TestBuild(t *testing.T) {
	root, err := Build(sampleGroups())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if root.Kind != KindRoot || root.Name != DefaultRootName || root.Depth() != 0 {
		t.Errorf("root = %+v", root)
	}
	if len(root.Children) != 2 {
		t.Fatalf("sectors = %d, want 2 (empty sector dropped)", len(root.Children))
	}

	tech := root.Children[0]
	if tech.Kind != KindSector || tech.Depth() != 1 || tech.Name != "Tech" {
		t.Errorf("tech = %+v", tech)
	}
	if !approx(tech.Weight, 13.9) {
		t.Errorf("tech aggregate weight = %v", tech.Weight)
	}
	if !approx(root.Weight, 15.1) {
		t.Errorf("root weight = %v", root.Weight)
	}

	leaf := tech.Children[0]
	if !leaf.IsLeaf() || leaf.Depth() != 2 || leaf.Name != "AAPL" || leaf.Sector != "Tech" || leaf.PctChange != 1.5 {
		t.Errorf("leaf = %+v", leaf)
	}

	for _, s := range root.Children {
		if len(s.Children) == 0 {
			t.Errorf("sector %s has no children", s.Name)
		}
		for _, l := range s.Children {
			if len(l.Children) != 0 {
				t.Errorf("leaf %s has children", l.Name)
			}
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build([]aggregate.SectorGroup{{Name: "Empty"}}, WithSelection("2024-01-05", "Daily"))

	var empty *mmerrors.EmptyHierarchyError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyHierarchyError, got %v", err)
	}
	if empty.Date != "2024-01-05" || empty.Maturity != "Daily" {
		t.Errorf("selection not recorded: %+v", empty)
	}

	if _, err := Build(nil); !mmerrors.Is(err, mmerrors.ErrCodeEmptyHierarchy) {
		t.Errorf("Build(nil) error = %v", err)
	}
}

func TestBuildRootName(t *testing.T) {
	root, _ := Build(sampleGroups(), WithRootName("S&P 500"))
	if root.Name != "S&P 500" {
		t.Errorf("root name = %q", root.Name)
	}
	root, _ = Build(sampleGroups(), WithRootName(""))
	if root.Name != DefaultRootName {
		t.Errorf("empty override should keep default, got %q", root.Name)
	}
}

func TestLeavesAndWalk(t *testing.T) {
	root, _ := Build(sampleGroups())

	leaves := root.Leaves()
	if len(leaves) != 3 || leaves[0].Name != "AAPL" || leaves[2].Name != "XOM" {
		t.Errorf("leaves = %v", leaves)
	}

	visited := 0
	root.Walk(func(n *Node) bool {
		visited++
		return n.Kind == KindRoot
	})
	if visited != 3 {
		t.Errorf("Walk visited %d nodes with sector pruning, want 3", visited)
	}
}

func TestHash(t *testing.T) {
	a, _ := Build(sampleGroups())
	b, _ := Build(sampleGroups())
	if Hash(a) == "" || Hash(a) != Hash(b) {
		t.Error("equal trees should hash equally")
	}

	groups := sampleGroups()
	groups[0].Members[0].PctChange = 2.5
	c, _ := Build(groups)
	if Hash(a) == Hash(c) {
		t.Error("different changes should hash differently")
	}
}

func TestKindString(t *testing.T) {
	if KindRoot.String() != "root" || KindSector.String() != "sector" || KindLeaf.String() != "leaf" || Kind(9).String() != "unknown" {
		t.Error("unexpected Kind strings")
	}
}
