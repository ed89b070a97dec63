package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/matzehuels/marketmap/pkg/cache"
	"github.com/matzehuels/marketmap/pkg/dataset"
	mmerrors "github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/hierarchy"
	"github.com/matzehuels/marketmap/pkg/render"
)

func testSource() *StaticSource {
	rows := []dataset.ConstituentRow{
		{Ticker: "AAPL", Sector: "Information Technology", Weight: 7.1},
		{Ticker: "XOM", Sector: "Energy", Weight: 1.2},
		{Ticker: "MSFT", Sector: "Information Technology", Weight: 6.8},
		{Ticker: "NVDA", Sector: "Information Technology", Weight: 5.0},
	}
	daily := dataset.NewChangeTable(dataset.Daily)
	daily.Add("2024-01-02", map[string]float64{"AAPL": 0.015, "MSFT": -0.009, "XOM": 0.002})
	daily.Add("2024-01-03", map[string]float64{"AAPL": -0.01})

	monthly := dataset.NewChangeTable(dataset.Monthly)
	monthly.Add("2024-01-31", map[string]float64{"AAPL": 0.05, "MSFT": 0.03})
	return NewStaticSource(rows, daily, monthly)
}

func TestRunnerExecute(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	res, err := runner.Execute(context.Background(), testSource(), Options{Date: "2024-01-02"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	root := res.Tree.Root
	if len(root.Children) != 2 {
		t.Fatalf("sectors = %d, want 2", len(root.Children))
	}
	tech := root.Children[0]
	if tech.Name != "Information Technology" {
		t.Fatalf("first sector = %q, want Information Technology", tech.Name)
	}
	want := []struct {
		ticker string
		pct    float64
	}{{"AAPL", 1.5}, {"MSFT", -0.9}, {"NVDA", 0}}
	for i, w := range want {
		leaf := tech.Children[i]
		if leaf.Name != w.ticker {
			t.Errorf("member %d = %s, want %s", i, leaf.Name, w.ticker)
		}
		if math.Abs(leaf.PctChange-w.pct) > 1e-9 {
			t.Errorf("%s pct = %v, want %v", leaf.Name, leaf.PctChange, w.pct)
		}
	}

	if res.Stats.Sectors != 2 || res.Stats.Leaves != 4 {
		t.Errorf("stats = %+v", res.Stats)
	}
	svg, ok := res.Artifacts[render.FormatSVG]
	if !ok || !bytes.HasPrefix(svg, []byte("<svg")) {
		t.Errorf("missing svg artifact: %q", svg)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.Selection().Maturity != dataset.Daily {
		t.Errorf("Selection = %+v", res.Selection())
	}
}

func TestRunnerExecuteMissingDate(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	_, err := runner.Execute(context.Background(), testSource(), Options{Date: "2023-12-29"})

	var empty *mmerrors.EmptyHierarchyError
	if !errors.As(err, &empty) {
		t.Fatalf("err = %v, want EmptyHierarchyError", err)
	}
	if empty.Date != "2023-12-29" || empty.Maturity != "Daily" {
		t.Errorf("error selection = %+v", empty)
	}
	if !mmerrors.Is(err, mmerrors.ErrCodeEmptyHierarchy) {
		t.Errorf("code = %s", mmerrors.GetCode(err))
	}
}

func TestRunnerExecuteExactDateKeys(t *testing.T) {
	rows := []dataset.ConstituentRow{{Ticker: "AAPL", Sector: "Information Technology", Weight: 7.1}}
	daily := dataset.NewChangeTable(dataset.Daily)
	daily.Add("01/02/2024", map[string]float64{"AAPL": 0.015})
	src := NewStaticSource(rows, daily)
	runner := NewRunner(nil, nil, nil)

	res, err := runner.Execute(context.Background(), src, Options{Date: "01/02/2024"})
	if err != nil {
		t.Fatalf("Execute(01/02/2024): %v", err)
	}
	if leaf := res.Tree.Root.Leaves()[0]; math.Abs(leaf.PctChange-1.5) > 1e-9 {
		t.Errorf("AAPL pct = %v, want 1.5", leaf.PctChange)
	}

	tests := []string{"no-such-date", "2024-01-02", "01/02/2024 "}
	for _, date := range tests {
		_, err := runner.Execute(context.Background(), src, Options{Date: date})
		var empty *mmerrors.EmptyHierarchyError
		if !errors.As(err, &empty) {
			t.Errorf("Execute(%q) = %v, want EmptyHierarchyError", date, err)
		}
	}
}

func TestRunnerExecuteUnknownMaturityTable(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	_, err := runner.Execute(context.Background(), testSource(), Options{Date: "2024-01-02", Maturity: dataset.Annual})
	if !mmerrors.Is(err, mmerrors.ErrCodeEmptyHierarchy) {
		t.Errorf("err = %v, want EMPTY_HIERARCHY", err)
	}
}

func TestRunnerExecuteFormats(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	res, err := runner.Execute(context.Background(), testSource(), Options{
		Date:    "2024-01-02",
		Formats: []string{render.FormatSVG, render.FormatJSON, render.FormatPNG},
		Width:   400,
		Height:  300,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := res.Formats()
	want := []string{"json", "png", "svg"}
	if len(got) != len(want) {
		t.Fatalf("Formats = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Formats[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if !bytes.HasPrefix(res.Artifacts["png"], []byte("\x89PNG")) {
		t.Error("png artifact has no PNG signature")
	}
}

func TestRunnerCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()
	ctx := context.Background()
	opts := Options{Date: "2024-01-02", Width: 600, Height: 400}

	first, err := runner.Execute(ctx, testSource(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run hit cache: %+v", first.CacheInfo)
	}

	second, err := runner.Execute(ctx, testSource(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run missed cache: %+v", second.CacheInfo)
	}
	if !bytes.Equal(first.Artifacts["svg"], second.Artifacts["svg"]) {
		t.Error("cached artifact differs")
	}

	opts.Refresh = true
	third, err := runner.Execute(ctx, testSource(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.LayoutHit {
		t.Error("refresh run used cached layout")
	}
}

func TestRunnerRelayout(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	ctx := context.Background()
	tree, err := runner.Build(ctx, testSource(), Options{Date: "2024-01-02"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := runner.Relayout(ctx, tree, Options{Width: 300, Height: 200})
	if err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	if res.Tree != tree {
		t.Error("relayout rebuilt the hierarchy")
	}
	if res.Layout.Bounds.Width != 300 {
		t.Errorf("bounds = %+v", res.Layout.Bounds)
	}

	_, err = runner.Relayout(ctx, tree, Options{Width: 0, Height: 200})
	var le *mmerrors.LayoutError
	if !errors.As(err, &le) {
		t.Errorf("err = %v, want LayoutError", err)
	}

	if _, err := runner.Relayout(ctx, nil, Options{}); err == nil {
		t.Error("nil tree accepted")
	}
}

func TestRunnerBuildSummary(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	tree, err := runner.Build(context.Background(), testSource(), Options{
		Date:     "2024-01-02",
		RootName: "S&P 500",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tree.Root.Name != "S&P 500" {
		t.Errorf("root = %q", tree.Root.Name)
	}
	if tree.Hash == "" || tree.Hash != hierarchy.Hash(tree.Root) {
		t.Errorf("Hash = %q", tree.Hash)
	}
	if len(tree.Summary) != 2 || tree.Summary[0].Best != "AAPL" || tree.Summary[0].Worst != "MSFT" {
		t.Errorf("Summary = %+v", tree.Summary)
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner(nil, nil, nil)
	_, err := runner.Execute(ctx, testSource(), Options{Date: "2024-01-02"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
