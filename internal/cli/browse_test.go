package cli

import (
	"context"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/marketmap/pkg/dataset"
	mmerrors "github.com/matzehuels/marketmap/pkg/errors"
	mmio "github.com/matzehuels/marketmap/pkg/io"
	"github.com/matzehuels/marketmap/pkg/pipeline"
)

func newTestBrowser(t *testing.T) BrowseModel {
	t.Helper()
	ctx := context.Background()
	src := mmio.NewFileSource(writeDataDir(t), mmio.Paths{}, nil)
	dates, err := src.Dates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(nil, nil, nil)
	session := pipeline.NewSession(runner, src, pipeline.Options{Width: 600, Height: 400})
	return NewBrowseModel(ctx, session, dates)
}

// step feeds msg to m and runs the returned command synchronously.
func step(t *testing.T, m BrowseModel, msg tea.Msg) BrowseModel {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(BrowseModel)
	if cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(BrowseModel)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowseSelect(t *testing.T) {
	m := newTestBrowser(t)
	m = step(t, m, m.Init()())

	if m.Err != nil {
		t.Fatalf("initial select: %v", m.Err)
	}
	want := dataset.Selection{Date: "2024-01-02", Maturity: dataset.Daily}
	if m.Selected != want {
		t.Errorf("Selected = %+v, want %+v", m.Selected, want)
	}

	m = step(t, m, key("down"))
	if m.Selected.Date != "2024-01-03" || m.Loading {
		t.Errorf("after down: %+v loading=%v", m.Selected, m.Loading)
	}
	if v := m.View(); !strings.Contains(v, "Information Technology") || !strings.Contains(v, "2024-01-03") {
		t.Errorf("view missing content:\n%s", v)
	}

	m = step(t, m, key("down"))
	if m.DateIdx != 1 {
		t.Errorf("cursor moved past the last date: %d", m.DateIdx)
	}
}

func TestBrowseFailedSelectKeepsFrame(t *testing.T) {
	m := newTestBrowser(t)
	m = step(t, m, m.Init()())

	// The shared dates are absent from the monthly table.
	m = step(t, m, key("right"))
	if !mmerrors.Is(m.Err, mmerrors.ErrCodeEmptyHierarchy) {
		t.Fatalf("Err = %v, want EMPTY_HIERARCHY", m.Err)
	}
	if got := m.session.Frame().Result.Selection().Maturity; got != dataset.Daily {
		t.Errorf("frame maturity = %s, want Daily kept", got)
	}
	if v := m.View(); !strings.Contains(v, "showing 2024-01-02 (Daily)") {
		t.Errorf("view should show the kept frame:\n%s", v)
	}

	m = step(t, m, key("left"))
	if m.Err != nil {
		t.Errorf("Err after returning to Daily = %v", m.Err)
	}
}

func TestBrowseViewportAndSave(t *testing.T) {
	t.Chdir(t.TempDir())
	m := newTestBrowser(t)
	m = step(t, m, m.Init()())

	m = step(t, m, key("+"))
	if k := m.session.Viewport().K; k != zoomStep {
		t.Errorf("zoom K = %v, want %v", k, zoomStep)
	}
	m = step(t, m, key("D"))
	m = step(t, m, key("down"))
	if k := m.session.Viewport().K; k != zoomStep {
		t.Errorf("viewport reset by select: K = %v", k)
	}

	m = step(t, m, key("s"))
	if m.Err != nil || m.Saved != "marketmap-2024-01-03-daily.svg" {
		t.Fatalf("save: %q, %v", m.Saved, m.Err)
	}
	data, err := os.ReadFile(m.Saved)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "scale(1.25)") {
		t.Error("saved svg lacks the viewport transform")
	}

	m = step(t, m, key("0"))
	if !m.session.Viewport().IsIdentity() {
		t.Errorf("viewport after reset = %+v", m.session.Viewport())
	}
}

func TestBrowseStaleIgnored(t *testing.T) {
	m := newTestBrowser(t)
	m.Loading = true
	next, _ := m.Update(frameMsg{err: pipeline.ErrStale})
	if got := next.(BrowseModel); got.Err != nil || !got.Loading {
		t.Errorf("stale result should be ignored: err=%v loading=%v", got.Err, got.Loading)
	}
}

func TestBrowseQuit(t *testing.T) {
	m := newTestBrowser(t)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
