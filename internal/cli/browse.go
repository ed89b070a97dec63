package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/encode"
	"github.com/matzehuels/marketmap/pkg/pipeline"
	"github.com/matzehuels/marketmap/pkg/viewport"
)

// zoomStep is the factor applied by one zoom key press.
const zoomStep = 1.25

// panStep is the distance in pixels moved by one pan key press.
const panStep = 50

var (
	browseTabStyle    = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
	browseActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	browseDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	browseErrStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse dates and maturities interactively",
		Long: `Browse dates and maturities interactively.

Up and down move between dates, left and right switch the maturity. Each
change rebuilds the heatmap; a failed selection keeps the previous view.
Press s to save the current view as SVG.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			src, err := c.source()
			if err != nil {
				return err
			}
			dates, err := src.Dates(ctx)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := cfg.PipelineOptions()
			opts.Logger = c.Logger
			session := pipeline.NewSession(runner, src, opts)

			final, err := tea.NewProgram(NewBrowseModel(ctx, session, dates), tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}
			if m, ok := final.(BrowseModel); ok && m.Saved != "" {
				printFile(m.Saved)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// =============================================================================
// BrowseModel - Interactive selection of date and maturity
// =============================================================================

// frameMsg reports the outcome of one Select.
type frameMsg struct {
	sel dataset.Selection
	err error
}

// savedMsg reports the outcome of writing the current view.
type savedMsg struct {
	path string
	err  error
}

// BrowseModel is the bubbletea model for the heatmap browser.
type BrowseModel struct {
	Dates    []string
	DateIdx  int
	MatIdx   int
	Loading  bool
	Err      error
	Saved    string
	Selected dataset.Selection

	ctx     context.Context
	session *pipeline.Session
}

// NewBrowseModel creates a browser positioned on the first date with the
// default maturity.
func NewBrowseModel(ctx context.Context, session *pipeline.Session, dates []string) BrowseModel {
	return BrowseModel{Dates: dates, ctx: ctx, session: session}
}

// Selection returns the selection under the cursor.
func (m BrowseModel) Selection() dataset.Selection {
	sel := dataset.Selection{Maturity: dataset.Maturities()[m.MatIdx]}
	if m.DateIdx < len(m.Dates) {
		sel.Date = m.Dates[m.DateIdx]
	}
	return sel
}

func (m BrowseModel) Init() tea.Cmd {
	if len(m.Dates) == 0 {
		return nil
	}
	return m.selectCmd()
}

// selectCmd runs Select for the current cursor off the UI goroutine.
func (m BrowseModel) selectCmd() tea.Cmd {
	sel := m.Selection()
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		_, err := session.Select(ctx, sel)
		return frameMsg{sel: sel, err: err}
	}
}

// saveCmd writes the current frame as SVG.
func (m BrowseModel) saveCmd() tea.Cmd {
	frame := m.session.Frame()
	return func() tea.Msg {
		data, err := frame.Artifact("svg", pipeline.Options{})
		if err != nil {
			return savedMsg{err: err}
		}
		path := outputPaths("", frame.Result.Selection(), []string{"svg"})["svg"]
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{path: path}
	}
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case frameMsg:
		if errors.Is(msg.err, pipeline.ErrStale) {
			return m, nil
		}
		m.Loading = false
		m.Err = msg.err
		if msg.err == nil {
			m.Selected = msg.sel
		}
	case savedMsg:
		m.Err = msg.err
		if msg.err == nil {
			m.Saved = msg.path
		}
	}
	return m, nil
}

func (m BrowseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	changed := false
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.DateIdx > 0 {
			m.DateIdx--
			changed = true
		}
	case "down", "j":
		if m.DateIdx < len(m.Dates)-1 {
			m.DateIdx++
			changed = true
		}
	case "left", "h":
		if m.MatIdx > 0 {
			m.MatIdx--
			changed = true
		}
	case "right", "l":
		if m.MatIdx < len(dataset.Maturities())-1 {
			m.MatIdx++
			changed = true
		}
	case "+", "=":
		m.zoom(zoomStep)
	case "-":
		m.zoom(1 / zoomStep)
	case "0":
		m.session.SetViewport(viewport.Identity)
	case "W":
		m.session.Pan(0, panStep)
	case "S":
		m.session.Pan(0, -panStep)
	case "A":
		m.session.Pan(panStep, 0)
	case "D":
		m.session.Pan(-panStep, 0)
	case "s":
		if m.session.Frame().Result != nil {
			return m, m.saveCmd()
		}
	}
	if changed && len(m.Dates) > 0 {
		m.Loading = true
		return m, m.selectCmd()
	}
	return m, nil
}

// zoom scales the viewport around the canvas center.
func (m BrowseModel) zoom(factor float64) {
	b := m.session.Bounds()
	m.session.ZoomAt(factor, b.Width/2, b.Height/2)
}

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Market Heatmap"))
	b.WriteString("\n")
	b.WriteString(browseDimStyle.Render("↑/↓ date  ←/→ maturity  +/- zoom  WASD pan  0 reset  s save  q quit"))
	b.WriteString("\n\n")

	tabs := make([]string, 0, len(dataset.Maturities()))
	for i, mat := range dataset.Maturities() {
		style := browseTabStyle
		if i == m.MatIdx {
			style = browseActiveStyle
		}
		tabs = append(tabs, style.Render(string(mat)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")

	if len(m.Dates) == 0 {
		b.WriteString(browseDimStyle.Render("no dates available"))
		b.WriteString("\n")
		return b.String()
	}

	cur := m.Selection()
	status := fmt.Sprintf("%s  [%d/%d]", cur.Date, m.DateIdx+1, len(m.Dates))
	if m.Loading {
		status += "  " + browseDimStyle.Render("loading...")
	}
	b.WriteString(StyleValue.Render(status))
	b.WriteString("\n")

	frame := m.session.Frame()
	if res := frame.Result; res != nil {
		shown := res.Selection()
		if shown != cur {
			b.WriteString(browseDimStyle.Render(fmt.Sprintf("showing %s (%s)", shown.Date, shown.Maturity)))
			b.WriteString("\n")
		}
		b.WriteString(renderSummaryTable(res.Tree.Summary))
		b.WriteString("\n")
		b.WriteString(browseDimStyle.Render(fmt.Sprintf("%d cells  viewport %s", res.Stats.Leaves, frame.Viewport)))
		b.WriteString("\n")
	}

	if m.Err != nil {
		b.WriteString(browseErrStyle.Render(iconError + " " + m.Err.Error()))
		b.WriteString("\n")
	}
	if m.Saved != "" {
		b.WriteString(StyleSuccess.Render(iconSuccess + " saved " + m.Saved))
		b.WriteString("\n")
	}
	b.WriteString(legend())

	return b.String()
}

// legend renders the color scale as a row of swatches.
func legend() string {
	lo, hi := encode.DefaultScale().Domain()
	var parts []string
	for v := lo; v <= hi; v++ {
		parts = append(parts, lipgloss.NewStyle().
			Background(heatColor(v)).
			Foreground(colorWhite).
			Render(fmt.Sprintf(" %+.0f ", v)))
	}
	return strings.Join(parts, "")
}
