package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/marketmap/pkg/aggregate"
	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/encode"
	mmio "github.com/matzehuels/marketmap/pkg/io"
	"github.com/matzehuels/marketmap/pkg/pipeline"
)

// summaryHeaders are the columns of the sector summary.
var summaryHeaders = []string{"Sector", "Members", "Weight", "Change", "Best", "Worst"}

// summaryCommand creates the summary command.
func (c *CLI) summaryCommand() *cobra.Command {
	var date, maturity, export string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show per-sector totals for a selection",
		Example: `  marketmap summary --date 2024-01-02
  marketmap summary --date 2024-01-31 -m monthly --export sectors.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			src := cfg.Source(c.Logger)

			m, err := dataset.ParseMaturity(maturity)
			if err != nil {
				return err
			}
			if date == "" {
				sel, err := src.DefaultSelection(ctx)
				if err != nil {
					return err
				}
				date = sel.Date
			}

			runner := pipeline.NewRunner(nil, nil, c.Logger)
			opts := cfg.PipelineOptions()
			opts.Date, opts.Maturity = date, m
			tree, err := runner.Build(ctx, src, opts)
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render(fmt.Sprintf("%s · %s", date, m)))
			fmt.Println(renderSummaryTable(tree.Summary))
			printKeyValue("Sectors", strconv.Itoa(len(tree.Summary)))
			printKeyValue("Excluded", strconv.Itoa(len(tree.Excluded)))
			printKeyValue("Truncated", strconv.Itoa(tree.Truncated))

			if export != "" {
				if err := mmio.ExportTable(summaryTable(tree.Summary), export); err != nil {
					return err
				}
				printFile(export)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "selection date as it appears in the change table (default: first available)")
	cmd.Flags().StringVarP(&maturity, "maturity", "m", string(dataset.DefaultMaturity), "change maturity: daily, monthly, annual")
	cmd.Flags().StringVar(&export, "export", "", "also write the summary to a .csv or .xlsx file")

	return cmd
}

// summaryTable converts summaries into an exportable table.
func summaryTable(sums []aggregate.SectorSummary) dataset.Table {
	t := dataset.Table{Header: summaryHeaders}
	for _, s := range sums {
		change := ""
		if !math.IsNaN(s.WeightedChange) {
			change = strconv.FormatFloat(s.WeightedChange, 'f', 4, 64)
		}
		t.Records = append(t.Records, []string{
			s.Name,
			strconv.Itoa(s.Members),
			strconv.FormatFloat(s.TotalWeight, 'f', 4, 64),
			change,
			s.Best,
			s.Worst,
		})
	}
	return t
}

// renderSummaryTable renders summaries as a styled table. The change column
// uses the heatmap color of the sector's weighted change.
func renderSummaryTable(sums []aggregate.SectorSummary) string {
	rows := make([][]string, len(sums))
	for i, s := range sums {
		rows[i] = []string{
			s.Name,
			strconv.Itoa(s.Members),
			fmt.Sprintf("%.2f", s.TotalWeight),
			encode.FormatChange(s.WeightedChange),
			s.Best,
			s.Worst,
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(summaryHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			switch col {
			case 1, 2:
				return base.Foreground(colorGray).Align(lipgloss.Right)
			case 3:
				if row >= 0 && row < len(sums) {
					return base.Foreground(heatColor(sums[row].WeightedChange)).Align(lipgloss.Right)
				}
			}
			return base
		}).
		Render()
}
