package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/pipeline"
	"github.com/matzehuels/marketmap/pkg/render"
	"github.com/matzehuels/marketmap/pkg/viewport"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	date     string  // selection date; empty selects the first available date
	maturity string  // Daily, Monthly or Annual
	output   string  // output file (single format) or base path
	formats  string  // comma-separated output formats
	width    float64 // canvas width in pixels
	height   float64 // canvas height in pixels
	title    string  // header title
	margin   float64 // outer margin in pixels
	scale    float64 // PNG pixel density
	viewport string  // pan/zoom transform "k,x,y"
	noCache  bool    // disable the layout and artifact cache
	refresh  bool    // recompute and overwrite cached entries
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the heatmap of one date and maturity",
		Long: `Render the heatmap of one date and maturity.

Cells are sized by index weight and colored by percentage change, from red
(-5% and below) through gray to green (+5% and above).`,
		Example: `  marketmap render --date 2024-01-02
  marketmap render --date 2024-01-31 --maturity monthly -f svg,png -o jan
  marketmap render --viewport 2,-300,-200 --width 1440 --height 900`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "selection date as it appears in the change table (default: first available)")
	cmd.Flags().StringVarP(&opts.maturity, "maturity", "m", string(dataset.DefaultMaturity), "change maturity: daily, monthly, annual")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg, png, json (comma-separated)")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "canvas width (default from config)")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "canvas height (default from config)")
	cmd.Flags().StringVar(&opts.title, "title", "", "header title")
	cmd.Flags().Float64Var(&opts.margin, "margin", 0, "outer margin in pixels")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "PNG pixel density (default 2)")
	cmd.Flags().StringVar(&opts.viewport, "viewport", "", "pan/zoom transform k,x,y")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute cached layouts and artifacts")

	return cmd
}

// pipelineOptions converts flags into run options. Flags left at their zero
// value fall back to the configuration.
func (o renderOpts) pipelineOptions() (pipeline.Options, error) {
	m, err := dataset.ParseMaturity(o.maturity)
	if err != nil {
		return pipeline.Options{}, err
	}
	formats := parseFormats(o.formats)
	if err := validateFormats(formats); err != nil {
		return pipeline.Options{}, err
	}
	vp, err := viewport.Parse(o.viewport)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Date:     o.date,
		Maturity: m,
		Width:    o.width,
		Height:   o.height,
		Formats:  formats,
		Title:    o.title,
		Margin:   o.margin,
		Scale:    o.scale,
		Viewport: vp,
		Refresh:  o.refresh,
	}, nil
}

func (c *CLI) runRender(ctx context.Context, flags renderOpts) error {
	opts, err := flags.pipelineOptions()
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	src := cfg.Source(c.Logger)

	if opts.Date == "" {
		sel, err := src.DefaultSelection(ctx)
		if err != nil {
			return err
		}
		opts.Date = sel.Date
	}
	setCLIDefaults(&opts, cfg)
	opts.Logger = c.Logger

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s (%s)...", opts.Date, opts.Maturity))
	spinner.Start()
	res, err := runner.Execute(ctx, src, opts)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("Render failed for %s (%s)", opts.Date, opts.Maturity))
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Rendered %s (%s)", opts.Date, opts.Maturity))
	printStats(res.Stats.Sectors, res.Stats.Leaves, res.CacheInfo.LayoutHit)
	if n := res.Stats.Excluded; n > 0 {
		printWarning("%d constituent rows excluded (run with -v for details)", n)
	}

	paths := outputPaths(flags.output, res.Selection(), res.Formats())
	for _, format := range res.Formats() {
		if err := os.WriteFile(paths[format], res.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", paths[format], err)
		}
		printFile(paths[format])
	}
	prog.done("render complete", "files", len(paths), "run_id", res.RunID)
	return nil
}

// outputPaths maps each format to its output file.
//
// With one format, an output path is used as is. Otherwise a known format
// extension is stripped from output and each format appends its own. An
// empty output derives the name from the selection.
func outputPaths(output string, sel dataset.Selection, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if output != "" && len(formats) == 1 && filepath.Ext(output) != "" {
		paths[formats[0]] = output
		return paths
	}

	base := output
	if base == "" {
		date := strings.NewReplacer("/", "-", `\`, "-", " ", "_").Replace(sel.Date)
		base = fmt.Sprintf("%s-%s-%s", appName, date, strings.ToLower(string(sel.Maturity)))
	} else if ext := strings.TrimPrefix(filepath.Ext(base), "."); render.ValidateFormat(ext) == nil {
		base = strings.TrimSuffix(base, "."+ext)
	}
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}
