// Package cli implements the marketmap command-line interface.
//
// # Commands
//
//   - render: write the heatmap of one date and maturity as SVG, PNG or JSON
//   - dates: list the selectable dates
//   - summary: per-sector table for a selection, optionally exported
//   - browse: interactive date and maturity browser
//   - serve: HTTP server for heatmap artifacts
//   - cache: manage the layout and artifact cache
//   - config: show the effective configuration
//
// # Configuration
//
// Settings come from a TOML file (--config, or config.toml in the XDG config
// directory) and are overridden by flags. See package config.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/marketmap/pkg/buildinfo"
	"github.com/matzehuels/marketmap/pkg/cache"
	"github.com/matzehuels/marketmap/pkg/config"
	mmio "github.com/matzehuels/marketmap/pkg/io"
	"github.com/matzehuels/marketmap/pkg/pipeline"
	"github.com/matzehuels/marketmap/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	dataDir    string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Marketmap renders index constituents as a sector heatmap",
		Long:         `Marketmap is a CLI tool for rendering index constituents as a zoomable treemap heatmap: cells sized by index weight, colored by percentage change and grouped by GICS sector.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/marketmap/config.toml)")
	root.PersistentFlags().StringVarP(&c.dataDir, "data", "d", "", "directory holding the input tables (overrides config)")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.datesCommand())
	root.AddCommand(c.summaryCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Sources
// =============================================================================

// loadConfig loads the configuration once per process. The --data flag
// overrides the configured data directory.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.cfg == nil {
		cfg, path, err := config.LoadFile(c.configPath)
		if err != nil {
			return config.Config{}, err
		}
		if path != "" {
			c.Logger.Debug("loaded config", "path", path)
		}
		c.cfg = &cfg
	}
	cfg := *c.cfg
	if c.dataDir != "" {
		cfg.Data.Dir = c.dataDir
	}
	return cfg, nil
}

// source returns the file source of the configured tables.
func (c *CLI) source() (*mmio.FileSource, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Source(c.Logger), nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, cfg.Keyer(), c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return cfg.OpenCache(ctx)
}

// =============================================================================
// Options Helpers
// =============================================================================

// setCLIDefaults applies config values on top of pipeline defaults.
func setCLIDefaults(opts *pipeline.Options, cfg config.Config) {
	base := cfg.PipelineOptions()
	if opts.Caps == nil {
		opts.Caps = base.Caps
	}
	if opts.Width == 0 {
		opts.Width = base.Width
	}
	if opts.Height == 0 {
		opts.Height = base.Height
	}
	if opts.Layout == (pipeline.Options{}).Layout {
		opts.Layout = base.Layout
	}
	if len(opts.Formats) == 0 {
		opts.Formats = base.Formats
	}
	if opts.Title == "" {
		opts.Title = base.Title
	}
	if opts.Margin == 0 {
		opts.Margin = base.Margin
	}
	if opts.Scale == 0 {
		opts.Scale = base.Scale
	}
	opts.SetLayoutDefaults()
	opts.SetRenderDefaults()
}

// parseFormats parses a comma-separated format string into a slice.
// An empty string yields nil so the configured formats apply.
func parseFormats(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// validateFormats checks that all requested formats are valid.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if err := render.ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}
