package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/marketmap/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		origins []string
		timeout time.Duration
		preload bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve heatmaps over HTTP",
		Long: `Serve heatmaps over HTTP.

Endpoints:
  GET /health
  GET /api/dates
  GET /api/summary?date=&maturity=
  GET /api/heatmap?date=&maturity=&format=&width=&height=&viewport=`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			src, err := c.source()
			if err != nil {
				return err
			}
			if preload {
				if err := src.Preload(ctx); err != nil {
					return err
				}
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			defaults := cfg.PipelineOptions()
			defaults.Logger = logger

			srv := server.New(server.Config{
				Addr:           addr,
				ReadTimeout:    cfg.Server.ReadTimeout.Duration,
				WriteTimeout:   cfg.Server.WriteTimeout.Duration,
				RequestTimeout: timeout,
				AllowedOrigins: origins,
				Logger:         logger,
				Runner:         runner,
				Source:         src,
				Defaults:       defaults,
			})
			printInfo("Listening on %s", StyleLink.Render("http://"+displayAddr(addr)))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origins (default any)")
	cmd.Flags().DurationVar(&timeout, "request-timeout", 0, "per-request pipeline timeout (default 60s)")
	cmd.Flags().BoolVar(&preload, "preload", true, "load all tables before listening")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// displayAddr turns a bare port address into a clickable host.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
