package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/marketmap/pkg/config"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return cfg.Encode(os.Stdout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Resolve(c.configPath)
			if err != nil {
				return err
			}
			if path == "" {
				printInfo("No config file found, using defaults")
				if dir, err := config.ConfigDir(); err == nil {
					printNextStep("Create one", "marketmap config show > "+filepath.Join(dir, config.FileName))
				}
				return nil
			}
			fmt.Println(path)
			return nil
		},
	})

	return cmd
}
