package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/marketmap/pkg/dataset"
)

// datesCommand creates the dates command.
func (c *CLI) datesCommand() *cobra.Command {
	var maturity string
	var limit int

	cmd := &cobra.Command{
		Use:   "dates",
		Short: "List selectable dates",
		Long: `List selectable dates.

Without --maturity the shared date list is printed. With --maturity the
dates present in that maturity's change table are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, err := c.source()
			if err != nil {
				return err
			}

			var dates []string
			if maturity == "" {
				dates, err = src.Dates(ctx)
			} else {
				m, perr := dataset.ParseMaturity(maturity)
				if perr != nil {
					return perr
				}
				table, terr := src.Changes(ctx, m)
				if terr != nil {
					return terr
				}
				dates = table.Dates()
			}
			if err != nil {
				return err
			}

			if limit > 0 && len(dates) > limit {
				dates = dates[:limit]
			}
			for _, d := range dates {
				fmt.Println(d)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&maturity, "maturity", "m", "", "list the dates of one change table")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most n dates")

	return cmd
}
