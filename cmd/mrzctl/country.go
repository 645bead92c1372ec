package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docscan/docscan-backend/internal/mrz"
)

func newCountryCmd(opts *options) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "country [CODE]",
		Short: "Resolve a country code to its name",
		Long: `Resolve an MRZ country code (e.g. DEU, D, UTO) to its display name.
Unknown codes resolve to themselves. Use --list to print the whole table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.loadCountries()
			if err != nil {
				return err
			}

			if list {
				return opts.render(cmd.OutOrStdout(), table.Entries())
			}
			if len(args) == 0 {
				return fmt.Errorf("country code required")
			}

			c := mrz.NewDecoder(mrz.Options{Countries: table}).ResolveCountry(args[0])
			if c.Code == "" {
				return fmt.Errorf("invalid country code %q", args[0])
			}
			return opts.render(cmd.OutOrStdout(), country(c))
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "print every entry of the country table")

	return cmd
}
