package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docscan/docscan-backend/internal/countries"
	"github.com/docscan/docscan-backend/pkg/config"
)

// options are shared by every subcommand.
type options struct {
	countriesPath string
	output        string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "mrzctl",
		Short: "Decode machine readable zones of passports and ID cards",
		Long: `mrzctl decodes the machine readable zone (MRZ) of travel documents
without a running service.

Supported layouts:
  - TD3 (passports): 2 lines x 44 characters
  - TD1 (ID cards):  3 lines x 30 characters`,
		Example: `  mrzctl decode 'P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<' 'L898902C36UTO7408122F1204159ZE184226B<<<<<10'
  cat scan.txt | mrzctl decode -o json
  mrzctl country DEU`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want json or yaml)", opts.output)
			}
		},
	}

	cmd.PersistentFlags().StringVar(
		&opts.countriesPath, "countries", config.GetEnv("DOCSCAN_MRZ_COUNTRY_TABLE_PATH", ""),
		"country table YAML (default: $DOCSCAN_MRZ_COUNTRY_TABLE_PATH; codes resolve to themselves when unset)",
	)
	cmd.PersistentFlags().StringVarP(
		&opts.output, "output", "o", "yaml", "output format: yaml or json",
	)

	cmd.AddCommand(newDecodeCmd(opts))
	cmd.AddCommand(newCountryCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (o *options) loadCountries() (*countries.Table, error) {
	if o.countriesPath == "" {
		return countries.Empty(), nil
	}
	return countries.Load(o.countriesPath)
}

// render writes v in the selected output format.
func (o *options) render(w io.Writer, v any) error {
	if o.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
