package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/processor"
	"github.com/docscan/docscan-backend/internal/mrz"
	"github.com/docscan/docscan-backend/pkg/config"
)

// maxStdinBytes bounds piped OCR output.
const maxStdinBytes = 1 << 20

type decodeFlags struct {
	verifyCheckDigits bool
	legacyZeroAsMale  bool
	expiryLookahead   int
}

// decodeOutput is the printed form of a decoded zone.
type decodeOutput struct {
	Format           string   `json:"format" yaml:"format"`
	DocumentType     string   `json:"document_type" yaml:"document_type"`
	IssuingCountry   country  `json:"issuing_country" yaml:"issuing_country"`
	DocumentNumber   string   `json:"document_number" yaml:"document_number"`
	Nationality      country  `json:"nationality" yaml:"nationality"`
	DateOfBirth      string   `json:"date_of_birth" yaml:"date_of_birth"`
	DateOfExpiry     string   `json:"date_of_expiry" yaml:"date_of_expiry"`
	Sex              string   `json:"sex" yaml:"sex"`
	Surname          string   `json:"surname" yaml:"surname"`
	GivenNames       string   `json:"given_names" yaml:"given_names"`
	PersonalNumber   string   `json:"personal_number" yaml:"personal_number"`
	CheckDigitsValid *bool    `json:"check_digits_valid,omitempty" yaml:"check_digits_valid,omitempty"`
	Warnings         []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type country struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

func newDecodeCmd(opts *options) *cobra.Command {
	flags := &decodeFlags{}

	cmd := &cobra.Command{
		Use:   "decode [line...|-]",
		Short: "Decode MRZ lines",
		Long: `Decode two TD3 lines or three TD1 lines.

Lines are taken from the arguments, or from stdin when no arguments or a
single "-" is given. Text around the zone on stdin is ignored. Remember to
quote lines: '<' is a shell redirection.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromStdin := len(args) == 0 || (len(args) == 1 && args[0] == "-")
			var text []byte
			if fromStdin {
				var err error
				if text, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinBytes)); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}

			table, err := opts.loadCountries()
			if err != nil {
				return err
			}

			decoder := mrz.NewDecoder(mrz.Options{
				Countries:         table,
				Century:           mrz.CenturyPolicy{ExpiryLookaheadYears: flags.expiryLookahead},
				LegacyZeroAsMale:  flags.legacyZeroAsMale,
				VerifyCheckDigits: flags.verifyCheckDigits,
			})

			proc := processor.NewMRZProcessor(decoder, nil)
			var result *domain.ExtractionResult
			if fromStdin {
				result, err = proc.DecodeText(string(text), domain.DocumentTypeMRZText)
			} else {
				result, err = proc.DecodeLines(args, domain.DocumentTypeMRZText)
			}
			if errors.Is(err, processor.ErrUnsupportedLayout) {
				return fmt.Errorf("no machine readable zone found: %w", err)
			}
			if err != nil {
				return err
			}

			return opts.render(cmd.OutOrStdout(), newDecodeOutput(result))
		},
	}

	cmd.Flags().BoolVar(&flags.verifyCheckDigits, "verify-check-digits",
		config.GetEnvBool("DOCSCAN_MRZ_VERIFY_CHECK_DIGITS", false), "verify ICAO check digits and report mismatches")
	cmd.Flags().BoolVar(&flags.legacyZeroAsMale, "legacy-zero-male",
		config.GetEnvBool("DOCSCAN_MRZ_LEGACY_ZERO_AS_MALE", false), "read a '0' in the sex column as male")
	cmd.Flags().IntVar(&flags.expiryLookahead, "expiry-lookahead", mrz.DefaultExpiryLookaheadYears, "years an expiry date may lie in the future")

	return cmd
}

func newDecodeOutput(result *domain.ExtractionResult) decodeOutput {
	rec := result.Record
	out := decodeOutput{
		Format:         string(rec.Format),
		DocumentType:   rec.DocumentType,
		IssuingCountry: country(rec.IssuingCountry),
		DocumentNumber: rec.DocumentNumber,
		Nationality:    country(rec.Nationality),
		DateOfBirth:    rec.DateOfBirth.String(),
		DateOfExpiry:   rec.DateOfExpiry.String(),
		Sex:            rec.Sex.String(),
		Surname:        rec.Surname,
		GivenNames:     rec.GivenNames,
		PersonalNumber: rec.PersonalNumber,
		Warnings:       result.Warnings,
	}
	if rec.CheckDigits != nil {
		valid := rec.CheckDigits.Valid()
		out.CheckDigitsValid = &valid
	}
	return out
}
