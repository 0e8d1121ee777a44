// =============================================================================
// Loyalty Normalizer - Validate Command
// =============================================================================
//
// The 'validate' command checks configuration and column mappings without
// writing output files.
//
// COMMAND USAGE:
//   normalizer validate                       # configuration and profiles only
//   normalizer validate --file pos.csv [--mode contacts] [--*-col N] [--report out.txt]
//
// EXIT STATUS:
//   1 when the configuration cannot be loaded or the mapping has errors.
//   Warnings (duplicate columns, columns beyond the header) are printed but
//   do not fail the command unless --strict is set.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/converter"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
	"github.com/ginjaninja78/loyalty-normalizer/internal/validation"
	"github.com/ginjaninja78/loyalty-normalizer/internal/xlsxparser"
)

var (
	validateFile   string
	validateMode   string
	validateReport string
	validateStrict bool
	validateFlags  mappingFlags
)

var errMappingInvalid = errors.New("column mapping has errors")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration and column mappings without writing files",
	Long: `Without --file, validate loads the main configuration and every profile
and reports what it found.

With --file, validate runs the whole pipeline on the file in dry-run mode,
prints every mapping issue and the mapping that would be used (including
inferred contact columns), and reports how many rows would be produced.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
		if err != nil {
			return fmt.Errorf("failed to load profiles: %w", err)
		}

		if validateFile == "" {
			fmt.Printf("Configuration OK (%s)\n", cfgFile)
			fmt.Printf("Default mode:    %s\n", mainConfig.DefaultMode)
			fmt.Printf("Profiles:        %d\n", len(profiles))
			for _, p := range profiles {
				mode := p.Mode
				if mode == "" {
					mode = mainConfig.DefaultMode
				}
				fmt.Printf("  - %s (%s): %v\n", p.Name, mode, p.FileMatchingPatterns)
			}
			return nil
		}

		return runValidate(cmd, profiles)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFile, "file", "", "Input file to check")
	validateCmd.Flags().StringVar(&validateMode, "mode", "", "Run mode to check: combined or contacts")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "Also write the issues to this file")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat warnings as errors")
	validateFlags.bindTransaction(validateCmd)
	validateFlags.bindContact(validateCmd)
}

func runValidate(cmd *cobra.Command, profiles []*config.Profile) error {
	opts, profile := optionsFor(validateFile, mainConfig, profiles, validateFlags.mapping)
	if validateMode != "" {
		opts.Mode = validateMode
	}
	opts.DryRun = true
	opts.Validation.TreatWarningsAsErrors = validateStrict
	opts.Logger = slog.Default().With("profile", profile)

	result := converter.New(validateFile, mainConfig, opts).Run(cmd.Context())

	if profile != "" {
		fmt.Printf("Profile: %s\n", profile)
	}
	fmt.Printf("Mode:    %s\n", result.Mode)
	if strings.EqualFold(filepath.Ext(validateFile), ".xlsx") {
		if sheets, err := xlsxparser.SheetNames(validateFile); err == nil {
			fmt.Printf("Sheets:  %s\n", strings.Join(sheets, ", "))
		}
	}
	fmt.Println()
	fmt.Println(validation.FormatErrors(result.Issues))

	if validateReport != "" {
		if err := validation.WriteReport(result.Issues, filepath.Base(validateFile), validateReport); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", validateReport)
	}

	if len(result.Issues) > 0 && !result.MappingValid {
		return errMappingInvalid
	}
	if !result.Success {
		return fmt.Errorf("failed to read %s: %w", validateFile, result.Error)
	}

	fmt.Println("\nMapping in use:")
	if result.Mode == config.ModeCombined {
		printMapping(result.Mapping.TransactionSlots())
	}
	printMapping(result.Mapping.ContactSlots())

	fmt.Printf("\nRows read:       %d\n", result.Stats.RowsRead)
	if result.Mode == config.ModeCombined {
		fmt.Printf("Transactions:    %d\n", result.Stats.TransactionsWritten)
	}
	fmt.Printf("Contacts:        %d\n", result.Stats.ContactsWritten)
	fmt.Printf("Skipped rows:    %d\n", result.Stats.RowsSkipped)
	return nil
}

// printMapping lists the set slots of a mapping.
func printMapping(slots []types.Slot) {
	for _, slot := range slots {
		if slot.Position.IsSet() {
			fmt.Printf("  %-18s column %d\n", slot.Name, slot.Position)
		}
	}
}
