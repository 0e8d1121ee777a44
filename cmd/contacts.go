// =============================================================================
// Loyalty Normalizer - Contacts Command
// =============================================================================
//
// The 'contacts' command builds a deduplicated contacts file from a member
// list. Columns that are not given on the command line are inferred from the
// header labels.
//
// COMMAND USAGE:
//   normalizer contacts --file members.xlsx [--phone-col N ...] [--dry-run]
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/converter"
)

var (
	contactsFile   string
	contactsDryRun bool
	contactsFlags  mappingFlags
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Build a deduplicated contacts file from a member list",
	Long: `The contacts command reads one CSV or XLSX member list and writes a
contacts file with one row per normalized phone number. The first
occurrence of a phone number wins.

When --phone-col is not given, every contact column without a flag is
inferred from the header labels (for example "Mobile No" becomes the phone
column and "DOB" the birthday column).`,

	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
		if err != nil {
			return fmt.Errorf("failed to load profiles: %w", err)
		}

		opts, profile := optionsFor(contactsFile, mainConfig, profiles, contactsFlags.mapping)
		opts.Mode = config.ModeContacts
		opts.DryRun = contactsDryRun
		opts.Logger = slog.Default().With("profile", profile)

		result := converter.New(contactsFile, mainConfig, opts).Run(cmd.Context())
		if !result.Success {
			return fmt.Errorf("failed to process %s: %w", contactsFile, result.Error)
		}

		if result.Stats.InferredSlots > 0 {
			fmt.Printf("Inferred %d column(s) from the header:\n", result.Stats.InferredSlots)
			printMapping(result.Mapping.ContactSlots())
		}
		printResult(result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contactsCmd)

	contactsCmd.Flags().StringVar(&contactsFile, "file", "", "Member list to process (required)")
	contactsCmd.Flags().BoolVar(&contactsDryRun, "dry-run", false, "Run the pipeline without writing any file")
	contactsCmd.MarkFlagRequired("file")
	contactsFlags.bindContact(contactsCmd)
}
