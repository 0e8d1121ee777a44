// =============================================================================
// Loyalty Normalizer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (normalizer)
//   ├── processCmd  (normalizer process)
//   ├── contactsCmd (normalizer contacts)
//   ├── validateCmd (normalizer validate)
//   ├── serveCmd    (normalizer serve)
//   └── versionCmd  (normalizer version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads a .env file from the working directory, if there is one
//   2. Loads the main configuration (--config)
//   3. Sets up structured logging
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose switches logging to debug level.
var verbose bool

// mainConfig is loaded once per invocation by loadConfig.
var mainConfig *config.MainConfig

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "normalizer",
	Short: "Loyalty Normalizer - Turn POS and CRM exports into clean transaction and contact files",
	Long: `Loyalty Normalizer reads tabular exports (CSV or XLSX) from point-of-sale
and CRM systems and produces normalized CSV files for a loyalty platform
import: a transactions file and a deduplicated contacts file.

Key Features:
  - Phone, date, amount and name normalization with silent defaults
  - Contact deduplication by normalized phone number
  - Header-based column inference for contact lists
  - Per-source profiles matched by file name
  - Concurrent batch processing with input archival
  - HTTP upload/process/download service

Example Usage:
  normalizer process                          # Process every file in the input directory
  normalizer process --file pos.csv --mobile-col 1 --bill-amount-col 3
  normalizer contacts --file members.xlsx     # Contacts only, columns inferred
  normalizer validate --file pos.csv          # Check a mapping without writing
  normalizer serve --port 8080                # Start the HTTP service`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file; a missing file uses the defaults",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// loadConfig reads .env, the main configuration and sets up logging.
func loadConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logging.Setup(level, cfg.LogFormat)
	slog.Debug("configuration loaded", "config", cfgFile, "output_dir", cfg.OutputDir, "default_mode", cfg.DefaultMode)

	mainConfig = cfg
	return nil
}
