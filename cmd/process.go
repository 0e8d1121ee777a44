// =============================================================================
// Loyalty Normalizer - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command for turning
// exports into import files.
//
// COMMAND USAGE:
//   normalizer process [flags]
//
// FLAGS:
//   --file        : Process a single file instead of the input directory
//   --dry-run     : Run the pipeline without writing any file
//   --mode        : Force "combined" or "contacts"
//   --*-col       : Column positions, overriding profile and config mappings
//
// PROCESSING PIPELINE:
//   1. Load profiles
//   2. Discover input files (or take --file)
//   3. Match each file to a profile
//   4. Convert the files concurrently, at most max_concurrency at a time
//   5. Archive inputs that were processed (batch runs, unless keep_inputs)
//   6. Write the summary log
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/converter"
	"github.com/ginjaninja78/loyalty-normalizer/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	processFile  string
	processMode  string
	dryRun       bool
	processFlags mappingFlags
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Normalize exports into transaction and contact files",
	Long: `The process command converts every .csv and .xlsx file in the input
directory, or the single file given with --file. Each file is matched to a
profile by name; the profile supplies the mode, decoding settings and column
mapping. Column flags override the mapping slot by slot.

Files are processed concurrently. A failing file never stops the others.

On success (batch runs):
  - The output CSV files are placed in the output directory
  - The input is moved to the input archive (unless keep_inputs is set)

Rows that could not be read are written to an error log in the output
directory. A summary log is written after every batch.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runProcess(ctx)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&processFile, "file", "", "Process only this file")
	processCmd.Flags().StringVar(&processMode, "mode", "", "Force the run mode: combined or contacts")
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the pipeline without writing any file")
	processFlags.bindTransaction(processCmd)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context) error {
	startTime := time.Now()
	cfg := mainConfig

	if processMode != "" {
		if err := config.ValidateMode(processMode); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 1: LOAD PROFILES
	// =========================================================================

	profiles, err := config.LoadProfiles(cfg.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	slog.Debug("profiles loaded", "count", len(profiles), "dir", cfg.ProfilesDir)

	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, "")
	if err := files.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if processFile != "" {
		inputFiles = []string{processFile}
	} else {
		inputFiles, err = files.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		fmt.Println("No input files found in", cfg.InputDir)
		return nil
	}

	fmt.Printf("Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	archive := processFile == "" && !cfg.KeepInputs
	results := convertAll(ctx, inputFiles, cfg.MaxConcurrency, func(path string) converter.Options {
		opts, profile := optionsFor(path, cfg, profiles, processFlags.mapping)
		if processMode != "" {
			opts.Mode = processMode
		}
		opts.Archive = archive
		opts.DryRun = dryRun
		opts.Logger = slog.Default().With("profile", profile)
		return opts
	})

	// =========================================================================
	// STEP 4: COLLECT RESULTS AND WRITE SUMMARY
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}

	for _, result := range results {
		name := filepath.Base(result.FilePath)
		if !result.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    name,
				ErrorMessage: result.Error.Error(),
			})
			fmt.Printf("  ✗ %s: %v\n", name, result.Error)
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalRows += result.Stats.RowsRead
		summary.TotalTransactions += result.Stats.TransactionsWritten
		summary.TotalContacts += result.Stats.ContactsWritten
		summary.SkippedRows += result.Stats.RowsSkipped
		summary.MappingWarnings += result.Stats.MappingWarnings
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:        name,
			Mode:             result.Mode,
			TransactionsFile: filepath.Base(result.OutputFiles.Transactions),
			ContactsFile:     filepath.Base(result.OutputFiles.Contacts),
			ArchivePath:      result.ArchivePath,
			Rows:             result.Stats.RowsRead,
			Transactions:     result.Stats.TransactionsWritten,
			Contacts:         result.Stats.ContactsWritten,
			Skipped:          result.Stats.RowsSkipped,
			ProcessTime:      result.Stats.ProcessingTime,
		})
		printResult(result)
	}
	summary.EndTime = time.Now()

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Transactions:    %d\n", summary.TotalTransactions)
	fmt.Printf("Contacts:        %d\n", summary.TotalContacts)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime).Round(time.Millisecond))

	if !dryRun {
		summaryPath, err := utils.WriteSummaryLog(summary, cfg.OutputDir)
		if err != nil {
			slog.Warn("failed to write summary log", "error", err)
		} else {
			fmt.Printf("Summary:         %s\n", summaryPath)
		}
	}

	if processFile != "" && summary.FailedFiles > 0 {
		return fmt.Errorf("failed to process %s", processFile)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// convertAll runs one converter per file with at most limit running at a
// time. Results keep the order of paths.
func convertAll(ctx context.Context, paths []string, limit int, options func(string) converter.Options) []converter.Result {
	if limit < 1 {
		limit = 1
	}

	results := make([]converter.Result, len(paths))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = converter.New(path, mainConfig, options(path)).Run(ctx)
		}(i, path)
	}

	wg.Wait()
	return results
}

// printResult prints one line per generated file.
func printResult(result converter.Result) {
	name := filepath.Base(result.FilePath)
	if result.OutputFiles == (converter.OutputFiles{}) {
		fmt.Printf("  ✓ %s: %d transaction(s), %d contact(s) (dry run)\n",
			name, result.Stats.TransactionsWritten, result.Stats.ContactsWritten)
		return
	}
	if result.OutputFiles.Transactions != "" {
		fmt.Printf("  ✓ %s -> %s (%d)\n", name, filepath.Base(result.OutputFiles.Transactions), result.Stats.TransactionsWritten)
	}
	fmt.Printf("  ✓ %s -> %s (%d)\n", name, filepath.Base(result.OutputFiles.Contacts), result.Stats.ContactsWritten)
	if result.OutputFiles.ErrorLog != "" {
		fmt.Printf("    %d row(s) skipped, see %s\n", result.Stats.RowsSkipped, filepath.Base(result.OutputFiles.ErrorLog))
	}
}
