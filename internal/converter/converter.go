// =============================================================================
// Loyalty Normalizer - Converter Module
// =============================================================================
//
// This module runs the normalization pipeline for a single input file, from
// decoding to the written CSV files.
//
// PIPELINE:
//   1. Resolve the run mode (combined or contacts)
//   2. Open the input as a row source (.csv streamed, .xlsx read whole)
//   3. Check the column mapping against the header
//   4. Assemble the output tables with the ledger engine
//   5. Write the output CSV files
//   6. Write an error log for skipped rows
//   7. Archive the input file (batch runs only)
//
// MODES:
//   - combined: transactions file plus the minimal contacts file
//   - contacts: deduplicated contacts file only
//
// CONCURRENCY:
//   Each Converter owns its mapping, identity set and tables. Several
//   converters may run at the same time on different files.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/csvparser"
	"github.com/ginjaninja78/loyalty-normalizer/internal/csvwriter"
	"github.com/ginjaninja78/loyalty-normalizer/internal/ledger"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
	"github.com/ginjaninja78/loyalty-normalizer/internal/validation"
	"github.com/ginjaninja78/loyalty-normalizer/internal/xlsxparser"
	"github.com/ginjaninja78/loyalty-normalizer/pkg/utils"
)

// ErrUnsupportedFileType is returned for inputs that are neither .csv nor
// .xlsx.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Mode is the run mode that was used.
	Mode string

	// OutputFiles lists the generated files. Empty if processing failed or
	// was a dry run.
	OutputFiles OutputFiles

	// ArchivePath is where the input was moved, if it was archived.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats

	// Mapping is the mapping the engine used, after inference.
	Mapping types.ColumnMapping

	// Issues are the mapping problems found before processing.
	Issues []*validation.ValidationError

	// MappingValid is false when Issues hold an error, or any issue under
	// Options.Validation.TreatWarningsAsErrors.
	MappingValid bool
}

// OutputFiles holds the paths of the generated files.
type OutputFiles struct {
	Transactions string
	Contacts     string
	ErrorLog     string
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead counts every row read from the input, a header line read as
	// data included.
	RowsRead int

	TransactionsWritten int
	ContactsWritten     int

	// RowsSkipped counts rows that failed and were left out.
	RowsSkipped int

	MappingWarnings int
	InferredSlots   int

	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options select what a run does with its input.
type Options struct {
	// Mode is config.ModeCombined or config.ModeContacts. Empty uses the
	// main config's default mode.
	Mode string

	// Mapping binds the canonical fields to input columns.
	Mapping types.ColumnMapping

	// Settings control how the input is decoded.
	Settings config.CSVSettings

	// Archive moves the input to the archive directory after success.
	Archive bool

	// DryRun processes the input without writing any file.
	DryRun bool

	// Validation tunes the mapping check. Its outcome never stops a run.
	Validation validation.ValidationOptions

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Converter handles the normalization of a single input file.
type Converter struct {
	inputPath  string
	mainConfig *config.MainConfig
	options    Options
	files      *utils.FileManager
	logger     *slog.Logger
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter for inputPath.
func New(inputPath string, mainConfig *config.MainConfig, options Options) *Converter {
	if mainConfig == nil {
		mainConfig = config.Defaults()
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	files := utils.NewFileManager(
		mainConfig.InputDir,
		mainConfig.OutputDir,
		mainConfig.InputArchiveDir,
		mainConfig.UploadDir,
	)

	return &Converter{
		inputPath:  inputPath,
		mainConfig: mainConfig,
		options:    options,
		files:      files,
		logger:     logger.With("file", filepath.Base(inputPath)),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the file. Failures are reported in the
// result; Run itself never panics on bad input.
func (c *Converter) Run(ctx context.Context) (result Result) {
	startTime := time.Now()
	result = Result{
		FilePath: c.inputPath,
	}
	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	// =========================================================================
	// STEP 1: RESOLVE MODE
	// =========================================================================

	mode := c.options.Mode
	if mode == "" {
		mode = c.mainConfig.DefaultMode
	}
	if err := config.ValidateMode(mode); err != nil {
		result.Error = err
		return result
	}
	result.Mode = mode

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	c.logger.Info("processing file", "mode", mode)

	// =========================================================================
	// STEP 2: OPEN INPUT
	// =========================================================================

	in, err := openInput(c.inputPath, c.options.Settings)
	if err != nil {
		result.Error = err
		return result
	}
	defer in.close()

	// =========================================================================
	// STEP 3: CHECK MAPPING
	// =========================================================================
	// Issues never stop a run: unreadable columns normalize to empty values.

	check := validation.NewValidatorWithOptions(c.options.Validation).Validate(c.options.Mapping, in.labels, mode)
	result.Issues = check.Errors
	result.MappingValid = check.IsValid
	result.Stats.MappingWarnings = len(check.Errors)
	for _, issue := range check.Errors {
		c.logger.Warn("mapping issue",
			"field", issue.Field,
			"rule", issue.Rule,
			"severity", issue.Severity,
			"message", issue.Message,
		)
	}

	// =========================================================================
	// STEP 4: ASSEMBLE
	// =========================================================================

	source := &contextSource{ctx: ctx, RowSource: in.source}
	assembler := ledger.NewAssembler(c.logger)

	var tables *ledger.Result
	if mode == config.ModeContacts {
		tables, err = assembler.Contacts(source, c.options.Mapping)
	} else {
		tables, err = assembler.Combined(source, c.options.Mapping)
	}
	if tables != nil {
		result.Mapping = tables.Mapping
		result.Stats.RowsRead = tables.RowsRead
		result.Stats.RowsSkipped = len(tables.Skipped)
		result.Stats.InferredSlots = tables.InferredSlots
	}
	if err != nil {
		result.Error = err
		return result
	}

	result.Stats.ContactsWritten = tables.ContactCount
	if mode == config.ModeCombined {
		result.Stats.TransactionsWritten = tables.TransactionCount
	}

	if c.options.DryRun {
		c.logger.Info("dry run complete",
			"rows", tables.RowsRead,
			"transactions", result.Stats.TransactionsWritten,
			"contacts", result.Stats.ContactsWritten,
			"skipped", result.Stats.RowsSkipped,
		)
		result.Success = true
		return result
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUT FILES
	// =========================================================================

	if mode == config.ModeCombined {
		path, err := c.writeTable("transactions", tables.Transactions)
		if err != nil {
			result.Error = err
			return result
		}
		result.OutputFiles.Transactions = path
	}

	path, err := c.writeTable("contacts", tables.Contacts)
	if err != nil {
		result.Error = err
		return result
	}
	result.OutputFiles.Contacts = path

	// =========================================================================
	// STEP 6: ERROR LOG
	// =========================================================================

	if len(tables.Skipped) > 0 {
		logPath, err := utils.WriteErrorLog(c.errorLogEntries(tables.Skipped), c.mainConfig.OutputDir)
		if err != nil {
			// The outputs are complete; a missing log is not a failed run.
			c.logger.Warn("failed to write error log", "error", err)
		}
		result.OutputFiles.ErrorLog = logPath
	}

	// =========================================================================
	// STEP 7: ARCHIVE INPUT
	// =========================================================================

	if c.options.Archive {
		archivePath, err := c.files.ArchiveInputFile(c.inputPath)
		if err != nil {
			c.logger.Warn("failed to archive input", "error", err)
		} else {
			result.ArchivePath = archivePath
		}
	}

	result.Success = true
	c.logger.Info("file processed",
		"rows", result.Stats.RowsRead,
		"transactions", result.Stats.TransactionsWritten,
		"contacts", result.Stats.ContactsWritten,
		"skipped", result.Stats.RowsSkipped,
		"duration", time.Since(startTime),
	)

	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openedInput is a row source with the labels used for mapping checks.
type openedInput struct {
	source ledger.RowSource
	labels []string
	close  func()
}

// openInput picks the decoder by file extension.
func openInput(path string, settings config.CSVSettings) (*openedInput, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		labels, err := csvparser.ReadHeader(path, settings)
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV header: %w", err)
		}
		parser, err := csvparser.NewStreamingParser(path, settings)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV: %w", err)
		}
		return &openedInput{
			source: parser,
			labels: labels,
			close:  func() { parser.Close() },
		}, nil

	case ".xlsx", ".xls":
		sheet, err := xlsxparser.ParseRows(path, settings)
		if err != nil {
			return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
		}
		labels := sheet.Headers
		if settings.NoHeader && len(sheet.Rows) > 0 {
			labels = sheet.Rows[0].Labels()
		}
		return &openedInput{
			source: ledger.Rows(sheet.Rows),
			labels: labels,
			close:  func() {},
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
}

// writeTable writes one output table to the output directory.
func (c *Converter) writeTable(kind string, table [][]string) (string, error) {
	fileName := utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, map[string]string{
		"kind":     kind,
		"original": utils.OriginalName(c.inputPath),
	})
	outputPath := filepath.Join(c.mainConfig.OutputDir, fileName)

	if err := csvwriter.WriteFile(outputPath, table); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", kind, err)
	}

	c.logger.Debug("wrote output", "kind", kind, "path", outputPath, "rows", len(table)-1)
	return outputPath, nil
}

func (c *Converter) errorLogEntries(skipped []ledger.RowError) []utils.ErrorLogEntry {
	now := time.Now()
	entries := make([]utils.ErrorLogEntry, 0, len(skipped))
	for _, s := range skipped {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     filepath.Base(c.inputPath),
			ErrorType:    "malformed row",
			ErrorMessage: s.Err.Error(),
			RowNumber:    s.Index + 1,
		})
	}
	return entries
}

// contextSource stops a row source once ctx is done.
type contextSource struct {
	ledger.RowSource
	ctx context.Context
	err error
}

func (s *contextSource) Next() bool {
	if s.err != nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}
	return s.RowSource.Next()
}

func (s *contextSource) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.RowSource.Err()
}
