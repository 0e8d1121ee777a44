// =============================================================================
// Loyalty Normalizer - Mapping Validation
// =============================================================================
//
// This module checks a column mapping against the header of an input file
// before any row is processed. It reports:
//   - Negative column positions
//   - Positions beyond the last column of the header
//   - Several slots reading the same column
//   - Combined runs that map no transaction column at all
//   - Combined runs without a mobile column (no contacts can be produced)
//   - Contacts runs where no phone column is mapped or can be inferred
//
// ERROR HANDLING:
//   - Issues are collected, not returned one at a time
//   - Each issue names the slot, the offending value and the rule
//   - "error" issues make `normalizer validate` fail; conversion runs log
//     every issue as a warning and keep going, since unreadable cells
//     normalize to empty values anyway
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/ledger"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RulePosition  = "position"
	RuleRange     = "range"
	RuleDuplicate = "duplicate"
	RuleRequired  = "required"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single mapping issue.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the mapping slot, e.g. "mobileCol".
	Field string

	// Value is the offending position, or "" for missing slots.
	Value string

	// Rule is the check that failed.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("[%s] Field '%s': %s", strings.ToUpper(e.Severity), e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all issues, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// Mapping is the mapping a run would use. For contacts runs without a
	// phone column it includes the inferred slots.
	Mapping types.ColumnMapping

	// InferredSlots is the number of slots filled from the header.
	InferredSlots int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool
}

// Validator checks column mappings.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// ValidateMapping checks mapping against the header labels for the given run
// mode and returns every issue found.
func ValidateMapping(mapping types.ColumnMapping, labels []string, mode string) []*ValidationError {
	return NewValidator().Validate(mapping, labels, mode).Errors
}

// Validate checks mapping against the header labels and returns a detailed
// result. An empty labels slice skips the range check.
func (v *Validator) Validate(mapping types.ColumnMapping, labels []string, mode string) *ValidationResult {
	result := &ValidationResult{
		IsValid: true,
		Mapping: mapping,
	}

	var issues []*ValidationError
	var slots []types.Slot

	switch mode {
	case config.ModeContacts:
		if mapping.NeedsInference() {
			result.Mapping, result.InferredSlots = ledger.InferColumns(labels, mapping)
		}
		slots = result.Mapping.ContactSlots()
		issues = append(issues, checkSlots(slots, len(labels))...)
		if !result.Mapping.Phone.IsSet() {
			issues = append(issues, &ValidationError{
				Severity: SeverityError,
				Field:    "phoneCol",
				Rule:     RuleRequired,
				Message:  "no phone column is mapped and none could be inferred from the header",
			})
		}

	default:
		slots = mapping.TransactionSlots()
		issues = append(issues, checkSlots(slots, len(labels))...)

		anySet := false
		for _, slot := range slots {
			if slot.Position.IsSet() {
				anySet = true
				break
			}
		}
		if !anySet {
			issues = append(issues, &ValidationError{
				Severity: SeverityError,
				Field:    "columnMapping",
				Rule:     RuleRequired,
				Message:  "no transaction column is mapped",
			})
		} else if !mapping.Mobile.IsSet() {
			issues = append(issues, &ValidationError{
				Severity: SeverityWarning,
				Field:    "mobileCol",
				Rule:     RuleRequired,
				Message:  "no mobile column is mapped, so no contacts will be produced",
			})
		}
	}

	for _, issue := range issues {
		result.Errors = append(result.Errors, issue)
		if issue.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
		} else {
			result.WarningCount++
			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
	}

	return result
}

// checkSlots applies the per-position rules. width <= 0 means the header is
// unknown.
func checkSlots(slots []types.Slot, width int) []*ValidationError {
	var issues []*ValidationError
	used := make(map[types.Position]string)

	for _, slot := range slots {
		pos := slot.Position
		if !pos.IsSet() {
			continue
		}
		value := strconv.Itoa(int(pos))

		if pos < 0 {
			issues = append(issues, &ValidationError{
				Severity: SeverityError,
				Field:    slot.Name,
				Value:    value,
				Rule:     RulePosition,
				Message:  "column positions start at 1",
			})
			continue
		}

		if width > 0 && int(pos) > width {
			issues = append(issues, &ValidationError{
				Severity: SeverityWarning,
				Field:    slot.Name,
				Value:    value,
				Rule:     RuleRange,
				Message:  fmt.Sprintf("the file has only %d column(s); the slot will read empty values", width),
			})
		}

		if other, ok := used[pos]; ok {
			issues = append(issues, &ValidationError{
				Severity: SeverityWarning,
				Field:    slot.Name,
				Value:    value,
				Rule:     RuleDuplicate,
				Message:  fmt.Sprintf("column is also mapped to %s", other),
			})
			continue
		}
		used[pos] = slot.Name
	}

	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []*ValidationError) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d issue(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteReport writes the issues found for inputFile to filePath.
func WriteReport(errors []*ValidationError, inputFile, filePath string) error {
	var builder strings.Builder
	builder.WriteString("Mapping Validation Report\n")
	builder.WriteString(fmt.Sprintf("Generated: %s\n", time.Now().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Input File: %s\n\n", inputFile))
	builder.WriteString(FormatErrors(errors))

	if err := os.WriteFile(filePath, []byte(builder.String()), 0644); err != nil {
		return fmt.Errorf("failed to write validation report: %w", err)
	}
	return nil
}
