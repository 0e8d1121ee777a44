package ledger

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

// ErrUnsupportedRow is recorded for rows the accessor cannot read, such as a
// nil row handed over by a decoder.
var ErrUnsupportedRow = errors.New("unsupported row shape")

// RowError describes a row that was skipped.
type RowError struct {
	// Index is the zero-based position of the row in the source.
	Index int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result holds the output tables of one run. Tables start with their header
// row; counts exclude it.
type Result struct {
	Transactions     [][]string
	Contacts         [][]string
	TransactionCount int
	ContactCount     int

	// RowsRead counts every row pulled from the source, header included.
	RowsRead int

	// HeaderSkipped is set when a positional first row was consumed as the
	// header of a contacts run.
	HeaderSkipped bool

	Skipped []RowError

	// Mapping is the mapping the run actually used, after inference.
	Mapping       types.ColumnMapping
	InferredSlots int
}

// Assembler drives the projectors over a row source.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler returns an Assembler logging to logger, or to the default
// slog logger when logger is nil.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Combined builds the transaction ledger and the minimal contact list that
// goes with it. Every row is treated as data, including a header line.
//
// The returned error only reports a failure of the source itself; the result
// then holds everything read up to that point.
func (a *Assembler) Combined(src RowSource, mapping types.ColumnMapping) (*Result, error) {
	res := &Result{
		Transactions: [][]string{cloneRow(TransactionHeader)},
		Contacts:     [][]string{cloneRow(CombinedContactHeader)},
		Mapping:      mapping,
	}
	seen := NewIdentitySet()

	for index := 0; src.Next(); index++ {
		row := src.Row()
		res.RowsRead++

		var (
			txn        TransactionRecord
			contact    ContactRecord
			hasTxn     bool
			hasContact bool
		)
		err := a.guard(row, func() {
			txn, hasTxn = ProjectTransaction(row, mapping)
			if hasTxn {
				contact, hasContact = ProjectCombinedContact(txn, seen)
			}
		})
		if err != nil {
			a.skip(res, index, err)
			continue
		}

		if hasTxn {
			res.Transactions = append(res.Transactions, txn.Values())
			res.TransactionCount++
		}
		if hasContact {
			res.Contacts = append(res.Contacts, contact.Values())
			res.ContactCount++
		}
	}

	if err := src.Err(); err != nil {
		return res, fmt.Errorf("failed to read rows: %w", err)
	}
	return res, nil
}

// Contacts builds a deduplicated contact list. When the mapping has no phone
// column, contact columns are inferred once from the labels of the first
// readable row; rows skipped before it do not use up the inference. A
// positional first readable row is the header and produces no contact.
func (a *Assembler) Contacts(src RowSource, mapping types.ColumnMapping) (*Result, error) {
	res := &Result{
		Contacts: [][]string{cloneRow(ContactHeader)},
	}
	seen := NewIdentitySet()
	headerRead := false

	for index := 0; src.Next(); index++ {
		row := src.Row()
		res.RowsRead++

		if !headerRead {
			header := false
			err := a.guard(row, func() {
				if mapping.NeedsInference() {
					mapping, res.InferredSlots = InferColumns(row.Labels(), mapping)
					a.logger.Debug("inferred contact columns",
						"assigned", res.InferredSlots,
						"phone_col", int(mapping.Phone),
					)
				}
				header = row.Kind() == types.KindPositional
			})
			if err != nil {
				a.skip(res, index, err)
				continue
			}
			headerRead = true
			if header {
				res.HeaderSkipped = true
				continue
			}
		}

		var (
			contact ContactRecord
			ok      bool
		)
		err := a.guard(row, func() {
			contact, ok = ProjectContact(row, mapping, seen)
		})
		if err != nil {
			a.skip(res, index, err)
			continue
		}
		if ok {
			res.Contacts = append(res.Contacts, contact.Values())
			res.ContactCount++
		}
	}

	res.Mapping = mapping
	if err := src.Err(); err != nil {
		return res, fmt.Errorf("failed to read rows: %w", err)
	}
	return res, nil
}

// guard runs fn for one row and turns a panic into an error, so a single
// bad row cannot end the run.
func (a *Assembler) guard(row types.Row, fn func()) (err error) {
	if row == nil {
		return ErrUnsupportedRow
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("row processing panicked: %w", e)
				return
			}
			err = fmt.Errorf("row processing panicked: %v", r)
		}
	}()
	fn()
	return nil
}

func (a *Assembler) skip(res *Result, index int, err error) {
	res.Skipped = append(res.Skipped, RowError{Index: index, Err: err})
	a.logger.Warn("skipping row", "row", index, "error", err)
}

func cloneRow(row []string) []string {
	return append([]string(nil), row...)
}
