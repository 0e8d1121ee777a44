// =============================================================================
// Loyalty Normalizer - CSV Writer Module
// =============================================================================
//
// This module serializes the output tables of a run. A table is a slice of
// rows whose first row is the header:
//
//   mobile,txn_type,bill_number,bill_amount,order_time,points_earned,points_redeemed
//   9876543210,purchase,B-1,250.00,2024-03-09 14:30:05,25,0
//
// Cells are quoted when they contain the delimiter, quotes or line breaks, so
// tag lists such as "gold,vip" survive a round trip.
//
// =============================================================================

package csvwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// WRITE OPTIONS
// =============================================================================

// WriteOptions contains options for CSV generation.
type WriteOptions struct {
	// Delimiter separates fields. Default: ','
	Delimiter rune

	// UseCRLF ends lines with \r\n instead of \n.
	UseCRLF bool

	// BOM prefixes the output with a UTF-8 byte order mark, which makes some
	// spreadsheet programs detect the encoding.
	BOM bool
}

// DefaultWriteOptions returns the options used by Write and WriteFile.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Delimiter: ','}
}

// =============================================================================
// WRITER FUNCTIONS
// =============================================================================

// Write serializes table to w with the default options.
func Write(w io.Writer, table [][]string) error {
	return WriteWithOptions(w, table, DefaultWriteOptions())
}

// WriteWithOptions serializes table to w.
func WriteWithOptions(w io.Writer, table [][]string, options WriteOptions) error {
	if options.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write byte order mark: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if options.Delimiter != 0 {
		cw.Comma = options.Delimiter
	}
	cw.UseCRLF = options.UseCRLF

	if err := cw.WriteAll(table); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteFile writes table to path. The file is written next to its final
// location and renamed into place, so readers never see a partial file.
func WriteFile(path string, table [][]string) error {
	return WriteFileWithOptions(path, table, DefaultWriteOptions())
}

// WriteFileWithOptions is WriteFile with explicit options.
func WriteFileWithOptions(path string, table [][]string, options WriteOptions) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()

	if err := WriteWithOptions(tmp, table, options); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set output file permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}
