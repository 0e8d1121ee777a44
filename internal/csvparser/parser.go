// =============================================================================
// Loyalty Normalizer - CSV Parser Module
// =============================================================================
//
// This module decodes delimited text exports into rows for the ledger engine.
// It handles:
//   - Different delimiters (comma, pipe, tab, semicolon, any single rune)
//   - Multi-line headers (merged column by column)
//   - Custom data start rows
//   - Legacy encodings (ISO-8859-1, Windows-1252, UTF-16)
//   - A UTF-8 byte order mark written by spreadsheet programs
//
// ROW SHAPES:
//   - With a header (default) every data line becomes a keyed row whose keys
//     are the cleaned header labels.
//   - With no_header every line, including a header line if the file has
//     one, becomes a positional row.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

// ErrUnsupportedEncoding is returned for encodings the parser cannot decode.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents a fully decoded file.
type CSVData struct {
	// Headers contains the cleaned column labels. Empty when the file was
	// read without a header.
	Headers []string

	// Rows contains the data rows in file order.
	Rows []types.Row

	// SourceFile is the path of the decoded file, if any.
	SourceFile string

	// RowCount is the number of data rows.
	RowCount int

	// ColumnCount is the widest row (or the header width).
	ColumnCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a whole CSV file.
func Parse(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// ParseReader decodes CSV from r. See Parse.
func ParseReader(r io.Reader, settings config.CSVSettings) (*CSVData, error) {
	p, err := newStreamingParser(r, nil, settings)
	if err != nil {
		return nil, err
	}

	data := &CSVData{
		Headers:     p.headers,
		ColumnCount: len(p.headers),
	}
	for p.Next() {
		row := p.Row()
		data.Rows = append(data.Rows, row)
		if row.Width() > data.ColumnCount {
			data.ColumnCount = row.Width()
		}
	}
	if err := p.Err(); err != nil {
		return nil, err
	}

	data.RowCount = len(data.Rows)
	return data, nil
}

// ReadHeader returns the cleaned header labels of a file without reading its
// data. With no_header it returns the cells of the first line.
func ReadHeader(filePath string, settings config.CSVSettings) ([]string, error) {
	p, err := NewStreamingParser(filePath, settings)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	if !settings.NoHeader {
		return p.Headers(), nil
	}
	if !p.Next() {
		return nil, p.Err()
	}
	return p.Row().Labels(), nil
}

// decodingReader wraps r so that it yields UTF-8 without a byte order mark.
func decodingReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(encoding), "_", "-")) {
	case "", "UTF-8", "UTF8":
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case "WINDOWS-1252", "CP1252":
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	case "UTF-16", "UTF-16LE":
		r = transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	case "UTF-16BE":
		r = transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding)
	}

	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if r := []rune(settings.Delimiter); len(r) > 0 {
			reader.Comma = r[0]
		} else {
			reader.Comma = ','
		}
	}

	// Exports often have ragged rows and stray quotes.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// MergeHeaders merges header rows column by column and cleans the result.
// xlsxparser uses it too.
//
// Example:
//
//	Row 1: "Customer", "",      "Bill"
//	Row 2: "Mobile",   "Name",  "Amount"
//	Result: "Customer Mobile", "Name", "Bill Amount"
func MergeHeaders(headerRows [][]string) []string {
	if len(headerRows) == 1 {
		return cleanHeaders(headerRows[0])
	}

	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers)
}

// KeyedRow pairs cells with headers. Missing trailing cells read as empty
// text; cells past the last header get Column_N keys so their positions stay
// readable. xlsxparser uses it too.
func KeyedRow(headers, cells []string) *types.Keyed {
	if len(cells) <= len(headers) {
		return types.NewKeyedStrings(headers, cells)
	}

	keys := make([]string, len(cells))
	copy(keys, headers)
	taken := make(map[string]bool, len(cells))
	for _, h := range headers {
		taken[h] = true
	}
	for i := len(headers); i < len(cells); i++ {
		key := fmt.Sprintf("Column_%d", i+1)
		for n := 2; taken[key]; n++ {
			key = fmt.Sprintf("Column_%d_%d", i+1, n)
		}
		taken[key] = true
		keys[i] = key
	}
	return types.NewKeyedStrings(keys, cells)
}

// cleanHeaders trims labels, names empty ones Column_N and suffixes
// duplicates (_2, _3, ...) so every column keeps its own key.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		seen[header]++
		if n := seen[header]; n > 1 {
			header = header + "_" + strconv.Itoa(n)
		}

		cleaned[i] = header
	}

	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads rows one at a time, for large files.
//
// USAGE:
//
//	parser, err := csvparser.NewStreamingParser(filePath, settings)
//	if err != nil {
//	    return err
//	}
//	defer parser.Close()
//
//	for parser.Next() {
//	    row := parser.Row()
//	    // Process row...
//	}
//	if err := parser.Err(); err != nil {
//	    return err
//	}
type StreamingParser struct {
	closer     io.Closer
	reader     *csv.Reader
	headers    []string
	currentRow types.Row
	rowNumber  int
	err        error
	settings   config.CSVSettings
}

// NewStreamingParser opens a CSV file for row-by-row reading. The header is
// read immediately.
func NewStreamingParser(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	p, err := newStreamingParser(file, file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}
	return p, nil
}

func newStreamingParser(r io.Reader, closer io.Closer, settings config.CSVSettings) (*StreamingParser, error) {
	settings = settings.WithDefaults()

	decoded, err := decodingReader(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(decoded)
	configureReader(reader, settings)

	p := &StreamingParser{
		closer:   closer,
		reader:   reader,
		settings: settings,
	}

	if !settings.NoHeader {
		if err := p.readHeaders(); err != nil {
			return nil, err
		}
	}
	if err := p.skipToDataStart(); err != nil {
		return nil, err
	}

	return p, nil
}

// readHeaders reads and merges the header rows.
func (p *StreamingParser) readHeaders() error {
	headerRows := make([][]string, 0, p.settings.HeaderRows)

	for i := 0; i < p.settings.HeaderRows; i++ {
		row, err := p.reader.Read()
		if err == io.EOF {
			if i == 0 {
				return fmt.Errorf("CSV file is empty")
			}
			return fmt.Errorf("unexpected end of file while reading headers")
		}
		if err != nil {
			return fmt.Errorf("error reading header row %d: %w", i+1, err)
		}
		headerRows = append(headerRows, row)
		p.rowNumber++
	}

	p.headers = MergeHeaders(headerRows)
	return nil
}

// skipToDataStart skips rows until the configured data start row.
func (p *StreamingParser) skipToDataStart() error {
	targetRow := p.settings.DataStartRow
	if targetRow <= 0 {
		return nil
	}

	for p.rowNumber < targetRow-1 {
		_, err := p.reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error skipping to data start: %w", err)
		}
		p.rowNumber++
	}

	return nil
}

// Next advances to the next non-empty row. It returns false at the end of
// the file or on a read error.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		record, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}
		p.rowNumber++

		if isRowEmpty(record) {
			continue
		}

		cells := make([]string, len(record))
		for i, cell := range record {
			cells[i] = strings.TrimSpace(cell)
		}

		if p.settings.NoHeader {
			p.currentRow = types.PositionalStrings(cells)
			return true
		}

		p.currentRow = KeyedRow(p.headers, cells)
		return true
	}
	return false
}

// Row returns the current row.
func (p *StreamingParser) Row() types.Row {
	return p.currentRow
}

// Headers returns the parsed headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the current line number (1-indexed, header included).
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
