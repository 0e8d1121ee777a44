// =============================================================================
// Loyalty Normalizer - XLSX Parser
// =============================================================================
//
// This module decodes spreadsheet exports (.xlsx) into rows for the ledger
// engine. It produces the same row shapes as the CSV parser:
//   - With a header (default) every data row becomes a keyed row.
//   - With no_header every row becomes a positional row.
//
// CELL VALUES:
//   Cells are read as raw values so that long phone numbers are not turned
//   into scientific notation by the cell format. Numeric cells carrying a date
//   number format are converted from the spreadsheet serial to text:
//     - "2006-01-02" for whole days
//     - "2006-01-02 15:04:05" when the serial has a time part
//
// LIMITATIONS:
//   - Legacy binary workbooks (.xls) are rejected with ErrLegacyFormat.
//   - Only one sheet is read: settings.SheetName, or the first sheet.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/csvparser"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

// ErrLegacyFormat is returned for .xls workbooks.
var ErrLegacyFormat = errors.New("legacy .xls workbooks are not supported, save the file as .xlsx")

// =============================================================================
// SHEET DATA STRUCTURE
// =============================================================================

// SheetData represents one decoded sheet.
type SheetData struct {
	// Headers contains the cleaned column labels. Empty with no_header.
	Headers []string

	// Rows contains the non-empty data rows in sheet order.
	Rows []types.Row

	// SourceFile is the path of the workbook.
	SourceFile string

	// Sheet is the name of the sheet that was read.
	Sheet string

	RowCount    int
	ColumnCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseRows reads a sheet of the workbook at filePath.
//
// PARAMETERS:
//   - filePath: The path to the .xlsx file.
//   - settings: Header rows, data start row, no_header and sheet name. The
//     delimiter and encoding options do not apply to spreadsheets.
//
// RETURNS:
//   - The decoded sheet.
//   - An error if the file cannot be opened, the sheet does not exist or a
//     header was expected but the sheet is empty.
func ParseRows(filePath string, settings config.CSVSettings) (*SheetData, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".xls") {
		return nil, ErrLegacyFormat
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	settings = settings.WithDefaults()

	sheet, err := selectSheet(f, settings.SheetName)
	if err != nil {
		return nil, err
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	decoder := newCellDecoder(f, sheet)
	records := make([][]string, len(raw))
	for r, row := range raw {
		cells := make([]string, len(row))
		for c, value := range row {
			cells[c] = decoder.text(r, c, value)
		}
		records[r] = cells
	}

	data, err := buildSheet(records, settings)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	data.SourceFile = filePath
	data.Sheet = sheet
	return data, nil
}

// SheetNames lists the sheets of a workbook in tab order.
func SheetNames(filePath string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".xls") {
		return nil, ErrLegacyFormat
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// selectSheet returns the requested sheet, or the first one.
func selectSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if name == "" {
		return sheets[0], nil
	}
	if !slices.Contains(sheets, name) {
		return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(sheets, ", "))
	}
	return name, nil
}

// buildSheet turns decoded cell text into rows. Record i is sheet row i+1.
func buildSheet(records [][]string, settings config.CSVSettings) (*SheetData, error) {
	data := &SheetData{}
	start := 0

	if !settings.NoHeader {
		if len(records) < settings.HeaderRows {
			if len(records) == 0 {
				return nil, fmt.Errorf("sheet is empty")
			}
			return nil, fmt.Errorf("unexpected end of sheet while reading headers")
		}
		data.Headers = csvparser.MergeHeaders(records[:settings.HeaderRows])
		data.ColumnCount = len(data.Headers)
		start = settings.HeaderRows
	}
	if settings.DataStartRow-1 > start {
		start = settings.DataStartRow - 1
	}

	for i := start; i < len(records); i++ {
		record := records[i]
		if isRowEmpty(record) {
			continue
		}

		var row types.Row
		if settings.NoHeader {
			row = types.PositionalStrings(record)
		} else {
			row = csvparser.KeyedRow(data.Headers, record)
		}

		data.Rows = append(data.Rows, row)
		if row.Width() > data.ColumnCount {
			data.ColumnCount = row.Width()
		}
	}

	data.RowCount = len(data.Rows)
	return data, nil
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// CELL DECODING
// =============================================================================

var (
	quotedLiteralRegex = regexp.MustCompile(`"[^"]*"`)
	bracketRegex       = regexp.MustCompile(`\[[^\]]*\]`)
)

// cellDecoder converts raw cell values to text, turning date serials into
// calendar text. Style lookups are cached per style id.
type cellDecoder struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func newCellDecoder(f *excelize.File, sheet string) *cellDecoder {
	d := &cellDecoder{
		f:          f,
		sheet:      sheet,
		dateStyles: make(map[int]bool),
	}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// text returns the trimmed text of the cell at zero-based (row, col).
func (d *cellDecoder) text(row, col int, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}

	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return raw
	}
	styleID, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil || !d.isDateStyle(styleID) {
		return raw
	}

	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return raw
	}
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

func (d *cellDecoder) isDateStyle(styleID int) bool {
	if isDate, ok := d.dateStyles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := d.f.GetStyle(styleID); err == nil && style != nil {
		isDate = isDateFormat(style)
	}
	d.dateStyles[styleID] = isDate
	return isDate
}

// isDateFormat reports whether a cell style formats numbers as dates or
// times.
func isDateFormat(style *excelize.Style) bool {
	if style.CustomNumFmt != nil && *style.CustomNumFmt != "" {
		return isDateFormatCode(*style.CustomNumFmt)
	}

	// Built-in number formats that render dates or times.
	switch id := style.NumFmt; {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode inspects a format code such as "dd/mm/yyyy" once quoted
// literals and bracketed sections (colours, locales) are removed.
func isDateFormatCode(code string) bool {
	code = strings.ToLower(code)
	code = quotedLiteralRegex.ReplaceAllString(code, "")
	code = bracketRegex.ReplaceAllString(code, "")

	if strings.ContainsAny(code, "yd") {
		return true
	}
	return strings.Contains(code, "h") && strings.Contains(code, "s")
}
