package csvparser

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

func cellAt(t *testing.T, row types.Row, index int) string {
	t.Helper()
	v, ok := row.Cell(index)
	if !ok {
		t.Fatalf("row has no cell %d", index)
	}
	return types.CellText(v)
}

func TestParseReader_KeyedRows(t *testing.T) {
	input := "\xEF\xBB\xBFMobile, Name ,,Name\n9876543210, asha ,x,dup\n\n8000000000\n"

	data, err := ParseReader(strings.NewReader(input), config.CSVSettings{})
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	wantHeaders := []string{"Mobile", "Name", "Column_3", "Name_2"}
	if !reflect.DeepEqual(data.Headers, wantHeaders) {
		t.Errorf("Headers = %q, want %q", data.Headers, wantHeaders)
	}
	if data.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2 (blank line skipped)", data.RowCount)
	}

	first := data.Rows[0]
	if first.Kind() != types.KindKeyed {
		t.Errorf("Kind() = %v, want keyed", first.Kind())
	}
	if got := cellAt(t, first, 1); got != "asha" {
		t.Errorf("first row name = %q, want trimmed %q", got, "asha")
	}
	if got := cellAt(t, first, 3); got != "dup" {
		t.Errorf("duplicate header column = %q, want %q", got, "dup")
	}

	// Short rows are padded with empty cells.
	if got := cellAt(t, data.Rows[1], 2); got != "" {
		t.Errorf("missing cell = %q, want empty", got)
	}
}

func TestParseReader_CellsPastHeader(t *testing.T) {
	data, err := ParseReader(strings.NewReader("Name,Column_3\nasha,x,9876543210\n"), config.CSVSettings{})
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	row := data.Rows[0]
	if got := cellAt(t, row, 2); got != "9876543210" {
		t.Errorf("cell past the header = %q, want 9876543210", got)
	}
	wantLabels := []string{"Name", "Column_3", "Column_3_2"}
	if !reflect.DeepEqual(row.Labels(), wantLabels) {
		t.Errorf("Labels() = %q, want %q", row.Labels(), wantLabels)
	}
	if data.ColumnCount != 3 {
		t.Errorf("ColumnCount = %d, want 3", data.ColumnCount)
	}
}

func TestKeyedRow(t *testing.T) {
	tests := []struct {
		name       string
		headers    []string
		cells      []string
		wantLabels []string
		wantWidth  int
	}{
		{"exact", []string{"a", "b"}, []string{"1", "2"}, []string{"a", "b"}, 2},
		{"short", []string{"a", "b"}, []string{"1"}, []string{"a", "b"}, 2},
		{"long", []string{"a"}, []string{"1", "2", "3"}, []string{"a", "Column_2", "Column_3"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := KeyedRow(tt.headers, tt.cells)
			if !reflect.DeepEqual(row.Labels(), tt.wantLabels) || row.Width() != tt.wantWidth {
				t.Errorf("KeyedRow() labels = %q width = %d, want %q %d",
					row.Labels(), row.Width(), tt.wantLabels, tt.wantWidth)
			}
		})
	}
}

func TestParseReader_NoHeader(t *testing.T) {
	input := "phone|name\n9876543210|asha\n"

	data, err := ParseReader(strings.NewReader(input), config.CSVSettings{Delimiter: "pipe", NoHeader: true})
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if len(data.Headers) != 0 {
		t.Errorf("Headers = %v, want none", data.Headers)
	}
	if data.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2", data.RowCount)
	}
	if data.Rows[0].Kind() != types.KindPositional {
		t.Errorf("Kind() = %v, want positional", data.Rows[0].Kind())
	}
	if got := data.Rows[0].Labels(); !reflect.DeepEqual(got, []string{"phone", "name"}) {
		t.Errorf("Labels() = %v", got)
	}
}

func TestParseReader_Delimiters(t *testing.T) {
	tests := []struct {
		delimiter string
		input     string
	}{
		{"", "a,b\n1,2\n"},
		{"tab", "a\tb\n1\t2\n"},
		{"\\t", "a\tb\n1\t2\n"},
		{";", "a;b\n1;2\n"},
		{"semicolon", "a;b\n1;2\n"},
		{"~", "a~b\n1~2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.delimiter, func(t *testing.T) {
			data, err := ParseReader(strings.NewReader(tt.input), config.CSVSettings{Delimiter: tt.delimiter})
			if err != nil {
				t.Fatalf("ParseReader() error = %v", err)
			}
			if !reflect.DeepEqual(data.Headers, []string{"a", "b"}) {
				t.Errorf("Headers = %v", data.Headers)
			}
			if got := cellAt(t, data.Rows[0], 1); got != "2" {
				t.Errorf("cell = %q, want 2", got)
			}
		})
	}
}

func TestParseReader_MultiLineHeader(t *testing.T) {
	input := "Customer,,Bill\nMobile,Name,Amount\n9876543210,asha,10\n"

	data, err := ParseReader(strings.NewReader(input), config.CSVSettings{HeaderRows: 2})
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	want := []string{"Customer Mobile", "Name", "Bill Amount"}
	if !reflect.DeepEqual(data.Headers, want) {
		t.Errorf("Headers = %q, want %q", data.Headers, want)
	}
	if data.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", data.RowCount)
	}
}

func TestParseReader_DataStartRow(t *testing.T) {
	input := "Mobile,Amount\nexported by POS v2,\n9876543210,10\n"

	data, err := ParseReader(strings.NewReader(input), config.CSVSettings{DataStartRow: 3})
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if data.RowCount != 1 || cellAt(t, data.Rows[0], 0) != "9876543210" {
		t.Errorf("rows = %v", data.Rows)
	}
}

func TestParseReader_Windows1252(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("Name,Amount\nJosé,€10\n")
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	data, err := ParseReader(strings.NewReader(encoded), config.CSVSettings{Encoding: "windows-1252"})
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if got := cellAt(t, data.Rows[0], 0); got != "José" {
		t.Errorf("name = %q, want José", got)
	}
	if got := cellAt(t, data.Rows[0], 1); got != "€10" {
		t.Errorf("amount = %q, want €10", got)
	}
}

func TestParseReader_Errors(t *testing.T) {
	if _, err := ParseReader(strings.NewReader(""), config.CSVSettings{}); err == nil {
		t.Error("empty input: error = nil, want error")
	}

	_, err := ParseReader(strings.NewReader("a\n1\n"), config.CSVSettings{Encoding: "EBCDIC"})
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("error = %v, want ErrUnsupportedEncoding", err)
	}
}

func TestStreamingParser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.csv")
	content := "Mobile,Bill\n9876543210,1\n,\n8000000000,2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := NewStreamingParser(path, config.CSVSettings{})
	if err != nil {
		t.Fatalf("NewStreamingParser() error = %v", err)
	}
	defer p.Close()

	var mobiles []string
	for p.Next() {
		mobiles = append(mobiles, cellAt(t, p.Row(), 0))
	}
	if err := p.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	if !reflect.DeepEqual(mobiles, []string{"9876543210", "8000000000"}) {
		t.Errorf("mobiles = %v", mobiles)
	}
	if p.RowNumber() != 4 {
		t.Errorf("RowNumber() = %d, want 4", p.RowNumber())
	}

	headers, err := ReadHeader(path, config.CSVSettings{})
	if err != nil || !reflect.DeepEqual(headers, []string{"Mobile", "Bill"}) {
		t.Errorf("ReadHeader() = %v, %v", headers, err)
	}
}
