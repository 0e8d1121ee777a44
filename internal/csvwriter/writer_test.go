package csvwriter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWrite(t *testing.T) {
	table := [][]string{
		{"phone_number", "name", "tags"},
		{"9876543210", `Asha "A" Rao`, "gold,vip"},
		{"8000000000", "", ""},
	}

	var buf bytes.Buffer
	if err := Write(&buf, table); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "phone_number,name,tags\n" +
		"9876543210,\"Asha \"\"A\"\" Rao\",\"gold,vip\"\n" +
		"8000000000,,\n"
	if got := buf.String(); got != want {
		t.Errorf("Write() =\n%q\nwant\n%q", got, want)
	}
}

func TestWriteWithOptions(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{"pipe", WriteOptions{Delimiter: '|'}, "a|b\n"},
		{"crlf", WriteOptions{UseCRLF: true}, "a,b\r\n"},
		{"bom", WriteOptions{BOM: true}, "\xEF\xBB\xBFa,b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteWithOptions(&buf, [][]string{{"a", "b"}}, tt.options); err != nil {
				t.Fatalf("WriteWithOptions() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "contacts.csv")

	if err := WriteFile(path, [][]string{{"phone_number"}, {"9876543210"}}); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "phone_number\n9876543210\n" {
		t.Errorf("file content = %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the output file", len(entries))
	}
}
