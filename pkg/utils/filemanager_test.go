package utils

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "uploads"),
	)
	if err := fm.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	return fm
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	for _, name := range []string{"b.csv", "a.XLSX", "notes.txt", ".hidden.csv", "old.xls"} {
		touch(t, filepath.Join(fm.InputDir, name))
	}
	touch(t, filepath.Join(fm.InputDir, "nested", "c.csv"))

	files, err := fm.DiscoverInputFiles()
	if err != nil {
		t.Fatalf("DiscoverInputFiles() error = %v", err)
	}

	want := []string{
		filepath.Join(fm.InputDir, "a.XLSX"),
		filepath.Join(fm.InputDir, "b.csv"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("DiscoverInputFiles() = %v, want %v", files, want)
	}
}

func TestArchiveInputFile(t *testing.T) {
	fm := newTestManager(t)
	src := filepath.Join(fm.InputDir, "pos.csv")
	touch(t, src)

	archived, err := fm.ArchiveInputFile(src)
	if err != nil {
		t.Fatalf("ArchiveInputFile() error = %v", err)
	}
	if archived != filepath.Join(fm.InputArchiveDir, "pos.csv") {
		t.Errorf("archive path = %q", archived)
	}
	if FileExists(src) || !FileExists(archived) {
		t.Error("file was not moved into the archive")
	}

	// A second file with the same name must not replace the first.
	touch(t, src)
	second, err := fm.ArchiveInputFile(src)
	if err != nil {
		t.Fatalf("ArchiveInputFile() error = %v", err)
	}
	if second == archived || !FileExists(second) || !FileExists(archived) {
		t.Errorf("second archive path = %q, first = %q", second, archived)
	}
}

func TestArchiveInputFile_Disabled(t *testing.T) {
	fm := newTestManager(t)
	fm.ArchiveOnSuccess = false
	src := filepath.Join(fm.InputDir, "pos.csv")
	touch(t, src)

	got, err := fm.ArchiveInputFile(src)
	if err != nil || got != src || !FileExists(src) {
		t.Errorf("ArchiveInputFile() = %q, %v; file should stay in place", got, err)
	}
}

func TestGenerateOutputFileName(t *testing.T) {
	tests := []struct {
		format  string
		params  map[string]string
		pattern string
	}{
		{
			format:  "{kind}_{original}_{uuid}.csv",
			params:  map[string]string{"kind": "contacts", "original": "members"},
			pattern: `^contacts_members_[0-9a-f-]{36}\.csv$`,
		},
		{
			format:  "{kind}_{date}",
			params:  map[string]string{"kind": "transactions"},
			pattern: `^transactions_\d{8}\.csv$`,
		},
		{
			format:  "{original}.csv",
			params:  map[string]string{"original": "../etc/passwd"},
			pattern: `^\.\._etc_passwd\.csv$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got := GenerateOutputFileName(tt.format, tt.params)
			if !regexp.MustCompile(tt.pattern).MatchString(got) {
				t.Errorf("GenerateOutputFileName() = %q, want match %s", got, tt.pattern)
			}
		})
	}
}

func TestOriginalName(t *testing.T) {
	if got := OriginalName("/data/in/pos_2024.tar.csv"); got != "pos_2024.tar" {
		t.Errorf("OriginalName() = %q", got)
	}
}

func TestResolveInDir(t *testing.T) {
	got, err := ResolveInDir("/srv/out", "contacts_x.csv")
	if err != nil || got != filepath.Join("/srv/out", "contacts_x.csv") {
		t.Errorf("ResolveInDir() = %q, %v", got, err)
	}

	for _, name := range []string{"", "..", "../secret", "a/b.csv", `a\b.csv`} {
		if _, err := ResolveInDir("/srv/out", name); !errors.Is(err, ErrInvalidFileName) {
			t.Errorf("ResolveInDir(%q) error = %v, want ErrInvalidFileName", name, err)
		}
	}
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	if err != nil || path != "" {
		t.Errorf("WriteErrorLog(nil) = %q, %v", path, err)
	}

	entries := []ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     "pos.csv",
		ErrorType:    "row",
		ErrorMessage: "row processing panicked: boom",
		RowNumber:    7,
	}}
	path, err = WriteErrorLog(entries, dir)
	if err != nil {
		t.Fatalf("WriteErrorLog() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Total Errors: 1", "File:           pos.csv", "Row Number:     7", "boom"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("error log missing %q", want)
		}
	}
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()
	summary := ProcessingSummary{
		StartTime:         start,
		EndTime:           start.Add(2 * time.Second),
		TotalFiles:        2,
		SuccessfulFiles:   1,
		FailedFiles:       1,
		TotalTransactions: 10,
		TotalContacts:     4,
		ProcessedFiles: []ProcessedFileInfo{{
			InputFile:        "pos.csv",
			Mode:             "combined",
			TransactionsFile: "transactions_pos.csv",
			ContactsFile:     "contacts_pos.csv",
			Transactions:     10,
			Contacts:         4,
		}},
		FailedFilesList: []FailedFileInfo{{InputFile: "bad.xlsx", ErrorMessage: "failed to open workbook"}},
	}

	path, err := WriteSummaryLog(summary, dir)
	if err != nil {
		t.Fatalf("WriteSummaryLog() error = %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Total Transactions: 10", "transactions_pos.csv (10)", "File:  bad.xlsx", "Duration:       2s"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("summary missing %q:\n%s", want, content)
		}
	}
}

func TestCleanOldFiles(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old.csv")
	newFile := filepath.Join(dir, "new.csv")
	touch(t, oldFile)
	touch(t, newFile)

	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := CleanOldFiles(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanOldFiles() error = %v", err)
	}
	if removed != 1 || FileExists(oldFile) || !FileExists(newFile) {
		t.Errorf("removed = %d, old exists = %v, new exists = %v", removed, FileExists(oldFile), FileExists(newFile))
	}

	if n, err := CleanOldFiles(filepath.Join(dir, "missing"), time.Hour); n != 0 || err != nil {
		t.Errorf("missing dir: %d, %v", n, err)
	}
}
