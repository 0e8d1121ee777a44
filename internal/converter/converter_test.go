package converter

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
	"github.com/ginjaninja78/loyalty-normalizer/internal/validation"
	"github.com/ginjaninja78/loyalty-normalizer/internal/xlsxparser"
)

const posExport = `Mobile,Bill No,Amount,Ordered,Earned
+91 98765 43210,1001,250.50,2024-03-09 14:30:05,25
9876543210,1002,100,2024-03-10 10:00:00,
abc,,,,
8000000000,1003,75,09/03/2024,5
`

var posMapping = types.ColumnMapping{Mobile: 1, BillNumber: 2, BillAmount: 3, OrderTime: 4, PointsEarned: 5}

func testConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.UploadDir = filepath.Join(root, "uploads")
	if err := os.MkdirAll(cfg.InputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func writeInput(t *testing.T, cfg *config.MainConfig, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.InputDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func TestRun_Combined(t *testing.T) {
	cfg := testConfig(t)
	path := writeInput(t, cfg, "pos_0309.csv", posExport)

	result := New(path, cfg, Options{Mapping: posMapping}).Run(context.Background())
	if !result.Success {
		t.Fatalf("Run() failed: %v", result.Error)
	}

	if result.Mode != config.ModeCombined {
		t.Errorf("Mode = %q, want combined", result.Mode)
	}
	if result.Stats.RowsRead != 4 || result.Stats.TransactionsWritten != 3 || result.Stats.ContactsWritten != 2 {
		t.Errorf("Stats = %+v", result.Stats)
	}
	if len(result.Issues) != 0 {
		t.Errorf("Issues = %v", result.Issues)
	}

	txns := readCSV(t, result.OutputFiles.Transactions)
	wantTxns := [][]string{
		{"mobile", "txn_type", "bill_number", "bill_amount", "order_time", "points_earned", "points_redeemed"},
		{"9876543210", "purchase", "1001", "250.50", "2024-03-09 14:30:05", "25", ""},
		{"9876543210", "purchase", "1002", "100", "2024-03-10 10:00:00", "", ""},
		{"8000000000", "purchase", "1003", "75", "2024-09-03 00:00:00", "5", ""},
	}
	if !reflect.DeepEqual(txns, wantTxns) {
		t.Errorf("transactions =\n%v\nwant\n%v", txns, wantTxns)
	}

	contacts := readCSV(t, result.OutputFiles.Contacts)
	wantContacts := [][]string{
		{"mobile", "name", "email", "birthday", "anniversary", "gender", "points", "tags"},
		{"9876543210", "", "", "", "", "", "25", ""},
		{"8000000000", "", "", "", "", "", "5", ""},
	}
	if !reflect.DeepEqual(contacts, wantContacts) {
		t.Errorf("contacts =\n%v\nwant\n%v", contacts, wantContacts)
	}

	if filepath.Dir(result.OutputFiles.Transactions) != cfg.OutputDir {
		t.Errorf("output written to %s, want %s", result.OutputFiles.Transactions, cfg.OutputDir)
	}
	if result.OutputFiles.ErrorLog != "" {
		t.Errorf("ErrorLog = %q, want none", result.OutputFiles.ErrorLog)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("input should stay in place without Archive: %v", err)
	}
}

func TestRun_ContactsFromSpreadsheet(t *testing.T) {
	cfg := testConfig(t)

	f := excelize.NewFile()
	rows := [][]any{
		{"Customer Name", "Mobile No", "Email", "DOB"},
		{"asha rao", "9876543210", "asha@example.com", "12/05/1990"},
		{"duplicate", "+919876543210", "", ""},
		{"ravi", "12345", "", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		values := row
		if err := f.SetSheetRow("Sheet1", cell, &values); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(cfg.InputDir, "members.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	result := New(path, cfg, Options{Mode: config.ModeContacts}).Run(context.Background())
	if !result.Success {
		t.Fatalf("Run() failed: %v", result.Error)
	}

	if result.OutputFiles.Transactions != "" {
		t.Errorf("contacts run wrote transactions: %s", result.OutputFiles.Transactions)
	}
	if result.Stats.InferredSlots != 4 || result.Stats.ContactsWritten != 1 {
		t.Errorf("Stats = %+v", result.Stats)
	}
	want := types.ColumnMapping{Name: 1, Phone: 2, Email: 3, Birthday: 4}
	if result.Mapping != want {
		t.Errorf("Mapping = %+v, want %+v", result.Mapping, want)
	}

	contacts := readCSV(t, result.OutputFiles.Contacts)
	if len(contacts) != 2 {
		t.Fatalf("contacts = %v", contacts)
	}
	got := contacts[1]
	if got[0] != "9876543210" || got[1] != "Asha Rao" || got[3] != "1990-05-12" || got[6] != "0" {
		t.Errorf("contact = %v", got)
	}
}

func TestRun_DryRun(t *testing.T) {
	cfg := testConfig(t)
	path := writeInput(t, cfg, "pos.csv", posExport)

	result := New(path, cfg, Options{Mapping: posMapping, DryRun: true, Archive: true}).Run(context.Background())
	if !result.Success {
		t.Fatalf("Run() failed: %v", result.Error)
	}
	if result.Stats.TransactionsWritten != 3 {
		t.Errorf("TransactionsWritten = %d, want 3", result.Stats.TransactionsWritten)
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 || result.OutputFiles != (OutputFiles{}) {
		t.Errorf("dry run wrote files: %v", entries)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("dry run archived the input: %v", err)
	}
}

func TestRun_Archive(t *testing.T) {
	cfg := testConfig(t)
	path := writeInput(t, cfg, "pos.csv", posExport)

	result := New(path, cfg, Options{Mapping: posMapping, Archive: true}).Run(context.Background())
	if !result.Success {
		t.Fatalf("Run() failed: %v", result.Error)
	}
	if result.ArchivePath != filepath.Join(cfg.InputArchiveDir, "pos.csv") {
		t.Errorf("ArchivePath = %q", result.ArchivePath)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("input still present after archiving: %v", err)
	}
}

func TestRun_MappingIssuesDoNotStopRun(t *testing.T) {
	cfg := testConfig(t)
	path := writeInput(t, cfg, "pos.csv", posExport)

	mapping := types.ColumnMapping{Mobile: 1, PointsRedeemed: 12}
	result := New(path, cfg, Options{Mapping: mapping}).Run(context.Background())
	if !result.Success {
		t.Fatalf("Run() failed: %v", result.Error)
	}
	if result.Stats.MappingWarnings != 1 || result.Issues[0].Field != "pointsRedeemedCol" {
		t.Errorf("Issues = %v", result.Issues)
	}
	if result.Stats.TransactionsWritten != 3 {
		t.Errorf("TransactionsWritten = %d, want 3", result.Stats.TransactionsWritten)
	}
	if !result.MappingValid {
		t.Error("MappingValid = false for a warning")
	}

	strict := Options{
		Mapping:    mapping,
		DryRun:     true,
		Validation: validation.ValidationOptions{TreatWarningsAsErrors: true},
	}
	result = New(path, cfg, strict).Run(context.Background())
	if !result.Success || result.MappingValid {
		t.Errorf("strict: Success = %v, MappingValid = %v", result.Success, result.MappingValid)
	}
}

func TestRun_Failures(t *testing.T) {
	cfg := testConfig(t)
	csvPath := writeInput(t, cfg, "pos.csv", posExport)
	txtPath := writeInput(t, cfg, "notes.txt", "hello")
	xlsPath := writeInput(t, cfg, "legacy.xls", "not a workbook")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		path    string
		ctx     context.Context
		options Options
		wantErr error
	}{
		{"unsupported extension", txtPath, context.Background(), Options{}, ErrUnsupportedFileType},
		{"legacy workbook", xlsPath, context.Background(), Options{}, xlsxparser.ErrLegacyFormat},
		{"cancelled", csvPath, cancelled, Options{Mapping: posMapping}, context.Canceled},
		{"missing file", filepath.Join(cfg.InputDir, "gone.csv"), context.Background(), Options{}, os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.path, cfg, tt.options).Run(tt.ctx)
			if result.Success {
				t.Fatal("Run() succeeded, want failure")
			}
			if !errors.Is(result.Error, tt.wantErr) {
				t.Errorf("Error = %v, want %v", result.Error, tt.wantErr)
			}
		})
	}

	result := New(csvPath, cfg, Options{Mode: "everything"}).Run(context.Background())
	if result.Success || result.Error == nil {
		t.Errorf("unknown mode: Success = %v, Error = %v", result.Success, result.Error)
	}
}
