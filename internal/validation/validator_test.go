package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

func rules(issues []*ValidationError) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Severity + ":" + issue.Field + ":" + issue.Rule
	}
	return out
}

func TestValidateMapping(t *testing.T) {
	labels := []string{"Mobile", "Bill No", "Amount", "Date"}

	tests := []struct {
		name    string
		mapping types.ColumnMapping
		mode    string
		want    []string
	}{
		{
			name:    "valid combined",
			mapping: types.ColumnMapping{Mobile: 1, BillNumber: 2, BillAmount: 3, OrderTime: 4},
			mode:    config.ModeCombined,
			want:    nil,
		},
		{
			name:    "negative position",
			mapping: types.ColumnMapping{Mobile: -1, BillAmount: 3},
			mode:    config.ModeCombined,
			want:    []string{"error:mobileCol:position"},
		},
		{
			name:    "beyond header",
			mapping: types.ColumnMapping{Mobile: 1, PointsEarned: 9},
			mode:    config.ModeCombined,
			want:    []string{"warning:pointsEarnedCol:range"},
		},
		{
			name:    "duplicate column",
			mapping: types.ColumnMapping{Mobile: 1, BillNumber: 2, BillAmount: 2},
			mode:    config.ModeCombined,
			want:    []string{"warning:billAmountCol:duplicate"},
		},
		{
			name:    "nothing mapped",
			mapping: types.ColumnMapping{},
			mode:    config.ModeCombined,
			want:    []string{"error:columnMapping:required"},
		},
		{
			name:    "no mobile",
			mapping: types.ColumnMapping{BillAmount: 3},
			mode:    config.ModeCombined,
			want:    []string{"warning:mobileCol:required"},
		},
		{
			name:    "contacts infer phone",
			mapping: types.ColumnMapping{},
			mode:    config.ModeContacts,
			want:    nil,
		},
		{
			name:    "contacts explicit phone",
			mapping: types.ColumnMapping{Phone: 1, Name: 1},
			mode:    config.ModeContacts,
			want:    []string{"warning:nameCol:duplicate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules(ValidateMapping(tt.mapping, labels, tt.mode))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ValidateMapping() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate_ContactsWithoutPhone(t *testing.T) {
	result := NewValidator().Validate(types.ColumnMapping{}, []string{"Full Name", "Email"}, config.ModeContacts)

	if result.IsValid {
		t.Error("IsValid = true, want false")
	}
	if result.ErrorCount != 1 || result.Errors[0].Field != "phoneCol" {
		t.Errorf("Errors = %v", result.Errors)
	}
	if result.Mapping.Name != 1 || result.Mapping.Email != 2 || result.InferredSlots != 2 {
		t.Errorf("Mapping = %+v, InferredSlots = %d", result.Mapping, result.InferredSlots)
	}
}

func TestValidate_InferredMapping(t *testing.T) {
	result := NewValidator().Validate(types.ColumnMapping{}, []string{"Customer Name", "Mobile No", "DOB"}, config.ModeContacts)

	if !result.IsValid {
		t.Fatalf("Errors = %v", result.Errors)
	}
	want := types.ColumnMapping{Name: 1, Phone: 2, Birthday: 3}
	if result.Mapping != want {
		t.Errorf("Mapping = %+v, want %+v", result.Mapping, want)
	}
}

func TestValidate_TreatWarningsAsErrors(t *testing.T) {
	v := NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true})
	result := v.Validate(types.ColumnMapping{BillAmount: 1}, []string{"Amount"}, config.ModeCombined)

	if result.IsValid || result.WarningCount != 1 || result.ErrorCount != 0 {
		t.Errorf("result = %+v", result)
	}
	if HasErrors(result.Errors) {
		t.Error("HasErrors() = true for warnings only")
	}
}

func TestValidate_UnknownWidth(t *testing.T) {
	issues := ValidateMapping(types.ColumnMapping{Mobile: 40}, nil, config.ModeCombined)
	if len(issues) != 0 {
		t.Errorf("issues = %v, want none without a header", issues)
	}
}

func TestWriteReport(t *testing.T) {
	issues := ValidateMapping(types.ColumnMapping{}, nil, config.ModeCombined)
	path := filepath.Join(t.TempDir(), "report.txt")

	if err := WriteReport(issues, "pos.csv", path); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Input File: pos.csv", "1 issue(s)", "[ERROR] Field 'columnMapping'"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("report missing %q:\n%s", want, content)
		}
	}
	if FormatErrors(nil) != "No validation errors." {
		t.Errorf("FormatErrors(nil) = %q", FormatErrors(nil))
	}
}
