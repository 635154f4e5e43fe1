package validate

import (
	"os"
	"path/filepath"
	"testing"

	"armbudget/pkg/models"
)

// =============================================================================
// TOLERANCE PROFILE TESTS
// =============================================================================

func TestDefaultTolerancesByFamily(t *testing.T) {
	tol := DefaultTolerances()

	tests := []struct {
		reportType models.ReportType
		absolute   float64
		fractional float64
	}{
		{models.ReportBudgetLaw, 0, 1e-3},
		{models.ReportSpendingQ1, 5.0, 1e-3},
		{models.ReportSpendingQ1234, 5.0, 1e-3},
		{models.ReportMTEP, 0, 1e-3},
	}
	for _, tt := range tests {
		prof := tol.For(tt.reportType)
		if prof.Absolute != tt.absolute || prof.Fractional != tt.fractional {
			t.Errorf("For(%s) = {%v, %v}, want {%v, %v}",
				tt.reportType, prof.Absolute, prof.Fractional, tt.absolute, tt.fractional)
		}
	}
}

func TestLoadTolerancesMissingFile(t *testing.T) {
	tol, err := LoadTolerances(filepath.Join(t.TempDir(), "absent.hjson"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if tol.Spending.Absolute != 5.0 {
		t.Errorf("spending absolute = %v, want default 5.0", tol.Spending.Absolute)
	}
}

func TestLoadTolerancesHjson(t *testing.T) {
	// Comments are the point of the Hjson format here; the parser must
	// accept them.
	raw := `{
  // loosened for the 2022 treasury migration
  spending: {
    absolute: 10.0
    fractional: 0.002
  }
}`
	path := filepath.Join(t.TempDir(), "tolerances.hjson")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	tol, err := LoadTolerances(path)
	if err != nil {
		t.Fatalf("LoadTolerances failed: %v", err)
	}
	if tol.Spending.Absolute != 10.0 || tol.Spending.Fractional != 0.002 {
		t.Errorf("spending profile = %+v", tol.Spending)
	}
	// Families the file omits keep their defaults.
	if tol.BudgetLaw.Absolute != 0 || tol.BudgetLaw.Fractional != 1e-3 {
		t.Errorf("budget law profile = %+v, want defaults", tol.BudgetLaw)
	}
}
