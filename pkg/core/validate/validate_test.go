package validate

import (
	"math"
	"testing"

	"armbudget/pkg/models"
)

// =============================================================================
// FIXTURE DOCUMENTS
// =============================================================================
// Shapes mirror the ministry of finance workbooks: one education ministry
// branch, amounts in thousand dram.

// lawDoc is a minimal enacted budget law with a single negative subsidy
// line. Declared and computed totals agree on every level.
func lawDoc() *models.Document {
	return &models.Document{
		Year:       2025,
		ReportType: models.ReportBudgetLaw,
		Era:        models.EraModern,
		Bodies: []*models.StateBody{{
			Code:     "1079",
			Name:     "ԿԳՄՍ նախարարություն",
			Row:      3,
			Declared: models.Amounts{models.FieldTotal: -1276},
			Computed: models.Amounts{models.FieldTotal: -1276},
			Programs: []*models.Program{{
				Code:     "11001",
				Name:     "Հանրակրթության ծրագիր",
				Row:      4,
				Declared: models.Amounts{models.FieldTotal: -1276},
				Computed: models.Amounts{models.FieldTotal: -1276},
				Subprograms: []*models.Subprogram{{
					Code:   "31002",
					Name:   "Դպրոցների պահպանում",
					Row:    5,
					Values: models.Amounts{models.FieldTotal: -1276},
				}},
			}},
		}},
		GrandDeclared: models.Amounts{models.FieldTotal: -1276},
		GrandComputed: models.Amounts{models.FieldTotal: -1276},
	}
}

// spendingQ1Doc reports the same subprogram with a zeroed annual plan, a
// filled period plan, and a stored ratio against the zero plan.
func spendingQ1Doc() *models.Document {
	subVals := models.Amounts{
		models.FieldAnnualPlan:        0,
		models.FieldRevAnnualPlan:     0,
		models.FieldPeriodPlan:        272450.40,
		models.FieldRevPeriodPlan:     272450.40,
		models.FieldActual:            150000,
		models.FieldActualVsRevAnnual: 0,
		models.FieldActualVsRevPeriod: 0.5506,
	}
	parentVals := models.Amounts{
		models.FieldAnnualPlan:    0,
		models.FieldRevAnnualPlan: 0,
		models.FieldPeriodPlan:    272450.40,
		models.FieldRevPeriodPlan: 272450.40,
		models.FieldActual:        150000,
	}
	return &models.Document{
		Year:       2025,
		ReportType: models.ReportSpendingQ1,
		Era:        models.EraModern,
		Bodies: []*models.StateBody{{
			Code:     "1079",
			Name:     "ԿԳՄՍ նախարարություն",
			Declared: parentVals.Clone(),
			Computed: parentVals.Clone(),
			Programs: []*models.Program{{
				Code:     "11001",
				Name:     "Հանրակրթության ծրագիր",
				Declared: parentVals.Clone(),
				Computed: parentVals.Clone(),
				Subprograms: []*models.Subprogram{{
					Code:   "31002",
					Name:   "Դպրոցների պահպանում",
					Values: subVals,
				}},
			}},
		}},
		GrandDeclared: parentVals.Clone(),
		GrandComputed: parentVals.Clone(),
	}
}

// spendingLeaf wraps a single subprogram value set into a Q1 document.
func spendingLeaf(vals models.Amounts) *models.Document {
	return &models.Document{
		Year:       2025,
		ReportType: models.ReportSpendingQ1,
		Era:        models.EraModern,
		Bodies: []*models.StateBody{{
			Code: "1079",
			Name: "ԿԳՄՍ նախարարություն",
			Programs: []*models.Program{{
				Code: "11001",
				Name: "Հանրակրթության ծրագիր",
				Subprograms: []*models.Subprogram{{
					Code:   "31002",
					Name:   "Դպրոցների պահպանում",
					Values: vals,
				}},
			}},
		}},
	}
}

// =============================================================================
// WHOLE-DOCUMENT RUNS
// =============================================================================

func TestValidateBudgetLawNegativeLine(t *testing.T) {
	// A negative enacted amount is the only anomaly in this document, and
	// it surfaces exactly once: on the leaf, not again on each parent that
	// aggregates it.
	res := NewEngine(DefaultTolerances()).Validate(lawDoc())

	if len(res.Findings) != 1 {
		t.Fatalf("finding count = %d, want 1: %+v", len(res.Findings), res.Findings)
	}
	f := res.Findings[0]
	if f.Check != "negative_totals" || f.Severity != SeverityWarning || f.Kind != KindNegative {
		t.Errorf("finding = %s/%s/%s, want negative_totals/warning/negative", f.Check, f.Severity, f.Kind)
	}
	if f.Path != "1079/11001/31002" || f.Field != models.FieldTotal || f.Actual != -1276 {
		t.Errorf("finding target = %s/%s actual %v", f.Path, f.Field, f.Actual)
	}
	if f.Message != "Subprogram 31002 has negative total: -1276.00" {
		t.Errorf("message = %q", f.Message)
	}
	if res.HasErrors() {
		t.Error("a negative amount is advisory, not an error")
	}
	t.Logf("summary: %s", res.Summary())
}

func TestValidateSpendingZeroAnnualPlan(t *testing.T) {
	// Three warnings, no errors: the period plans exceed the zero annual
	// plans, and the stored ratio against the zero plan is unverifiable.
	res := NewEngine(DefaultTolerances()).Validate(spendingQ1Doc())

	if res.HasErrors() {
		t.Fatalf("unexpected errors: %+v", res.Errors())
	}
	if len(res.Findings) != 3 {
		t.Fatalf("finding count = %d, want 3: %+v", len(res.Findings), res.Findings)
	}

	byCheck := res.ByCheck()

	zero := byCheck["percentage_calculation"]
	if len(zero) != 1 || zero[0].Kind != KindZeroDivision {
		t.Fatalf("percentage_calculation findings = %+v", zero)
	}
	if zero[0].Message != "Ratio actual_vs_rev_annual_plan is unverifiable: rev_annual_plan is zero" {
		t.Errorf("message = %q", zero[0].Message)
	}

	period := byCheck["period_vs_annual"]
	if len(period) != 2 {
		t.Fatalf("period_vs_annual findings = %d, want 2", len(period))
	}
	f := period[0]
	if f.Field != models.FieldPeriodPlan || f.Expected != 0 || f.Actual != 272450.40 || f.Diff != 272450.40 {
		t.Errorf("period finding numbers = expected %v actual %v diff %v", f.Expected, f.Actual, f.Diff)
	}
	if f.Tolerance != 5.0 {
		t.Errorf("tolerance = %v, want the spending profile's 5.0", f.Tolerance)
	}
	if f.Message != "period_plan 272450.40 exceeds annual_plan 0.00" {
		t.Errorf("message = %q", f.Message)
	}
	if period[1].Field != models.FieldRevPeriodPlan {
		t.Errorf("second period finding field = %s", period[1].Field)
	}
}

// =============================================================================
// REQUIRED FIELDS AND MISSING DATA
// =============================================================================

func TestRequiredFieldsPartialRow(t *testing.T) {
	doc := spendingLeaf(models.Amounts{models.FieldAnnualPlan: 100})
	res := NewEngine(DefaultTolerances()).Validate(doc)

	got := res.ByCheck()["required_fields"]
	expected := []models.Field{
		models.FieldRevAnnualPlan,
		models.FieldPeriodPlan,
		models.FieldRevPeriodPlan,
		models.FieldActual,
	}
	if len(got) != len(expected) {
		t.Fatalf("finding count = %d, want %d: %+v", len(got), len(expected), got)
	}
	for i, f := range got {
		if f.Field != expected[i] {
			t.Errorf("finding %d field = %s, want %s", i, f.Field, expected[i])
		}
		if f.Severity != SeverityError || f.Kind != KindMissing {
			t.Errorf("finding %d severity/kind = %s/%s", i, f.Severity, f.Kind)
		}
	}
	if got[3].Message != "Subprogram 31002 is missing actual" {
		t.Errorf("message = %q", got[3].Message)
	}
}

func TestRequiredFieldsSkipsEmptyRows(t *testing.T) {
	// A fully empty line is routine non-execution; it belongs to
	// missing_financial_data, not required_fields.
	doc := spendingLeaf(models.Amounts{})
	res := NewEngine(DefaultTolerances()).Validate(doc)

	if n := len(res.ByCheck()["required_fields"]); n != 0 {
		t.Errorf("required_fields fired %d times on an empty row", n)
	}
	missing := res.ByCheck()["missing_financial_data"]
	if len(missing) != 1 || missing[0].Severity != SeverityWarning {
		t.Fatalf("missing_financial_data findings = %+v", missing)
	}
	if missing[0].Message != "Subprogram 31002 carries no financial data" {
		t.Errorf("message = %q", missing[0].Message)
	}
}

func TestEmptyIdentifiers(t *testing.T) {
	doc := &models.Document{
		Year:       2025,
		ReportType: models.ReportBudgetLaw,
		Era:        models.EraModern,
		Bodies: []*models.StateBody{{
			Code: "1079",
			Name: "",
			Programs: []*models.Program{{
				Code: "",
				Name: "Հանրակրթության ծրագիր",
				Subprograms: []*models.Subprogram{{
					Code:   "31002",
					Name:   "",
					Values: models.Amounts{models.FieldTotal: 100},
				}},
			}},
		}},
	}
	res := NewEngine(DefaultTolerances()).Validate(doc)

	got := res.ByCheck()["empty_identifiers"]
	if len(got) != 3 {
		t.Fatalf("finding count = %d, want 3: %+v", len(got), got)
	}
	messages := []string{
		"State body 1079 has an empty name",
		"Program has an empty code",
		"Subprogram 31002 has an empty name",
	}
	for i, want := range messages {
		if got[i].Message != want {
			t.Errorf("finding %d message = %q, want %q", i, got[i].Message, want)
		}
		if got[i].Severity != SeverityError {
			t.Errorf("finding %d severity = %s", i, got[i].Severity)
		}
	}
}

// =============================================================================
// NEGATIVE VALUES
// =============================================================================

func TestNegativeTotalsFlagsLeavesOnly(t *testing.T) {
	doc := spendingLeaf(models.Amounts{models.FieldAnnualPlan: -500})
	// Parent aggregates carry the same negative; they must stay silent.
	doc.Bodies[0].Declared = models.Amounts{models.FieldAnnualPlan: -500}
	doc.Bodies[0].Computed = models.Amounts{models.FieldAnnualPlan: -500}

	res := NewEngine(DefaultTolerances()).Validate(doc)
	got := res.ByCheck()["negative_totals"]
	if len(got) != 1 {
		t.Fatalf("finding count = %d, want 1: %+v", len(got), got)
	}
	if got[0].Path != "1079/11001/31002" {
		t.Errorf("path = %s, want the leaf", got[0].Path)
	}
	if got[0].Message != "Subprogram 31002 has negative annual_plan: -500.00" {
		t.Errorf("message = %q", got[0].Message)
	}
}

func TestNegativePercentages(t *testing.T) {
	doc := spendingLeaf(models.Amounts{models.FieldActualVsRevAnnual: -0.05})
	res := NewEngine(DefaultTolerances()).Validate(doc)

	got := res.ByCheck()["negative_percentages"]
	if len(got) != 1 {
		t.Fatalf("finding count = %d, want 1: %+v", len(got), got)
	}
	f := got[0]
	if f.Severity != SeverityWarning || f.Kind != KindNegative || f.Actual != -0.05 {
		t.Errorf("finding = %s/%s actual %v", f.Severity, f.Kind, f.Actual)
	}
	if f.Message != "Subprogram 31002 has a negative execution ratio actual_vs_rev_annual_plan: -0.0500" {
		t.Errorf("message = %q", f.Message)
	}
}

// =============================================================================
// EXECUTION RATIOS
// =============================================================================

func TestExecutionExceeds100(t *testing.T) {
	doc := spendingLeaf(models.Amounts{
		models.FieldRevAnnualPlan:     100,
		models.FieldActual:            172.45,
		models.FieldActualVsRevAnnual: 1.7245,
	})
	// Declared parent totals state a ratio too; both nodes are checked.
	doc.Bodies[0].Declared = models.Amounts{
		models.FieldRevAnnualPlan:     200,
		models.FieldActual:            240,
		models.FieldActualVsRevAnnual: 1.2,
	}

	res := NewEngine(DefaultTolerances()).Validate(doc)
	got := res.ByCheck()["execution_exceeds_100"]
	if len(got) != 2 {
		t.Fatalf("finding count = %d, want 2: %+v", len(got), got)
	}

	body, leaf := got[0], got[1]
	if body.Path != "1079" || math.Abs(body.Diff-0.2) > 1e-9 {
		t.Errorf("body finding = path %s diff %v", body.Path, body.Diff)
	}
	if leaf.Path != "1079/11001/31002" || leaf.Expected != 1.0 || math.Abs(leaf.Diff-0.7245) > 1e-9 {
		t.Errorf("leaf finding = path %s expected %v diff %v", leaf.Path, leaf.Expected, leaf.Diff)
	}
	if leaf.Message != "Execution at 172.45% of revised annual plan" {
		t.Errorf("message = %q", leaf.Message)
	}
}

func TestExecutionCheckSkipsNonSpending(t *testing.T) {
	doc := lawDoc()
	doc.Bodies[0].Programs[0].Subprograms[0].Values = models.Amounts{
		models.FieldTotal:             100,
		models.FieldActualVsRevAnnual: 1.5, // stray cell outside the law layout
	}
	res := NewEngine(DefaultTolerances()).Validate(doc)
	if n := len(res.ByCheck()["execution_exceeds_100"]); n != 0 {
		t.Errorf("execution check fired %d times on a budget law", n)
	}
}

func TestPercentageCalculation(t *testing.T) {
	tests := []struct {
		name     string
		stored   float64
		expected int // finding count
	}{
		{"Stored matches recomputed", 0.93, 0},
		{"Within fractional tolerance", 0.9305, 0},
		{"Stored differs", 0.95, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := spendingLeaf(models.Amounts{
				models.FieldRevAnnualPlan:     1000,
				models.FieldActual:            930,
				models.FieldActualVsRevAnnual: tt.stored,
			})
			res := NewEngine(DefaultTolerances()).Validate(doc)
			got := res.ByCheck()["percentage_calculation"]
			if len(got) != tt.expected {
				t.Fatalf("finding count = %d, want %d: %+v", len(got), tt.expected, got)
			}
			if tt.expected == 0 {
				return
			}
			f := got[0]
			if f.Severity != SeverityError || f.Kind != KindMismatch {
				t.Errorf("severity/kind = %s/%s, want error/mismatch", f.Severity, f.Kind)
			}
			if f.Expected != 0.93 || f.Actual != tt.stored {
				t.Errorf("expected/actual = %v/%v", f.Expected, f.Actual)
			}
			if f.Message != "Stored ratio 0.9500 differs from computed 0.9300" {
				t.Errorf("message = %q", f.Message)
			}
		})
	}
}

// =============================================================================
// PERIOD VS ANNUAL
// =============================================================================

func TestPeriodVsAnnualTolerance(t *testing.T) {
	// Spending tolerance is 5.0 thousand dram.
	tests := []struct {
		name     string
		period   float64
		expected int
	}{
		{"Period below annual", 90, 0},
		{"Excess inside tolerance", 104.99, 0},
		{"Excess beyond tolerance", 105.01, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := spendingLeaf(models.Amounts{
				models.FieldAnnualPlan: 100,
				models.FieldPeriodPlan: tt.period,
			})
			res := NewEngine(DefaultTolerances()).Validate(doc)
			got := res.ByCheck()["period_vs_annual"]
			if len(got) != tt.expected {
				t.Fatalf("finding count = %d, want %d: %+v", len(got), tt.expected, got)
			}
			if tt.expected == 1 && got[0].Severity != SeverityWarning {
				t.Errorf("severity = %s, want warning", got[0].Severity)
			}
		})
	}
}

// =============================================================================
// HIERARCHICAL TOTALS
// =============================================================================

func TestHierarchicalTotalsMismatch(t *testing.T) {
	doc := lawDoc()
	doc.Bodies[0].Programs[0].Declared = models.Amounts{models.FieldTotal: 3000}
	doc.Bodies[0].Programs[0].Computed = models.Amounts{models.FieldTotal: 2900}
	doc.Bodies[0].Declared = models.Amounts{models.FieldTotal: 3100}
	doc.Bodies[0].Computed = models.Amounts{models.FieldTotal: 3000}
	doc.GrandDeclared = models.Amounts{models.FieldTotal: 3200}
	doc.GrandComputed = models.Amounts{models.FieldTotal: 3100}

	res := NewEngine(DefaultTolerances()).Validate(doc)
	got := res.ByCheck()["hierarchical_totals"]
	if len(got) != 3 {
		t.Fatalf("finding count = %d, want 3: %+v", len(got), got)
	}

	messages := []string{
		"State body 1079 declares total 3100.00 but children sum to 3000.00",
		"Program 11001 declares total 3000.00 but children sum to 2900.00",
		"Grand total declares total 3200.00 but children sum to 3100.00",
	}
	for i, want := range messages {
		if got[i].Message != want {
			t.Errorf("finding %d message = %q, want %q", i, got[i].Message, want)
		}
		if got[i].Severity != SeverityError || got[i].Kind != KindMismatch {
			t.Errorf("finding %d severity/kind = %s/%s", i, got[i].Severity, got[i].Kind)
		}
	}
	if got[1].Expected != 3000 || got[1].Actual != 2900 || got[1].Diff != 100 {
		t.Errorf("program finding numbers = %v/%v/%v", got[1].Expected, got[1].Actual, got[1].Diff)
	}
}

func TestHierarchicalTotalsExactForLaw(t *testing.T) {
	// The law profile has zero absolute tolerance; a one-tenth dram slip
	// must surface.
	doc := lawDoc()
	doc.GrandDeclared = models.Amounts{models.FieldTotal: -1275.9}

	res := NewEngine(DefaultTolerances()).Validate(doc)
	got := res.ByCheck()["hierarchical_totals"]
	if len(got) != 1 {
		t.Fatalf("finding count = %d, want 1: %+v", len(got), got)
	}
	if got[0].Path != models.PathDocument {
		t.Errorf("path = %q, want document level", got[0].Path)
	}
}

func TestHierarchicalTotalsSpendingTolerance(t *testing.T) {
	doc := spendingQ1Doc()
	// 3 thousand dram of treasury rounding stays under the 5.0 profile.
	doc.GrandDeclared[models.FieldActual] = 150003

	res := NewEngine(DefaultTolerances()).Validate(doc)
	if n := len(res.ByCheck()["hierarchical_totals"]); n != 0 {
		t.Errorf("hierarchical_totals fired %d times inside tolerance", n)
	}
}

func TestHierarchicalTotalsGrandMissing(t *testing.T) {
	doc := lawDoc()
	doc.GrandDeclared = nil

	res := NewEngine(DefaultTolerances()).Validate(doc)
	got := res.ByCheck()["hierarchical_totals"]
	if len(got) != 1 {
		t.Fatalf("finding count = %d, want 1: %+v", len(got), got)
	}
	f := got[0]
	if f.Severity != SeverityWarning || f.Kind != KindMissing || f.Message != "Document has no grand total row" {
		t.Errorf("finding = %s/%s %q", f.Severity, f.Kind, f.Message)
	}
}

// =============================================================================
// STRUCTURE SANITY
// =============================================================================

func TestStructureSanity(t *testing.T) {
	doc := &models.Document{
		Year:       2025,
		ReportType: models.ReportBudgetLaw,
		Era:        models.EraModern,
		Bodies: []*models.StateBody{
			{Code: "1079", Name: "ԿԳՄՍ նախարարություն", Programs: []*models.Program{
				{Code: "11001", Name: "Հանրակրթության ծրագիր"},
			}},
			{Code: "1080", Name: "Ֆինանսների նախարարություն"},
		},
	}

	res := NewEngine(DefaultTolerances()).Validate(doc)
	got := res.ByCheck()["hierarchical_structure_sanity"]
	if len(got) != 2 {
		t.Fatalf("finding count = %d, want 2: %+v", len(got), got)
	}
	if got[0].Message != "Program 11001 has no subprograms" {
		t.Errorf("first message = %q", got[0].Message)
	}
	if got[1].Message != "State body 1080 has no programs" {
		t.Errorf("second message = %q", got[1].Message)
	}

	// Spending sheets legitimately omit branches with no movement.
	doc.ReportType = models.ReportSpendingQ1
	res = NewEngine(DefaultTolerances()).Validate(doc)
	if n := len(res.ByCheck()["hierarchical_structure_sanity"]); n != 0 {
		t.Errorf("sanity check fired %d times on a spending report", n)
	}
}

// =============================================================================
// RESULT HELPERS
// =============================================================================

func TestResultSeveritySplit(t *testing.T) {
	res := &Result{Findings: []Finding{
		{Check: "a", Severity: SeverityError},
		{Check: "b", Severity: SeverityWarning},
		{Check: "c", Severity: SeverityWarning},
	}}

	if !res.HasErrors() || len(res.Errors()) != 1 || len(res.Warnings()) != 2 {
		t.Errorf("split = %d errors, %d warnings", len(res.Errors()), len(res.Warnings()))
	}
	if res.Summary() != "3 findings: 1 errors, 2 warnings" {
		t.Errorf("summary = %q", res.Summary())
	}
}
