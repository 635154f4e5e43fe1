package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"armbudget/pkg/models"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// lawDoc has one body with declared totals, one program carrying only
// computed sums, and three leaves: negative, zero, and empty.
func lawDoc() *models.Document {
	return &models.Document{
		Year:       2025,
		ReportType: models.ReportBudgetLaw,
		Era:        models.EraModern,
		Bodies: []*models.StateBody{{
			Code:     "1079",
			Name:     "ԿԳՄՍ նախարարություն",
			Declared: models.Amounts{models.FieldTotal: -1276},
			Computed: models.Amounts{models.FieldTotal: -1276},
			Programs: []*models.Program{{
				Code:     "11001",
				Name:     "Հանրակրթության ծրագիր",
				Computed: models.Amounts{models.FieldTotal: -1276},
				Subprograms: []*models.Subprogram{
					{Code: "31002", Name: "Դպրոցների պահպանում", Values: models.Amounts{models.FieldTotal: -1276}},
					{Code: "31003", Name: "Դասագրքերի տրամադրում", Values: models.Amounts{models.FieldTotal: 0}},
					{Code: "31004", Name: "Արտադպրոցական դաստիարակություն", Values: models.Amounts{}},
				},
			}},
		}},
		GrandDeclared: models.Amounts{models.FieldTotal: -1276},
		GrandComputed: models.Amounts{models.FieldTotal: -1276},
	}
}

// =============================================================================
// FLATTENING
// =============================================================================

func TestFlatten(t *testing.T) {
	records := Flatten(lawDoc())
	if len(records) != 3 {
		t.Fatalf("record count = %d, want 3", len(records))
	}

	rec := records[0]
	if rec.Year != 2025 || rec.ReportType != models.ReportBudgetLaw {
		t.Errorf("record header = %d/%s", rec.Year, rec.ReportType)
	}
	if rec.BodyCode != "1079" || rec.ProgramCode != "11001" || rec.SubprogramCode != "31002" {
		t.Errorf("record codes = %s/%s/%s", rec.BodyCode, rec.ProgramCode, rec.SubprogramCode)
	}

	// Parent levels use declared totals when stated, computed sums
	// otherwise.
	if v := rec.Values["state_body_total"]; v != -1276 {
		t.Errorf("state_body_total = %v, want declared -1276", v)
	}
	if v := rec.Values["program_total"]; v != -1276 {
		t.Errorf("program_total = %v, want computed -1276", v)
	}
	if v := rec.Values["subprogram_total"]; v != -1276 {
		t.Errorf("subprogram_total = %v", v)
	}

	// An explicit zero keeps its key; an empty line has none.
	if v, ok := records[1].Values["subprogram_total"]; !ok || v != 0 {
		t.Errorf("zero line values = %v (present=%v)", v, ok)
	}
	if _, ok := records[2].Values["subprogram_total"]; ok {
		t.Error("empty line should have no subprogram_total key")
	}
}

func TestFlattenSpendingRatios(t *testing.T) {
	doc := &models.Document{
		Year:       2025,
		ReportType: models.ReportSpendingQ1,
		Era:        models.EraModern,
		Bodies: []*models.StateBody{{
			Code: "1079", Name: "ԿԳՄՍ նախարարություն",
			Programs: []*models.Program{{
				Code: "11001", Name: "Հանրակրթության ծրագիր",
				Subprograms: []*models.Subprogram{{
					Code: "31002", Name: "Դպրոցների պահպանում",
					Values: models.Amounts{
						models.FieldRevPeriodPlan:     272450.40,
						models.FieldActual:            150000,
						models.FieldActualVsRevPeriod: 0.5506,
					},
				}},
			}},
		}},
	}

	records := Flatten(doc)
	if len(records) != 1 {
		t.Fatalf("record count = %d", len(records))
	}
	// Ratios flatten as the fractional values the document carries.
	if v := records[0].Values["subprogram_actual_vs_rev_period_plan"]; v != 0.5506 {
		t.Errorf("ratio value = %v, want 0.5506", v)
	}
}

// =============================================================================
// CSV OUTPUT
// =============================================================================

func TestHeaderOrder(t *testing.T) {
	header := Header(models.ReportBudgetLaw)
	if len(header) != 11 {
		t.Fatalf("budget law header width = %d, want 11", len(header))
	}
	if header[0] != "year" || header[7] != "subprogram_name" {
		t.Errorf("identifier columns = %v", header[:8])
	}
	if header[8] != "state_body_total" || header[10] != "subprogram_total" {
		t.Errorf("value columns = %v", header[8:])
	}

	q1 := Header(models.ReportSpendingQ1)
	if len(q1) != 8+3*7 {
		t.Fatalf("Q1 header width = %d, want 29", len(q1))
	}
	if q1[len(q1)-1] != "subprogram_actual_vs_rev_period_plan" {
		t.Errorf("last Q1 column = %s", q1[len(q1)-1])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, models.ReportBudgetLaw, Flatten(lawDoc())); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("row count = %d, want header + 3 records", len(rows))
	}

	col := make(map[string]int)
	for i, name := range rows[0] {
		col[name] = i
	}

	if got := rows[1][col["subprogram_total"]]; got != "-1276" {
		t.Errorf("negative cell = %q, want -1276", got)
	}
	if got := rows[2][col["subprogram_total"]]; got != "0" {
		t.Errorf("zero cell = %q, want 0", got)
	}
	if got := rows[3][col["subprogram_total"]]; got != "" {
		t.Errorf("absent cell = %q, want empty", got)
	}
	if got := rows[1][col["report_type"]]; got != "BUDGET_LAW" {
		t.Errorf("report_type cell = %q", got)
	}
	if got := rows[3][col["subprogram_name"]]; got != "Արտադպրոցական դաստիարակություն" {
		t.Errorf("name cell = %q", got)
	}
}

// =============================================================================
// JSON OUTPUT
// =============================================================================

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Flatten(lawDoc())); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var back []Record
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(back) != 3 {
		t.Fatalf("record count = %d", len(back))
	}
	if back[0].SubprogramCode != "31002" || back[0].Values["subprogram_total"] != -1276 {
		t.Errorf("first record = %+v", back[0])
	}
}
