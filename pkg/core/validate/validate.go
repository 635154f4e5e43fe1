// Package validate checks built budget documents for internal and
// cross-document consistency. Findings are data, never errors: every
// check runs to completion, and only the caller decides what blocks.
package validate

import (
	"fmt"
	"math"
	"time"

	"armbudget/pkg/models"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	tol Tolerances
}

func NewEngine(tol Tolerances) *Engine {
	return &Engine{tol: tol}
}

// documentChecks runs in order; Result.Findings keeps this order so runs
// diff cleanly across years.
var documentChecks = []struct {
	name string
	run  func(*Engine, *models.Document) []Finding
}{
	{"required_fields", (*Engine).checkRequiredFields},
	{"empty_identifiers", (*Engine).checkEmptyIdentifiers},
	{"missing_financial_data", (*Engine).checkMissingFinancialData},
	{"negative_totals", (*Engine).checkNegativeTotals},
	{"negative_percentages", (*Engine).checkNegativePercentages},
	{"execution_exceeds_100", (*Engine).checkExecutionExceeds100},
	{"percentage_calculation", (*Engine).checkPercentageCalculation},
	{"period_vs_annual", (*Engine).checkPeriodVsAnnual},
	{"hierarchical_totals", (*Engine).checkHierarchicalTotals},
	{"hierarchical_structure_sanity", (*Engine).checkStructureSanity},
}

// Validate runs every single-document check. The document is never
// mutated.
func (e *Engine) Validate(doc *models.Document) *Result {
	res := &Result{
		Year:       doc.Year,
		ReportType: doc.ReportType,
		RunAt:      time.Now().UTC(),
	}
	for _, c := range documentChecks {
		findings := c.run(e, doc)
		for i := range findings {
			findings[i].Check = c.name
		}
		res.Findings = append(res.Findings, findings...)
	}
	return res
}

// =============================================================================
// NODE TRAVERSAL
// =============================================================================

func eachSubprogram(doc *models.Document, fn func(b *models.StateBody, p *models.Program, s *models.Subprogram)) {
	for _, b := range doc.Bodies {
		for _, p := range b.Programs {
			for _, s := range p.Subprograms {
				fn(b, p, s)
			}
		}
	}
}

type valueNode struct {
	path models.EntityPath
	vals models.Amounts
}

// valueNodes lists every node carrying workbook-stated amounts: leaf
// subprograms, parents with declared totals, and the grand total row.
func valueNodes(doc *models.Document) []valueNode {
	var out []valueNode
	for _, b := range doc.Bodies {
		if !b.Declared.IsEmpty() {
			out = append(out, valueNode{models.PathBody(b.Code), b.Declared})
		}
		for _, p := range b.Programs {
			if !p.Declared.IsEmpty() {
				out = append(out, valueNode{models.PathProgram(b.Code, p.Code), p.Declared})
			}
			for _, s := range p.Subprograms {
				out = append(out, valueNode{models.PathSubprogram(b.Code, p.Code, s.Code), s.Values})
			}
		}
	}
	if !doc.GrandDeclared.IsEmpty() {
		out = append(out, valueNode{models.PathDocument, doc.GrandDeclared})
	}
	return out
}

// =============================================================================
// PER-ROW CHECKS
// =============================================================================

// checkRequiredFields flags subprograms whose rows parsed only part of
// the required monetary set. Fully empty rows are covered by
// missing_financial_data instead: unexecuted lines are routine, partial
// lines point at extraction trouble.
func (e *Engine) checkRequiredFields(doc *models.Document) []Finding {
	var out []Finding
	eachSubprogram(doc, func(b *models.StateBody, p *models.Program, s *models.Subprogram) {
		if s.Values.IsEmpty() {
			return
		}
		for _, f := range models.MonetaryFieldsFor(doc.ReportType) {
			if _, ok := s.Values.Get(f); !ok {
				out = append(out, Finding{
					Severity: SeverityError,
					Kind:     KindMissing,
					Path:     models.PathSubprogram(b.Code, p.Code, s.Code),
					Field:    f,
					Message:  fmt.Sprintf("Subprogram %s is missing %s", s.Code, f),
				})
			}
		}
	})
	return out
}

func (e *Engine) checkEmptyIdentifiers(doc *models.Document) []Finding {
	var out []Finding
	blank := func(path models.EntityPath, level, code, name string) {
		if code == "" {
			out = append(out, Finding{
				Severity: SeverityError,
				Kind:     KindMissing,
				Path:     path,
				Message:  fmt.Sprintf("%s has an empty code", level),
			})
		}
		if name == "" {
			out = append(out, Finding{
				Severity: SeverityError,
				Kind:     KindMissing,
				Path:     path,
				Message:  fmt.Sprintf("%s %s has an empty name", level, code),
			})
		}
	}
	for _, b := range doc.Bodies {
		blank(models.PathBody(b.Code), "State body", b.Code, b.Name)
		for _, p := range b.Programs {
			blank(models.PathProgram(b.Code, p.Code), "Program", p.Code, p.Name)
			for _, s := range p.Subprograms {
				blank(models.PathSubprogram(b.Code, p.Code, s.Code), "Subprogram", s.Code, s.Name)
			}
		}
	}
	return out
}

func (e *Engine) checkMissingFinancialData(doc *models.Document) []Finding {
	var out []Finding
	eachSubprogram(doc, func(b *models.StateBody, p *models.Program, s *models.Subprogram) {
		if s.Values.IsEmpty() {
			out = append(out, Finding{
				Severity: SeverityWarning,
				Kind:     KindMissing,
				Path:     models.PathSubprogram(b.Code, p.Code, s.Code),
				Message:  fmt.Sprintf("Subprogram %s carries no financial data", s.Code),
			})
		}
	})
	return out
}

// checkNegativeTotals flags negative monetary amounts at the leaf level.
// Parent totals aggregate the same leaves, so flagging them too would
// only duplicate the finding.
func (e *Engine) checkNegativeTotals(doc *models.Document) []Finding {
	var out []Finding
	eachSubprogram(doc, func(b *models.StateBody, p *models.Program, s *models.Subprogram) {
		for _, f := range models.MonetaryFieldsFor(doc.ReportType) {
			v, ok := s.Values.Get(f)
			if !ok || v >= 0 {
				continue
			}
			out = append(out, Finding{
				Severity: SeverityWarning,
				Kind:     KindNegative,
				Path:     models.PathSubprogram(b.Code, p.Code, s.Code),
				Field:    f,
				Actual:   v,
				Message:  fmt.Sprintf("Subprogram %s has negative %s: %.2f", s.Code, f, v),
			})
		}
	})
	return out
}

func (e *Engine) checkNegativePercentages(doc *models.Document) []Finding {
	var out []Finding
	eachSubprogram(doc, func(b *models.StateBody, p *models.Program, s *models.Subprogram) {
		for _, f := range models.FieldsFor(doc.ReportType) {
			if !f.IsPercentage() {
				continue
			}
			v, ok := s.Values.Get(f)
			if !ok || v >= 0 {
				continue
			}
			out = append(out, Finding{
				Severity: SeverityWarning,
				Kind:     KindNegative,
				Path:     models.PathSubprogram(b.Code, p.Code, s.Code),
				Field:    f,
				Actual:   v,
				Message:  fmt.Sprintf("Subprogram %s has a negative execution ratio %s: %.4f", s.Code, f, v),
			})
		}
	})
	return out
}

// checkExecutionExceeds100 flags execution above the revised annual plan
// on any node stating a ratio. Over-execution is legal but always worth
// an analyst's eye.
func (e *Engine) checkExecutionExceeds100(doc *models.Document) []Finding {
	if !doc.ReportType.IsSpending() {
		return nil
	}
	var out []Finding
	for _, n := range valueNodes(doc) {
		v, ok := n.vals.Get(models.FieldActualVsRevAnnual)
		if !ok || v <= 1.0 {
			continue
		}
		out = append(out, Finding{
			Severity: SeverityWarning,
			Kind:     KindRange,
			Path:     n.path,
			Field:    models.FieldActualVsRevAnnual,
			Expected: 1.0,
			Actual:   v,
			Diff:     v - 1.0,
			Message:  fmt.Sprintf("Execution at %.2f%% of revised annual plan", v*100),
		})
	}
	return out
}

// checkPercentageCalculation recomputes each stated execution ratio from
// the actual/plan pair on the same node. A zero plan makes the ratio
// undefined: that is a warning, never a crash.
func (e *Engine) checkPercentageCalculation(doc *models.Document) []Finding {
	prof := e.tol.For(doc.ReportType)
	var out []Finding
	for _, n := range valueNodes(doc) {
		for _, f := range models.FieldsFor(doc.ReportType) {
			if !f.IsPercentage() {
				continue
			}
			planField := models.RatioPlanField(doc.ReportType, f)
			stored, hasStored := n.vals.Get(f)
			plan, hasPlan := n.vals.Get(planField)
			actual, hasActual := n.vals.Get(models.FieldActual)
			if !hasActual || !hasPlan {
				continue
			}
			if plan == 0 {
				if hasStored {
					out = append(out, Finding{
						Severity: SeverityWarning,
						Kind:     KindZeroDivision,
						Path:     n.path,
						Field:    f,
						Actual:   stored,
						Message:  fmt.Sprintf("Ratio %s is unverifiable: %s is zero", f, planField),
					})
				}
				continue
			}
			if !hasStored {
				continue
			}
			recomputed := models.RoundRatio(actual / plan)
			diff := stored - recomputed
			if math.Abs(diff) > prof.Fractional {
				out = append(out, Finding{
					Severity:  SeverityError,
					Kind:      KindMismatch,
					Path:      n.path,
					Field:     f,
					Expected:  recomputed,
					Actual:    stored,
					Diff:      diff,
					Tolerance: prof.Fractional,
					Message:   fmt.Sprintf("Stored ratio %.4f differs from computed %.4f", stored, recomputed),
				})
			}
		}
	}
	return out
}

// checkPeriodVsAnnual flags period plans exceeding the annual plan. Kept
// a warning: mid-year reallocations produce this legitimately, and the
// line must still flow into exported records.
func (e *Engine) checkPeriodVsAnnual(doc *models.Document) []Finding {
	prof := e.tol.For(doc.ReportType)
	pairs := [][2]models.Field{
		{models.FieldPeriodPlan, models.FieldAnnualPlan},
		{models.FieldRevPeriodPlan, models.FieldRevAnnualPlan},
	}
	var out []Finding
	eachSubprogram(doc, func(b *models.StateBody, p *models.Program, s *models.Subprogram) {
		for _, pair := range pairs {
			period, okP := s.Values.Get(pair[0])
			annual, okA := s.Values.Get(pair[1])
			if !okP || !okA {
				continue
			}
			if period <= annual+prof.Absolute {
				continue
			}
			out = append(out, Finding{
				Severity:  SeverityWarning,
				Kind:      KindRange,
				Path:      models.PathSubprogram(b.Code, p.Code, s.Code),
				Field:     pair[0],
				Expected:  annual,
				Actual:    period,
				Diff:      period - annual,
				Tolerance: prof.Absolute,
				Message:   fmt.Sprintf("%s %.2f exceeds %s %.2f", pair[0], period, pair[1], annual),
			})
		}
	})
	return out
}

// =============================================================================
// HIERARCHY CHECKS
// =============================================================================

// checkHierarchicalTotals reconciles each declared total against the sum
// of its direct children. Only fields the workbook declared are compared;
// percentage fields reconcile via percentage_calculation instead.
func (e *Engine) checkHierarchicalTotals(doc *models.Document) []Finding {
	prof := e.tol.For(doc.ReportType)
	var out []Finding

	compare := func(path models.EntityPath, label string, declared, computed models.Amounts) {
		if declared.IsEmpty() {
			return
		}
		for _, f := range models.MonetaryFieldsFor(doc.ReportType) {
			d, ok := declared.Get(f)
			if !ok {
				continue
			}
			c := computed.GetOr(f, 0)
			diff := d - c
			if math.Abs(diff) > prof.Absolute {
				out = append(out, Finding{
					Severity:  SeverityError,
					Kind:      KindMismatch,
					Path:      path,
					Field:     f,
					Expected:  d,
					Actual:    c,
					Diff:      diff,
					Tolerance: prof.Absolute,
					Message:   fmt.Sprintf("%s declares %s %.2f but children sum to %.2f", label, f, d, c),
				})
			}
		}
	}

	for _, b := range doc.Bodies {
		compare(models.PathBody(b.Code), fmt.Sprintf("State body %s", b.Code), b.Declared, b.Computed)
		for _, p := range b.Programs {
			compare(models.PathProgram(b.Code, p.Code), fmt.Sprintf("Program %s", p.Code), p.Declared, p.Computed)
		}
	}

	if doc.GrandDeclared.IsEmpty() {
		out = append(out, Finding{
			Severity: SeverityWarning,
			Kind:     KindMissing,
			Path:     models.PathDocument,
			Message:  "Document has no grand total row",
		})
	} else {
		compare(models.PathDocument, "Grand total", doc.GrandDeclared, doc.GrandComputed)
	}
	return out
}

// checkStructureSanity requires non-empty parents in the budget law.
// Spending and MTEP sheets may legitimately omit branches that saw no
// movement.
func (e *Engine) checkStructureSanity(doc *models.Document) []Finding {
	if doc.ReportType != models.ReportBudgetLaw {
		return nil
	}
	var out []Finding
	for _, b := range doc.Bodies {
		if len(b.Programs) == 0 {
			out = append(out, Finding{
				Severity: SeverityError,
				Kind:     KindStructure,
				Path:     models.PathBody(b.Code),
				Message:  fmt.Sprintf("State body %s has no programs", b.Code),
			})
		}
		for _, p := range b.Programs {
			if len(p.Subprograms) == 0 {
				out = append(out, Finding{
					Severity: SeverityError,
					Kind:     KindStructure,
					Path:     models.PathProgram(b.Code, p.Code),
					Message:  fmt.Sprintf("Program %s has no subprograms", p.Code),
				})
			}
		}
	}
	return out
}
