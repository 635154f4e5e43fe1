package validate

import (
	"fmt"
	"math"

	"armbudget/pkg/models"
)

// =============================================================================
// CROSS-DOCUMENT VALIDATION - Spending vs enacted budget law
// =============================================================================

const crossCheckName = "cross_annual_plan"

// ValidateAgainstLaw compares a spending report's annual plans with the
// enacted budget law of the same year, subprogram by subprogram. All
// findings are warnings: mid-year amendments move annual plans away from
// the original law legitimately.
func (e *Engine) ValidateAgainstLaw(doc, law *models.Document) []Finding {
	if doc == nil || law == nil || !doc.ReportType.IsSpending() {
		return nil
	}

	lawTotals := make(map[models.EntityPath]float64)
	eachSubprogram(law, func(b *models.StateBody, p *models.Program, s *models.Subprogram) {
		if v, ok := s.Values.Get(models.FieldTotal); ok {
			lawTotals[models.PathSubprogram(b.Code, p.Code, s.Code)] = v
		}
	})

	tol := e.tol.Spending.Absolute
	var out []Finding

	seen := make(map[models.EntityPath]bool)
	eachSubprogram(doc, func(b *models.StateBody, p *models.Program, s *models.Subprogram) {
		path := models.PathSubprogram(b.Code, p.Code, s.Code)
		seen[path] = true

		enacted, inLaw := lawTotals[path]
		if !inLaw {
			out = append(out, Finding{
				Check:    crossCheckName,
				Severity: SeverityWarning,
				Kind:     KindMissing,
				Path:     path,
				Message:  fmt.Sprintf("Subprogram %s is absent from the %d budget law", s.Code, law.Year),
			})
			return
		}
		plan, ok := s.Values.Get(models.FieldAnnualPlan)
		if !ok {
			return
		}
		diff := plan - enacted
		if math.Abs(diff) > tol {
			out = append(out, Finding{
				Check:     crossCheckName,
				Severity:  SeverityWarning,
				Kind:      KindMismatch,
				Path:      path,
				Field:     models.FieldAnnualPlan,
				Expected:  enacted,
				Actual:    plan,
				Diff:      diff,
				Tolerance: tol,
				Message:   fmt.Sprintf("Annual plan %.2f differs from enacted total %.2f", plan, enacted),
			})
		}
	})

	eachSubprogram(law, func(b *models.StateBody, p *models.Program, s *models.Subprogram) {
		path := models.PathSubprogram(b.Code, p.Code, s.Code)
		if seen[path] {
			return
		}
		out = append(out, Finding{
			Check:    crossCheckName,
			Severity: SeverityWarning,
			Kind:     KindMissing,
			Path:     path,
			Message:  fmt.Sprintf("Subprogram %s is enacted in the budget law but absent from this report", s.Code),
		})
	})

	return out
}
