// Package models defines the domain types for Armenian state budget
// documents: report types, format eras, financial fields, and the
// StateBody -> Program -> Subprogram hierarchy.
package models

// =============================================================================
// REPORT TYPES
// =============================================================================

// ReportType identifies which kind of budget document a workbook contains.
type ReportType string

const (
	ReportBudgetLaw     ReportType = "BUDGET_LAW"
	ReportSpendingQ1    ReportType = "SPENDING_Q1"
	ReportSpendingQ12   ReportType = "SPENDING_Q12"
	ReportSpendingQ123  ReportType = "SPENDING_Q123"
	ReportSpendingQ1234 ReportType = "SPENDING_Q1234"
	ReportMTEP          ReportType = "MTEP"
)

// Family groups report types that share column semantics and tolerances.
type Family string

const (
	FamilyLaw      Family = "law"
	FamilySpending Family = "spending"
	FamilyMTEP     Family = "mtep"
)

// AllReportTypes lists every supported type in canonical order.
var AllReportTypes = []ReportType{
	ReportBudgetLaw,
	ReportSpendingQ1,
	ReportSpendingQ12,
	ReportSpendingQ123,
	ReportSpendingQ1234,
	ReportMTEP,
}

func (rt ReportType) Valid() bool {
	for _, t := range AllReportTypes {
		if rt == t {
			return true
		}
	}
	return false
}

func (rt ReportType) IsSpending() bool {
	return rt.Family() == FamilySpending
}

// Quarter returns the last covered quarter of a spending report (1-4),
// or 0 for non-spending types.
func (rt ReportType) Quarter() int {
	switch rt {
	case ReportSpendingQ1:
		return 1
	case ReportSpendingQ12:
		return 2
	case ReportSpendingQ123:
		return 3
	case ReportSpendingQ1234:
		return 4
	}
	return 0
}

func (rt ReportType) Family() Family {
	switch rt {
	case ReportBudgetLaw:
		return FamilyLaw
	case ReportMTEP:
		return FamilyMTEP
	default:
		return FamilySpending
	}
}

// =============================================================================
// FORMAT ERAS
// =============================================================================

// Era distinguishes the two workbook layouts published by the ministry.
// Legacy sheets (2019-2024) put the state body code in the program column
// and carry parent totals inline; modern sheets (2025+) use dedicated code
// columns with explicit subtotal rows.
type Era string

const (
	EraLegacy Era = "legacy"
	EraModern Era = "modern"
)

// modernEraStart is the first budget year published in the modern layout.
const modernEraStart = 2025

func EraForYear(year int) Era {
	if year >= modernEraStart {
		return EraModern
	}
	return EraLegacy
}

// =============================================================================
// FINANCIAL FIELDS
// =============================================================================

// Field names a financial column in canonical snake_case form. Percentage
// fields hold fractional ratios (0.9325, not 93.25).
type Field string

const (
	// Budget law carries a single approved amount.
	FieldTotal Field = "total"

	// Quarterly spending reports.
	FieldAnnualPlan        Field = "annual_plan"
	FieldRevAnnualPlan     Field = "rev_annual_plan"
	FieldPeriodPlan        Field = "period_plan"
	FieldRevPeriodPlan     Field = "rev_period_plan"
	FieldActual            Field = "actual"
	FieldActualVsRevAnnual Field = "actual_vs_rev_annual_plan"
	FieldActualVsRevPeriod Field = "actual_vs_rev_period_plan"

	// Medium-term expenditure program: three planning years [Y, Y+2].
	FieldPlanYear1 Field = "plan_year1"
	FieldPlanYear2 Field = "plan_year2"
	FieldPlanYear3 Field = "plan_year3"
)

// IsPercentage reports whether the field holds an execution ratio rather
// than a monetary amount.
func (f Field) IsPercentage() bool {
	return f == FieldActualVsRevAnnual || f == FieldActualVsRevPeriod
}

// FieldsFor returns the canonical ordered field set of a report type. The
// order matches the physical column order of the published workbooks.
func FieldsFor(rt ReportType) []Field {
	switch rt {
	case ReportBudgetLaw:
		return []Field{FieldTotal}
	case ReportSpendingQ1, ReportSpendingQ12, ReportSpendingQ123:
		return []Field{
			FieldAnnualPlan,
			FieldRevAnnualPlan,
			FieldPeriodPlan,
			FieldRevPeriodPlan,
			FieldActual,
			FieldActualVsRevAnnual,
			FieldActualVsRevPeriod,
		}
	case ReportSpendingQ1234:
		// The year-end report drops the period columns: period == annual.
		return []Field{
			FieldAnnualPlan,
			FieldRevAnnualPlan,
			FieldActual,
			FieldActualVsRevAnnual,
		}
	case ReportMTEP:
		return []Field{FieldPlanYear1, FieldPlanYear2, FieldPlanYear3}
	}
	return nil
}

// MonetaryFieldsFor returns FieldsFor minus the percentage fields. These
// are the fields that sum across the hierarchy.
func MonetaryFieldsFor(rt ReportType) []Field {
	all := FieldsFor(rt)
	out := make([]Field, 0, len(all))
	for _, f := range all {
		if !f.IsPercentage() {
			out = append(out, f)
		}
	}
	return out
}
