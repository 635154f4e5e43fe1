// Package columns resolves which physical worksheet columns carry which
// financial fields for a given (report type, year) pair. Layouts start
// from era defaults, then config overrides, then header text matching.
package columns

import (
	"fmt"
	"regexp"
	"strings"

	"armbudget/pkg/core/ingest"
	"armbudget/pkg/models"
)

// =============================================================================
// LAYOUT - Physical column positions
// =============================================================================

// Layout describes the column positions of one worksheet. In legacy
// sheets BodyCol and ProgramCol coincide: state body and program codes
// share the first column and are told apart by digit count.
type Layout struct {
	Era           models.Era
	BodyCol       int
	ProgramCol    int
	SubprogramCol int
	NameCol       int
	FieldCols     map[models.Field]int
}

// defaultLayout is the index-based era default. Financial fields follow
// the name column in canonical field order.
func defaultLayout(rt models.ReportType, era models.Era) *Layout {
	l := &Layout{Era: era, FieldCols: make(map[models.Field]int)}
	var firstData int
	switch era {
	case models.EraLegacy:
		l.BodyCol, l.ProgramCol, l.SubprogramCol, l.NameCol = 0, 0, 1, 2
		firstData = 3
	default:
		l.BodyCol, l.ProgramCol, l.SubprogramCol, l.NameCol = 0, 1, 2, 3
		firstData = 4
	}
	for i, f := range models.FieldsFor(rt) {
		l.FieldCols[f] = firstData + i
	}
	return l
}

// =============================================================================
// HEADER MATCHING - Relocate fields by Armenian header text
// =============================================================================

// headerPatterns identifies financial columns by header fragments. A
// match relocates the field to the matched column; header rules never
// remove a field from the layout.
var headerPatterns = map[models.Field][]string{
	models.FieldTotal: {
		`(?i)գումար`,
		`(?i)հատկացում`,
	},
	models.FieldAnnualPlan: {
		`(?i)տարեկան\s*(պլան|ծրագիր)`,
		`(?i)հաստատված\s*բյուջե`,
	},
	models.FieldRevAnnualPlan: {
		`(?i)(ճշտված|ճշգրտված)\s*տարեկան`,
	},
	models.FieldPeriodPlan: {
		`(?i)ժամանակաշրջանի?\s*(պլան|ծրագիր)`,
		`(?i)եռամսյակի\s*պլան`,
	},
	models.FieldRevPeriodPlan: {
		`(?i)(ճշտված|ճշգրտված)\s*ժամանակաշրջան`,
	},
	models.FieldActual: {
		`(?i)փաստացի`,
		`(?i)դրամարկղային\s*կատարում`,
	},
	models.FieldActualVsRevAnnual: {
		`(?i)տարեկան\s*.*նկատմամբ`,
	},
	models.FieldActualVsRevPeriod: {
		`(?i)ժամանակաշրջանի?\s*.*նկատմամբ`,
	},
}

// headerAvoids blocks a pattern match when the header belongs to a more
// specific sibling column (revised plans, execution ratios).
var headerAvoids = map[models.Field][]string{
	models.FieldTotal:         {`(?i)ծրագիր`, `(?i)նկատմամբ`},
	models.FieldAnnualPlan:    {`(?i)ճշտված`, `(?i)ճշգրտված`, `(?i)նկատմամբ`},
	models.FieldPeriodPlan:    {`(?i)ճշտված`, `(?i)ճշգրտված`, `(?i)նկատմամբ`},
	models.FieldRevAnnualPlan: {`(?i)նկատմամբ`, `(?i)ժամանակաշրջան`},
	models.FieldRevPeriodPlan: {`(?i)նկատմամբ`},
	models.FieldActual:        {`(?i)նկատմամբ`},
}

func matchHeader(text string, patterns, avoids []string) bool {
	matched := false
	for _, p := range patterns {
		if regexp.MustCompile(p).MatchString(text) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, a := range avoids {
		if regexp.MustCompile(a).MatchString(text) {
			return false
		}
	}
	return true
}

// codeCell matches body, program, and subprogram codes in the leading
// columns; its first appearance ends the header window.
var codeCell = regexp.MustCompile(`^\d{3,5}$`)

// totalMarker flags grand-total rows. Modern workbooks place the grand total
// above the first state body, so the header window must stop there too.
var totalMarker = regexp.MustCompile(`(?i)^ընդամենը`)

// headerWindow returns the rows above the first code-bearing or total row.
func headerWindow(grid *ingest.Grid) int {
	limit := len(grid.Rows)
	if limit > 12 {
		limit = 12
	}
	for i := 0; i < limit; i++ {
		for col := 0; col < 4; col++ {
			raw := strings.TrimSpace(grid.Cell(i, col).Raw)
			if codeCell.MatchString(raw) || totalMarker.MatchString(raw) {
				return i
			}
		}
	}
	return limit
}

// columnHeaderText stacks the header-window cells of one column into a
// single string, since ministry sheets split headers across merged rows.
func columnHeaderText(grid *ingest.Grid, col, window int) string {
	var parts []string
	for row := 0; row < window; row++ {
		if t := grid.Cell(row, col).Raw; t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver computes layouts. Immutable after construction; safe for
// concurrent use.
type Resolver struct {
	overrides []Override
}

func NewResolver(cfg *Config) *Resolver {
	r := &Resolver{}
	if cfg != nil {
		r.overrides = cfg.Overrides
	}
	return r
}

// Resolve determines the layout for one document. Resolution order:
// exact (report type, year) override, then (family, year) override, then
// the era default; header text can still relocate individual fields. A
// required field without a physical column is fatal for the document.
func (r *Resolver) Resolve(rt models.ReportType, year int, grid *ingest.Grid) (*Layout, error) {
	if !rt.Valid() {
		return nil, fmt.Errorf("resolve: unknown report type %q", rt)
	}
	layout := defaultLayout(rt, models.EraForYear(year))
	r.applyOverrides(layout, rt, year)
	relocateByHeaders(layout, grid)

	width := 0
	for _, row := range grid.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for _, f := range models.FieldsFor(rt) {
		if layout.FieldCols[f] >= width {
			return nil, fmt.Errorf("resolve %s/%d: no column for field %s", rt, year, f)
		}
	}
	return layout, nil
}

func (r *Resolver) applyOverrides(layout *Layout, rt models.ReportType, year int) {
	// Exact (report type, year) first, family match second.
	for _, ov := range r.overrides {
		if ov.Year == year && models.ReportType(ov.ReportType) == rt {
			ov.apply(layout)
			return
		}
	}
	for _, ov := range r.overrides {
		if ov.Year == year && ov.ReportType == "" && models.Family(ov.Family) == rt.Family() {
			ov.apply(layout)
			return
		}
	}
}

func relocateByHeaders(layout *Layout, grid *ingest.Grid) {
	window := headerWindow(grid)
	if window == 0 {
		return
	}
	width := 0
	for _, row := range grid.Rows[:window] {
		if len(row) > width {
			width = len(row)
		}
	}

	for f := range layout.FieldCols {
		patterns := headerPatterns[f]
		if len(patterns) == 0 {
			continue
		}
		for col := 0; col < width; col++ {
			text := columnHeaderText(grid, col, window)
			if text == "" {
				continue
			}
			if matchHeader(text, patterns, headerAvoids[f]) {
				layout.FieldCols[f] = col
				break
			}
		}
	}
}
