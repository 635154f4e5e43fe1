package models

import "math"

// =============================================================================
// AMOUNTS
// =============================================================================

// Amounts maps financial fields to values. A missing key means the source
// cell was blank; an explicit zero means the source said zero. The two are
// never conflated.
type Amounts map[Field]float64

func (a Amounts) Get(f Field) (float64, bool) {
	if a == nil {
		return 0, false
	}
	v, ok := a[f]
	return v, ok
}

// GetOr returns the value for f, or def when the field is absent.
func (a Amounts) GetOr(f Field, def float64) float64 {
	if v, ok := a.Get(f); ok {
		return v
	}
	return def
}

func (a Amounts) IsEmpty() bool {
	return len(a) == 0
}

func (a Amounts) Clone() Amounts {
	if a == nil {
		return nil
	}
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// AddMonetary accumulates the monetary fields of src into a. Percentage
// fields never sum across the hierarchy, so they are skipped here and
// recomputed by the caller from the summed plan/actual pair.
func (a Amounts) AddMonetary(src Amounts) {
	for f, v := range src {
		if f.IsPercentage() {
			continue
		}
		a[f] += v
	}
}

// RecomputeRatios derives the execution ratio fields from the monetary
// fields already present in a, rounded to four decimal places. A zero or
// absent divisor leaves the ratio unset.
func (a Amounts) RecomputeRatios(rt ReportType) {
	actual, ok := a.Get(FieldActual)
	if !ok {
		return
	}
	for _, pair := range ratioPairs(rt) {
		plan, ok := a.Get(pair.plan)
		if !ok || plan == 0 {
			continue
		}
		a[pair.ratio] = RoundRatio(actual / plan)
	}
}

type ratioPair struct {
	ratio Field
	plan  Field
}

// ratioPairs lists each percentage field with the plan field it divides by.
func ratioPairs(rt ReportType) []ratioPair {
	var out []ratioPair
	for _, f := range FieldsFor(rt) {
		switch f {
		case FieldActualVsRevAnnual:
			out = append(out, ratioPair{f, FieldRevAnnualPlan})
		case FieldActualVsRevPeriod:
			out = append(out, ratioPair{f, FieldRevPeriodPlan})
		}
	}
	return out
}

// RatioPlanField returns the plan field an execution ratio divides by,
// or "" when f is not a percentage field of rt.
func RatioPlanField(rt ReportType, f Field) Field {
	for _, p := range ratioPairs(rt) {
		if p.ratio == f {
			return p.plan
		}
	}
	return ""
}

// RoundRatio rounds an execution ratio to four decimal places, the
// precision the published workbooks carry.
func RoundRatio(r float64) float64 {
	return math.Round(r*10000) / 10000
}

// =============================================================================
// HIERARCHY NODES
// =============================================================================

// Subprogram is a leaf spending line. Row is the 0-based worksheet row the
// line came from, kept for error and finding messages.
type Subprogram struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Row    int     `json:"row"`
	Values Amounts `json:"values"`
}

// Program groups subprograms under one budgetary program code. Declared
// holds the totals stated in the workbook (inline in legacy sheets, from
// subtotal rows in modern ones); Computed holds the sum of the children.
// The builder records both and never reconciles them.
type Program struct {
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	Row         int           `json:"row"`
	Declared    Amounts       `json:"declared,omitempty"`
	Computed    Amounts       `json:"computed"`
	Subprograms []*Subprogram `json:"subprograms"`
}

// StateBody is a ministry or agency owning a set of programs.
type StateBody struct {
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Row      int        `json:"row"`
	Declared Amounts    `json:"declared,omitempty"`
	Computed Amounts    `json:"computed"`
	Programs []*Program `json:"programs"`
}

// Document is a fully built budget hierarchy for one (year, report type).
// Immutable after the builder returns it.
type Document struct {
	Year       int          `json:"year"`
	ReportType ReportType   `json:"report_type"`
	Era        Era          `json:"era"`
	Bodies     []*StateBody `json:"bodies"`

	// Grand totals: declared from the workbook's total row (absent when
	// the sheet has none), computed from the body sums.
	GrandDeclared Amounts `json:"grand_declared,omitempty"`
	GrandComputed Amounts `json:"grand_computed"`

	SourceFile string `json:"source_file,omitempty"`
	SheetName  string `json:"sheet_name,omitempty"`
}

// EffectiveValues returns Declared when the workbook stated totals for the
// program, otherwise the computed child sum.
func (p *Program) EffectiveValues() Amounts {
	if !p.Declared.IsEmpty() {
		return p.Declared
	}
	return p.Computed
}

func (b *StateBody) EffectiveValues() Amounts {
	if !b.Declared.IsEmpty() {
		return b.Declared
	}
	return b.Computed
}

// SubprogramCount returns the number of leaf lines in the document.
func (d *Document) SubprogramCount() int {
	n := 0
	for _, b := range d.Bodies {
		for _, p := range b.Programs {
			n += len(p.Subprograms)
		}
	}
	return n
}

// ProgramCount returns the number of programs across all state bodies.
func (d *Document) ProgramCount() int {
	n := 0
	for _, b := range d.Bodies {
		n += len(b.Programs)
	}
	return n
}

// =============================================================================
// ENTITY PATHS
// =============================================================================

// EntityPath locates a node as a slash-joined code path, e.g.
// "1079/11001/31002". Shorter paths address parent levels; the empty path
// addresses the document itself.
type EntityPath string

const PathDocument EntityPath = ""

func PathBody(body string) EntityPath {
	return EntityPath(body)
}

func PathProgram(body, program string) EntityPath {
	return EntityPath(body + "/" + program)
}

func PathSubprogram(body, program, subprogram string) EntityPath {
	return EntityPath(body + "/" + program + "/" + subprogram)
}

// Display renders the path for humans; the document-level path gets a
// label instead of an empty string.
func (p EntityPath) Display() string {
	if p == PathDocument {
		return "(document)"
	}
	return string(p)
}
