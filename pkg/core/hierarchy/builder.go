// Package hierarchy assembles classified worksheet rows into the
// StateBody -> Program -> Subprogram document tree. The builder is a
// strict state machine: rows may deepen exactly one level or return to
// any shallower level, and anything else is a StructuralError.
package hierarchy

import (
	"fmt"
	"log"

	"armbudget/pkg/core/classify"
	"armbudget/pkg/core/columns"
	"armbudget/pkg/core/ingest"
	"armbudget/pkg/models"
)

// =============================================================================
// BUILDER
// =============================================================================

type Builder struct {
	rt     models.ReportType
	year   int
	layout *columns.Layout
	cls    *classify.Classifier
}

func NewBuilder(rt models.ReportType, year int, layout *columns.Layout) *Builder {
	return &Builder{
		rt:     rt,
		year:   year,
		layout: layout,
		cls:    classify.New(layout),
	}
}

func (b *Builder) fail(row int, format string, args ...interface{}) error {
	return &StructuralError{
		Year:       b.year,
		ReportType: b.rt,
		Row:        row,
		Reason:     fmt.Sprintf(format, args...),
	}
}

// Build walks the grid top to bottom and assembles the document. The
// builder records declared totals (inline on legacy parent rows, from
// subtotal rows on modern sheets) next to computed child sums and never
// reconciles the two; that is the validation engine's job.
func (b *Builder) Build(grid *ingest.Grid) (*models.Document, error) {
	doc := &models.Document{
		Year:       b.year,
		ReportType: b.rt,
		Era:        b.layout.Era,
		SheetName:  grid.SheetName,
	}

	var (
		curBody    *models.StateBody
		curProgram *models.Program
		bodyCodes  = make(map[string]int) // code -> first row
		progCodes  map[string]int
		subCodes   map[string]int
	)

	closeProgram := func() {
		if curProgram == nil {
			return
		}
		computed := make(models.Amounts)
		for _, sp := range curProgram.Subprograms {
			computed.AddMonetary(sp.Values)
		}
		computed.RecomputeRatios(b.rt)
		curProgram.Computed = computed
		curProgram = nil
	}

	closeBody := func() {
		closeProgram()
		if curBody == nil {
			return
		}
		computed := make(models.Amounts)
		for _, p := range curBody.Programs {
			computed.AddMonetary(p.EffectiveValues())
		}
		computed.RecomputeRatios(b.rt)
		curBody.Computed = computed
		curBody = nil
	}

	prev := classify.KindNone
	for row := range grid.Rows {
		kind := b.cls.Classify(grid, row, prev)

		switch kind {
		case classify.KindStateBody:
			closeBody()
			body, _, _ := b.cls.Codes(grid, row)
			if firstRow, dup := bodyCodes[body]; dup {
				return nil, b.fail(row, "duplicate state body code %s (first at row %d)", body, firstRow)
			}
			bodyCodes[body] = row
			curBody = &models.StateBody{
				Code: body,
				Name: b.cls.Name(grid, row),
				Row:  row,
			}
			if vals := b.cls.Values(grid, row); len(vals) > 0 {
				curBody.Declared = vals
			}
			doc.Bodies = append(doc.Bodies, curBody)
			progCodes = make(map[string]int)

		case classify.KindProgram:
			if curBody == nil {
				_, program, _ := b.cls.Codes(grid, row)
				return nil, b.fail(row, "program %s before any state body", program)
			}
			closeProgram()
			_, program, _ := b.cls.Codes(grid, row)
			if firstRow, dup := progCodes[program]; dup {
				return nil, b.fail(row, "duplicate program code %s under state body %s (first at row %d)", program, curBody.Code, firstRow)
			}
			progCodes[program] = row
			curProgram = &models.Program{
				Code: program,
				Name: b.cls.Name(grid, row),
				Row:  row,
			}
			if vals := b.cls.Values(grid, row); len(vals) > 0 {
				curProgram.Declared = vals
			}
			curBody.Programs = append(curBody.Programs, curProgram)
			subCodes = make(map[string]int)

		case classify.KindSubprogram:
			_, _, sub := b.cls.Codes(grid, row)
			if curProgram == nil {
				return nil, b.fail(row, "subprogram %s before any program", sub)
			}
			if firstRow, dup := subCodes[sub]; dup {
				return nil, b.fail(row, "duplicate subprogram code %s under program %s (first at row %d)", sub, curProgram.Code, firstRow)
			}
			subCodes[sub] = row
			curProgram.Subprograms = append(curProgram.Subprograms, &models.Subprogram{
				Code:   sub,
				Name:   b.cls.Name(grid, row),
				Row:    row,
				Values: b.cls.Values(grid, row),
			})

		case classify.KindSubtotal:
			if err := b.attachSubtotal(grid, row, curBody, curProgram); err != nil {
				return nil, err
			}

		case classify.KindGrandTotal:
			if doc.GrandDeclared == nil {
				doc.GrandDeclared = b.cls.Values(grid, row)
			} else {
				log.Printf("[HierarchyBuilder] %s %d: extra grand total row %d ignored", b.rt, b.year, row)
			}

		case classify.KindHeader, classify.KindNoise:
			// skipped
		}

		if kind != classify.KindNoise {
			prev = kind
		}
	}
	closeBody()

	if len(doc.Bodies) == 0 {
		return nil, fmt.Errorf("build %s %d: no state bodies found in sheet %q", b.rt, b.year, grid.SheetName)
	}

	grand := make(models.Amounts)
	for _, body := range doc.Bodies {
		grand.AddMonetary(body.EffectiveValues())
	}
	grand.RecomputeRatios(b.rt)
	doc.GrandComputed = grand

	log.Printf("[HierarchyBuilder] %s %d: %d bodies, %d subprograms", b.rt, b.year, len(doc.Bodies), doc.SubprogramCount())
	return doc, nil
}

// attachSubtotal assigns a modern-era subtotal row's values as the
// declared totals of the parent it closes. A program code on the row
// targets the program level; a bare body code targets the state body.
func (b *Builder) attachSubtotal(grid *ingest.Grid, row int, curBody *models.StateBody, curProgram *models.Program) error {
	body, program, _ := b.cls.Codes(grid, row)
	vals := b.cls.Values(grid, row)

	if program != "" {
		if curProgram == nil || curProgram.Code != program {
			return b.fail(row, "subtotal for program %s outside its block", program)
		}
		curProgram.Declared = vals
		return nil
	}
	if body != "" {
		if curBody == nil || curBody.Code != body {
			return b.fail(row, "subtotal for state body %s outside its block", body)
		}
		curBody.Declared = vals
		return nil
	}
	return b.fail(row, "subtotal row carries no code")
}
