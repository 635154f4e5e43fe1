// Package classify labels worksheet rows by their structural role before
// hierarchy building. Rules are era-specific: legacy sheets overload the
// first column with both body and program codes, modern sheets use
// dedicated code columns plus explicit subtotal rows.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"armbudget/pkg/core/columns"
	"armbudget/pkg/core/ingest"
	"armbudget/pkg/models"
)

// =============================================================================
// ROW KINDS
// =============================================================================

type RowKind string

const (
	KindNone       RowKind = ""
	KindHeader     RowKind = "header"
	KindStateBody  RowKind = "state_body"
	KindProgram    RowKind = "program"
	KindSubprogram RowKind = "subprogram"
	KindSubtotal   RowKind = "subtotal"
	KindGrandTotal RowKind = "grand_total"
	KindNoise      RowKind = "noise"
)

// =============================================================================
// MARKERS AND CODE PATTERNS
// =============================================================================

// Total markers as printed in the workbooks. Legacy sheets close with
// "ԸՆԴԱՄԵՆԸ ԾԱԽՍԵՐ"; modern sheets open with a bare "ԸՆԴԱՄԵՆԸ" grand
// total and repeat "Ընդամենը" on per-parent subtotal rows.
var grandTotalMarkers = []string{
	"ԸՆԴԱՄԵՆԸ ԾԱԽՍԵՐ",
	"ԸՆԴԱՄԵՆԸ",
}

const subtotalMarker = "ԸՆԴԱՄԵՆԸ"

var headerVocab = []string{
	"ծրագիր",
	"միջոցառում",
	"անվանում",
	"պլան",
	"փաստ",
	"հազար դրամ",
}

var (
	bodyCode = regexp.MustCompile(`^\d{3,4}$`)
	itemCode = regexp.MustCompile(`^\d{5}$`)
)

// yearLike guards against section headers that put a bare year where a
// four-digit body code would sit.
func yearLike(s string) bool {
	if len(s) != 4 {
		return false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return n >= 1990 && n <= 2100
}

// =============================================================================
// CLASSIFIER
// =============================================================================

type Classifier struct {
	layout *columns.Layout
}

func New(layout *columns.Layout) *Classifier {
	return &Classifier{layout: layout}
}

// Classify labels one row. prev is the kind assigned to the previous
// non-noise row; rows above the first data row classify as headers.
// Rules apply in order: blank, total markers, code rows, header block.
func (c *Classifier) Classify(grid *ingest.Grid, row int, prev RowKind) RowKind {
	if c.rowIsBlank(grid, row) {
		return KindNoise
	}

	body, program, sub := c.Codes(grid, row)
	hasCode := body != "" || program != "" || sub != ""

	if marker := c.markerText(grid, row); marker != "" {
		upper := strings.ToUpper(marker)
		if !hasCode {
			for _, m := range grandTotalMarkers {
				if strings.HasPrefix(upper, m) {
					return KindGrandTotal
				}
			}
		} else if strings.HasPrefix(upper, subtotalMarker) {
			return KindSubtotal
		}
	}

	if hasCode && c.rowHasSubstance(grid, row) {
		switch {
		case sub != "":
			return KindSubprogram
		case program != "":
			return KindProgram
		default:
			return KindStateBody
		}
	}

	// Above the data block everything non-blank is header furniture;
	// inside it, code-less fragments are noise.
	if prev == KindNone || prev == KindHeader {
		return KindHeader
	}
	lower := strings.ToLower(c.rowText(grid, row))
	for _, v := range headerVocab {
		if strings.Contains(lower, v) {
			return KindHeader
		}
	}
	return KindNoise
}

// Codes extracts the (body, program, subprogram) codes of a row per the
// era layout. Legacy sheets share one column for body and program codes,
// told apart by digit count; modern sheets use three columns.
func (c *Classifier) Codes(grid *ingest.Grid, row int) (body, program, sub string) {
	l := c.layout
	if l.Era == models.EraLegacy {
		first := grid.Cell(row, l.BodyCol).Raw
		switch {
		case bodyCode.MatchString(first) && !yearLike(first):
			body = first
		case yearLike(first) && c.rowHasSubstance(grid, row):
			body = first
		case itemCode.MatchString(first):
			program = first
		}
		if s := grid.Cell(row, l.SubprogramCol).Raw; itemCode.MatchString(s) {
			sub = s
		}
		return body, program, sub
	}

	if b := grid.Cell(row, l.BodyCol).Raw; bodyCode.MatchString(b) && !yearLike(b) {
		body = b
	} else if yearLike(b) && c.rowHasSubstance(grid, row) {
		body = b
	}
	if p := grid.Cell(row, l.ProgramCol).Raw; itemCode.MatchString(p) {
		program = p
	}
	if s := grid.Cell(row, l.SubprogramCol).Raw; itemCode.MatchString(s) {
		sub = s
	}
	return body, program, sub
}

// Name returns the row's name cell text.
func (c *Classifier) Name(grid *ingest.Grid, row int) string {
	return grid.Cell(row, c.layout.NameCol).Raw
}

// Values reads the financial cells of a row into Amounts. Blank and
// textual cells leave the field absent.
func (c *Classifier) Values(grid *ingest.Grid, row int) models.Amounts {
	out := make(models.Amounts)
	for f, col := range c.layout.FieldCols {
		cell := grid.Cell(row, col)
		if cell.IsNumeric() {
			out[f] = cell.Float()
		}
	}
	return out
}

// rowHasSubstance reports whether a row carries a name or at least one
// financial value. Bare numbers in code columns (stray years, column
// numbering) have neither.
func (c *Classifier) rowHasSubstance(grid *ingest.Grid, row int) bool {
	if name := grid.Cell(row, c.layout.NameCol); !name.IsBlank && !name.IsNumeric() {
		return true
	}
	for _, col := range c.layout.FieldCols {
		if grid.Cell(row, col).IsNumeric() {
			return true
		}
	}
	return false
}

// markerText finds the first textual cell up to and including the name
// column; merged total rows surface their marker in the leftmost cell.
func (c *Classifier) markerText(grid *ingest.Grid, row int) string {
	for col := 0; col <= c.layout.NameCol; col++ {
		cell := grid.Cell(row, col)
		if !cell.IsBlank && !cell.IsNumeric() {
			return cell.Raw
		}
	}
	return ""
}

func (c *Classifier) rowIsBlank(grid *ingest.Grid, row int) bool {
	if row < 0 || row >= len(grid.Rows) {
		return true
	}
	for _, cell := range grid.Rows[row] {
		if !cell.IsBlank {
			return false
		}
	}
	return true
}

func (c *Classifier) rowText(grid *ingest.Grid, row int) string {
	var parts []string
	for _, cell := range grid.Rows[row] {
		if !cell.IsBlank {
			parts = append(parts, cell.Raw)
		}
	}
	return strings.Join(parts, " ")
}
