package ingest

import (
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"armbudget/pkg/models"
)

// =============================================================================
// GRID - Raw worksheet matrix
// =============================================================================

// Grid is the cell matrix of one worksheet. Rows may be ragged (trailing
// blank cells are not materialized by the xlsx reader); use Cell for
// bounds-safe access.
type Grid struct {
	SheetName string
	Rows      [][]Cell
}

// Cell returns the cell at (row, col), or a blank cell when the position
// is outside the materialized matrix.
func (g *Grid) Cell(row, col int) Cell {
	if row < 0 || row >= len(g.Rows) {
		return Cell{IsBlank: true}
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return Cell{IsBlank: true}
	}
	return r[col]
}

// RowText returns the raw text of every cell in a row, for header
// matching.
func (g *Grid) RowText(row int) []string {
	if row < 0 || row >= len(g.Rows) {
		return nil
	}
	out := make([]string, len(g.Rows[row]))
	for i, c := range g.Rows[row] {
		out[i] = c.Raw
	}
	return out
}

func rowIsBlank(cells []Cell) bool {
	for _, c := range cells {
		if !c.IsBlank {
			return false
		}
	}
	return true
}

// =============================================================================
// SHEET SELECTION
// =============================================================================

// sheetPatterns maps each report family to name fragments of the sheet
// that carries its data. Workbooks often bundle annex sheets; the first
// visible sheet whose lowercased name contains a fragment wins.
var sheetPatterns = map[models.Family][]string{
	models.FamilyLaw:      {"բյուջե", "հավելված"},
	models.FamilySpending: {"ծախս", "եռամսյակ", "հաշվետ"},
	models.FamilyMTEP:     {"մժծծ", "միջնաժամկետ"},
}

func pickSheet(f *excelize.File, rt models.ReportType) string {
	patterns := sheetPatterns[rt.Family()]
	var firstVisible string
	for _, name := range f.GetSheetList() {
		visible, err := f.GetSheetVisible(name)
		if err != nil || !visible {
			continue
		}
		if firstVisible == "" {
			firstVisible = name
		}
		lower := strings.ToLower(strings.TrimSpace(name))
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return name
			}
		}
	}
	return firstVisible
}

// =============================================================================
// LOADING
// =============================================================================

// LoadWorkbook opens an xlsx file and loads the worksheet matching the
// report family into a Grid.
func LoadWorkbook(path string, rt models.ReportType) (*Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := pickSheet(f, rt)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s: no visible sheets", path)
	}
	return LoadSheet(f, sheet)
}

// LoadSheet reads one worksheet of an already opened workbook.
func LoadSheet(f *excelize.File, sheet string) (*Grid, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	grid := &Grid{SheetName: sheet, Rows: make([][]Cell, 0, len(rows))}
	for _, row := range rows {
		cells := make([]Cell, len(row))
		for i, raw := range row {
			cells[i] = ParseCell(raw)
		}
		grid.Rows = append(grid.Rows, cells)
	}

	// Drop trailing fully-blank rows; interior blanks stay and classify
	// as noise.
	for len(grid.Rows) > 0 && rowIsBlank(grid.Rows[len(grid.Rows)-1]) {
		grid.Rows = grid.Rows[:len(grid.Rows)-1]
	}

	nonBlank := 0
	for _, r := range grid.Rows {
		if !rowIsBlank(r) {
			nonBlank++
		}
	}
	if nonBlank < 2 {
		return nil, fmt.Errorf("sheet %q: no data rows", sheet)
	}

	log.Printf("[Ingest] sheet %q: %d rows", sheet, len(grid.Rows))
	return grid, nil
}
