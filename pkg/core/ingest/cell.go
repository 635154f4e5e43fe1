// Package ingest loads budget workbooks into raw cell grids. It knows
// nothing about hierarchy or report semantics; it only turns worksheet
// text into typed cells.
package ingest

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CELL - Parsed worksheet cell
// =============================================================================

// Cell is one worksheet cell. Value is nil for blank cells and for
// textual cells (names, markers); classifiers read Raw in that case.
type Cell struct {
	Raw        string   `json:"raw"`
	Value      *float64 `json:"value"`
	IsBlank    bool     `json:"is_blank"`
	IsNegative bool     `json:"is_negative"`
}

// Text returns the whitespace-normalized cell text.
func (c Cell) Text() string {
	return c.Raw
}

// IsNumeric reports whether the cell parsed to a number.
func (c Cell) IsNumeric() bool {
	return c.Value != nil
}

// Float returns the parsed value, or 0 for blank and textual cells.
func (c Cell) Float() float64 {
	if c.Value == nil {
		return 0
	}
	return *c.Value
}

// =============================================================================
// VALUE PARSING - Clean and parse workbook values
// =============================================================================

// Ministry workbooks mark empty lines with dashes or placeholder letters,
// and mix comma/space thousands separators with comma decimals depending
// on the year the sheet was produced.
var blankMarkers = map[string]bool{
	"":    true,
	"-":   true,
	"—":   true,
	"–":   true,
	"x":   true,
	"X":   true,
	"*":   true,
	"N/A": true,
}

var (
	spaceRun     = regexp.MustCompile(`\s+`)
	thousandForm = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// ParseCell parses raw worksheet text into a Cell.
// Handles:
//
//	"(1,234.5)" → -1234.5 (parentheses = negative)
//	"1 276.00" → 1276 (space-grouped thousands)
//	"93,25%" → 0.9325 (decimal comma, ratio form)
//	"—" or "-" or "x" → blank
//	"Ընդամենը" → textual (Value nil, not blank)
func ParseCell(raw string) Cell {
	// Normalize NBSP and interior whitespace before anything else; the
	// ministry's sheets pad with non-breaking spaces.
	raw = strings.ReplaceAll(raw, " ", " ")
	raw = spaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")

	if blankMarkers[raw] {
		return Cell{Raw: raw, IsBlank: true}
	}

	isNegative := strings.Contains(raw, "(") && strings.Contains(raw, ")")
	isPercent := strings.HasSuffix(raw, "%")

	cleaned := raw
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.ReplaceAll(cleaned, "(", "")
	cleaned = strings.ReplaceAll(cleaned, ")", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.TrimSpace(cleaned)

	// Comma disambiguation: "1,234,567" groups thousands, "93,25" is a
	// decimal comma. Mixed "1,234.56" keeps the dot as the decimal mark.
	switch {
	case strings.Contains(cleaned, ",") && strings.Contains(cleaned, "."):
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case thousandForm.MatchString(cleaned):
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case strings.Contains(cleaned, ","):
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	dec, err := decimal.NewFromString(cleaned)
	if err != nil {
		// Textual cell: keep the normalized text for classification.
		return Cell{Raw: raw}
	}

	if isPercent {
		dec = dec.Div(decimal.NewFromInt(100))
	}
	value := dec.InexactFloat64()
	if isNegative && value > 0 {
		value = -value
	}

	return Cell{
		Raw:        raw,
		Value:      &value,
		IsNegative: value < 0,
	}
}
