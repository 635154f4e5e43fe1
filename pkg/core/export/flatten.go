// Package export flattens built documents into one record per
// subprogram, the shape analysts join across years, and serializes
// records to CSV and JSON.
package export

import (
	"armbudget/pkg/models"
)

// =============================================================================
// FLATTENED RECORDS
// =============================================================================

// Levels used in record value keys.
const (
	LevelStateBody  = "state_body"
	LevelProgram    = "program"
	LevelSubprogram = "subprogram"
)

// Record is one subprogram line with its parent context. Values is keyed
// "{level}_{field}", e.g. "program_annual_plan"; parent levels use the
// declared totals when the workbook stated them, computed sums otherwise.
type Record struct {
	Year           int                `json:"year"`
	ReportType     models.ReportType  `json:"report_type"`
	BodyCode       string             `json:"body_code"`
	BodyName       string             `json:"body_name"`
	ProgramCode    string             `json:"program_code"`
	ProgramName    string             `json:"program_name"`
	SubprogramCode string             `json:"subprogram_code"`
	SubprogramName string             `json:"subprogram_name"`
	Values         map[string]float64 `json:"values"`
}

// ValueKey builds the flattened key for one level and field.
func ValueKey(level string, f models.Field) string {
	return level + "_" + string(f)
}

// Flatten converts a document into records, one per subprogram, in
// document order.
func Flatten(doc *models.Document) []Record {
	var out []Record
	for _, b := range doc.Bodies {
		bodyVals := b.EffectiveValues()
		for _, p := range b.Programs {
			progVals := p.EffectiveValues()
			for _, s := range p.Subprograms {
				values := make(map[string]float64)
				copyLevel(values, LevelStateBody, bodyVals, doc.ReportType)
				copyLevel(values, LevelProgram, progVals, doc.ReportType)
				copyLevel(values, LevelSubprogram, s.Values, doc.ReportType)
				out = append(out, Record{
					Year:           doc.Year,
					ReportType:     doc.ReportType,
					BodyCode:       b.Code,
					BodyName:       b.Name,
					ProgramCode:    p.Code,
					ProgramName:    p.Name,
					SubprogramCode: s.Code,
					SubprogramName: s.Name,
					Values:         values,
				})
			}
		}
	}
	return out
}

func copyLevel(dst map[string]float64, level string, src models.Amounts, rt models.ReportType) {
	for _, f := range models.FieldsFor(rt) {
		if v, ok := src.Get(f); ok {
			dst[ValueKey(level, f)] = v
		}
	}
}
