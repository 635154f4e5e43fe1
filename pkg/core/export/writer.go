package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"armbudget/pkg/models"
)

// =============================================================================
// CSV / JSON WRITERS
// =============================================================================

var identifierColumns = []string{
	"year",
	"report_type",
	"body_code",
	"body_name",
	"program_code",
	"program_name",
	"subprogram_code",
	"subprogram_name",
}

// Header returns the stable CSV column order for one report type:
// identifiers first, then each level's fields in canonical order. The
// schema depends on the report type, which is why records go through
// encoding/csv rather than a struct-tag mapper.
func Header(rt models.ReportType) []string {
	out := append([]string{}, identifierColumns...)
	for _, level := range []string{LevelStateBody, LevelProgram, LevelSubprogram} {
		for _, f := range models.FieldsFor(rt) {
			out = append(out, ValueKey(level, f))
		}
	}
	return out
}

// WriteCSV writes records in Header order. Absent values stay empty
// cells; zero prints as 0.
func WriteCSV(w io.Writer, rt models.ReportType, records []Record) error {
	cw := csv.NewWriter(w)
	header := Header(rt)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, 0, len(header))
		row = append(row,
			strconv.Itoa(rec.Year),
			string(rec.ReportType),
			rec.BodyCode,
			rec.BodyName,
			rec.ProgramCode,
			rec.ProgramName,
			rec.SubprogramCode,
			rec.SubprogramName,
		)
		for _, key := range header[len(identifierColumns):] {
			if v, ok := rec.Values[key]; ok {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", rec.SubprogramCode, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
