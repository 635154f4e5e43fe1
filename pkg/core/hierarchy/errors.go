package hierarchy

import (
	"fmt"

	"armbudget/pkg/models"
)

// StructuralError is a fatal anomaly in the workbook's row structure:
// skip-level rows, duplicate codes, orphan subtotals. Processing of the
// document stops; structural problems are never demoted to findings.
type StructuralError struct {
	Year       int
	ReportType models.ReportType
	Row        int
	Reason     string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error in %s %d, row %d: %s", e.ReportType, e.Year, e.Row, e.Reason)
}
