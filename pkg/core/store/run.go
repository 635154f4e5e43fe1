package store

import (
	"time"

	"github.com/google/uuid"

	"armbudget/pkg/core/validate"
	"armbudget/pkg/models"
)

// Run is one stored validation execution.
type Run struct {
	ID           uuid.UUID          `json:"id"`
	Year         int                `json:"year"`
	ReportType   models.ReportType  `json:"report_type"`
	SourceFile   string             `json:"source_file,omitempty"`
	RunAt        time.Time          `json:"run_at"`
	ErrorCount   int                `json:"error_count"`
	WarningCount int                `json:"warning_count"`
	Findings     []validate.Finding `json:"findings"`
}

// NewRun snapshots a validation result for storage.
func NewRun(doc *models.Document, res *validate.Result) *Run {
	return &Run{
		ID:           uuid.New(),
		Year:         doc.Year,
		ReportType:   doc.ReportType,
		SourceFile:   doc.SourceFile,
		RunAt:        res.RunAt,
		ErrorCount:   len(res.Errors()),
		WarningCount: len(res.Warnings()),
		Findings:     res.Findings,
	}
}
