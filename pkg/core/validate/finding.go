package validate

import (
	"fmt"
	"time"

	"armbudget/pkg/models"
)

// =============================================================================
// FINDINGS - Validation outcomes as data
// =============================================================================

// Severity splits findings into blocking errors and advisory warnings.
// Neither stops processing; errors gate the process exit code and the
// stored run status.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Kind classifies what went wrong, independent of which check found it.
type Kind string

const (
	KindMismatch     Kind = "mismatch"
	KindMissing      Kind = "missing"
	KindZeroDivision Kind = "zero_division"
	KindNegative     Kind = "negative"
	KindRange        Kind = "range"
	KindStructure    Kind = "structure"
)

// Finding is one validation outcome. The numeric fields are meaningful
// per kind: mismatches fill all four, negatives fill Actual, range
// findings fill Expected/Actual/Diff.
type Finding struct {
	Check     string            `json:"check"`
	Severity  Severity          `json:"severity"`
	Kind      Kind              `json:"kind"`
	Path      models.EntityPath `json:"path"`
	Field     models.Field      `json:"field,omitempty"`
	Message   string            `json:"message"`
	Expected  float64           `json:"expected"`
	Actual    float64           `json:"actual"`
	Diff      float64           `json:"diff"`
	Tolerance float64           `json:"tolerance"`
}

// Result is the outcome of validating one document.
type Result struct {
	Year       int               `json:"year"`
	ReportType models.ReportType `json:"report_type"`
	RunAt      time.Time         `json:"run_at"`
	Findings   []Finding         `json:"findings"`
}

func (r *Result) Errors() []Finding {
	return r.filter(SeverityError)
}

func (r *Result) Warnings() []Finding {
	return r.filter(SeverityWarning)
}

func (r *Result) filter(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

func (r *Result) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ByCheck groups findings by check name, preserving order within each
// group.
func (r *Result) ByCheck() map[string][]Finding {
	out := make(map[string][]Finding)
	for _, f := range r.Findings {
		out[f.Check] = append(out[f.Check], f)
	}
	return out
}

func (r *Result) Summary() string {
	return fmt.Sprintf("%d findings: %d errors, %d warnings",
		len(r.Findings), len(r.Errors()), len(r.Warnings()))
}
