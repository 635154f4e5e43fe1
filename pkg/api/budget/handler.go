// Package budget exposes the processing pipeline and stored run history
// over HTTP.
package budget

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"armbudget/pkg/core/columns"
	"armbudget/pkg/core/hierarchy"
	"armbudget/pkg/core/pipeline"
	"armbudget/pkg/core/store"
	"armbudget/pkg/core/validate"
	"armbudget/pkg/models"
)

var (
	colConfig  *columns.Config
	tolerances = validate.DefaultTolerances()
	pgStore    *store.PgStore
)

// InitHandler wires the handler configuration. st may be nil for
// file-only deployments; the run endpoints then answer 503.
func InitHandler(cfg *columns.Config, tol validate.Tolerances, st *store.PgStore) {
	colConfig = cfg
	tolerances = tol
	pgStore = st
}

// newProcessor builds a fresh processor per request so law documents
// never leak between concurrent calls.
func newProcessor() *pipeline.Processor {
	p := pipeline.NewProcessor()
	if colConfig != nil {
		p.SetColumnConfig(colConfig)
	}
	p.SetTolerances(tolerances)
	if pgStore != nil {
		p.SetStore(pgStore)
	}
	return p
}

type ProcessRequest struct {
	Path       string `json:"path"`
	ReportType string `json:"report_type"`
	Year       int    `json:"year"`
	LawPath    string `json:"law_path,omitempty"`
}

type ProcessResponse struct {
	Year        int                `json:"year"`
	ReportType  models.ReportType  `json:"report_type"`
	Era         models.Era         `json:"era"`
	StateBodies int                `json:"state_bodies"`
	Subprograms int                `json:"subprograms"`
	RecordCount int                `json:"record_count"`
	Summary     string             `json:"summary"`
	Findings    []validate.Finding `json:"findings"`
}

func cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HandleProcess runs the pipeline on a workbook already on disk.
func HandleProcess(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rt := models.ReportType(strings.ToUpper(req.ReportType))
	if !rt.Valid() {
		http.Error(w, fmt.Sprintf("unknown report type: %s", req.ReportType), http.StatusBadRequest)
		return
	}
	if req.Year == 0 || req.Path == "" {
		http.Error(w, "path and year are required", http.StatusBadRequest)
		return
	}

	proc := newProcessor()
	ctx := r.Context()

	if req.LawPath != "" && rt.IsSpending() {
		lawProc := pipeline.NewProcessor()
		if colConfig != nil {
			lawProc.SetColumnConfig(colConfig)
		}
		lawOutcome, err := lawProc.Process(ctx, req.LawPath, models.ReportBudgetLaw, req.Year)
		if err != nil {
			http.Error(w, fmt.Sprintf("budget law processing failed: %v", err), http.StatusUnprocessableEntity)
			return
		}
		proc.SetLawDocument(lawOutcome.Document)
	}

	outcome, err := proc.Process(ctx, req.Path, rt, req.Year)
	if err != nil {
		var serr *hierarchy.StructuralError
		if errors.As(err, &serr) {
			http.Error(w, serr.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{
		Year:        outcome.Document.Year,
		ReportType:  outcome.Document.ReportType,
		Era:         outcome.Document.Era,
		StateBodies: len(outcome.Document.Bodies),
		Subprograms: outcome.Document.SubprogramCount(),
		RecordCount: len(outcome.Records),
		Summary:     outcome.Validation.Summary(),
		Findings:    outcome.Validation.Findings,
	})
}

// HandleRuns lists stored validation runs, filtered by optional year and
// report_type query parameters.
func HandleRuns(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if pgStore == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}

	year := 0
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = parsed
	}
	rt := models.ReportType(strings.ToUpper(r.URL.Query().Get("report_type")))
	if rt != "" && !rt.Valid() {
		http.Error(w, fmt.Sprintf("unknown report type: %s", rt), http.StatusBadRequest)
		return
	}

	runs, err := pgStore.Runs.List(r.Context(), year, rt)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleRunByID serves one stored run: GET /api/runs/{id}.
func HandleRunByID(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if pgStore == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}

	run, err := pgStore.Runs.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	cors(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
