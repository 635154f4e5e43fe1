package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"armbudget/pkg/core/validate"
	"armbudget/pkg/models"
)

// RunsRepo stores validation run history.
//
// Assumes table:
//
//	CREATE TABLE validation_runs (
//	    id            UUID PRIMARY KEY,
//	    year          INT  NOT NULL,
//	    report_type   TEXT NOT NULL,
//	    source_file   TEXT,
//	    run_at        TIMESTAMPTZ NOT NULL,
//	    error_count   INT NOT NULL,
//	    warning_count INT NOT NULL,
//	    findings      JSONB NOT NULL
//	);
type RunsRepo struct {
	pool *pgxpool.Pool
}

func NewRunsRepo(p *pgxpool.Pool) *RunsRepo {
	return &RunsRepo{pool: p}
}

func (r *RunsRepo) Save(ctx context.Context, run *Run) error {
	findings, err := json.Marshal(run.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO validation_runs
		    (id, year, report_type, source_file, run_at, error_count, warning_count, findings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)`,
		run.ID, run.Year, string(run.ReportType), run.SourceFile,
		run.RunAt, run.ErrorCount, run.WarningCount, string(findings))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns one run, or (nil, nil) when the id is unknown.
func (r *RunsRepo) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, year, report_type, source_file, run_at, error_count, warning_count, findings
		FROM validation_runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// List returns recent runs, newest first. year 0 and an empty report
// type match everything.
func (r *RunsRepo) List(ctx context.Context, year int, rt models.ReportType) ([]*Run, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, year, report_type, source_file, run_at, error_count, warning_count, findings
		FROM validation_runs
		WHERE ($1 = 0 OR year = $1) AND ($2 = '' OR report_type = $2)
		ORDER BY run_at DESC
		LIMIT 100`,
		year, string(rt))
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	var findings []byte
	if err := row.Scan(&run.ID, &run.Year, &run.ReportType, &run.SourceFile,
		&run.RunAt, &run.ErrorCount, &run.WarningCount, &findings); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(findings, &run.Findings); err != nil {
		return nil, fmt.Errorf("unmarshal findings for run %s: %w", run.ID, err)
	}
	if run.Findings == nil {
		run.Findings = []validate.Finding{}
	}
	return &run, nil
}
