package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"armbudget/pkg/core/export"
	"armbudget/pkg/models"
)

// RecordsRepo stores flattened subprogram records.
//
// Assumes table:
//
//	CREATE TABLE budget_records (
//	    year            INT  NOT NULL,
//	    report_type     TEXT NOT NULL,
//	    body_code       TEXT NOT NULL,
//	    program_code    TEXT NOT NULL,
//	    subprogram_code TEXT NOT NULL,
//	    body_name       TEXT,
//	    program_name    TEXT,
//	    subprogram_name TEXT,
//	    amounts         JSONB NOT NULL,
//	    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (year, report_type, body_code, program_code, subprogram_code)
//	);
type RecordsRepo struct {
	pool *pgxpool.Pool
}

func NewRecordsRepo(p *pgxpool.Pool) *RecordsRepo {
	return &RecordsRepo{pool: p}
}

const upsertRecordSQL = `
INSERT INTO budget_records
    (year, report_type, body_code, program_code, subprogram_code,
     body_name, program_name, subprogram_name, amounts, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, now())
ON CONFLICT (year, report_type, body_code, program_code, subprogram_code)
DO UPDATE SET
    body_name = EXCLUDED.body_name,
    program_name = EXCLUDED.program_name,
    subprogram_name = EXCLUDED.subprogram_name,
    amounts = EXCLUDED.amounts,
    updated_at = now()`

// SaveBatch upserts every record in one round trip. Re-running a year
// replaces its rows in place.
func (r *RecordsRepo) SaveBatch(ctx context.Context, records []export.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		amounts, err := json.Marshal(rec.Values)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.SubprogramCode, err)
		}
		batch.Queue(upsertRecordSQL,
			rec.Year, string(rec.ReportType),
			rec.BodyCode, rec.ProgramCode, rec.SubprogramCode,
			rec.BodyName, rec.ProgramName, rec.SubprogramName,
			string(amounts))
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert records: %w", err)
		}
	}
	return nil
}

// List returns the stored records of one (year, report type) in code
// order.
func (r *RecordsRepo) List(ctx context.Context, year int, rt models.ReportType) ([]export.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT year, report_type, body_code, program_code, subprogram_code,
		       body_name, program_name, subprogram_name, amounts
		FROM budget_records
		WHERE year = $1 AND report_type = $2
		ORDER BY body_code, program_code, subprogram_code`,
		year, string(rt))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []export.Record
	for rows.Next() {
		var rec export.Record
		var amounts []byte
		if err := rows.Scan(&rec.Year, &rec.ReportType,
			&rec.BodyCode, &rec.ProgramCode, &rec.SubprogramCode,
			&rec.BodyName, &rec.ProgramName, &rec.SubprogramName,
			&amounts); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal(amounts, &rec.Values); err != nil {
			return nil, fmt.Errorf("unmarshal record %s: %w", rec.SubprogramCode, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
