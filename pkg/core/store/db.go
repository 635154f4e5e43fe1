// Package store persists flattened budget records and validation runs
// to Postgres. The pipeline treats storage as optional: deployments
// without DATABASE_URL run file-only.
package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"armbudget/pkg/core/export"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// HasDatabase reports whether a database is configured at all.
func HasDatabase() bool {
	return os.Getenv("DATABASE_URL") != ""
}

// Open returns the process-wide connection pool, creating it on first
// call from DATABASE_URL and verifying the connection with a ping.
func Open(ctx context.Context) (*pgxpool.Pool, error) {
	var err error
	once.Do(func() {
		url := os.Getenv("DATABASE_URL")
		if url == "" {
			err = fmt.Errorf("DATABASE_URL environment variable not set")
			return
		}
		cfg, parseErr := pgxpool.ParseConfig(url)
		if parseErr != nil {
			err = fmt.Errorf("parse database config: %w", parseErr)
			return
		}
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return
		}
		err = pool.Ping(ctx)
	})
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	return pool, nil
}

// Close closes the process-wide pool.
func Close() {
	if pool != nil {
		pool.Close()
	}
}

// =============================================================================
// FACADE - Both repos behind one handle
// =============================================================================

// PgStore bundles the record and run repositories for pipeline
// injection.
type PgStore struct {
	Records *RecordsRepo
	Runs    *RunsRepo
}

func NewPgStore(p *pgxpool.Pool) *PgStore {
	return &PgStore{
		Records: NewRecordsRepo(p),
		Runs:    NewRunsRepo(p),
	}
}

func (s *PgStore) SaveRecords(ctx context.Context, records []export.Record) error {
	return s.Records.SaveBatch(ctx, records)
}

func (s *PgStore) SaveRun(ctx context.Context, run *Run) error {
	return s.Runs.Save(ctx, run)
}
