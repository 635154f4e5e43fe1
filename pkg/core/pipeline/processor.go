// Package pipeline wires the processing stages end to end: load the
// workbook, resolve columns, build the hierarchy, validate, flatten, and
// optionally persist. Findings never block emission; only structural and
// I/O errors abort a document.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"armbudget/pkg/core/columns"
	"armbudget/pkg/core/export"
	"armbudget/pkg/core/hierarchy"
	"armbudget/pkg/core/ingest"
	"armbudget/pkg/core/store"
	"armbudget/pkg/core/validate"
	"armbudget/pkg/models"
)

// Store persists processing outcomes. Implementations may write to
// Postgres or capture in memory for tests.
type Store interface {
	SaveRecords(ctx context.Context, records []export.Record) error
	SaveRun(ctx context.Context, run *store.Run) error
}

// Outcome is everything one document run produces.
type Outcome struct {
	Document   *models.Document
	Records    []export.Record
	Validation *validate.Result
}

// Processor runs the full pipeline for single documents.
type Processor struct {
	resolver *columns.Resolver
	engine   *validate.Engine
	store    Store
	law      *models.Document
}

func NewProcessor() *Processor {
	return &Processor{
		resolver: columns.NewResolver(nil),
		engine:   validate.NewEngine(validate.DefaultTolerances()),
	}
}

// SetColumnConfig installs analyst column overrides.
func (p *Processor) SetColumnConfig(cfg *columns.Config) {
	p.resolver = columns.NewResolver(cfg)
}

// SetTolerances replaces the default tolerance profiles.
func (p *Processor) SetTolerances(tol validate.Tolerances) {
	p.engine = validate.NewEngine(tol)
}

// SetStore attaches persistence. A nil store keeps the pipeline
// file-only.
func (p *Processor) SetStore(s Store) {
	p.store = s
}

// SetLawDocument enables the cross-document annual plan check for
// subsequent spending runs.
func (p *Processor) SetLawDocument(law *models.Document) {
	p.law = law
}

// Process runs the pipeline on one workbook file.
func (p *Processor) Process(ctx context.Context, path string, rt models.ReportType, year int) (*Outcome, error) {
	fmt.Printf("Processing %s %d from %s...\n", rt, year, path)
	start := time.Now()

	grid, err := ingest.LoadWorkbook(path, rt)
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}

	outcome, err := p.ProcessGrid(ctx, grid, rt, year)
	if err != nil {
		return nil, err
	}
	outcome.Document.SourceFile = path

	fmt.Printf("Completed %s %d in %v: %d records, %s\n",
		rt, year, time.Since(start), len(outcome.Records), outcome.Validation.Summary())
	return outcome, nil
}

// ProcessGrid runs every stage after ingestion. Demo and test callers
// feed grids built in memory.
func (p *Processor) ProcessGrid(ctx context.Context, grid *ingest.Grid, rt models.ReportType, year int) (*Outcome, error) {
	layout, err := p.resolver.Resolve(rt, year, grid)
	if err != nil {
		return nil, fmt.Errorf("column resolution failed: %w", err)
	}

	doc, err := hierarchy.NewBuilder(rt, year, layout).Build(grid)
	if err != nil {
		return nil, fmt.Errorf("hierarchy build failed: %w", err)
	}

	result := p.engine.Validate(doc)
	if p.law != nil && rt.IsSpending() {
		result.Findings = append(result.Findings, p.engine.ValidateAgainstLaw(doc, p.law)...)
	}

	records := export.Flatten(doc)

	if p.store != nil {
		if err := p.store.SaveRecords(ctx, records); err != nil {
			return nil, fmt.Errorf("record storage failed: %w", err)
		}
		run := store.NewRun(doc, result)
		if err := p.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("run storage failed: %w", err)
		}
	}

	return &Outcome{Document: doc, Records: records, Validation: result}, nil
}
