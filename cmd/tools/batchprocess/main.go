package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/joho/godotenv"

	"armbudget/pkg/core/columns"
	"armbudget/pkg/core/export"
	"armbudget/pkg/core/pipeline"
	"armbudget/pkg/core/validate"
	"armbudget/pkg/models"
)

// batchResult is one processed workbook in the final summary table. The
// document rides along so pass 1 can hand budget laws to pass 2.
type batchResult struct {
	Year     int
	Type     models.ReportType
	Path     string
	Records  int
	Errors   int
	Warnings int
	Err      error
	doc      *models.Document
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found, using environment variables")
	}

	var (
		dir      = flag.String("dir", "batch_data", "directory holding <year>_<TYPE>.xlsx workbooks")
		outDir   = flag.String("out", "batch_out", "directory for per-document records and findings")
		fromYear = flag.Int("from", 2019, "first year to scan")
		toYear   = flag.Int("to", 2025, "last year to scan")
		workers  = flag.Int("parallel", 4, "concurrent workbook limit")
		tolPath  = flag.String("tolerances", "config/tolerances.hjson", "tolerance profile file")
		colPath  = flag.String("columns", "config/columns.yaml", "column override file")
	)
	flag.Parse()

	cfg, err := columns.LoadConfig(*colPath)
	if err != nil {
		log.Fatalf("Error: column config: %v", err)
	}
	tol, err := validate.LoadTolerances(*tolPath)
	if err != nil {
		log.Fatalf("Error: tolerance config: %v", err)
	}
	os.MkdirAll(*outDir, 0755)

	ctx := context.Background()

	// Pass 1: budget laws, sequential per year. Their documents feed the
	// cross-document annual plan check in pass 2.
	laws := make(map[int]*models.Document)
	var results []batchResult
	for year := *fromYear; year <= *toYear; year++ {
		path := workbookPath(*dir, year, models.ReportBudgetLaw)
		if path == "" {
			continue
		}
		fmt.Printf("\n=== Processing %d %s ===\n", year, models.ReportBudgetLaw)
		res := processOne(ctx, cfg, tol, nil, path, models.ReportBudgetLaw, year, *outDir)
		results = append(results, res)
		if res.Err == nil {
			laws[year] = res.doc
		}
	}

	// Pass 2: spending reports and MTEP, fanned out across workers. Each
	// workbook is isolated; one failure never stops the batch.
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, *workers)
	)
	for year := *fromYear; year <= *toYear; year++ {
		for _, rt := range models.AllReportTypes {
			if rt == models.ReportBudgetLaw {
				continue
			}
			path := workbookPath(*dir, year, rt)
			if path == "" {
				continue
			}
			wg.Add(1)
			go func(path string, rt models.ReportType, year int) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				fmt.Printf("\n=== Processing %d %s ===\n", year, rt)
				res := processOne(ctx, cfg, tol, laws[year], path, rt, year, *outDir)

				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}(path, rt, year)
		}
	}
	wg.Wait()

	printSummary(results)
}

func processOne(ctx context.Context, cfg *columns.Config, tol validate.Tolerances, law *models.Document, path string, rt models.ReportType, year int, outDir string) batchResult {
	res := batchResult{Year: year, Type: rt, Path: path}

	proc := pipeline.NewProcessor()
	proc.SetColumnConfig(cfg)
	proc.SetTolerances(tol)
	if law != nil {
		proc.SetLawDocument(law)
	}

	outcome, err := proc.Process(ctx, path, rt, year)
	if err != nil {
		log.Printf("Error processing %s: %v", path, err)
		res.Err = err
		return res
	}
	res.doc = outcome.Document
	res.Records = len(outcome.Records)
	res.Errors = len(outcome.Validation.Errors())
	res.Warnings = len(outcome.Validation.Warnings())

	if err := writeOutcome(outcome, outDir, year, rt); err != nil {
		log.Printf("Error writing output for %s: %v", path, err)
		res.Err = err
	}
	return res
}

func writeOutcome(outcome *pipeline.Outcome, outDir string, year int, rt models.ReportType) error {
	recPath := filepath.Join(outDir, fmt.Sprintf("%d_%s_records.json", year, rt))
	f, err := os.Create(recPath)
	if err != nil {
		return err
	}
	err = export.WriteJSON(f, outcome.Records)
	f.Close()
	if err != nil {
		return err
	}

	findings, err := json.MarshalIndent(outcome.Validation, "", "  ")
	if err != nil {
		return err
	}
	findPath := filepath.Join(outDir, fmt.Sprintf("%d_%s_findings.json", year, rt))
	if err := os.WriteFile(findPath, findings, 0644); err != nil {
		return err
	}

	fmt.Printf("Saved: %s, %s\n", recPath, findPath)
	return nil
}

func workbookPath(dir string, year int, rt models.ReportType) string {
	path := filepath.Join(dir, fmt.Sprintf("%d_%s.xlsx", year, rt))
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func printSummary(results []batchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Year != results[j].Year {
			return results[i].Year < results[j].Year
		}
		return results[i].Type < results[j].Type
	})

	fmt.Println("\n=== Summary ===")
	fmt.Printf("%-6s %-16s %8s %7s %9s  %s\n", "YEAR", "TYPE", "RECORDS", "ERRORS", "WARNINGS", "STATUS")
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Printf("%-6d %-16s %8d %7d %9d  %s\n", r.Year, r.Type, r.Records, r.Errors, r.Warnings, status)
	}
	fmt.Println("\n=== Done ===")
}
