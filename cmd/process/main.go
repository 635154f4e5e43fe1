package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"armbudget/pkg/core/columns"
	"armbudget/pkg/core/export"
	"armbudget/pkg/core/hierarchy"
	"armbudget/pkg/core/pipeline"
	"armbudget/pkg/core/report"
	"armbudget/pkg/core/store"
	"armbudget/pkg/core/validate"
	"armbudget/pkg/models"
)

// maxPrintedFindings caps the console listing; the full set always goes
// to the report and run storage.
const maxPrintedFindings = 25

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("[WARNING] No .env file found, using system environment")
	}

	var (
		filePath = flag.String("file", "", "workbook to process (.xlsx)")
		typeStr  = flag.String("type", "", "report type: BUDGET_LAW, SPENDING_Q1, SPENDING_Q12, SPENDING_Q123, SPENDING_Q1234, MTEP")
		year     = flag.Int("year", 0, "budget year the workbook covers")
		lawPath  = flag.String("law", "", "enacted budget law workbook for cross-checking (spending reports only)")
		outCSV   = flag.String("out-csv", "", "write flattened records to this CSV file")
		outJSON  = flag.String("out-json", "", "write flattened records to this JSON file")
		htmlPath = flag.String("report", "", "write the validation report to this HTML file")
		tolPath  = flag.String("tolerances", "config/tolerances.hjson", "tolerance profile file")
		colPath  = flag.String("columns", "config/columns.yaml", "column override file")
	)
	flag.Parse()

	rt := models.ReportType(strings.ToUpper(strings.TrimSpace(*typeStr)))
	if *filePath == "" || *year == 0 || !rt.Valid() {
		fmt.Println("Usage: process -file <workbook.xlsx> -type <report type> -year <year> [options]")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *lawPath != "" && !rt.IsSpending() {
		fmt.Printf("[WARNING] -law is only used with spending reports, ignoring for %s\n", rt)
		*lawPath = ""
	}

	ctx := context.Background()

	fmt.Println(strings.Repeat("#", 80))
	fmt.Printf("            ARMENIAN BUDGET PIPELINE - %s %d\n", rt, *year)
	fmt.Println(strings.Repeat("#", 80))
	fmt.Println()

	proc, err := buildProcessor(ctx, *colPath, *tolPath)
	if err != nil {
		fatal(err)
	}

	if *lawPath != "" {
		fmt.Printf("Loading enacted budget law from %s...\n", *lawPath)
		lawProc, err := buildProcessor(ctx, *colPath, *tolPath)
		if err != nil {
			fatal(err)
		}
		lawOutcome, err := lawProc.Process(ctx, *lawPath, models.ReportBudgetLaw, *year)
		if err != nil {
			fatal(fmt.Errorf("budget law processing: %w", err))
		}
		proc.SetLawDocument(lawOutcome.Document)
	}

	if store.HasDatabase() {
		pool, err := store.Open(ctx)
		if err != nil {
			fmt.Printf("[WARNING] Database unavailable: %v\n", err)
		} else {
			proc.SetStore(store.NewPgStore(pool))
			defer store.Close()
		}
	}

	outcome, err := proc.Process(ctx, *filePath, rt, *year)
	if err != nil {
		fatal(err)
	}

	printDocument(outcome.Document)
	printFindings(outcome.Validation)
	writeOutputs(outcome, *outCSV, *outJSON, *htmlPath)

	if outcome.Validation.HasErrors() {
		os.Exit(1)
	}
}

func buildProcessor(ctx context.Context, colPath, tolPath string) (*pipeline.Processor, error) {
	proc := pipeline.NewProcessor()

	cfg, err := columns.LoadConfig(colPath)
	if err != nil {
		return nil, fmt.Errorf("column config: %w", err)
	}
	proc.SetColumnConfig(cfg)

	tol, err := validate.LoadTolerances(tolPath)
	if err != nil {
		return nil, fmt.Errorf("tolerance config: %w", err)
	}
	proc.SetTolerances(tol)

	return proc, nil
}

func printDocument(doc *models.Document) {
	fmt.Println("\n[1] DOCUMENT STRUCTURE")
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Era:          %s\n", doc.Era)
	fmt.Printf("Sheet:        %s\n", doc.SheetName)
	fmt.Printf("State bodies: %d\n", len(doc.Bodies))
	fmt.Printf("Programs:     %d\n", doc.ProgramCount())
	fmt.Printf("Subprograms:  %d\n", doc.SubprogramCount())

	if doc.GrandDeclared == nil {
		fmt.Println("Grand total:  (not declared)")
		return
	}
	fmt.Println("Grand total (declared, thousand AMD):")
	for _, f := range models.MonetaryFieldsFor(doc.ReportType) {
		if v, ok := doc.GrandDeclared[f]; ok {
			fmt.Printf("  %-26s %16.2f\n", f, v)
		}
	}
}

func printFindings(res *validate.Result) {
	fmt.Println("\n[2] VALIDATION FINDINGS")
	fmt.Println(strings.Repeat("-", 50))
	fmt.Println(res.Summary())

	if len(res.Findings) == 0 {
		fmt.Println("✅ All checks passed")
		return
	}
	for i, f := range res.Findings {
		if i == maxPrintedFindings {
			fmt.Printf("   ... and %d more (see report output)\n", len(res.Findings)-maxPrintedFindings)
			break
		}
		icon := "⚠️"
		if f.Severity == validate.SeverityError {
			icon = "❌"
		}
		fmt.Printf("%s [%s] %s: %s\n", icon, f.Check, f.Path.Display(), f.Message)
	}
}

func writeOutputs(outcome *pipeline.Outcome, csvPath, jsonPath, htmlPath string) {
	if csvPath == "" && jsonPath == "" && htmlPath == "" {
		return
	}
	fmt.Println("\n[3] OUTPUT FILES")
	fmt.Println(strings.Repeat("-", 50))

	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			fatal(fmt.Errorf("create %s: %w", csvPath, err))
		}
		err = export.WriteCSV(f, outcome.Document.ReportType, outcome.Records)
		f.Close()
		if err != nil {
			fatal(fmt.Errorf("write %s: %w", csvPath, err))
		}
		fmt.Printf("CSV:    %s (%d records)\n", csvPath, len(outcome.Records))
	}

	if jsonPath != "" {
		f, err := os.Create(jsonPath)
		if err != nil {
			fatal(fmt.Errorf("create %s: %w", jsonPath, err))
		}
		err = export.WriteJSON(f, outcome.Records)
		f.Close()
		if err != nil {
			fatal(fmt.Errorf("write %s: %w", jsonPath, err))
		}
		fmt.Printf("JSON:   %s (%d records)\n", jsonPath, len(outcome.Records))
	}

	if htmlPath != "" {
		html, err := report.HTML(outcome.Document, outcome.Validation)
		if err != nil {
			fatal(fmt.Errorf("render report: %w", err))
		}
		if err := os.WriteFile(htmlPath, []byte(html), 0644); err != nil {
			fatal(fmt.Errorf("write %s: %w", htmlPath, err))
		}
		fmt.Printf("Report: %s (%d findings)\n", htmlPath, len(outcome.Validation.Findings))
	}
}

func fatal(err error) {
	var structural *hierarchy.StructuralError
	if errors.As(err, &structural) {
		fmt.Printf("\n[STRUCTURAL] %v\n", structural)
		fmt.Println("The workbook layout does not match any known era; check -columns overrides.")
	} else {
		fmt.Printf("\n[FATAL] %v\n", err)
	}
	os.Exit(2)
}
