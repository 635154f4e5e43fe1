package main

import (
	"context"
	"fmt"
	"os"

	"armbudget/pkg/core/export"
	"armbudget/pkg/core/ingest"
	"armbudget/pkg/core/pipeline"
	"armbudget/pkg/core/report"
	"armbudget/pkg/core/validate"
	"armbudget/pkg/models"
)

// Logger helper
func logStep(step string, details string) {
	fmt.Printf("\n[STEP] %s\n", step)
	fmt.Println("---------------------------------------------------------")
	fmt.Println(details)
	fmt.Println("---------------------------------------------------------")
}

func main() {
	logStep("0. Initialization", "Starting End-to-End Budget Pipeline Demo (in-memory workbooks)...")
	ctx := context.Background()

	// =========================================================================
	// STEP 1: ENACTED BUDGET LAW (modern era layout, 2025)
	// =========================================================================
	lawGrid := &ingest.Grid{
		SheetName: "Հավելված N 1",
		Rows: [][]ingest.Cell{
			row("", "", "", "Հավելված N 1 (2025 թվականի պետական բյուջե)", ""),
			row("Պետական մարմին", "Ծրագիր", "Միջոցառում", "Անվանում", "Գումար (հազար դրամ)"),
			row("", "", "", "ԸՆԴԱՄԵՆԸ", "-1276.00"),
			row("1079", "", "", "ԿԳՄՍ նախարարություն", ""),
			row("1079", "11001", "", "Հանրակրթության ծրագիր", ""),
			row("1079", "11001", "31002", "Դպրոցների պահպանում", "-1276.00"),
			row("1079", "11001", "", "Ընդամենը", "-1276.00"),
			row("1079", "", "", "Ընդամենը", "-1276.00"),
		},
	}

	proc := pipeline.NewProcessor()
	lawOutcome, err := proc.ProcessGrid(ctx, lawGrid, models.ReportBudgetLaw, 2025)
	if err != nil {
		fmt.Printf("Error processing budget law: %v\n", err)
		return
	}
	fmt.Println("✅ Budget law parsed")

	logStep("1. Budget Law Hierarchy", describeDocument(lawOutcome.Document))
	printFindings(lawOutcome.Validation)

	// =========================================================================
	// STEP 2: SPENDING REPORT Q1 WITH CROSS-CHECK AGAINST THE LAW
	// =========================================================================
	// The same subprogram reports a zero annual plan but a filled period
	// plan, a stored percentage against that zero plan, and an annual plan
	// that no longer matches the enacted total. Three different checks
	// fire, none of them blocks record emission.
	spendGrid := &ingest.Grid{
		SheetName: "Ծախսեր Q1",
		Rows: [][]ingest.Cell{
			row("Պետական մարմին", "Ծրագիր", "Միջոցառում", "Անվանում",
				"Տարեկան պլան", "Ճշտված տարեկան պլան",
				"Ժամանակաշրջանի պլան", "Ճշտված ժամանակաշրջանի պլան",
				"Փաստացի", "Փաստացին ճշտված տարեկան պլանի նկատմամբ",
				"Փաստացին ճշտված ժամանակաշրջանի պլանի նկատմամբ"),
			row("", "", "", "ԸՆԴԱՄԵՆԸ", "0.00", "0.00", "272450.40", "272450.40", "150000.00", "", ""),
			row("1079", "", "", "ԿԳՄՍ նախարարություն", "", "", "", "", "", "", ""),
			row("1079", "11001", "", "Հանրակրթության ծրագիր", "", "", "", "", "", "", ""),
			row("1079", "11001", "31002", "Դպրոցների պահպանում",
				"0.00", "0.00", "272450.40", "272450.40", "150000.00", "0%", "55.06%"),
			row("1079", "11001", "", "Ընդամենը", "0.00", "0.00", "272450.40", "272450.40", "150000.00", "", ""),
			row("1079", "", "", "Ընդամենը", "0.00", "0.00", "272450.40", "272450.40", "150000.00", "", ""),
		},
	}

	proc.SetLawDocument(lawOutcome.Document)
	spendOutcome, err := proc.ProcessGrid(ctx, spendGrid, models.ReportSpendingQ1, 2025)
	if err != nil {
		fmt.Printf("Error processing spending report: %v\n", err)
		return
	}
	fmt.Println("✅ Spending report parsed and cross-checked")

	logStep("2. Spending Report Q1", describeDocument(spendOutcome.Document))
	printFindings(spendOutcome.Validation)

	// =========================================================================
	// STEP 3: FLATTENED RECORDS AND REPORT RENDERING
	// =========================================================================
	logStep("3. Flattened Records (CSV)", fmt.Sprintf("%d records from the spending report:", len(spendOutcome.Records)))
	if err := export.WriteCSV(os.Stdout, spendOutcome.Document.ReportType, spendOutcome.Records); err != nil {
		fmt.Printf("Error writing CSV: %v\n", err)
		return
	}

	logStep("4. Validation Report (Markdown)", report.Markdown(spendOutcome.Document, spendOutcome.Validation))
}

func row(cells ...string) []ingest.Cell {
	out := make([]ingest.Cell, len(cells))
	for i, raw := range cells {
		out[i] = ingest.ParseCell(raw)
	}
	return out
}

func describeDocument(doc *models.Document) string {
	out := fmt.Sprintf("Era: %s | Bodies: %d | Programs: %d | Subprograms: %d\n",
		doc.Era, len(doc.Bodies), doc.ProgramCount(), doc.SubprogramCount())
	for _, b := range doc.Bodies {
		out += fmt.Sprintf("  %s %s\n", b.Code, b.Name)
		for _, p := range b.Programs {
			out += fmt.Sprintf("    %s %s\n", p.Code, p.Name)
			for _, s := range p.Subprograms {
				out += fmt.Sprintf("      %s %s  %v\n", s.Code, s.Name, s.Values)
			}
		}
	}
	return out
}

func printFindings(res *validate.Result) {
	fmt.Printf("\n%s\n", res.Summary())
	for _, f := range res.Findings {
		icon := "⚠️"
		if f.Severity == validate.SeverityError {
			icon = "❌"
		}
		fmt.Printf("  %s [%s] %s %s: %s\n", icon, f.Check, f.Path.Display(), f.Field, f.Message)
	}
}
