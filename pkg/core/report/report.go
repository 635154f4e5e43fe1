// Package report renders validation results as markdown and HTML for
// analysts who review runs outside the terminal.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"armbudget/pkg/core/validate"
	"armbudget/pkg/models"
)

var renderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown produces the full report: document summary, then one section
// per check that produced findings, in check order.
func Markdown(doc *models.Document, res *validate.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Validation Report: %s %d\n\n", res.ReportType, res.Year)
	if doc.SourceFile != "" {
		fmt.Fprintf(&b, "- Source: %s (sheet %q)\n", doc.SourceFile, doc.SheetName)
	}
	fmt.Fprintf(&b, "- Layout era: %s\n", doc.Era)
	fmt.Fprintf(&b, "- State bodies: %d, subprograms: %d\n", len(doc.Bodies), doc.SubprogramCount())
	fmt.Fprintf(&b, "- Findings: %d errors, %d warnings\n\n", len(res.Errors()), len(res.Warnings()))

	if len(res.Findings) == 0 {
		b.WriteString("All checks passed.\n")
		return b.String()
	}

	for _, check := range checkOrder(res) {
		findings := res.ByCheck()[check]
		fmt.Fprintf(&b, "## %s (%d)\n\n", check, len(findings))
		b.WriteString("| Severity | Path | Field | Message | Expected | Actual | Diff |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				f.Severity,
				f.Path.Display(),
				f.Field,
				f.Message,
				numCell(f.Field, f.Expected, f.Kind),
				numCell(f.Field, f.Actual, f.Kind),
				numCell(f.Field, f.Diff, f.Kind))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders the markdown report through goldmark with table support.
func HTML(doc *models.Document, res *validate.Result) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(Markdown(doc, res)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// checkOrder lists check names in first-appearance order, which follows
// the engine's check table.
func checkOrder(res *validate.Result) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range res.Findings {
		if !seen[f.Check] {
			seen[f.Check] = true
			out = append(out, f.Check)
		}
	}
	return out
}

// numCell formats a numeric column. Ratios print with four decimals,
// monetary amounts with two; findings without numeric payload leave the
// cells empty.
func numCell(f models.Field, v float64, kind validate.Kind) string {
	if kind == validate.KindMissing || kind == validate.KindStructure {
		return ""
	}
	if f.IsPercentage() {
		return fmt.Sprintf("%.4f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
