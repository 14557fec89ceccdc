// Package report renders the emissions summary as a PDF document for
// sharing with buyers and auditors.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"carbonledger/internal/core"
	"carbonledger/internal/summary"
)

// Options carry the header fields of the rendered document.
type Options struct {
	CompanyName   string
	ReportingYear int
	GeneratedAt   time.Time
}

// scopeOrder fixes the line order in the breakdown section.
var scopeOrder = []string{core.Scope1, core.Scope2, core.Scope3}

// RenderPDF writes a one-page emissions report. With no data it still
// produces a valid document stating that nothing has been recorded.
func RenderPDF(w io.Writer, rep summary.Report, opts Options) error {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Carbon Emissions Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Carbon Emissions Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	if opts.CompanyName != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Company: %s", opts.CompanyName), "", 1, "L", false, 0, "")
	}
	if opts.ReportingYear > 0 {
		pdf.CellFormat(0, 7, fmt.Sprintf("Reporting year: %d", opts.ReportingYear), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 7, fmt.Sprintf("Generated: %s", opts.GeneratedAt.Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if rep.Total == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 8, "No emission records for the reporting period.", "", 1, "L", false, 0, "")
		return pdf.Output(w)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Total emissions: %s kgCO2e", core.FormatKg(rep.Total)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Breakdown by scope", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	shares := rep.ScopeShare()
	for _, scope := range scopeOrder {
		kg, ok := rep.ByScope[scope]
		if !ok {
			continue
		}
		line := fmt.Sprintf("%s: %s kgCO2e (%.1f%%)", scope, core.FormatKg(kg), shares[scope]*100)
		pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
	}
	// Scopes outside the standard three still show up, after them.
	for scope, kg := range rep.ByScope {
		if scope == core.Scope1 || scope == core.Scope2 || scope == core.Scope3 {
			continue
		}
		line := fmt.Sprintf("%s: %s kgCO2e (%.1f%%)", scope, core.FormatKg(kg), shares[scope]*100)
		pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	if len(rep.ByCategory) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "Top emission categories", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, category := range rep.TopCategories(5) {
			line := fmt.Sprintf("%s: %s kgCO2e", category, core.FormatKg(rep.ByCategory[category]))
			pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
		}
	}

	return pdf.Output(w)
}
