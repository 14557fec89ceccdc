package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"carbonledger/internal/core"
	"carbonledger/internal/summary"
)

func sampleReport() summary.Report {
	return summary.Report{
		Total: 450,
		ByScope: map[string]float64{
			core.Scope1: 100,
			core.Scope2: 330.5,
			core.Scope3: 19.5,
		},
		ByCategory: map[string]float64{
			"Stationary Combustion": 100,
			"Electricity":           330.5,
			"Waste":                 19.5,
		},
	}
}

func TestRenderPDF(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{
		CompanyName:   "Acme Textiles",
		ReportingYear: 2025,
		GeneratedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := RenderPDF(&buf, sampleReport(), opts); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Fatalf("output is not a PDF document: %q", buf.String()[:16])
	}
	if buf.Len() < 500 {
		t.Fatalf("suspiciously small document: %d bytes", buf.Len())
	}
}

func TestRenderPDFEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPDF(&buf, summary.Report{}, Options{CompanyName: "Acme Textiles"}); err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Fatal("empty report must still produce a valid PDF")
	}
}
