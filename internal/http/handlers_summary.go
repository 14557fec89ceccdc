package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"carbonledger/internal/ledger"
	"carbonledger/internal/report"
	"carbonledger/internal/store"
	"carbonledger/internal/summary"
)

const (
	summaryCacheKey = "summary"
	reportCacheKey  = "report_pdf"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	opts, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Only the unfiltered summary is cached; filtered views are ad hoc.
	unfiltered := opts == (ledger.FilterOptions{})
	if unfiltered {
		if cached, ok := s.summaryCache.Get(summaryCacheKey); ok {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	sum := summary.Summarize(s.ledgerSvc.Ledger().Filter(opts))
	if unfiltered {
		s.summaryCache.Set(summaryCacheKey, sum)
	}
	respondJSON(w, http.StatusOK, sum)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	opts, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep := summary.BuildReport(s.ledgerSvc.Ledger().Filter(opts))
	respondJSON(w, http.StatusOK, rep)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	opts, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	unfiltered := opts == (ledger.FilterOptions{})
	if unfiltered {
		if cached, ok := s.reportCache.Get(reportCacheKey); ok {
			writePDF(w, cached)
			return
		}
	}

	renderOpts := report.Options{GeneratedAt: time.Now()}
	profile, err := s.profiles.LoadProfile(r.Context())
	switch {
	case err == nil:
		renderOpts.CompanyName = profile.Name
		renderOpts.ReportingYear = profile.ReportingYear
	case errors.Is(err, store.ErrNoProfile):
		// Render without a header; the profile is optional.
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rep := summary.BuildReport(s.ledgerSvc.Ledger().Filter(opts))
	var buf bytes.Buffer
	if err := report.RenderPDF(&buf, rep, renderOpts); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if unfiltered {
		s.reportCache.Set(reportCacheKey, buf.Bytes())
	}
	writePDF(w, buf.Bytes())
}

func writePDF(w http.ResponseWriter, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="emissions_report.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
