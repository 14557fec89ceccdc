package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"carbonledger/internal/core"
	"carbonledger/internal/ledger"
)

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	opts, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records := s.ledgerSvc.Ledger().Filter(opts)
	if records == nil {
		records = []core.EmissionRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entries": records,
		"count":   len(records),
	})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var rec core.EmissionRecord
	if err := decodeBody(r, &rec); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	rec.ID = 0

	saved, err := s.ledgerSvc.AddEntry(r.Context(), rec)
	if err != nil && !errors.Is(err, ledger.ErrSaveFailed) {
		status, msg := mapLedgerError(err)
		respondError(w, status, msg)
		return
	}
	s.invalidateAggregates()
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	rec, ok := s.ledgerSvc.Ledger().Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var rec core.EmissionRecord
	if err := decodeBody(r, &rec); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	rec.ID = id

	updated, err := s.ledgerSvc.Update(r.Context(), rec)
	if err != nil && !errors.Is(err, ledger.ErrSaveFailed) {
		status, msg := mapLedgerError(err)
		respondError(w, status, msg)
		return
	}
	s.invalidateAggregates()
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	if err := s.ledgerSvc.Delete(r.Context(), id); err != nil && !errors.Is(err, ledger.ErrSaveFailed) {
		status, msg := mapLedgerError(err)
		respondError(w, status, msg)
		return
	}
	s.invalidateAggregates()
	respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleImportCSV ingests a CSV payload as one atomic batch.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := ledger.ParseCSV(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := s.ledgerSvc.Import(r.Context(), rows)
	if err != nil && !errors.Is(err, ledger.ErrSaveFailed) {
		status, msg := mapLedgerError(err)
		respondError(w, status, msg)
		return
	}
	s.invalidateAggregates()
	respondJSON(w, http.StatusOK, map[string]any{"imported": n})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	opts, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	records := s.ledgerSvc.Ledger().Filter(opts)

	var buf bytes.Buffer
	if err := ledger.WriteCSV(&buf, records); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="emissions.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
