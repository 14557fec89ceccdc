package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"carbonledger/internal/core"
	"carbonledger/internal/factors"
	"carbonledger/internal/ledger"
	"carbonledger/internal/store"
)

// maxBodyBytes caps request bodies; CSV imports are the largest payloads.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// decodeBody parses a JSON request body into dst, rejecting unknown fields
// so client typos surface as errors instead of silently dropped data.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parseFilter reads the optional list filters from the query string.
func parseFilter(r *http.Request) (ledger.FilterOptions, error) {
	q := r.URL.Query()
	opts := ledger.FilterOptions{
		Scope:    q.Get("scope"),
		Category: q.Get("category"),
	}
	if v := q.Get("start"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return opts, err
		}
		opts.Start = d
	}
	if v := q.Get("end"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return opts, err
		}
		opts.End = d
	}
	return opts, nil
}

// mapLedgerError converts domain errors to HTTP statuses. Validation
// failures are 400s, missing records 404s; a persisted-in-memory-only save
// is reported as 502 because the caller should know durability is degraded.
func mapLedgerError(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "record not found"
	case errors.Is(err, ledger.ErrSaveFailed):
		return http.StatusBadGateway, err.Error()
	case isValidationError(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate, core.ErrMissingScope, core.ErrMissingCategory,
		core.ErrMissingActivity, core.ErrMissingUnit,
		core.ErrInvalidQuantity, core.ErrInvalidFactor,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var schemaErr *ledger.SchemaError
	if errors.As(err, &schemaErr) {
		return true
	}
	var unknownErr *factors.UnknownFactorError
	return errors.As(err, &unknownErr)
}
