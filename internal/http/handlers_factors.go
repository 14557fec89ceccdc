package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"carbonledger/internal/factors"
	"carbonledger/internal/store"
)

func (s *Server) handleScopes(w http.ResponseWriter, r *http.Request) {
	scopes := s.catalog.Scopes()
	out := make(map[string][]string, len(scopes))
	for _, scope := range scopes {
		out[scope] = s.catalog.CategoriesFor(scope)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"scopes":   scopes,
		"taxonomy": out,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if scope := r.URL.Query().Get("scope"); scope != "" {
		respondJSON(w, http.StatusOK, map[string]any{
			"scope":      scope,
			"categories": s.catalog.CategoriesFor(scope),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"categories": s.catalog.Categories(),
	})
}

// handleFactors returns either one category's activities or the whole table.
func (s *Server) handleFactors(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		activities := s.catalog.ActivitiesFor(category)
		out := make([]factors.SearchResult, 0, len(activities))
		for _, act := range activities {
			f, ok := s.catalog.Lookup(category, act)
			if !ok {
				continue
			}
			out = append(out, factors.SearchResult{
				Category: category, Activity: act, Factor: f.Factor, Unit: f.Unit,
			})
		}
		respondJSON(w, http.StatusOK, map[string]any{"factors": out})
		return
	}

	data, err := s.catalog.ExportJSON()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleFactorSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		respondError(w, http.StatusBadRequest, "missing search keyword 'q'")
		return
	}
	results := s.catalog.Search(keyword)
	if results == nil {
		results = []factors.SearchResult{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

type factorUpsertRequest struct {
	Category string  `json:"category"`
	Activity string  `json:"activity"`
	Factor   float64 `json:"factor"`
	Unit     string  `json:"unit"`
}

// handleFactorUpsert adds or overwrites a catalog factor and persists the
// override so it survives restarts.
func (s *Server) handleFactorUpsert(w http.ResponseWriter, r *http.Request) {
	var req factorUpsertRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := s.catalog.Upsert(req.Category, req.Activity, req.Factor, req.Unit); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.persistOverride(r.Context(), req)

	f, _ := s.catalog.Lookup(req.Category, req.Activity)
	respondJSON(w, http.StatusOK, factors.SearchResult{
		Category: req.Category, Activity: req.Activity, Factor: f.Factor, Unit: f.Unit,
	})
}

func (s *Server) persistOverride(ctx context.Context, req factorUpsertRequest) {
	if s.factorStore == nil {
		return
	}
	o := store.FactorOverride{
		Category: req.Category, Activity: req.Activity,
		Factor: req.Factor, Unit: req.Unit,
	}
	if err := s.factorStore.SaveFactorOverride(ctx, o); err != nil {
		// The in-memory catalog already has the value; only restart
		// durability is lost.
		slog.ErrorContext(ctx, "Failed to persist factor override",
			"category", req.Category, "activity", req.Activity, "error", err)
	}
}

type calculateRequest struct {
	Category string  `json:"category"`
	Activity string  `json:"activity"`
	Quantity float64 `json:"quantity"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	kg, err := s.catalog.Calculate(req.Category, req.Activity, req.Quantity)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	f, _ := s.catalog.Lookup(req.Category, req.Activity)
	respondJSON(w, http.StatusOK, map[string]any{
		"category":         req.Category,
		"activity":         req.Activity,
		"quantity":         req.Quantity,
		"unit":             f.Unit,
		"emission_factor":  f.Factor,
		"emissions_kgCO2e": kg,
	})
}

type aggregateRequest struct {
	Scope string                        `json:"scope"`
	Usage map[string]map[string]float64 `json:"usage"`
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	total, skipped := s.catalog.AggregateByScope(req.Scope, req.Usage)
	if skipped == nil {
		skipped = []factors.SkippedPair{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"scope":            req.Scope,
		"emissions_kgCO2e": total,
		"skipped":          skipped,
	})
}
