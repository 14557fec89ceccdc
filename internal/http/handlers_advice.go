package http

import (
	"errors"
	"fmt"
	"net/http"

	"carbonledger/internal/advisor"
	"carbonledger/internal/core"
	"carbonledger/internal/store"
)

type adviceResponse struct {
	Advice string `json:"advice"`
}

// requireAdvisor gates advisory endpoints on a configured model client.
func (s *Server) requireAdvisor(w http.ResponseWriter) bool {
	if s.advisory == nil || !s.advisory.Available() {
		respondError(w, http.StatusServiceUnavailable,
			"advisory features are not configured; set GROQ_API_KEY")
		return false
	}
	return true
}

func (s *Server) respondAdvice(w http.ResponseWriter, advice string, err error) {
	if errors.Is(err, advisor.ErrUnavailable) {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, adviceResponse{Advice: advice})
}

type classifyRequest struct {
	Description string `json:"description"`
}

func (s *Server) handleAdviceClassify(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdvisor(w) {
		return
	}
	var req classifyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Description == "" {
		respondError(w, http.StatusBadRequest, "missing activity description")
		return
	}
	advice, err := s.advisory.ClassifyEntry(r.Context(), req.Description)
	s.respondAdvice(w, advice, err)
}

func (s *Server) handleAdviceSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdvisor(w) {
		return
	}
	advice, err := s.advisory.SummarizeReport(r.Context())
	s.respondAdvice(w, advice, err)
}

func (s *Server) handleAdviceOffsets(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdvisor(w) {
		return
	}
	profile, ok := s.loadProfileForAdvice(w, r)
	if !ok {
		return
	}
	advice, err := s.advisory.AdviseOffsets(r.Context(), profile)
	s.respondAdvice(w, advice, err)
}

func (s *Server) handleAdviceRegulations(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdvisor(w) {
		return
	}
	profile, ok := s.loadProfileForAdvice(w, r)
	if !ok {
		return
	}
	advice, err := s.advisory.CheckRegulations(r.Context(), profile)
	s.respondAdvice(w, advice, err)
}

func (s *Server) handleAdviceOptimize(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdvisor(w) {
		return
	}
	advice, err := s.advisory.SuggestOptimizations(r.Context())
	s.respondAdvice(w, advice, err)
}

// loadProfileForAdvice fetches the company profile; offset and regulation
// prompts are meaningless without one.
func (s *Server) loadProfileForAdvice(w http.ResponseWriter, r *http.Request) (core.CompanyProfile, bool) {
	profile, err := s.profiles.LoadProfile(r.Context())
	if errors.Is(err, store.ErrNoProfile) {
		respondError(w, http.StatusPreconditionFailed,
			"save a company profile before requesting this advice")
		return core.CompanyProfile{}, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return core.CompanyProfile{}, false
	}
	return profile, true
}
