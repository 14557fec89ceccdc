package http

import (
	"errors"
	"fmt"
	"net/http"

	"carbonledger/internal/core"
	"carbonledger/internal/store"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.LoadProfile(r.Context())
	if errors.Is(err, store.ErrNoProfile) {
		respondError(w, http.StatusNotFound, "no company profile saved")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var profile core.CompanyProfile
	if err := decodeBody(r, &profile); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := profile.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.profiles.SaveProfile(r.Context(), profile); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
