package services

import (
	"context"
	"encoding/json"
	"fmt"

	"carbonledger/internal/advisor"
	"carbonledger/internal/core"
	"carbonledger/internal/ledger"
	"carbonledger/internal/summary"
)

// AdvisoryService builds model prompts from validated ledger aggregates.
// The model never sees raw free-text records beyond the description the
// user explicitly submits for classification.
type AdvisoryService struct {
	advisor *advisor.Client
	ledger  *ledger.Ledger
}

func NewAdvisoryService(a *advisor.Client, l *ledger.Ledger) *AdvisoryService {
	return &AdvisoryService{advisor: a, ledger: l}
}

// Available reports whether advisory endpoints can serve requests.
func (s *AdvisoryService) Available() bool {
	return s.advisor.Available()
}

// ClassifyEntry forwards a user-submitted activity description.
func (s *AdvisoryService) ClassifyEntry(ctx context.Context, description string) (string, error) {
	if description == "" {
		return "", fmt.Errorf("empty description")
	}
	return s.advisor.ClassifyEntry(ctx, description)
}

// SummarizeReport narrates the current emissions summary.
func (s *AdvisoryService) SummarizeReport(ctx context.Context) (string, error) {
	data, err := s.summaryJSON()
	if err != nil {
		return "", err
	}
	return s.advisor.SummarizeReport(ctx, data)
}

// AdviseOffsets recommends offsets sized to the company's total.
func (s *AdvisoryService) AdviseOffsets(ctx context.Context, profile core.CompanyProfile) (string, error) {
	total := summary.Summarize(s.ledger.Records()).Total
	return s.advisor.AdviseOffsets(ctx, total, profile.Location, profile.Industry)
}

// CheckRegulations surveys regulations for the company's markets.
func (s *AdvisoryService) CheckRegulations(ctx context.Context, profile core.CompanyProfile) (string, error) {
	return s.advisor.CheckRegulations(ctx, profile.Location, profile.Industry, profile.ExportMarkets)
}

// SuggestOptimizations proposes reductions from the current summary.
func (s *AdvisoryService) SuggestOptimizations(ctx context.Context) (string, error) {
	data, err := s.summaryJSON()
	if err != nil {
		return "", err
	}
	return s.advisor.SuggestOptimizations(ctx, data)
}

func (s *AdvisoryService) summaryJSON() (string, error) {
	sum := summary.Summarize(s.ledger.Records())
	data, err := json.Marshal(sum)
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	return string(data), nil
}
