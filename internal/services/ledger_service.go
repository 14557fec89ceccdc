// Package services orchestrates workbook operations across the ledger,
// persistence, the sync queue, and the advisory client.
package services

import (
	"context"
	"log/slog"

	"carbonledger/internal/core"
	"carbonledger/internal/ledger"
)

// SyncPublisher queues a record for asynchronous export.
type SyncPublisher interface {
	PublishRecordSync(ctx context.Context, id, version int64) error
}

// LedgerService pairs the ledger with the export queue. Saves are local
// first; a queue failure never fails the request.
type LedgerService struct {
	ledger    *ledger.Ledger
	publisher SyncPublisher
}

func NewLedgerService(l *ledger.Ledger, publisher SyncPublisher) *LedgerService {
	return &LedgerService{
		ledger:    l,
		publisher: publisher,
	}
}

// AddEntry records an emission entry and queues it for export.
func (s *LedgerService) AddEntry(ctx context.Context, r core.EmissionRecord) (core.EmissionRecord, error) {
	saved, err := s.ledger.AddEntry(ctx, r)
	if err != nil {
		return saved, err
	}

	s.publishSync(ctx, saved.ID, 1)
	return saved, nil
}

// Import records a batch and queues each row for export. Publishes come
// from the import result, never from a re-read of the ledger, so a write
// landing concurrently is not queued on this batch's behalf.
func (s *LedgerService) Import(ctx context.Context, rows []core.EmissionRecord) (int, error) {
	imported, err := s.ledger.Import(ctx, rows)
	if err != nil {
		return len(imported), err
	}

	for _, r := range imported {
		s.publishSync(ctx, r.ID, 1)
	}
	return len(imported), nil
}

// Update edits a record and re-queues it with a bumped version.
func (s *LedgerService) Update(ctx context.Context, r core.EmissionRecord) (core.EmissionRecord, error) {
	updated, err := s.ledger.Update(ctx, r)
	if err != nil {
		return updated, err
	}

	s.publishSync(ctx, updated.ID, 2)
	return updated, nil
}

// Delete removes a record. The export sheet is append-only, so deletions
// stay local.
func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	return s.ledger.Delete(ctx, id)
}

// Ledger exposes the underlying ledger for reads.
func (s *LedgerService) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *LedgerService) publishSync(ctx context.Context, id, version int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No sync publisher configured, skipping sync message")
		return
	}
	if err := s.publisher.PublishRecordSync(ctx, id, version); err != nil {
		// Record is saved locally; the worker's catch-up scan will find it.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}
}
