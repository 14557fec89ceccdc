// Package worker drains the sync queue, copying emission records from
// SQLite to the shared spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"carbonledger/internal/amqp"
	"carbonledger/internal/core"
	"carbonledger/internal/sheets"
	"carbonledger/internal/storage"
)

// RecordSource is what the worker needs from storage: record lookup plus
// the sync queue bookkeeping.
type RecordSource interface {
	GetRecord(ctx context.Context, id int64) (core.EmissionRecord, error)
	GetPendingSyncRecords(ctx context.Context, limit int) ([]storage.PendingSyncRecord, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

type SyncWorker struct {
	storage   RecordSource
	sheets    sheets.RecordWriter
	batchSize int
}

func NewSyncWorker(storage RecordSource, sheets sheets.RecordWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one queued record. The message carries only
// the ID, so the export always reflects the record's current state.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	record, err := w.storage.GetRecord(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get record from storage: %w", err)
	}

	if err := w.exportRecord(ctx, record); err != nil {
		return fmt.Errorf("export record: %w", err)
	}
	return nil
}

// StartupSyncCheck exports any records still pending at worker startup.
// This recovers from missed queue messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncRecords(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending records for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		record, err := w.storage.GetRecord(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get record for startup sync",
				"id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.exportRecord(ctx, record); err != nil {
			slog.ErrorContext(ctx, "Failed to export record during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

// ProcessPendingRecords exports records that missed their queue message.
// Called periodically as a backup mechanism.
func (w *SyncWorker) ProcessPendingRecords(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncRecords(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending records: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	for _, p := range pending {
		record, err := w.storage.GetRecord(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get record", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}
		if err := w.exportRecord(ctx, record); err != nil {
			slog.ErrorContext(ctx, "Failed to export record", "id", p.ID, "error", err)
			continue
		}
	}
	return nil
}

func (w *SyncWorker) exportRecord(ctx context.Context, record core.EmissionRecord) error {
	ref, err := w.sheets.AppendRecord(ctx, record)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, record.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", record.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, record.ID); err != nil {
		// The export itself worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", record.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully exported record",
		"id", record.ID,
		"sheets_ref", ref,
		"activity", record.Activity,
		"emissions_kg", record.EmissionsKg)

	return nil
}
