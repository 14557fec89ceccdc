package worker

import (
	"context"
	"errors"
	"testing"

	"carbonledger/internal/amqp"
	"carbonledger/internal/core"
	"carbonledger/internal/sheets/memory"
	"carbonledger/internal/storage"
	"carbonledger/internal/store"
)

type fakeSource struct {
	records map[int64]core.EmissionRecord
	pending []storage.PendingSyncRecord
	synced  []int64
	errored []int64
}

func (f *fakeSource) GetRecord(_ context.Context, id int64) (core.EmissionRecord, error) {
	r, ok := f.records[id]
	if !ok {
		return core.EmissionRecord{}, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeSource) GetPendingSyncRecords(_ context.Context, limit int) ([]storage.PendingSyncRecord, error) {
	if limit < len(f.pending) {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeSource) MarkSynced(_ context.Context, id int64) error {
	f.synced = append(f.synced, id)
	return nil
}

func (f *fakeSource) MarkSyncError(_ context.Context, id int64) error {
	f.errored = append(f.errored, id)
	return nil
}

type failingWriter struct{}

func (failingWriter) AppendRecord(context.Context, core.EmissionRecord) (string, error) {
	return "", errors.New("sheets unavailable")
}

func sampleRecord(id int64) core.EmissionRecord {
	r := core.EmissionRecord{
		ID:             id,
		Date:           core.NewDate(2025, 1, 10),
		Scope:          core.Scope2,
		Category:       "Electricity",
		Activity:       "India Grid",
		Quantity:       1500,
		Unit:           "kWh",
		EmissionFactor: 0.82,
	}
	r.Recompute()
	return r
}

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{records: map[int64]core.EmissionRecord{42: sampleRecord(42)}}
	sink := memory.New()
	w := NewSyncWorker(source, sink, 10)

	if err := w.HandleSyncMessage(ctx, amqp.NewRecordSyncMessage(42, 1)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := sink.Records(); len(got) != 1 || got[0].ID != 42 {
		t.Fatalf("record not exported: %+v", got)
	}
	if len(source.synced) != 1 || source.synced[0] != 42 {
		t.Fatalf("record not marked synced: %v", source.synced)
	}
}

func TestHandleSyncMessageMissingRecord(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{records: map[int64]core.EmissionRecord{}}
	w := NewSyncWorker(source, memory.New(), 10)

	err := w.HandleSyncMessage(ctx, amqp.NewRecordSyncMessage(99, 1))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHandleSyncMessageExportFailure(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{records: map[int64]core.EmissionRecord{42: sampleRecord(42)}}
	w := NewSyncWorker(source, failingWriter{}, 10)

	if err := w.HandleSyncMessage(ctx, amqp.NewRecordSyncMessage(42, 1)); err == nil {
		t.Fatal("expected export error")
	}
	if len(source.errored) != 1 || source.errored[0] != 42 {
		t.Fatalf("record not marked errored: %v", source.errored)
	}
	if len(source.synced) != 0 {
		t.Fatalf("failed export must not mark synced: %v", source.synced)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{
		records: map[int64]core.EmissionRecord{
			1: sampleRecord(1),
			2: sampleRecord(2),
		},
		pending: []storage.PendingSyncRecord{
			{ID: 1, Version: 1},
			{ID: 2, Version: 1},
			{ID: 3, Version: 1}, // missing from storage
		},
	}
	sink := memory.New()
	w := NewSyncWorker(source, sink, 10)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if got := sink.Records(); len(got) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(got))
	}
	if len(source.errored) != 1 || source.errored[0] != 3 {
		t.Fatalf("missing record must be marked errored: %v", source.errored)
	}
}

func TestStartupSyncCheckNothingPending(t *testing.T) {
	source := &fakeSource{records: map[int64]core.EmissionRecord{}}
	w := NewSyncWorker(source, memory.New(), 10)
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("startup check: %v", err)
	}
}
