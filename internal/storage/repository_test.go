package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"carbonledger/internal/core"
	"carbonledger/internal/store"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "carbonledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleRecord() core.EmissionRecord {
	r := core.EmissionRecord{
		Date:           core.NewDate(2025, 1, 10),
		Scope:          core.Scope2,
		Category:       "Electricity",
		Activity:       "India Grid",
		Quantity:       1500,
		Unit:           "kWh",
		EmissionFactor: 0.82,
		Notes:          "monthly bill",
	}
	r.Recompute()
	return r
}

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	id, err := repo.Append(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id == 0 {
		t.Fatal("expected assigned ID")
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.ID != id || got.Activity != "India Grid" || got.EmissionsKg != 1230.0 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Date.String() != "2025-01-10" {
		t.Fatalf("date round trip mismatch: %s", got.Date)
	}
}

func TestAppendBatchTransactional(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	batch := []core.EmissionRecord{sampleRecord(), sampleRecord(), sampleRecord()}
	ids, err := repo.AppendBatch(ctx, batch)
	if err != nil {
		t.Fatalf("append batch: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %v", ids)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not increasing: %v", ids)
		}
	}
}

func TestUpdateBumpsSyncState(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	id, _ := repo.Append(ctx, sampleRecord())
	if err := repo.MarkSynced(ctx, id); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, _ := repo.GetPendingSyncRecords(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending records after sync, got %d", len(pending))
	}

	rec := sampleRecord()
	rec.ID = id
	rec.Quantity = 2000
	rec.Recompute()
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	// An edit re-queues the record for export with a bumped version.
	pending, err := repo.GetPendingSyncRecords(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("expected record re-queued, got %+v", pending)
	}
	if pending[0].Version != 2 {
		t.Fatalf("expected version 2, got %d", pending[0].Version)
	}
}

func TestUpdateAndDeleteUnknownID(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	rec := sampleRecord()
	rec.ID = 42
	if err := repo.Update(ctx, rec); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRecord(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	id, _ := repo.Append(ctx, sampleRecord())
	rec, err := repo.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.Activity != "India Grid" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, err := repo.GetRecord(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncErrorExcludedFromPending(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	id, _ := repo.Append(ctx, sampleRecord())
	if err := repo.MarkSyncError(ctx, id); err != nil {
		t.Fatalf("mark sync error: %v", err)
	}
	pending, _ := repo.GetPendingSyncRecords(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("errored record must not be retried by the catch-up scan: %+v", pending)
	}
}

func TestProfileSingleton(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	if _, err := repo.LoadProfile(ctx); !errors.Is(err, store.ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile before save, got %v", err)
	}

	p := core.CompanyProfile{
		Name:          "Acme Textiles",
		Industry:      "Textile Manufacturing",
		Location:      "Tiruppur, India",
		ExportMarkets: []string{"EU", "USA"},
		ReportingYear: 2025,
	}
	if err := repo.SaveProfile(ctx, p); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	p.Location = "Coimbatore, India"
	if err := repo.SaveProfile(ctx, p); err != nil {
		t.Fatalf("second save must upsert: %v", err)
	}

	got, err := repo.LoadProfile(ctx)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if got.Location != "Coimbatore, India" || len(got.ExportMarkets) != 2 {
		t.Fatalf("profile mismatch: %+v", got)
	}
}

func TestFactorOverrideUpsert(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	o := store.FactorOverride{Category: "Electricity", Activity: "India Grid", Factor: 0.79, Unit: "kWh"}
	if err := repo.SaveFactorOverride(ctx, o); err != nil {
		t.Fatalf("save override: %v", err)
	}
	o.Factor = 0.75
	if err := repo.SaveFactorOverride(ctx, o); err != nil {
		t.Fatalf("upsert override: %v", err)
	}

	overrides, err := repo.ListFactorOverrides(ctx)
	if err != nil {
		t.Fatalf("list overrides: %v", err)
	}
	if len(overrides) != 1 || overrides[0].Factor != 0.75 {
		t.Fatalf("unexpected overrides: %+v", overrides)
	}
}
