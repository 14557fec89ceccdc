package ledger

import (
	"context"
	"errors"
	"testing"

	"carbonledger/internal/core"
	"carbonledger/internal/store"
)

// stubStore is an in-memory RecordStore with failure injection.
type stubStore struct {
	records  []core.EmissionRecord
	nextID   int64
	failNext bool
	listErr  error
}

func (s *stubStore) List(context.Context) ([]core.EmissionRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]core.EmissionRecord(nil), s.records...), nil
}

func (s *stubStore) Append(_ context.Context, r core.EmissionRecord) (int64, error) {
	if s.failNext {
		s.failNext = false
		return 0, errors.New("disk full")
	}
	s.nextID++
	r.ID = s.nextID
	s.records = append(s.records, r)
	return r.ID, nil
}

func (s *stubStore) AppendBatch(ctx context.Context, rs []core.EmissionRecord) ([]int64, error) {
	if s.failNext {
		s.failNext = false
		return nil, errors.New("disk full")
	}
	ids := make([]int64, len(rs))
	for i, r := range rs {
		id, _ := s.Append(ctx, r)
		ids[i] = id
	}
	return ids, nil
}

func (s *stubStore) Update(_ context.Context, r core.EmissionRecord) error {
	for i := range s.records {
		if s.records[i].ID == r.ID {
			s.records[i] = r
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *stubStore) Delete(_ context.Context, id int64) error {
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func entry(day int, scope, category, activity string, quantity, factor float64) core.EmissionRecord {
	return core.EmissionRecord{
		Date:           core.NewDate(2025, 1, day),
		Scope:          scope,
		Category:       category,
		Activity:       activity,
		Quantity:       quantity,
		Unit:           "kWh",
		EmissionFactor: factor,
	}
}

func TestAddEntry(t *testing.T) {
	ctx := context.Background()
	l := Load(ctx, &stubStore{})

	saved, err := l.AddEntry(ctx, entry(10, core.Scope2, "Electricity", "India Grid", 1500, 0.82))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if saved.EmissionsKg != 1230.0 {
		t.Fatalf("expected derived 1230.0, got %v", saved.EmissionsKg)
	}
	if saved.ID == 0 {
		t.Fatal("expected assigned ID")
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", l.Len())
	}
}

func TestAddEntryRejectsNegativeQuantity(t *testing.T) {
	ctx := context.Background()
	l := Load(ctx, &stubStore{})

	_, err := l.AddEntry(ctx, entry(10, core.Scope2, "Electricity", "India Grid", -5, 0.82))
	if !errors.Is(err, core.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("ledger must be unchanged, got %d records", l.Len())
	}
}

func TestAddEntrySaveFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	s := &stubStore{}
	l := Load(ctx, s)
	s.failNext = true

	saved, err := l.AddEntry(ctx, entry(10, core.Scope2, "Electricity", "India Grid", 100, 0.82))
	if !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("expected ErrSaveFailed, got %v", err)
	}
	// In-memory mutation survives the failed save.
	if l.Len() != 1 {
		t.Fatalf("expected record kept in memory, got %d", l.Len())
	}
	if saved.EmissionsKg != 82.0 {
		t.Fatalf("derived field must still be computed: %v", saved.EmissionsKg)
	}
}

func TestLoadDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	l := Load(ctx, &stubStore{listErr: errors.New("corrupt file")})
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d", l.Len())
	}
	// Still usable after the failed load.
	if _, err := l.AddEntry(ctx, entry(1, core.Scope1, "Waste", "Landfill", 10, 0.45727)); err != nil {
		t.Fatalf("add after failed load: %v", err)
	}
}

func TestImportAtomicValidation(t *testing.T) {
	ctx := context.Background()
	l := Load(ctx, &stubStore{})

	rows := []core.EmissionRecord{
		entry(1, core.Scope1, "Waste", "Landfill", 10, 0.45727),
		entry(2, core.Scope2, "Electricity", "India Grid", -3, 0.82), // invalid
	}
	if _, err := l.Import(ctx, rows); err == nil {
		t.Fatal("expected validation error")
	}
	if l.Len() != 0 {
		t.Fatalf("failed import must leave ledger unchanged, got %d", l.Len())
	}

	rows[1].Quantity = 3
	imported, err := l.Import(ctx, rows)
	if err != nil || len(imported) != 2 {
		t.Fatalf("import: n=%d err=%v", len(imported), err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", l.Len())
	}
	// The returned rows carry the IDs the store assigned.
	for i, r := range imported {
		if r.ID == 0 {
			t.Fatalf("row %d missing assigned ID: %+v", i, r)
		}
		got, ok := l.Get(r.ID)
		if !ok || got.Activity != r.Activity {
			t.Fatalf("returned row %d not retrievable by ID %d", i, r.ID)
		}
	}
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	l := Load(ctx, &stubStore{})

	seed := []core.EmissionRecord{
		entry(5, core.Scope1, "Stationary Combustion", "Diesel", 10, 2.68787),
		entry(10, core.Scope2, "Electricity", "India Grid", 100, 0.82),
		entry(15, core.Scope2, "Steam", "Purchased Steam", 50, 0.19),
		entry(20, core.Scope3, "Waste", "Landfill", 5, 0.45727),
	}
	if _, err := l.Import(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Scope filter: pure projection, order preserved.
	got := l.Filter(FilterOptions{Scope: core.Scope2})
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	for _, r := range got {
		if r.Scope != core.Scope2 {
			t.Fatalf("non-matching record in result: %+v", r)
		}
	}
	if !got[0].Date.Before(got[1].Date.Time) {
		t.Fatal("relative order not preserved")
	}

	// Inclusive date bounds.
	got = l.Filter(FilterOptions{Start: core.NewDate(2025, 1, 10), End: core.NewDate(2025, 1, 15)})
	if len(got) != 2 {
		t.Fatalf("inclusive bounds expected 2, got %d", len(got))
	}

	// Filters compose with AND.
	got = l.Filter(FilterOptions{Scope: core.Scope2, Category: "Steam"})
	if len(got) != 1 || got[0].Activity != "Purchased Steam" {
		t.Fatalf("unexpected AND result: %+v", got)
	}

	// No filters: everything, and the result is a copy.
	all := l.Filter(FilterOptions{})
	if len(all) != 4 {
		t.Fatalf("expected 4, got %d", len(all))
	}
	all[0].Scope = "mutated"
	if l.Records()[0].Scope == "mutated" {
		t.Fatal("filter result must not alias ledger state")
	}
}

func TestUpdateRecomputes(t *testing.T) {
	ctx := context.Background()
	l := Load(ctx, &stubStore{})

	saved, err := l.AddEntry(ctx, entry(10, core.Scope2, "Electricity", "India Grid", 100, 0.82))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	saved.Quantity = 200
	updated, err := l.Update(ctx, saved)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.EmissionsKg != 164.0 {
		t.Fatalf("expected recomputed 164.0, got %v", updated.EmissionsKg)
	}

	missing := saved
	missing.ID = 999
	if _, err := l.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	l := Load(ctx, &stubStore{})

	saved, _ := l.AddEntry(ctx, entry(10, core.Scope2, "Electricity", "India Grid", 100, 0.82))
	if err := l.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d", l.Len())
	}
	if err := l.Delete(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
