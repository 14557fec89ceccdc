// Package ledger owns the in-memory collection of emission records and the
// validation and calculation applied when records enter it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"carbonledger/internal/core"
	"carbonledger/internal/store"
)

// ErrSaveFailed wraps a persistence failure after an in-memory mutation.
// The mutation is kept: the ledger stays usable and the caller may retry
// the save.
var ErrSaveFailed = errors.New("ledger saved in memory but persistence failed")

// ErrNotFound is returned for edits or deletes of unknown record IDs.
var ErrNotFound = errors.New("record not found in ledger")

// FilterOptions narrow a read to a date range, scope and/or category.
// Zero values are no-ops; set filters compose with logical AND. Date
// bounds are inclusive.
type FilterOptions struct {
	Start    core.Date
	End      core.Date
	Scope    string
	Category string
}

// Ledger is the mutable, insertion-ordered record collection. All
// mutations are serialized by one mutex and persist through the store
// before the lock is released, so the durable copy never diverges
// mid-operation. Reads return copies and never expose internal state.
type Ledger struct {
	mu      sync.RWMutex
	records []core.EmissionRecord
	store   store.RecordStore
	nextID  int64 // fallback IDs when the store could not assign one
}

// Load builds a ledger backed by the given store, seeding it with the
// store's current contents. A load failure degrades to an empty ledger
// with a warning: startup never hard-fails because a prior save was
// corrupt or absent.
func Load(ctx context.Context, s store.RecordStore) *Ledger {
	l := &Ledger{store: s}
	records, err := s.List(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Could not load ledger, starting empty", "error", err)
		return l
	}
	l.records = records
	for _, r := range records {
		if r.ID >= l.nextID {
			l.nextID = r.ID + 1
		}
	}
	return l
}

// AddEntry validates a record, computes its derived emissions, appends it
// preserving insertion order, and persists it. Validation failures leave
// the ledger untouched; persistence failures keep the in-memory record
// and surface as ErrSaveFailed.
func (l *Ledger) AddEntry(ctx context.Context, r core.EmissionRecord) (core.EmissionRecord, error) {
	if err := r.Validate(); err != nil {
		return core.EmissionRecord{}, err
	}
	r.Recompute()

	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.store.Append(ctx, r)
	if err != nil {
		r.ID = l.fallbackID()
		l.records = append(l.records, r)
		slog.ErrorContext(ctx, "Failed to persist ledger entry",
			"activity", r.Activity, "scope", r.Scope, "error", err)
		return r, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	r.ID = id
	l.records = append(l.records, r)
	l.bumpID(id)
	return r, nil
}

// Import appends a pre-parsed batch to the existing ledger. The batch is
// all-or-nothing: every row is validated before any row is accepted, and
// rows keep their relative order. Returns the imported rows with their
// assigned IDs so callers can act on exactly this batch.
func (l *Ledger) Import(ctx context.Context, rows []core.EmissionRecord) ([]core.EmissionRecord, error) {
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	for i := range rows {
		rows[i].Recompute()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := l.store.AppendBatch(ctx, rows)
	if err != nil {
		for i := range rows {
			rows[i].ID = l.fallbackID()
		}
		l.records = append(l.records, rows...)
		slog.ErrorContext(ctx, "Failed to persist imported batch", "rows", len(rows), "error", err)
		return rows, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	for i := range rows {
		rows[i].ID = ids[i]
		l.bumpID(ids[i])
	}
	l.records = append(l.records, rows...)
	return rows, nil
}

// Update replaces the record with the same ID, recomputing its derived
// emissions. This is the only way a persisted record changes.
func (l *Ledger) Update(ctx context.Context, r core.EmissionRecord) (core.EmissionRecord, error) {
	if err := r.Validate(); err != nil {
		return core.EmissionRecord{}, err
	}
	r.Recompute()

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(r.ID)
	if idx < 0 {
		return core.EmissionRecord{}, ErrNotFound
	}
	l.records[idx] = r
	if err := l.store.Update(ctx, r); err != nil {
		slog.ErrorContext(ctx, "Failed to persist record update", "id", r.ID, "error", err)
		return r, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return r, nil
}

// Delete removes one record by ID. Records reference nothing else, so
// removal has no cascading effects.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}
	l.records = append(l.records[:idx], l.records[idx+1:]...)
	if err := l.store.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to persist record deletion", "id", id, "error", err)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

// Records returns a snapshot of every record in insertion order.
func (l *Ledger) Records() []core.EmissionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.EmissionRecord(nil), l.records...)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Filter returns the records matching the options, preserving their
// relative order. The result is a copy; filtering never mutates the
// ledger.
func (l *Ledger) Filter(opts FilterOptions) []core.EmissionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []core.EmissionRecord
	for _, r := range l.records {
		if !opts.Start.IsZero() && r.Date.Before(opts.Start.Time) {
			continue
		}
		if !opts.End.IsZero() && r.Date.After(opts.End.Time) {
			continue
		}
		if opts.Scope != "" && r.Scope != opts.Scope {
			continue
		}
		if opts.Category != "" && r.Category != opts.Category {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Get returns one record by ID.
func (l *Ledger) Get(id int64) (core.EmissionRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := l.indexOf(id)
	if idx < 0 {
		return core.EmissionRecord{}, false
	}
	return l.records[idx], true
}

func (l *Ledger) indexOf(id int64) int {
	for i, r := range l.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) fallbackID() int64 {
	l.nextID++
	return l.nextID
}

func (l *Ledger) bumpID(id int64) {
	if id >= l.nextID {
		l.nextID = id + 1
	}
}
