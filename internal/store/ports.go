// Package store declares the persistence ports of the ledger. Adapters
// live in internal/storage (SQLite) and internal/filestore (JSON files).
package store

import (
	"context"
	"errors"

	"carbonledger/internal/core"
	"carbonledger/internal/factors"
)

// ErrNotFound is returned when a record ID does not exist in the store.
var ErrNotFound = errors.New("record not found")

// ErrNoProfile is returned when no company profile has been saved yet.
var ErrNoProfile = errors.New("no company profile on file")

type (
	// RecordStore persists the ledger as an ordered list of flat records.
	RecordStore interface {
		// List returns every record in insertion order.
		List(ctx context.Context) ([]core.EmissionRecord, error)
		// Append stores one record and returns its assigned ID.
		Append(ctx context.Context, r core.EmissionRecord) (int64, error)
		// AppendBatch stores records atomically, returning assigned IDs.
		AppendBatch(ctx context.Context, rs []core.EmissionRecord) ([]int64, error)
		// Update replaces the stored record with the same ID.
		Update(ctx context.Context, r core.EmissionRecord) error
		// Delete removes a record by ID.
		Delete(ctx context.Context, id int64) error
	}

	// ProfileStore persists the single company profile.
	ProfileStore interface {
		LoadProfile(ctx context.Context) (core.CompanyProfile, error)
		SaveProfile(ctx context.Context, p core.CompanyProfile) error
	}

	// FactorOverride is one runtime customization of the factor catalog.
	FactorOverride struct {
		Category string  `json:"category"`
		Activity string  `json:"activity"`
		Factor   float64 `json:"factor"`
		Unit     string  `json:"unit"`
	}

	// FactorStore persists catalog overrides so upserted factors survive
	// a restart.
	FactorStore interface {
		ListFactorOverrides(ctx context.Context) ([]FactorOverride, error)
		SaveFactorOverride(ctx context.Context, o FactorOverride) error
	}
)

// ApplyOverrides replays stored overrides onto a catalog. Invalid rows are
// skipped; the count of applied overrides is returned.
func ApplyOverrides(c *factors.Catalog, overrides []FactorOverride) int {
	applied := 0
	for _, o := range overrides {
		if err := c.Upsert(o.Category, o.Activity, o.Factor, o.Unit); err == nil {
			applied++
		}
	}
	return applied
}
