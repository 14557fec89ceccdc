// Package filestore is the flat-file persistence adapter. Each dataset
// lives in one JSON document under the data directory, written atomically
// via a temp file and rename so a crash never leaves a half-written file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"carbonledger/internal/core"
	"carbonledger/internal/store"
)

const (
	recordsFile   = "emissions.json"
	profileFile   = "company_info.json"
	overridesFile = "factor_overrides.json"
)

// ErrNoProfile aliases the shared sentinel so callers of either backend
// can test for it the same way.
var ErrNoProfile = store.ErrNoProfile

// Store implements the record, profile and factor ports on top of JSON
// files. One mutex serializes file access across all three datasets; the
// volumes involved make finer locking pointless.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates the data directory if needed and returns a store rooted in
// it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// List returns every record in file order. A missing or corrupt file
// degrades to an empty dataset with a warning; the workbook stays usable
// and the next save rewrites the file.
func (s *Store) List(ctx context.Context) ([]core.EmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRecords(ctx)
}

// Append stores one record, assigning the next ID.
func (s *Store) Append(ctx context.Context, r core.EmissionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return 0, err
	}
	r.ID = nextID(records)
	records = append(records, r)
	if err := s.writeJSON(recordsFile, records); err != nil {
		return 0, err
	}
	return r.ID, nil
}

// AppendBatch stores records in one write, so a batch is all-or-nothing
// on disk.
func (s *Store) AppendBatch(ctx context.Context, rs []core.EmissionRecord) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rs))
	id := nextID(records)
	for i := range rs {
		rs[i].ID = id
		ids[i] = id
		id++
	}
	records = append(records, rs...)
	if err := s.writeJSON(recordsFile, records); err != nil {
		return nil, err
	}
	return ids, nil
}

// Update rewrites the file with the matching record replaced.
func (s *Store) Update(ctx context.Context, r core.EmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == r.ID {
			records[i] = r
			return s.writeJSON(recordsFile, records)
		}
	}
	return store.ErrNotFound
}

// Delete rewrites the file without the matching record.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == id {
			records = append(records[:i], records[i+1:]...)
			return s.writeJSON(recordsFile, records)
		}
	}
	return store.ErrNotFound
}

// LoadProfile reads the saved company profile.
func (s *Store) LoadProfile(ctx context.Context) (core.CompanyProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p core.CompanyProfile
	data, err := os.ReadFile(filepath.Join(s.dir, profileFile))
	if errors.Is(err, fs.ErrNotExist) {
		return p, ErrNoProfile
	}
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		slog.WarnContext(ctx, "Company profile file is corrupt, ignoring it", "error", err)
		return p, ErrNoProfile
	}
	return p, nil
}

// SaveProfile replaces the saved company profile.
func (s *Store) SaveProfile(_ context.Context, p core.CompanyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(profileFile, p)
}

// ListFactorOverrides reads the saved catalog customizations.
func (s *Store) ListFactorOverrides(ctx context.Context) ([]store.FactorOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOverrides(ctx)
}

// SaveFactorOverride upserts one override by category and activity.
func (s *Store) SaveFactorOverride(ctx context.Context, o store.FactorOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	overrides, err := s.loadOverrides(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range overrides {
		if overrides[i].Category == o.Category && overrides[i].Activity == o.Activity {
			overrides[i] = o
			replaced = true
			break
		}
	}
	if !replaced {
		overrides = append(overrides, o)
	}
	return s.writeJSON(overridesFile, overrides)
}

func (s *Store) loadOverrides(ctx context.Context) ([]store.FactorOverride, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, overridesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read factor overrides: %w", err)
	}
	var overrides []store.FactorOverride
	if err := json.Unmarshal(data, &overrides); err != nil {
		slog.WarnContext(ctx, "Factor overrides file is corrupt, ignoring it", "error", err)
		return nil, nil
	}
	return overrides, nil
}

func (s *Store) loadRecords(ctx context.Context) ([]core.EmissionRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, recordsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var records []core.EmissionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		slog.WarnContext(ctx, "Records file is corrupt, starting empty", "error", err)
		return nil, nil
	}
	return records, nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func nextID(records []core.EmissionRecord) int64 {
	var max int64
	for _, r := range records {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1
}
