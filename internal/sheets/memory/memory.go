// Package memory is an in-process RecordWriter for tests and for running
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"carbonledger/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.EmissionRecord
}

func New() *Store {
	return &Store{}
}

// AppendRecord stores the record and returns a synthetic row reference.
func (s *Store) AppendRecord(_ context.Context, r core.EmissionRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Records returns a snapshot of everything appended so far.
func (s *Store) Records() []core.EmissionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.EmissionRecord(nil), s.items...)
}
