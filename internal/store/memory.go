package store

import (
	"context"
	"sync"

	"keymint/internal/license"
)

// MemoryStore keeps the record list in process memory. Used by tests and by
// ephemeral deployments; the same mutex discipline as the file store applies.
type MemoryStore struct {
	mu      sync.Mutex
	records []license.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: []license.Record{}}
}

// Seed replaces the store contents. Test helper.
func (s *MemoryStore) Seed(records []license.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cloneRecords(records)
}

// LoadAll returns a copy of the current records.
func (s *MemoryStore) LoadAll(ctx context.Context) ([]license.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records), nil
}

// Update runs fn under the store mutex against a copy, committing only when
// fn reports a change.
func (s *MemoryStore) Update(ctx context.Context, fn license.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, dirty, err := fn(cloneRecords(s.records))
	if err != nil {
		return err
	}
	if dirty {
		s.records = updated
	}
	return nil
}

// cloneRecords deep-copies records so callers cannot alias store state.
func cloneRecords(records []license.Record) []license.Record {
	out := make([]license.Record, len(records))
	copy(out, records)
	for i := range out {
		devices := make([]string, len(out[i].Devices))
		copy(devices, out[i].Devices)
		out[i].Devices = devices
	}
	return out
}
