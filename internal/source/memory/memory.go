package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"metricsdash/internal/core"
)

// Store keeps records in process memory.
type Store struct {
	mu    sync.Mutex
	items []core.Record
}

// New creates a store holding copies of recs in date order.
func New(recs []core.Record) *Store {
	s := &Store{items: core.CloneRecords(recs)}
	sortByDate(s.items)
	return s
}

// NewFromFile seeds the store from a JSON file holding an array of records
// (or an object with a "data" array). Only an empty path falls back to the
// built-in sample dataset; a path that cannot be read is an error.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(core.SampleRecords()), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}
	recs, err := core.DecodeRecords(b)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return New(recs), nil
}

// FetchRecords returns copies of the stored records. The hint is ignored.
func (s *Store) FetchRecords(ctx context.Context, _ *core.DateRange) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CloneRecords(s.items), nil
}

// ReplaceAll swaps the stored records for recs. A dateless record fails
// the call with core.ErrMissingDate and leaves the store unchanged.
func (s *Store) ReplaceAll(_ context.Context, recs []core.Record) (int, error) {
	if err := core.ValidateDates(recs); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.items)
	s.items = core.CloneRecords(recs)
	sortByDate(s.items)
	return removed, nil
}

// Upsert adds recs, replacing stored records with the same date. Dateless
// records are rejected as in ReplaceAll.
func (s *Store) Upsert(_ context.Context, recs []core.Record) error {
	if err := core.ValidateDates(recs); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		replaced := false
		for i := range s.items {
			if s.items[i].Date.Equal(r.Date.Time) {
				s.items[i] = r.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			s.items = append(s.items, r.Clone())
		}
	}
	sortByDate(s.items)
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close is a no-op; the records live as long as the store.
func (s *Store) Close() error {
	return nil
}

func sortByDate(recs []core.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Date.Before(recs[j].Date.Time)
	})
}
