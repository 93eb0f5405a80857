package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
)

// MemoryStorage implements records.Storage with an in-memory map. Records do
// not survive a restart; it backs tests and "backend: memory" deployments.
type MemoryStorage struct {
	records map[string]*records.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*records.Record),
	}
}

// Store saves a copy of the record.
func (s *MemoryStorage) Store(ctx context.Context, record *records.Record) error {
	if record == nil || record.ID == "" {
		return records.NewStorageError("memory", "store", fmt.Errorf("record ID is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return records.NewStorageError("memory", "store", fmt.Errorf("duplicate record ID %q", record.ID))
	}

	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, records.ErrRecordNotFound
	}
	recordCopy := *record
	return &recordCopy, nil
}

// Query retrieves records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *records.Query) ([]*records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*records.Record, 0)
	for _, record := range s.records {
		if query.Matches(record) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sortRecords(results, query.SortOrder)

	start := query.Offset
	if start > len(results) {
		return []*records.Record{}, nil
	}
	results = results[start:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}

	return results, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *records.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *records.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if query.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close drops all stored records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*records.Record)
	return nil
}

// sortRecords orders by ParsedAt, breaking ties on ID so results are stable.
func sortRecords(list []*records.Record, order string) {
	asc := order == records.SortAsc
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.ParsedAt.Equal(b.ParsedAt) {
			if asc {
				return a.ParsedAt.Before(b.ParsedAt)
			}
			return a.ParsedAt.After(b.ParsedAt)
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}
