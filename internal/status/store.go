// Package status keeps the latest status fields for each category.
package status

import (
	"sync"

	"github.com/SteelMorgan/lpreserver-watcher/internal/domain"
)

// Store holds one record per category. Records are only ever overwritten,
// never cleared.
type Store struct {
	mu      sync.RWMutex
	records map[domain.Category]domain.Fields
}

// NewStore creates an empty store with a record for every category
func NewStore() *Store {
	records := make(map[domain.Category]domain.Fields, len(domain.Categories))
	for _, c := range domain.Categories {
		records[c] = make(domain.Fields)
	}
	return &Store{records: records}
}

// Apply writes all given fields of one event under a single lock, so readers
// never observe half of an update.
func (s *Store) Apply(event domain.StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[event.Category]
	if !ok {
		return
	}
	for f, v := range event.Fields {
		record[f] = v
	}
}

// Get returns the values of the requested fields for category, positionally
// aligned with fieldNames. Unknown categories, unknown fields and unset fields
// yield "". Names are matched case-insensitively.
func (s *Store) Get(category string, fieldNames []string) []string {
	out := make([]string, len(fieldNames))

	c, ok := domain.ParseCategory(category)
	if !ok {
		return out
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record := s.records[c]
	for i, name := range fieldNames {
		if f, ok := domain.ParseField(name); ok {
			out[i] = record[f]
		}
	}
	return out
}

// Snapshot returns a deep copy of every non-empty record
func (s *Store) Snapshot() map[domain.Category]domain.Fields {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.Category]domain.Fields, len(s.records))
	for c, record := range s.records {
		if len(record) == 0 {
			continue
		}
		cp := make(domain.Fields, len(record))
		for f, v := range record {
			cp[f] = v
		}
		out[c] = cp
	}
	return out
}

// Restore applies a previously taken snapshot
func (s *Store) Restore(snapshot map[domain.Category]domain.Fields) {
	for c, fields := range snapshot {
		s.Apply(domain.StatusEvent{Category: c, Fields: fields})
	}
}
