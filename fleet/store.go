// Package fleet implements the canonical vessel-state store: a mapping
// from identity to record with last-writer-wins per field, guarded by
// the timestamp invariant, behind a single coarse exclusion.
package fleet

import (
	"sync"

	"github.com/projectqai/fleetwatch/geo"
	"github.com/projectqai/fleetwatch/vessel"
)

// Store holds every vessel's canonical record. The store exclusively owns
// every vessel.State; callers publish updates by Patch, never by mutable
// reference.
type Store struct {
	mu      sync.RWMutex
	records map[vessel.Id]*vessel.State
}

// New constructs an empty Store.
func New() *Store {
	return &Store{records: make(map[vessel.Id]*vessel.State)}
}

// UpsertFromMessage applies patch to the record for id, enforcing the
// timestamp monotonicity invariant: a patch whose Timestamp is older than
// the stored record's timestamp is dropped entirely. Returns the merged
// record, or nil if the patch was dropped.
func (s *Store) UpsertFromMessage(id vessel.Id, patch vessel.Patch) *vessel.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.records[id]
	if existing != nil && patch.Timestamp != nil && patch.Timestamp.Before(existing.Timestamp) {
		return nil
	}

	merged := vessel.Merge(existing, id, patch)
	merged.Course = geo.NormalizeCourse(merged.Course)
	if merged.Speed < 0 {
		merged.Speed = 0
	}
	s.records[id] = merged

	out := *merged
	return &out
}

// GetById returns a snapshot copy of the record for id, or nil if unknown.
func (s *Store) GetById(id vessel.Id) *vessel.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	out := *rec
	return &out
}

// SnapshotAll returns a consistent point-in-time copy of every record.
func (s *Store) SnapshotAll() []vessel.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]vessel.State, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out
}

// IterateByClassification returns a consistent snapshot of every record
// whose classification matches cls.
func (s *Store) IterateByClassification(cls vessel.Classification) []vessel.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vessel.State
	for _, rec := range s.records {
		if rec.Classification == cls {
			out = append(out, *rec)
		}
	}
	return out
}

// Count returns the number of cached vessel records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
