package learner

import (
	"fmt"
	"sync"
)

// Store persists learner records.
type Store interface {
	// Save creates the record, replacing any existing record with the same ID.
	Save(rec *Record) error
	// Get returns a copy of the record or ErrNotFound.
	Get(id string) (*Record, error)
	// GetFresh is Get against the authoritative copy, skipping any cache.
	// Read-modify-write callers use it.
	GetFresh(id string) (*Record, error)
	// RecordAttempt appends an attempt and stores the settings and level that
	// resulted from grading it.
	RecordAttempt(id string, attempt Attempt, settings AdaptiveSettings, level string) error
	// LevelDistribution counts registered learners per current level.
	LevelDistribution() (map[string]int, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]*Record
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory learner store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

func (s *MemoryStore) Save(rec *Record) error {
	if rec == nil || rec.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.LearnerID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) GetFresh(id string) (*Record, error) {
	return s.Get(id)
}

func (s *MemoryStore) RecordAttempt(id string, attempt Attempt, settings AdaptiveSettings, level string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.Append(attempt)
	rec.Settings = settings
	rec.CurrentLevel = level
	return nil
}

func (s *MemoryStore) LevelDistribution() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	return LevelDistribution(records), nil
}
