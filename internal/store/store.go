// Package store provides storage backends for IntakeFlow.
//
// It includes an in-memory store, a JSON-file store, and persistent SQLite
// and PostgreSQL stores. All backends implement the Store interface, which
// is the engine's pluggable persistence port: session snapshots, the
// append-only checkpoint log, and the terminal submission record.
package store

import (
	"sort"
	"sync"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// Store is the persistence port consumed by the session store, checkpoint
// sync client, and submission collector. Lookups return (nil, nil) when no
// record exists.
type Store interface {
	SaveSession(rec models.ResponseRecord) error
	GetSession(sessionID string) (*models.ResponseRecord, error)
	DeleteSession(sessionID string) error
	ListSessions() ([]models.ResponseRecord, error)

	AddCheckpoint(cp models.CheckpointRecord) error
	GetCheckpoints(sessionID string) ([]models.CheckpointRecord, error)

	SaveSubmission(sub models.SubmissionRecord) error
	GetSubmission(sessionID string) (*models.SubmissionRecord, error)
	// ListSubmissions returns submission records, filtered to one outcome
	// when outcome is non-empty.
	ListSubmissions(outcome models.SubmissionOutcome) ([]models.SubmissionRecord, error)

	Close() error
}

// InMemoryStore is a simple in-memory store used for tests and for hosts
// that do not need durability.
type InMemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]models.ResponseRecord
	checkpoints map[string][]models.CheckpointRecord
	submissions map[string]models.SubmissionRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:    make(map[string]models.ResponseRecord),
		checkpoints: make(map[string][]models.CheckpointRecord),
		submissions: make(map[string]models.SubmissionRecord),
	}
}

func (s *InMemoryStore) SaveSession(rec models.ResponseRecord) error {
	if rec.SessionID == "" {
		return models.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.SessionID] = cloneRecord(rec)
	return nil
}

func (s *InMemoryStore) GetSession(sessionID string) (*models.ResponseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (s *InMemoryStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *InMemoryStore) ListSessions() ([]models.ResponseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ResponseRecord, 0, len(s.sessions))
	for _, rec := range s.sessions {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (s *InMemoryStore) AddCheckpoint(cp models.CheckpointRecord) error {
	if cp.SessionID == "" {
		return models.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.SessionID] = append(s.checkpoints[cp.SessionID], cp)
	return nil
}

func (s *InMemoryStore) GetCheckpoints(sessionID string) ([]models.CheckpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cps := s.checkpoints[sessionID]
	out := make([]models.CheckpointRecord, len(cps))
	copy(out, cps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *InMemoryStore) SaveSubmission(sub models.SubmissionRecord) error {
	if sub.SessionID == "" {
		return models.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.SessionID] = sub
	return nil
}

func (s *InMemoryStore) GetSubmission(sessionID string) (*models.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[sessionID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *InMemoryStore) ListSubmissions(outcome models.SubmissionOutcome) ([]models.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SubmissionRecord
	for _, sub := range s.submissions {
		if outcome != "" && sub.Outcome != outcome {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

// cloneRecord deep-copies the mutable parts of a record so callers can't
// alias the store's copy.
func cloneRecord(rec models.ResponseRecord) models.ResponseRecord {
	out := rec
	out.CompletedSteps = append([]string(nil), rec.CompletedSteps...)
	out.Responses = make(map[string]interface{}, len(rec.Responses))
	for k, v := range rec.Responses {
		out.Responses[k] = v
	}
	return out
}
