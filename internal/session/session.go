// Package session provides the response store: the single source of truth
// for one intake session.
//
// The store owns the ResponseRecord exclusively. Every mutating call updates
// the in-memory record, persists the full record through the storage port,
// and notifies subscribers, in that order, so a crash between steps never
// loses more than the in-flight write. Other components (checkpoint sync,
// submission) only ever read snapshots; they never write back into the
// record.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/models"
	"github.com/BTreeMap/IntakeFlow/internal/store"
)

// Listener receives a snapshot after every committed mutation.
type Listener func(rec models.ResponseRecord)

// Store holds one session's in-memory record and keeps it synchronized with
// durable storage.
type Store struct {
	mu        sync.Mutex
	record    models.ResponseRecord
	firstStep string
	persist   store.Store
	listeners map[int]Listener
	nextID    int
}

// Open creates the store for a session, restoring the persisted record when
// one exists. Corrupt or absent persisted data degrades to a fresh empty
// record; restoration never fails to the caller.
func Open(sessionID, firstStep string, persist store.Store) *Store {
	s := &Store{
		firstStep: firstStep,
		persist:   persist,
		listeners: make(map[int]Listener),
	}

	restored, err := persist.GetSession(sessionID)
	switch {
	case err != nil:
		slog.Warn("session.Open: persisted record unreadable, starting fresh", "error", err, "sessionID", sessionID)
		s.record = models.NewResponseRecord(sessionID, firstStep)
	case restored == nil:
		slog.Debug("session.Open: no persisted record, starting fresh", "sessionID", sessionID)
		s.record = models.NewResponseRecord(sessionID, firstStep)
	default:
		slog.Info("session.Open: restored persisted session", "sessionID", sessionID, "currentStep", restored.CurrentStep, "completed", len(restored.CompletedSteps))
		s.record = *restored
		if s.record.Responses == nil {
			s.record.Responses = make(map[string]interface{})
		}
		if s.record.CurrentStep == "" {
			s.record.CurrentStep = firstStep
		}
	}
	return s
}

// SessionID returns the stable session identifier.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.SessionID
}

// Get reads a single response value by storage key.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.record.Responses[key]
	return v, ok
}

// Snapshot returns a deep copy of the current record. Branch functions and
// collectors consume snapshots so they can never mutate the live record.
func (s *Store) Snapshot() models.ResponseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone()
}

// Set writes one response value and commits.
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	s.record.Responses[key] = value
	snapshot := s.commit()
	s.mu.Unlock()
	s.notify(snapshot)
}

// SetMany writes several response values in one commit.
func (s *Store) SetMany(partial map[string]interface{}) {
	if len(partial) == 0 {
		return
	}
	s.mu.Lock()
	for k, v := range partial {
		s.record.Responses[k] = v
	}
	snapshot := s.commit()
	s.mu.Unlock()
	s.notify(snapshot)
}

// MarkStepCompleted adds the step to the completed set and commits.
// Re-completing a step is a no-op on the set.
func (s *Store) MarkStepCompleted(stepID string) {
	s.mu.Lock()
	if !s.record.HasCompleted(stepID) {
		s.record.CompletedSteps = append(s.record.CompletedSteps, stepID)
	}
	snapshot := s.commit()
	s.mu.Unlock()
	s.notify(snapshot)
}

// SetCurrentStep moves the step pointer and commits.
func (s *Store) SetCurrentStep(stepID string) {
	s.mu.Lock()
	s.record.CurrentStep = stepID
	snapshot := s.commit()
	s.mu.Unlock()
	s.notify(snapshot)
}

// SetLanguage records the session display language and commits.
func (s *Store) SetLanguage(lang models.Language) {
	s.mu.Lock()
	s.record.Language = lang
	snapshot := s.commit()
	s.mu.Unlock()
	s.notify(snapshot)
}

// Language returns the session display language, defaulting to English.
func (s *Store) Language() models.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record.Language == "" {
		return models.LanguageEnglish
	}
	return s.record.Language
}

// Reset clears the in-memory record and the persisted copy. Used only after
// a confirmed terminal submission or an explicit start-over; the session id
// is retained so checkpoint and submission records stay correlated.
func (s *Store) Reset() {
	s.mu.Lock()
	sessionID := s.record.SessionID
	s.record = models.NewResponseRecord(sessionID, s.firstStep)
	if err := s.persist.DeleteSession(sessionID); err != nil {
		slog.Warn("session.Reset: failed to clear persisted record", "error", err, "sessionID", sessionID)
	}
	snapshot := s.clone()
	s.mu.Unlock()

	slog.Info("session.Reset: session cleared", "sessionID", sessionID)
	s.notify(snapshot)
}

// Subscribe registers a listener for committed mutations and returns an
// unsubscribe function.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// commit persists the record and returns a snapshot for notification.
// Persistence failures degrade to in-memory operation: the session keeps
// working and the failure is logged, never surfaced to the user path.
// Callers must hold s.mu.
func (s *Store) commit() models.ResponseRecord {
	s.record.UpdatedAt = time.Now()
	if err := s.persist.SaveSession(s.record); err != nil {
		slog.Error("session.commit: persist failed, continuing in memory", "error", err, "sessionID", s.record.SessionID)
	}
	return s.clone()
}

// clone deep-copies the record. Callers must hold s.mu.
func (s *Store) clone() models.ResponseRecord {
	out := s.record
	out.CompletedSteps = append([]string(nil), s.record.CompletedSteps...)
	out.Responses = make(map[string]interface{}, len(s.record.Responses))
	for k, v := range s.record.Responses {
		out.Responses[k] = v
	}
	return out
}

func (s *Store) notify(snapshot models.ResponseRecord) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(snapshot)
	}
}
