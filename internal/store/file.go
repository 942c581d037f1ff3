// Package store provides storage backends for IntakeFlow.
//
// This file implements a JSON-file store: one set of files per session in a
// state directory. It is the durable client-side backend for hosts without a
// database, and mirrors the key/value snapshot storage the funnel originally
// ran against.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// FileStore persists records as JSON files under a state directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file store rooted at the configured directory,
// creating it if needed.
func NewFileStore(opts ...Option) (*FileStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.FilePath == "" {
		slog.Error("FileStore path not set")
		return nil, fmt.Errorf("file store path not set")
	}
	if err := os.MkdirAll(cfg.FilePath, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create file store directory", "error", err, "dir", cfg.FilePath)
		return nil, fmt.Errorf("failed to create file store directory: %w", err)
	}
	slog.Debug("FileStore initialized", "dir", cfg.FilePath)
	return &FileStore{dir: cfg.FilePath}, nil
}

func (s *FileStore) sessionPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".session.json")
}

func (s *FileStore) checkpointsPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".checkpoints.json")
}

func (s *FileStore) submissionPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".submission.json")
}

// writeJSON writes v atomically: temp file then rename, so a crash mid-write
// never leaves a truncated record behind.
func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func (s *FileStore) SaveSession(rec models.ResponseRecord) error {
	if rec.SessionID == "" {
		return models.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(s.sessionPath(rec.SessionID), rec); err != nil {
		slog.Error("FileStore SaveSession failed", "error", err, "sessionID", rec.SessionID)
		return err
	}
	slog.Debug("FileStore SaveSession succeeded", "sessionID", rec.SessionID, "currentStep", rec.CurrentStep)
	return nil
}

func (s *FileStore) GetSession(sessionID string) (*models.ResponseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rec models.ResponseRecord
	found, err := readJSON(s.sessionPath(sessionID), &rec)
	if err != nil {
		slog.Error("FileStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	if !found {
		slog.Debug("FileStore GetSession not found", "sessionID", sessionID)
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.sessionPath(sessionID)); err != nil && !os.IsNotExist(err) {
		slog.Error("FileStore DeleteSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	slog.Debug("FileStore DeleteSession succeeded", "sessionID", sessionID)
	return nil
}

func (s *FileStore) ListSessions() ([]models.ResponseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.session.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}
	sort.Strings(paths)
	var out []models.ResponseRecord
	for _, path := range paths {
		var rec models.ResponseRecord
		found, err := readJSON(path, &rec)
		if err != nil {
			// Skip damaged files so one corrupt record cannot hide the rest.
			slog.Warn("FileStore ListSessions skipping unreadable record", "error", err, "path", path)
			continue
		}
		if found {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *FileStore) AddCheckpoint(cp models.CheckpointRecord) error {
	if cp.SessionID == "" {
		return models.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var checkpoints []models.CheckpointRecord
	if _, err := readJSON(s.checkpointsPath(cp.SessionID), &checkpoints); err != nil {
		// A corrupt log starts over rather than blocking new checkpoints.
		slog.Warn("FileStore AddCheckpoint discarding unreadable log", "error", err, "sessionID", cp.SessionID)
		checkpoints = nil
	}
	checkpoints = append(checkpoints, cp)
	if err := writeJSON(s.checkpointsPath(cp.SessionID), checkpoints); err != nil {
		slog.Error("FileStore AddCheckpoint failed", "error", err, "sessionID", cp.SessionID, "name", cp.Name)
		return err
	}
	slog.Debug("FileStore AddCheckpoint succeeded", "sessionID", cp.SessionID, "name", cp.Name)
	return nil
}

func (s *FileStore) GetCheckpoints(sessionID string) ([]models.CheckpointRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var checkpoints []models.CheckpointRecord
	if _, err := readJSON(s.checkpointsPath(sessionID), &checkpoints); err != nil {
		slog.Error("FileStore GetCheckpoints failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return checkpoints, nil
}

func (s *FileStore) SaveSubmission(sub models.SubmissionRecord) error {
	if sub.SessionID == "" {
		return models.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(s.submissionPath(sub.SessionID), sub); err != nil {
		slog.Error("FileStore SaveSubmission failed", "error", err, "sessionID", sub.SessionID)
		return err
	}
	slog.Debug("FileStore SaveSubmission succeeded", "sessionID", sub.SessionID, "outcome", sub.Outcome)
	return nil
}

func (s *FileStore) GetSubmission(sessionID string) (*models.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sub models.SubmissionRecord
	found, err := readJSON(s.submissionPath(sessionID), &sub)
	if err != nil {
		slog.Error("FileStore GetSubmission failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &sub, nil
}

func (s *FileStore) ListSubmissions(outcome models.SubmissionOutcome) ([]models.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.submission.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list submission files: %w", err)
	}
	sort.Strings(paths)
	var out []models.SubmissionRecord
	for _, path := range paths {
		var sub models.SubmissionRecord
		found, err := readJSON(path, &sub)
		if err != nil {
			slog.Warn("FileStore ListSubmissions skipping unreadable record", "error", err, "path", path)
			continue
		}
		if !found {
			continue
		}
		if outcome != "" && sub.Outcome != outcome {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *FileStore) Close() error {
	return nil
}
