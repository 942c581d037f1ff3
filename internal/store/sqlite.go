// Package store provides storage backends for IntakeFlow.
//
// This file implements a SQLite-backed store for session snapshots,
// checkpoints, and submissions.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/IntakeFlow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveSession stores or replaces the full session record.
func (s *SQLiteStore) SaveSession(rec models.ResponseRecord) error {
	if rec.SessionID == "" {
		return models.ErrEmptySessionID
	}
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		slog.Error("SQLiteStore SaveSession marshal failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO sessions (session_id, record, updated_at) VALUES (?, ?, ?)`,
		rec.SessionID, string(recordJSON), rec.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to save session %s: %w", rec.SessionID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "sessionID", rec.SessionID, "currentStep", rec.CurrentStep)
	return nil
}

// GetSession retrieves the session record, or (nil, nil) when absent.
func (s *SQLiteStore) GetSession(sessionID string) (*models.ResponseRecord, error) {
	var recordJSON string
	err := s.db.QueryRow(`SELECT record FROM sessions WHERE session_id = ?`, sessionID).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}
	var rec models.ResponseRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		slog.Error("SQLiteStore GetSession unmarshal failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore GetSession found", "sessionID", sessionID, "currentStep", rec.CurrentStep)
	return &rec, nil
}

// DeleteSession removes the session record.
func (s *SQLiteStore) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore DeleteSession succeeded", "sessionID", sessionID)
	return nil
}

// ListSessions retrieves every stored session record.
func (s *SQLiteStore) ListSessions() ([]models.ResponseRecord, error) {
	rows, err := s.db.Query(`SELECT record FROM sessions ORDER BY session_id`)
	if err != nil {
		slog.Error("SQLiteStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []models.ResponseRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			slog.Error("SQLiteStore ListSessions scan failed", "error", err)
			return nil, fmt.Errorf("scan session failed: %w", err)
		}
		var rec models.ResponseRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			slog.Error("SQLiteStore ListSessions unmarshal failed", "error", err)
			return nil, fmt.Errorf("failed to decode session record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListSessions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("SQLiteStore ListSessions succeeded", "count", len(records))
	return records, nil
}

// AddCheckpoint appends one checkpoint record to the log.
func (s *SQLiteStore) AddCheckpoint(cp models.CheckpointRecord) error {
	if cp.SessionID == "" {
		return models.ErrEmptySessionID
	}
	var dataJSON string
	if len(cp.Data) > 0 {
		jsonBytes, err := json.Marshal(cp.Data)
		if err != nil {
			slog.Error("SQLiteStore AddCheckpoint marshal failed", "error", err, "sessionID", cp.SessionID)
			return fmt.Errorf("failed to marshal checkpoint data: %w", err)
		}
		dataJSON = string(jsonBytes)
	}
	_, err := s.db.Exec(`INSERT INTO checkpoints (session_id, checkpoint_name, status, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		cp.SessionID, cp.Name, cp.Status, nilIfEmpty(dataJSON), cp.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AddCheckpoint failed", "error", err, "sessionID", cp.SessionID, "name", cp.Name)
		return fmt.Errorf("failed to insert checkpoint %s: %w", cp.Name, err)
	}
	slog.Debug("SQLiteStore AddCheckpoint succeeded", "sessionID", cp.SessionID, "name", cp.Name, "status", cp.Status)
	return nil
}

// GetCheckpoints retrieves the checkpoint log for a session in insert order.
func (s *SQLiteStore) GetCheckpoints(sessionID string) ([]models.CheckpointRecord, error) {
	rows, err := s.db.Query(`SELECT session_id, checkpoint_name, status, data, created_at FROM checkpoints WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetCheckpoints query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []models.CheckpointRecord
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			slog.Error("SQLiteStore GetCheckpoints scan failed", "error", err, "sessionID", sessionID)
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetCheckpoints rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate checkpoint rows: %w", err)
	}
	slog.Debug("SQLiteStore GetCheckpoints succeeded", "sessionID", sessionID, "count", len(checkpoints))
	return checkpoints, nil
}

// SaveSubmission stores or replaces the terminal submission record.
func (s *SQLiteStore) SaveSubmission(sub models.SubmissionRecord) error {
	if sub.SessionID == "" {
		return models.ErrEmptySessionID
	}
	payloadJSON, err := json.Marshal(sub.Payload)
	if err != nil {
		slog.Error("SQLiteStore SaveSubmission marshal failed", "error", err, "sessionID", sub.SessionID)
		return fmt.Errorf("failed to marshal submission payload: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO submissions (session_id, submission_id, outcome, payload, error, submitted_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sub.SessionID, sub.ID, sub.Outcome, string(payloadJSON), nilIfEmpty(sub.Error), sub.SubmittedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSubmission failed", "error", err, "sessionID", sub.SessionID)
		return fmt.Errorf("failed to save submission for %s: %w", sub.SessionID, err)
	}
	slog.Debug("SQLiteStore SaveSubmission succeeded", "sessionID", sub.SessionID, "outcome", sub.Outcome)
	return nil
}

// GetSubmission retrieves the submission record, or (nil, nil) when absent.
func (s *SQLiteStore) GetSubmission(sessionID string) (*models.SubmissionRecord, error) {
	row := s.db.QueryRow(`SELECT session_id, submission_id, outcome, payload, error, submitted_at FROM submissions WHERE session_id = ?`, sessionID)
	sub, err := scanSubmissionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSubmission not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSubmission failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	slog.Debug("SQLiteStore GetSubmission found", "sessionID", sessionID, "outcome", sub.Outcome)
	return sub, nil
}

// ListSubmissions retrieves submission records, filtered to one outcome when
// outcome is non-empty.
func (s *SQLiteStore) ListSubmissions(outcome models.SubmissionOutcome) ([]models.SubmissionRecord, error) {
	query := `SELECT session_id, submission_id, outcome, payload, error, submitted_at FROM submissions ORDER BY session_id`
	args := []interface{}{}
	if outcome != "" {
		query = `SELECT session_id, submission_id, outcome, payload, error, submitted_at FROM submissions WHERE outcome = ? ORDER BY session_id`
		args = append(args, outcome)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListSubmissions query failed", "error", err, "outcome", outcome)
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.SubmissionRecord
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			slog.Error("SQLiteStore ListSubmissions scan failed", "error", err)
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListSubmissions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate submission rows: %w", err)
	}
	slog.Debug("SQLiteStore ListSubmissions succeeded", "count", len(subs), "outcome", outcome)
	return subs, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
