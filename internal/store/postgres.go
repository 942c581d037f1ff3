// Package store provides storage backends for IntakeFlow.
//
// This file implements a PostgreSQL-backed store for session snapshots,
// checkpoints, and submissions.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/IntakeFlow/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveSession stores or replaces the full session record.
func (s *PostgresStore) SaveSession(rec models.ResponseRecord) error {
	if rec.SessionID == "" {
		return models.ErrEmptySessionID
	}
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		slog.Error("PostgresStore SaveSession marshal failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (session_id, record, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`,
		rec.SessionID, string(recordJSON), rec.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to save session %s: %w", rec.SessionID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "sessionID", rec.SessionID, "currentStep", rec.CurrentStep)
	return nil
}

// GetSession retrieves the session record, or (nil, nil) when absent.
func (s *PostgresStore) GetSession(sessionID string) (*models.ResponseRecord, error) {
	var recordJSON string
	err := s.db.QueryRow(`SELECT record FROM sessions WHERE session_id = $1`, sessionID).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}
	var rec models.ResponseRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		slog.Error("PostgresStore GetSession unmarshal failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &rec, nil
}

// DeleteSession removes the session record.
func (s *PostgresStore) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	slog.Debug("PostgresStore DeleteSession succeeded", "sessionID", sessionID)
	return nil
}

// ListSessions retrieves every stored session record.
func (s *PostgresStore) ListSessions() ([]models.ResponseRecord, error) {
	rows, err := s.db.Query(`SELECT record FROM sessions ORDER BY session_id`)
	if err != nil {
		slog.Error("PostgresStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []models.ResponseRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			slog.Error("PostgresStore ListSessions scan failed", "error", err)
			return nil, fmt.Errorf("scan session failed: %w", err)
		}
		var rec models.ResponseRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			slog.Error("PostgresStore ListSessions unmarshal failed", "error", err)
			return nil, fmt.Errorf("failed to decode session record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListSessions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return records, nil
}

// AddCheckpoint appends one checkpoint record to the log.
func (s *PostgresStore) AddCheckpoint(cp models.CheckpointRecord) error {
	if cp.SessionID == "" {
		return models.ErrEmptySessionID
	}
	var dataJSON string
	if len(cp.Data) > 0 {
		jsonBytes, err := json.Marshal(cp.Data)
		if err != nil {
			slog.Error("PostgresStore AddCheckpoint marshal failed", "error", err, "sessionID", cp.SessionID)
			return fmt.Errorf("failed to marshal checkpoint data: %w", err)
		}
		dataJSON = string(jsonBytes)
	}
	_, err := s.db.Exec(`INSERT INTO checkpoints (session_id, checkpoint_name, status, data, created_at) VALUES ($1, $2, $3, $4, $5)`,
		cp.SessionID, cp.Name, cp.Status, nilIfEmpty(dataJSON), cp.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AddCheckpoint failed", "error", err, "sessionID", cp.SessionID, "name", cp.Name)
		return fmt.Errorf("failed to insert checkpoint %s: %w", cp.Name, err)
	}
	slog.Debug("PostgresStore AddCheckpoint succeeded", "sessionID", cp.SessionID, "name", cp.Name, "status", cp.Status)
	return nil
}

// GetCheckpoints retrieves the checkpoint log for a session in insert order.
func (s *PostgresStore) GetCheckpoints(sessionID string) ([]models.CheckpointRecord, error) {
	rows, err := s.db.Query(`SELECT session_id, checkpoint_name, status, data, created_at FROM checkpoints WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetCheckpoints query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []models.CheckpointRecord
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			slog.Error("PostgresStore GetCheckpoints scan failed", "error", err, "sessionID", sessionID)
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetCheckpoints rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate checkpoint rows: %w", err)
	}
	slog.Debug("PostgresStore GetCheckpoints succeeded", "sessionID", sessionID, "count", len(checkpoints))
	return checkpoints, nil
}

// SaveSubmission stores or replaces the terminal submission record.
func (s *PostgresStore) SaveSubmission(sub models.SubmissionRecord) error {
	if sub.SessionID == "" {
		return models.ErrEmptySessionID
	}
	payloadJSON, err := json.Marshal(sub.Payload)
	if err != nil {
		slog.Error("PostgresStore SaveSubmission marshal failed", "error", err, "sessionID", sub.SessionID)
		return fmt.Errorf("failed to marshal submission payload: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO submissions (session_id, submission_id, outcome, payload, error, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			submission_id = EXCLUDED.submission_id,
			outcome = EXCLUDED.outcome,
			payload = EXCLUDED.payload,
			error = EXCLUDED.error,
			submitted_at = EXCLUDED.submitted_at`,
		sub.SessionID, sub.ID, sub.Outcome, string(payloadJSON), nilIfEmpty(sub.Error), sub.SubmittedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSubmission failed", "error", err, "sessionID", sub.SessionID)
		return fmt.Errorf("failed to save submission for %s: %w", sub.SessionID, err)
	}
	slog.Debug("PostgresStore SaveSubmission succeeded", "sessionID", sub.SessionID, "outcome", sub.Outcome)
	return nil
}

// GetSubmission retrieves the submission record, or (nil, nil) when absent.
func (s *PostgresStore) GetSubmission(sessionID string) (*models.SubmissionRecord, error) {
	row := s.db.QueryRow(`SELECT session_id, submission_id, outcome, payload, error, submitted_at FROM submissions WHERE session_id = $1`, sessionID)
	sub, err := scanSubmissionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSubmission not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSubmission failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return sub, nil
}

// ListSubmissions retrieves submission records, filtered to one outcome when
// outcome is non-empty.
func (s *PostgresStore) ListSubmissions(outcome models.SubmissionOutcome) ([]models.SubmissionRecord, error) {
	query := `SELECT session_id, submission_id, outcome, payload, error, submitted_at FROM submissions ORDER BY session_id`
	args := []interface{}{}
	if outcome != "" {
		query = `SELECT session_id, submission_id, outcome, payload, error, submitted_at FROM submissions WHERE outcome = $1 ORDER BY session_id`
		args = append(args, outcome)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListSubmissions query failed", "error", err, "outcome", outcome)
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.SubmissionRecord
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			slog.Error("PostgresStore ListSubmissions scan failed", "error", err)
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListSubmissions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate submission rows: %w", err)
	}
	return subs, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
