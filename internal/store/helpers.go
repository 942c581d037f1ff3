package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanCheckpoint scans a CheckpointRecord from sql.Rows.
func scanCheckpoint(rows *sql.Rows) (models.CheckpointRecord, error) {
	var cp models.CheckpointRecord
	var dataJSON sql.NullString
	err := rows.Scan(&cp.SessionID, &cp.Name, &cp.Status, &dataJSON, &cp.Timestamp)
	if err != nil {
		return cp, fmt.Errorf("scan checkpoint failed: %w", err)
	}
	if dataJSON.Valid && dataJSON.String != "" {
		cp.Data = make(map[string]interface{})
		if err := json.Unmarshal([]byte(dataJSON.String), &cp.Data); err != nil {
			// Continue with empty map rather than failing
			cp.Data = make(map[string]interface{})
		}
	}
	return cp, nil
}

// scanSubmission scans a SubmissionRecord from sql.Rows.
func scanSubmission(rows *sql.Rows) (models.SubmissionRecord, error) {
	var sub models.SubmissionRecord
	var payloadJSON string
	var subErr sql.NullString
	if err := rows.Scan(&sub.SessionID, &sub.ID, &sub.Outcome, &payloadJSON, &subErr, &sub.SubmittedAt); err != nil {
		return sub, fmt.Errorf("scan submission failed: %w", err)
	}
	sub.Error = subErr.String
	if err := json.Unmarshal([]byte(payloadJSON), &sub.Payload); err != nil {
		return sub, fmt.Errorf("failed to decode submission payload: %w", err)
	}
	return sub, nil
}

// scanSubmissionRow scans a SubmissionRecord from a single sql.Row.
func scanSubmissionRow(row *sql.Row) (*models.SubmissionRecord, error) {
	var sub models.SubmissionRecord
	var payloadJSON string
	var subErr sql.NullString
	err := row.Scan(&sub.SessionID, &sub.ID, &sub.Outcome, &payloadJSON, &subErr, &sub.SubmittedAt)
	if err != nil {
		return nil, err
	}
	sub.Error = subErr.String
	if err := json.Unmarshal([]byte(payloadJSON), &sub.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode submission payload: %w", err)
	}
	return &sub, nil
}
