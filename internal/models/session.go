// Package models defines session record structures for IntakeFlow.
package models

import "time"

// ResponseRecord is the session-wide record owned by the response store: the
// map of answered storage keys to values, the completed step set, and the
// current step pointer. The session id is generated once per session and is
// stable across reloads.
type ResponseRecord struct {
	SessionID      string                 `json:"session_id"`
	Language       Language               `json:"language,omitempty"`
	CurrentStep    string                 `json:"current_step"`
	CompletedSteps []string               `json:"completed_steps"`
	Responses      map[string]interface{} `json:"responses"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NewResponseRecord creates an empty record for a fresh session.
func NewResponseRecord(sessionID, firstStep string) ResponseRecord {
	now := time.Now()
	return ResponseRecord{
		SessionID:      sessionID,
		CurrentStep:    firstStep,
		CompletedSteps: []string{},
		Responses:      make(map[string]interface{}),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasCompleted reports whether the given step id is in the completed set.
func (r ResponseRecord) HasCompleted(stepID string) bool {
	for _, id := range r.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// CheckpointStatus classifies a checkpoint record.
type CheckpointStatus string

const (
	// CheckpointStatusPartial marks an in-progress milestone snapshot.
	CheckpointStatusPartial CheckpointStatus = "partial"
	// CheckpointStatusComplete marks a snapshot taken after the data-collection
	// portion of the funnel finished.
	CheckpointStatusComplete CheckpointStatus = "complete"
	// CheckpointStatusQualified marks the terminal qualification snapshot.
	CheckpointStatusQualified CheckpointStatus = "qualified"
)

// CheckpointRecord is an immutable append-only progress snapshot. Records are
// created at named milestones and never mutated; they accumulate for
// audit/debug purposes.
type CheckpointRecord struct {
	SessionID string                 `json:"session_id"`
	Name      string                 `json:"checkpoint_name"`
	Status    CheckpointStatus       `json:"status"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// SubmissionOutcome classifies the terminal submission attempt.
type SubmissionOutcome string

const (
	// SubmissionSuccess means the remote collaborator accepted the payload.
	SubmissionSuccess SubmissionOutcome = "success"
	// SubmissionFailed means the remote rejected the payload.
	SubmissionFailed SubmissionOutcome = "failed"
	// SubmissionPendingRetry means the send did not complete and the payload
	// is retained for a future manual retry.
	SubmissionPendingRetry SubmissionOutcome = "pending-retry"
)

// SubmissionRecord is the one terminal record per session. ID is
// remote-issued on success and session-derived on failure, so the user-facing
// flow is never blocked on backend availability.
type SubmissionRecord struct {
	SessionID   string            `json:"session_id"`
	ID          string            `json:"id"`
	Outcome     SubmissionOutcome `json:"outcome"`
	Payload     SubmissionPayload `json:"payload"`
	Error       string            `json:"error,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
}
