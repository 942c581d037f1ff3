// Package submission gathers the entire response store into one canonical
// payload and performs the single terminal submission that creates the
// durable patient record.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/catalog"
	"github.com/BTreeMap/IntakeFlow/internal/i18n"
	"github.com/BTreeMap/IntakeFlow/internal/models"
	"github.com/BTreeMap/IntakeFlow/internal/store"
)

// DefaultTimeout bounds the outbound submission call.
const DefaultTimeout = 15 * time.Second

// Opts holds configuration options for the collector.
type Opts struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Option defines a configuration option for the collector.
type Option func(*Opts)

// WithEndpoint sets the record-creation endpoint URL.
func WithEndpoint(url string) Option {
	return func(o *Opts) { o.Endpoint = url }
}

// WithTimeout overrides the submission timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithHTTPClient injects an HTTP client (used by tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Result reports the outcome of a submission attempt. ID is always
// non-empty: remote-issued on success, session-derived otherwise, so the
// caller can always proceed to the terminal screen.
type Result struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error,omitempty"`
}

// remoteResponse is the record-creation collaborator's reply shape.
type remoteResponse struct {
	Success  bool   `json:"success"`
	RecordID string `json:"recordId"`
}

// Collector assembles and submits the terminal payload. It only ever reads
// snapshots from the response store; the store's record is owned elsewhere.
type Collector struct {
	store      store.Store
	endpoint   string
	httpClient *http.Client
}

// NewCollector creates a collector backed by the given store.
func NewCollector(st store.Store, opts ...Option) *Collector {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	slog.Debug("submission.NewCollector: created", "endpoint_set", cfg.Endpoint != "")
	return &Collector{
		store:      st,
		endpoint:   cfg.Endpoint,
		httpClient: httpClient,
	}
}

// Collect walks a response snapshot and assembles the nested payload,
// normalizing every enumerated or localized answer into canonical English.
// BMI is computed here from the current weight and height answers, never
// trusted from an earlier cached display value.
func Collect(snapshot models.ResponseRecord, checkpoints []string) models.SubmissionPayload {
	responses := snapshot.Responses
	str := func(key string) string {
		s, _ := responses[key].(string)
		return s
	}

	weight := toFloat(responses[catalog.KeyWeightLbs])
	heightInches := toFloat(responses[catalog.KeyHeightFeet])*12 + toFloat(responses[catalog.KeyHeightInches])
	decision := Evaluate(responses)
	if checkpoints == nil {
		checkpoints = []string{}
	}

	return models.SubmissionPayload{
		PersonalInfo: models.PersonalInfo{
			FirstName: str(catalog.KeyFirstName),
			LastName:  str(catalog.KeyLastName),
			Email:     str(catalog.KeyEmail),
			Phone:     str(catalog.KeyPhone),
		},
		Address: models.Address{
			Line1: str(catalog.KeyAddressLine1),
			Line2: str(catalog.KeyAddressLine2),
			City:  str(catalog.KeyCity),
			State: str(catalog.KeyState),
			Zip:   str(catalog.KeyZip),
		},
		MedicalProfile: models.MedicalProfile{
			WeightLbs:     weight,
			HeightInches:  heightInches,
			BMI:           ComputeBMI(weight, heightInches),
			GoalWeightLbs: toFloat(responses[catalog.KeyGoalWeightLbs]),
			WeightGoal:    i18n.Canonicalize(str(catalog.KeyWeightGoal)),
			ActivityLevel: i18n.Canonicalize(str(catalog.KeyActivityLevel)),
		},
		MedicalHistory: models.MedicalHistory{
			ChronicConditions:       i18n.CanonicalizeStrings(responses[catalog.KeyChronicConditions]),
			ChronicConditionsDetail: str(catalog.KeyChronicDetail),
			DigestiveConditions:     i18n.CanonicalizeStrings(responses[catalog.KeyDigestive]),
			Medications:             i18n.CanonicalizeStrings(responses[catalog.KeyMedications]),
			Allergies:               i18n.CanonicalizeStrings(responses[catalog.KeyAllergies]),
		},
		GLP1Profile: models.GLP1Profile{
			HasTakenGLP1:   i18n.Canonicalize(str(catalog.KeyHasTakenGLP1)),
			LastMedication: i18n.Canonicalize(str(catalog.KeyLastMedication)),
			LastDose:       str(catalog.KeyLastDose),
			LastTakenAt:    str(catalog.KeyLastTakenAt),
		},
		QualificationStatus: models.QualificationStatus{
			Qualified:   decision.Qualified,
			Reason:      decision.Reason,
			CompletedAt: time.Now().UTC(),
			Checkpoints: checkpoints,
		},
	}
}

// Submit performs exactly one outbound call with the payload and records
// the outcome locally. It never returns an error: on any failure the result
// carries a session-derived fallback id and the submission record is left
// in pending-retry (unreachable remote) or failed (remote rejection) state
// with the full payload retained for a future manual retry.
func (c *Collector) Submit(ctx context.Context, sessionID string, payload models.SubmissionPayload) Result {
	record := models.SubmissionRecord{
		SessionID:   sessionID,
		Payload:     payload,
		SubmittedAt: time.Now().UTC(),
	}

	remoteID, err := c.send(ctx, payload)
	switch {
	case err == nil:
		record.ID = remoteID
		record.Outcome = models.SubmissionSuccess
		slog.Info("submission.Submit: record created", "sessionID", sessionID, "recordID", remoteID)
	case isRejection(err):
		record.ID = fallbackID(sessionID)
		record.Outcome = models.SubmissionFailed
		record.Error = err.Error()
		slog.Error("submission.Submit: remote rejected payload", "error", err, "sessionID", sessionID)
	default:
		record.ID = fallbackID(sessionID)
		record.Outcome = models.SubmissionPendingRetry
		record.Error = err.Error()
		slog.Error("submission.Submit: send failed, pending retry", "error", err, "sessionID", sessionID)
	}

	if saveErr := c.store.SaveSubmission(record); saveErr != nil {
		slog.Error("submission.Submit: failed to record outcome", "error", saveErr, "sessionID", sessionID)
	}

	return Result{
		Success: record.Outcome == models.SubmissionSuccess,
		ID:      record.ID,
		Error:   record.Error,
	}
}

// RetryPending re-submits every stored submission left in pending-retry
// state, using the payload retained at the original attempt. It returns the
// number of records the remote accepted this pass. Records that fail again
// stay pending; remote rejections move to failed and are not retried further.
func (c *Collector) RetryPending(ctx context.Context) (int, error) {
	pending, err := c.store.ListSubmissions(models.SubmissionPendingRetry)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending submissions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	slog.Info("submission.RetryPending: retrying pending submissions", "count", len(pending))

	delivered := 0
	for _, sub := range pending {
		result := c.Submit(ctx, sub.SessionID, sub.Payload)
		if result.Success {
			delivered++
		}
	}
	slog.Info("submission.RetryPending: pass complete", "delivered", delivered, "remaining", len(pending)-delivered)
	return delivered, nil
}

// rejectionError marks failures where the remote answered but refused the
// record, as opposed to transport failures worth retrying.
type rejectionError struct {
	msg string
}

func (e *rejectionError) Error() string { return e.msg }

func isRejection(err error) bool {
	_, ok := err.(*rejectionError)
	return ok
}

func (c *Collector) send(ctx context.Context, payload models.SubmissionPayload) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("submission endpoint not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal submission payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submission request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &rejectionError{msg: fmt.Sprintf("record endpoint returned status %d", resp.StatusCode)}
	}
	var remote remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return "", fmt.Errorf("malformed record response: %w", err)
	}
	if !remote.Success || remote.RecordID == "" {
		return "", &rejectionError{msg: "record endpoint reported failure"}
	}
	return remote.RecordID, nil
}

// fallbackID derives a local submission id from the session, so the user is
// never blocked on backend availability.
func fallbackID(sessionID string) string {
	return "local_" + sessionID
}
