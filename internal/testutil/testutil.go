// Package testutil provides common test utilities and helpers for IntakeFlow tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/IntakeFlow/internal/catalog"
	"github.com/BTreeMap/IntakeFlow/internal/funnel"
	"github.com/BTreeMap/IntakeFlow/internal/models"
	"github.com/BTreeMap/IntakeFlow/internal/store"
)

// NewTestEngine creates a funnel engine over the intake catalog with an
// in-memory store. This centralizes the engine creation logic used across
// multiple test files; the engine is closed automatically when the test ends.
func NewTestEngine(t *testing.T, opts ...funnel.Option) (*funnel.Engine, store.Store) {
	t.Helper()
	st := store.NewInMemoryStore()
	engine := funnel.New(catalog.Intake(), st, opts...)
	t.Cleanup(engine.Close)
	return engine, st
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// AssertCheckpointCount validates the number of checkpoints recorded for a session.
func AssertCheckpointCount(t *testing.T, st store.Store, sessionID string, expected int, context string) {
	t.Helper()
	checkpoints, err := st.GetCheckpoints(sessionID)
	if err != nil {
		t.Fatalf("%s: failed to get checkpoints: %v", context, err)
	}
	if len(checkpoints) != expected {
		t.Errorf("%s: expected %d checkpoints, got %d", context, expected, len(checkpoints))
	}
}

// SeedSessionData drives the given session through the contact steps so tests
// start from a partially completed intake.
func SeedSessionData(t *testing.T, engine *funnel.Engine, sessionID string) {
	t.Helper()

	if _, err := engine.Open(sessionID); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	steps := []map[string]interface{}{
		{"language": "en"},
		{
			"first_name": "Test",
			"last_name":  "Patient",
			"email":      "test@example.com",
			"phone":      "+15551234567",
		},
		{
			"address_line1": "1 Main St",
			"city":          "Austin",
			"state":         "TX",
			"zip":           "78701",
		},
	}
	for _, answers := range steps {
		result, err := engine.Advance(sessionID, answers)
		if err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}
		if len(result.Failures) > 0 {
			t.Fatalf("seed answers failed validation: %+v", result.Failures)
		}
	}
}

// AssertSnapshotEquals compares two session snapshots for equality in tests.
func AssertSnapshotEquals(t *testing.T, expected, actual models.ResponseRecord, context string) {
	t.Helper()
	if actual.SessionID != expected.SessionID ||
		actual.Language != expected.Language ||
		actual.CurrentStep != expected.CurrentStep {
		t.Errorf("%s: snapshots don't match\nexpected: %+v\nactual: %+v", context, expected, actual)
	}

	if len(actual.CompletedSteps) != len(expected.CompletedSteps) {
		t.Errorf("%s: completed steps length mismatch: expected %d, got %d",
			context, len(expected.CompletedSteps), len(actual.CompletedSteps))
		return
	}

	for i, want := range expected.CompletedSteps {
		if actual.CompletedSteps[i] != want {
			t.Errorf("%s: completed step %d mismatch: expected %s, got %s",
				context, i, want, actual.CompletedSteps[i])
		}
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
