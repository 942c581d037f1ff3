package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/catalog"
	"github.com/BTreeMap/IntakeFlow/internal/checkpoint"
	"github.com/BTreeMap/IntakeFlow/internal/funnel"
	"github.com/BTreeMap/IntakeFlow/internal/store"
	"github.com/BTreeMap/IntakeFlow/internal/testutil"
)

func newTestServer(t *testing.T, opts ...funnel.Option) (*Server, *funnel.Engine, store.Store) {
	t.Helper()
	engine, st := testutil.NewTestEngine(t, opts...)
	return NewServer(engine, st), engine, st
}

func TestCreateSessionHandler(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := testutil.CreateHTTPRequest(t, "POST", "/sessions", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "create session")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result := response["result"].(map[string]interface{})
	sessionID, _ := result["session_id"].(string)
	if !strings.HasPrefix(sessionID, "intake_") {
		t.Errorf("expected generated session id, got %q", sessionID)
	}
	if result["current_step"] != catalog.StepLanguage {
		t.Errorf("expected first step %s, got %v", catalog.StepLanguage, result["current_step"])
	}
	step, ok := result["step"].(map[string]interface{})
	if !ok {
		t.Fatal("expected step definition in result")
	}
	if step["id"] != catalog.StepLanguage {
		t.Errorf("expected step id %s, got %v", catalog.StepLanguage, step["id"])
	}
}

func TestCreateSessionHandlerKeepsProvidedID(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := testutil.CreateHTTPRequest(t, "POST", "/sessions", map[string]string{"session_id": "mine"})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "create session with id")
	response := testutil.AssertJSONResponse(t, rr, "ok")
	result := response["result"].(map[string]interface{})
	if result["session_id"] != "mine" {
		t.Errorf("expected session id mine, got %v", result["session_id"])
	}
}

func TestCreateSessionHandlerMethodNotAllowed(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := testutil.CreateHTTPRequest(t, "GET", "/sessions", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "create session wrong method")
}

func TestGetSessionHandlerNotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := testutil.CreateHTTPRequest(t, "GET", "/sessions/ghost", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "unknown session")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestAdvanceHandlerValidationFailure(t *testing.T) {
	server, engine, _ := newTestServer(t)
	testutil.SeedSessionData(t, engine, "s1")

	// Body profile requires at least a weight.
	req := testutil.CreateHTTPRequest(t, "POST", "/sessions/s1/advance", map[string]interface{}{
		"answers": map[string]interface{}{},
	})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusUnprocessableEntity, rr.Code, "blocked advance")
	response := testutil.AssertJSONResponse(t, rr, "invalid")

	failures, ok := response["result"].([]interface{})
	if !ok || len(failures) == 0 {
		t.Fatalf("expected failure list, got %v", response["result"])
	}
	first := failures[0].(map[string]interface{})
	if first["message"] == "" {
		t.Error("expected localized failure message")
	}
}

func TestAdvanceHandlerMovesSession(t *testing.T) {
	server, engine, _ := newTestServer(t)
	testutil.SeedSessionData(t, engine, "s1")

	req := testutil.CreateHTTPRequest(t, "POST", "/sessions/s1/advance", map[string]interface{}{
		"answers": map[string]interface{}{
			"weight_lbs":  "180",
			"height_feet": "5", "height_inches": "10",
		},
	})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "advance")
	response := testutil.AssertJSONResponse(t, rr, "ok")
	result := response["result"].(map[string]interface{})
	if result["current_step"] != catalog.StepWeightGoal {
		t.Errorf("expected step %s, got %v", catalog.StepWeightGoal, result["current_step"])
	}
}

func TestAdvanceHandlerInvalidJSON(t *testing.T) {
	server, engine, _ := newTestServer(t)
	testutil.SeedSessionData(t, engine, "s1")

	req, _ := http.NewRequest("POST", "/sessions/s1/advance", strings.NewReader("{nope"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid JSON")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestBackHandler(t *testing.T) {
	server, engine, _ := newTestServer(t)
	testutil.SeedSessionData(t, engine, "s1")

	req := testutil.CreateHTTPRequest(t, "POST", "/sessions/s1/back", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "back")
	response := testutil.AssertJSONResponse(t, rr, "ok")
	result := response["result"].(map[string]interface{})
	if result["current_step"] != catalog.StepAddress {
		t.Errorf("expected step %s, got %v", catalog.StepAddress, result["current_step"])
	}
	// Answers survive backward navigation.
	responses := result["responses"].(map[string]interface{})
	if responses[catalog.KeyEmail] != "test@example.com" {
		t.Error("expected stored answers to survive back")
	}
}

func TestResetHandler(t *testing.T) {
	server, engine, _ := newTestServer(t)
	testutil.SeedSessionData(t, engine, "s1")

	req := testutil.CreateHTTPRequest(t, "POST", "/sessions/s1/reset", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "reset")
	response := testutil.AssertJSONResponse(t, rr, "ok")
	result := response["result"].(map[string]interface{})
	if result["current_step"] != catalog.StepLanguage {
		t.Errorf("expected step %s after reset, got %v", catalog.StepLanguage, result["current_step"])
	}
	if len(result["responses"].(map[string]interface{})) != 0 {
		t.Error("expected responses cleared after reset")
	}
}

func TestCheckpointsHandler(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := funnel.New(catalog.Intake(), st, funnel.WithCheckpointClient(checkpoint.NewClient(st)))
	t.Cleanup(engine.Close)
	server := NewServer(engine, st)
	testutil.SeedSessionData(t, engine, "s1")

	// Checkpoints fire on the background worker; wait for both contact
	// milestones to land.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		checkpoints, err := st.GetCheckpoints("s1")
		if err != nil {
			t.Fatalf("GetCheckpoints() error: %v", err)
		}
		if len(checkpoints) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	req := testutil.CreateHTTPRequest(t, "GET", "/sessions/s1/checkpoints", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "checkpoints")
	response := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := response["result"].([]interface{})
	if !ok || len(result) < 2 {
		t.Fatalf("expected at least 2 checkpoints, got %v", response["result"])
	}
}

func TestSubmissionHandlerNotReady(t *testing.T) {
	server, engine, _ := newTestServer(t)
	testutil.SeedSessionData(t, engine, "s1")

	req := testutil.CreateHTTPRequest(t, "GET", "/sessions/s1/submission", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "submission not ready")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestUnknownSessionEndpoint(t *testing.T) {
	server, engine, _ := newTestServer(t)
	testutil.SeedSessionData(t, engine, "s1")

	req := testutil.CreateHTTPRequest(t, "GET", "/sessions/s1/nope", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "unknown endpoint")
}

func TestHealthHandler(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := testutil.CreateHTTPRequest(t, "GET", "/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	var health map[string]interface{}
	testutil.MustUnmarshalJSON(t, rr.Body.Bytes(), &health)
	if health["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", health["status"])
	}
}
