package checkpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/models"
	"github.com/BTreeMap/IntakeFlow/internal/store"
)

func TestSubmitWritesLocalLogFirst(t *testing.T) {
	st := store.NewInMemoryStore()
	// Endpoint that always refuses connections: remote send fails, local
	// record must survive anyway.
	c := NewClient(st, WithEndpoint("http://127.0.0.1:1/checkpoints"), WithTimeout(200*time.Millisecond))

	c.Submit(context.Background(), "s1", "contact-captured", models.CheckpointStatusPartial, map[string]interface{}{"email": "pat@example.com"})

	cps, err := st.GetCheckpoints("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cps) != 1 {
		t.Fatalf("expected 1 local checkpoint despite remote failure, got %d", len(cps))
	}
	if cps[0].Name != "contact-captured" || cps[0].Status != models.CheckpointStatusPartial {
		t.Errorf("unexpected record: %+v", cps[0])
	}
}

func TestSubmitSendsRemotePayload(t *testing.T) {
	st := store.NewInMemoryStore()
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(st, WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	c.Submit(context.Background(), "s2", "medical-complete", models.CheckpointStatusComplete, map[string]interface{}{"steps": 12})

	if received == nil {
		t.Fatal("remote endpoint not called")
	}
	if received["checkpointName"] != "medical-complete" {
		t.Errorf("unexpected checkpointName: %v", received["checkpointName"])
	}
	if received["sessionId"] != "s2" {
		t.Errorf("unexpected sessionId: %v", received["sessionId"])
	}
	if received["status"] != "complete" {
		t.Errorf("unexpected status: %v", received["status"])
	}
	if _, err := time.Parse(time.RFC3339, received["timestamp"].(string)); err != nil {
		t.Errorf("timestamp not RFC3339: %v", received["timestamp"])
	}
}

func TestSubmitSwallowsRemoteRejection(t *testing.T) {
	st := store.NewInMemoryStore()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(st, WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	// Must not panic or surface the failure.
	c.Submit(context.Background(), "s3", "qualified", models.CheckpointStatusQualified, nil)

	cps, err := st.GetCheckpoints("s3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cps) != 1 {
		t.Errorf("expected local record retained, got %d", len(cps))
	}
}

func TestLocalOnlyWithoutEndpoint(t *testing.T) {
	st := store.NewInMemoryStore()
	c := NewClient(st)
	c.Submit(context.Background(), "s4", "contact-captured", models.CheckpointStatusPartial, nil)
	cps, err := st.GetCheckpoints("s4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cps) != 1 {
		t.Errorf("expected 1 checkpoint, got %d", len(cps))
	}
}

func TestCompletedTracking(t *testing.T) {
	c := NewClient(store.NewInMemoryStore())
	if c.Completed("s5", "contact-captured") {
		t.Error("checkpoint must start incomplete")
	}
	c.MarkCompleted("s5", "contact-captured")
	if !c.Completed("s5", "contact-captured") {
		t.Error("expected checkpoint marked completed")
	}
	// Sessions are independent.
	if c.Completed("other", "contact-captured") {
		t.Error("completion must be per-session")
	}

	names := c.CompletedNames("s5")
	if len(names) != 1 || names[0] != "contact-captured" {
		t.Errorf("unexpected completed names: %v", names)
	}

	c.ResetCompleted("s5")
	if c.Completed("s5", "contact-captured") {
		t.Error("expected completed set cleared after reset")
	}
}
