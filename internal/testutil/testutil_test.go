package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/IntakeFlow/internal/catalog"
)

func TestNewTestEngine(t *testing.T) {
	engine, st := NewTestEngine(t)
	if engine == nil {
		t.Fatal("NewTestEngine returned nil engine")
	}
	if st == nil {
		t.Fatal("NewTestEngine returned nil store")
	}
	if engine.Catalog().First() != catalog.StepLanguage {
		t.Errorf("expected engine over the intake catalog, first step %s", engine.Catalog().First())
	}
}

func TestSeedSessionData(t *testing.T) {
	engine, st := NewTestEngine(t)
	SeedSessionData(t, engine, "seeded")

	sess, err := engine.Session("seeded")
	if err != nil {
		t.Fatalf("seeded session missing: %v", err)
	}
	snapshot := sess.Snapshot()
	if snapshot.CurrentStep != catalog.StepBodyProfile {
		t.Errorf("expected seed to stop at %s, got %s", catalog.StepBodyProfile, snapshot.CurrentStep)
	}
	if snapshot.Responses[catalog.KeyEmail] != "test@example.com" {
		t.Errorf("expected seeded email, got %v", snapshot.Responses[catalog.KeyEmail])
	}

	persisted, err := st.GetSession("seeded")
	if err != nil || persisted == nil {
		t.Fatalf("expected seeded session in store, got %v, %v", persisted, err)
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		body   interface{}
	}{
		{
			name:   "GET request with no body",
			method: "GET",
			url:    "/test",
			body:   nil,
		},
		{
			name:   "POST request with JSON body",
			method: "POST",
			url:    "/test",
			body:   map[string]string{"key": "value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateHTTPRequest(t, tt.method, tt.url, tt.body)

			if req == nil {
				t.Fatal("Expected request to be created, got nil")
			}
			if req.Method != tt.method {
				t.Errorf("Expected method %s, got %s", tt.method, req.Method)
			}
			if req.URL.Path != tt.url {
				t.Errorf("Expected URL %s, got %s", tt.url, req.URL.Path)
			}
		})
	}
}

func TestAssertJSONResponseReturnsBody(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Body.WriteString(`{"status":"ok","result":{"session_id":"s1"}}`)

	response := AssertJSONResponse(t, rr, "ok")
	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %v", response["result"])
	}
	if result["session_id"] != "s1" {
		t.Errorf("expected session_id s1, got %v", result["session_id"])
	}
}

func TestMustMarshalJSONRoundTrip(t *testing.T) {
	testData := map[string]interface{}{
		"key1": "value1",
		"key2": 123,
	}

	data := MustMarshalJSON(t, testData)
	if len(data) == 0 {
		t.Error("Expected non-empty JSON data")
	}

	var target map[string]interface{}
	MustUnmarshalJSON(t, data, &target)
	if target["key1"] != "value1" {
		t.Errorf("Expected key1 to be 'value1', got %v", target["key1"])
	}
	if target["key2"].(float64) != 123 {
		t.Errorf("Expected key2 to be 123, got %v", target["key2"])
	}
}
