package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

func sampleRecord(sessionID string) models.ResponseRecord {
	rec := models.NewResponseRecord(sessionID, "language")
	rec.Responses["first_name"] = "Pat"
	rec.Responses["chronic_conditions"] = []interface{}{"none"}
	rec.CompletedSteps = []string{"language"}
	rec.CurrentStep = "personal-info"
	return rec
}

// backends returns every Store implementation under test.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(WithFilePath(t.TempDir()))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return map[string]Store{
		"memory": NewInMemoryStore(),
		"file":   fileStore,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := sampleRecord("s_roundtrip")
			if err := st.SaveSession(rec); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			got, err := st.GetSession("s_roundtrip")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got == nil {
				t.Fatal("expected record, got nil")
			}
			if got.SessionID != rec.SessionID || got.CurrentStep != rec.CurrentStep {
				t.Errorf("record mismatch: %+v", got)
			}
			if len(got.CompletedSteps) != 1 || got.CompletedSteps[0] != "language" {
				t.Errorf("completed steps mismatch: %v", got.CompletedSteps)
			}
			if got.Responses["first_name"] != "Pat" {
				t.Errorf("responses mismatch: %v", got.Responses)
			}
		})
	}
}

func TestGetSessionNotFound(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := st.GetSession("missing")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != nil {
				t.Errorf("expected nil for missing session, got %+v", got)
			}
		})
	}
}

func TestDeleteSession(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.SaveSession(sampleRecord("s_del")); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			if err := st.DeleteSession("s_del"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			got, err := st.GetSession("s_del")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got != nil {
				t.Errorf("expected session gone, got %+v", got)
			}
			// Deleting twice is not an error.
			if err := st.DeleteSession("s_del"); err != nil {
				t.Errorf("second delete failed: %v", err)
			}
		})
	}
}

func TestSaveSessionRequiresID(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := st.SaveSession(models.ResponseRecord{})
			if err != models.ErrEmptySessionID {
				t.Errorf("expected ErrEmptySessionID, got %v", err)
			}
		})
	}
}

func TestCheckpointLogAppendOnly(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Now()
			for i, cpName := range []string{"contact-captured", "medical-complete", "qualified"} {
				cp := models.CheckpointRecord{
					SessionID: "s_cp",
					Name:      cpName,
					Status:    models.CheckpointStatusPartial,
					Data:      map[string]interface{}{"step": cpName},
					Timestamp: base.Add(time.Duration(i) * time.Second),
				}
				if err := st.AddCheckpoint(cp); err != nil {
					t.Fatalf("add checkpoint failed: %v", err)
				}
			}
			cps, err := st.GetCheckpoints("s_cp")
			if err != nil {
				t.Fatalf("get checkpoints failed: %v", err)
			}
			if len(cps) != 3 {
				t.Fatalf("expected 3 checkpoints, got %d", len(cps))
			}
			if cps[0].Name != "contact-captured" || cps[2].Name != "qualified" {
				t.Errorf("checkpoints out of order: %v", cps)
			}
		})
	}
}

func TestSubmissionRoundTrip(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			sub := models.SubmissionRecord{
				SessionID: "s_sub",
				ID:        "rec_123",
				Outcome:   models.SubmissionSuccess,
				Payload: models.SubmissionPayload{
					PersonalInfo: models.PersonalInfo{FirstName: "Pat", LastName: "Lee"},
					MedicalProfile: models.MedicalProfile{
						WeightLbs: 180, HeightInches: 70, BMI: 25.83,
					},
				},
				SubmittedAt: time.Now(),
			}
			if err := st.SaveSubmission(sub); err != nil {
				t.Fatalf("save submission failed: %v", err)
			}
			got, err := st.GetSubmission("s_sub")
			if err != nil {
				t.Fatalf("get submission failed: %v", err)
			}
			if got == nil {
				t.Fatal("expected submission, got nil")
			}
			if got.ID != "rec_123" || got.Outcome != models.SubmissionSuccess {
				t.Errorf("submission mismatch: %+v", got)
			}
			if got.Payload.PersonalInfo.FirstName != "Pat" {
				t.Errorf("payload mismatch: %+v", got.Payload)
			}

			// Status updates overwrite the record in place.
			sub.Outcome = models.SubmissionPendingRetry
			if err := st.SaveSubmission(sub); err != nil {
				t.Fatalf("update submission failed: %v", err)
			}
			got, err = st.GetSubmission("s_sub")
			if err != nil {
				t.Fatalf("get submission failed: %v", err)
			}
			if got.Outcome != models.SubmissionPendingRetry {
				t.Errorf("expected updated outcome, got %s", got.Outcome)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"s_list_b", "s_list_a"} {
				if err := st.SaveSession(sampleRecord(id)); err != nil {
					t.Fatalf("save failed: %v", err)
				}
			}
			recs, err := st.ListSessions()
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(recs) != 2 {
				t.Fatalf("expected 2 sessions, got %d", len(recs))
			}
			if recs[0].SessionID != "s_list_a" || recs[1].SessionID != "s_list_b" {
				t.Errorf("sessions out of order: %q, %q", recs[0].SessionID, recs[1].SessionID)
			}
		})
	}
}

func TestListSubmissionsFiltersByOutcome(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			subs := []models.SubmissionRecord{
				{SessionID: "s_ok", ID: "rec_1", Outcome: models.SubmissionSuccess, SubmittedAt: time.Now()},
				{SessionID: "s_retry_a", ID: "local_s_retry_a", Outcome: models.SubmissionPendingRetry, SubmittedAt: time.Now()},
				{SessionID: "s_retry_b", ID: "local_s_retry_b", Outcome: models.SubmissionPendingRetry, SubmittedAt: time.Now()},
			}
			for _, sub := range subs {
				if err := st.SaveSubmission(sub); err != nil {
					t.Fatalf("save submission failed: %v", err)
				}
			}

			pending, err := st.ListSubmissions(models.SubmissionPendingRetry)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(pending) != 2 {
				t.Fatalf("expected 2 pending submissions, got %d", len(pending))
			}
			for _, sub := range pending {
				if sub.Outcome != models.SubmissionPendingRetry {
					t.Errorf("unexpected outcome %s for %s", sub.Outcome, sub.SessionID)
				}
			}

			all, err := st.ListSubmissions("")
			if err != nil {
				t.Fatalf("list all failed: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("expected 3 submissions, got %d", len(all))
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(WithFilePath(dir))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	if err := st.SaveSession(sampleRecord("s_reopen")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Simulate a process restart by constructing a fresh store over the
	// same directory.
	st2, err := NewFileStore(WithFilePath(dir))
	if err != nil {
		t.Fatalf("failed to reopen file store: %v", err)
	}
	got, err := st2.GetSession("s_reopen")
	if err != nil {
		t.Fatalf("get after reopen failed: %v", err)
	}
	if got == nil || got.CurrentStep != "personal-info" {
		t.Errorf("expected persisted record after reopen, got %+v", got)
	}
}

func TestFileStoreCorruptSessionReturnsError(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(WithFilePath(dir))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "s_corrupt.session.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to plant corrupt file: %v", err)
	}
	if _, err := st.GetSession("s_corrupt"); err == nil {
		t.Error("expected error for corrupt session file")
	}
}

func TestDetectDSNType(t *testing.T) {
	cases := map[string]string{
		"postgres://user:pw@host/db":   "postgres",
		"postgresql://user:pw@host/db": "postgres",
		"host=localhost dbname=intake": "postgres",
		"/var/lib/intakeflow/data.db":  "sqlite",
		"intake.db":                    "sqlite",
	}
	for dsn, want := range cases {
		if got := DetectDSNType(dsn); got != want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", dsn, got, want)
		}
	}
}
