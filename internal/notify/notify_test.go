package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

func TestMockClient_SendConfirmation(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	err := mock.SendConfirmation(ctx, "+15551234567", "rec_1", models.LanguageEnglish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.Sent) != 1 {
		t.Fatalf("expected 1 confirmation, got %d", len(mock.Sent))
	}
	if mock.Sent[0].RecordID != "rec_1" {
		t.Errorf("expected record id %q, got %q", "rec_1", mock.Sent[0].RecordID)
	}
}

func TestConfirmationBodyFollowsLanguage(t *testing.T) {
	en := confirmationBody("rec_1", models.LanguageEnglish)
	es := confirmationBody("rec_1", models.LanguageSpanish)

	if !strings.Contains(en, "rec_1") || !strings.Contains(es, "rec_1") {
		t.Error("confirmation must include the reference id")
	}
	if en == es {
		t.Error("expected distinct texts per language")
	}
	if !strings.Contains(es, "admisión") {
		t.Errorf("expected Spanish body, got %q", es)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without from number")
	}
}
