// Package notify sends the post-submission confirmation SMS through the
// Twilio API. Delivery is best-effort: the intake outcome never depends on
// the confirmation going out.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// Sender delivers a submission confirmation to a patient's phone.
type Sender interface {
	SendConfirmation(ctx context.Context, phone, recordID string, lang models.Language) error
}

// Opts holds configuration options for the Twilio SMS client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio SMS client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number in E.164 format.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// confirmationBody returns the SMS text in the patient's display language.
func confirmationBody(recordID string, lang models.Language) string {
	if lang == models.LanguageSpanish {
		return fmt.Sprintf("Recibimos tu formulario de admisión. Tu número de referencia es %s.", recordID)
	}
	return fmt.Sprintf("We received your intake form. Your reference number is %s.", recordID)
}

// Client wraps the Twilio REST API for confirmation SMS.
type Client struct {
	client     *twilio.RestClient
	fromNumber string
}

// NewClient builds a Twilio SMS client, falling back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER environment
// variables for options not provided.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &Client{
		client:     client,
		fromNumber: cfg.FromNumber,
	}, nil
}

// SendConfirmation sends the confirmation SMS in the patient's language.
func (c *Client) SendConfirmation(ctx context.Context, phone, recordID string, lang models.Language) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(c.fromNumber)
	params.SetBody(confirmationBody(recordID, lang))

	_, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SendConfirmation failed", "to", phone, "error", err)
		return fmt.Errorf("failed to send confirmation to %s: %w", phone, err)
	}

	slog.Debug("Twilio confirmation sent", "to", phone, "recordID", recordID)
	return nil
}

// MockClient records confirmations instead of sending them.
type MockClient struct {
	Sent []SentConfirmation
}

// SentConfirmation is one recorded confirmation.
type SentConfirmation struct {
	To       string
	RecordID string
	Lang     models.Language
}

// NewMockClient creates an empty mock sender.
func NewMockClient() *MockClient {
	return &MockClient{Sent: []SentConfirmation{}}
}

func (m *MockClient) SendConfirmation(ctx context.Context, phone, recordID string, lang models.Language) error {
	m.Sent = append(m.Sent, SentConfirmation{To: phone, RecordID: recordID, Lang: lang})
	return nil
}
