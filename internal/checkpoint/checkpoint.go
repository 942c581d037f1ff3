// Package checkpoint provides the sync client that ships partial-progress
// snapshots to the remote collaborator at named milestones.
//
// Checkpoints are best-effort telemetry, not the system of record: the
// record is always written to the local append-only log first, then one
// remote send is attempted with a bounded timeout. Remote failure is logged
// and swallowed; it never blocks or reverses navigation, and there is no
// automatic retry.
package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/models"
	"github.com/BTreeMap/IntakeFlow/internal/store"
)

// DefaultTimeout bounds the remote send so a checkpoint is never left
// pending indefinitely.
const DefaultTimeout = 10 * time.Second

// Opts holds configuration options for the checkpoint client.
type Opts struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Option defines a configuration option for the checkpoint client.
type Option func(*Opts)

// WithEndpoint sets the remote checkpoint collection URL. When empty, the
// client runs local-only.
func WithEndpoint(url string) Option {
	return func(o *Opts) { o.Endpoint = url }
}

// WithTimeout overrides the remote send timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithHTTPClient injects an HTTP client (used by tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// remotePayload is the wire shape sent to the collaborator.
type remotePayload struct {
	CheckpointName string                  `json:"checkpointName"`
	Timestamp      string                  `json:"timestamp"`
	SessionID      string                  `json:"sessionId"`
	Status         models.CheckpointStatus `json:"status"`
	Data           map[string]interface{}  `json:"data,omitempty"`
}

// Client writes checkpoint records locally and forwards them remotely.
type Client struct {
	store      store.Store
	endpoint   string
	httpClient *http.Client

	mu        sync.Mutex
	completed map[string]map[string]bool // sessionID -> checkpoint name
}

// NewClient creates a checkpoint client backed by the given store.
func NewClient(st store.Store, opts ...Option) *Client {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	slog.Debug("checkpoint.NewClient: created", "endpoint_set", cfg.Endpoint != "", "timeout", cfg.Timeout)
	return &Client{
		store:      st,
		endpoint:   cfg.Endpoint,
		httpClient: httpClient,
		completed:  make(map[string]map[string]bool),
	}
}

// Submit records one checkpoint: local log write first, then one remote
// send. It never returns an error to the caller; all failures are logged
// and swallowed so navigation is never blocked on telemetry.
func (c *Client) Submit(ctx context.Context, sessionID, name string, status models.CheckpointStatus, data map[string]interface{}) {
	record := models.CheckpointRecord{
		SessionID: sessionID,
		Name:      name,
		Status:    status,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	// Local log first, so the record survives even if the network call
	// never completes.
	if err := c.store.AddCheckpoint(record); err != nil {
		slog.Error("checkpoint.Submit: local log write failed", "error", err, "sessionID", sessionID, "name", name)
	}

	if c.endpoint == "" {
		slog.Debug("checkpoint.Submit: no endpoint configured, local only", "sessionID", sessionID, "name", name)
		return
	}

	if err := c.send(ctx, record); err != nil {
		slog.Warn("checkpoint.Submit: remote send failed, continuing", "error", err, "sessionID", sessionID, "name", name)
		return
	}
	slog.Debug("checkpoint.Submit: remote send succeeded", "sessionID", sessionID, "name", name, "status", status)
}

func (c *Client) send(ctx context.Context, record models.CheckpointRecord) error {
	payload := remotePayload{
		CheckpointName: record.Name,
		Timestamp:      record.Timestamp.Format(time.RFC3339),
		SessionID:      record.SessionID,
		Status:         record.Status,
		Data:           record.Data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build checkpoint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("checkpoint request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("checkpoint endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Completed reports whether a checkpoint name has already fired for the
// session. The set is consulted by callers before Submit; the client itself
// does not enforce it.
func (c *Client) Completed(sessionID, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed[sessionID][name]
}

// MarkCompleted records a checkpoint name as fired for the session, so
// re-entering the same step does not re-fire it.
func (c *Client) MarkCompleted(sessionID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed[sessionID] == nil {
		c.completed[sessionID] = make(map[string]bool)
	}
	c.completed[sessionID][name] = true
}

// CompletedNames returns the fired checkpoint names for a session.
func (c *Client) CompletedNames(sessionID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.completed[sessionID]))
	for name := range c.completed[sessionID] {
		names = append(names, name)
	}
	return names
}

// ResetCompleted clears the completed set for a session; used on reset.
func (c *Client) ResetCompleted(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.completed, sessionID)
}
