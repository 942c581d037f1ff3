// Package recovery restores engine state after an application restart.
//
// Session records are durable, but the engine tracks open sessions in
// memory. On startup this package walks the persisted sessions and reopens
// each one so in-progress intakes keep working across restarts, then runs
// one retry pass over submissions that never reached the record endpoint.
package recovery

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/IntakeFlow/internal/session"
	"github.com/BTreeMap/IntakeFlow/internal/store"
)

// Opener reopens one session by id, restoring its persisted record.
// The funnel engine satisfies this.
type Opener interface {
	Open(sessionID string) (*session.Store, error)
}

// Resubmitter retries submissions left in pending-retry state.
// The submission collector satisfies this.
type Resubmitter interface {
	RetryPending(ctx context.Context) (int, error)
}

// Stats summarizes one recovery pass.
type Stats struct {
	SessionsRestored int
	SessionsSkipped  int
	SubmissionsSent  int
}

// Run restores every persisted session into the engine and, when a
// resubmitter is provided, retries pending submissions once. Individual
// session failures are skipped so one bad record cannot block startup; an
// error is returned only when the store itself cannot be read.
func Run(ctx context.Context, st store.Store, opener Opener, resubmitter Resubmitter) (Stats, error) {
	var stats Stats

	records, err := st.ListSessions()
	if err != nil {
		slog.Error("recovery.Run: failed to list persisted sessions", "error", err)
		return stats, err
	}

	for _, rec := range records {
		if _, err := opener.Open(rec.SessionID); err != nil {
			slog.Warn("recovery.Run: skipping session", "error", err, "sessionID", rec.SessionID)
			stats.SessionsSkipped++
			continue
		}
		stats.SessionsRestored++
	}

	if resubmitter != nil {
		sent, err := resubmitter.RetryPending(ctx)
		if err != nil {
			slog.Warn("recovery.Run: pending submission retry failed", "error", err)
		}
		stats.SubmissionsSent = sent
	}

	slog.Info("recovery.Run: recovery complete",
		"sessions_restored", stats.SessionsRestored,
		"sessions_skipped", stats.SessionsSkipped,
		"submissions_sent", stats.SubmissionsSent)
	return stats, nil
}
