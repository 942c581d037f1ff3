// Package funnel drives the intake workflow: it resolves step transitions
// against the catalog and exposes the engine that advances sessions, fires
// milestone checkpoints, and performs the terminal submission.
package funnel

import (
	"fmt"
	"log/slog"

	"github.com/BTreeMap/IntakeFlow/internal/catalog"
	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// Resolver computes step transitions. Resolution is a pure read: it never
// mutates the catalog or the responses passed in, so calling it twice with
// the same snapshot always yields the same step.
type Resolver struct {
	catalog *catalog.Catalog
}

// NewResolver creates a resolver over the given catalog.
func NewResolver(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// ResolveNext returns the id of the step that follows stepID given the
// current responses. Branch functions take precedence over the fixed Next
// edge and are evaluated against the snapshot on every call. A terminal
// step resolves to itself.
func (r *Resolver) ResolveNext(stepID string, responses map[string]interface{}) (string, error) {
	step, err := r.catalog.Step(stepID)
	if err != nil {
		return "", err
	}
	if step.IsTerminal() {
		return step.ID, nil
	}
	next := step.Next
	if step.Branch != nil {
		next = step.Branch(step.ID, responses)
	}
	if !r.catalog.Has(next) {
		return "", fmt.Errorf("step %s resolved to unknown target %s: %w", stepID, next, models.ErrUnknownStep)
	}
	slog.Debug("funnel.ResolveNext: resolved", "from", stepID, "to", next)
	return next, nil
}

// ResolvePrevious returns the id of the step reached by navigating back
// from stepID. Backward edges are static: branch decisions are never
// re-evaluated on the way back, so a branch that was skipped forward stays
// skipped backward. The first step resolves to itself.
func (r *Resolver) ResolvePrevious(stepID string) (string, error) {
	step, err := r.catalog.Step(stepID)
	if err != nil {
		return "", err
	}
	if step.Prev == "" {
		return step.ID, nil
	}
	return step.Prev, nil
}
