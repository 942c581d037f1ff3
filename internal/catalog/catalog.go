// Package catalog provides the declarative step catalog for the intake
// funnel: every step's field set, validation rules, and branching target.
//
// The catalog is pure data plus pure functions; it performs no I/O. All
// structural invariants are checked once at construction time so that
// navigation never trips over a dangling step reference at runtime.
package catalog

import (
	"fmt"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// Catalog is an immutable, validated set of step definitions in funnel
// order.
type Catalog struct {
	steps map[string]models.StepDefinition
	order []string
}

// New builds a catalog from the given steps and validates it: step ids must
// be unique and non-empty, every fixed Next/Prev target must exist, every
// non-terminal step must declare a Next or a Branch, and terminal steps must
// declare neither.
func New(steps []models.StepDefinition) (*Catalog, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("catalog requires at least one step")
	}

	c := &Catalog{
		steps: make(map[string]models.StepDefinition, len(steps)),
		order: make([]string, 0, len(steps)),
	}
	for _, step := range steps {
		if step.ID == "" {
			return nil, models.ErrEmptyStepID
		}
		if _, exists := c.steps[step.ID]; exists {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateStep, step.ID)
		}
		for _, field := range step.Fields {
			if field.ID == "" || field.Key == "" {
				return nil, fmt.Errorf("step %s: field id and storage key are required", step.ID)
			}
			if !models.IsValidFieldType(field.Type) {
				return nil, fmt.Errorf("step %s: field %s has invalid type %q", step.ID, field.ID, field.Type)
			}
		}
		c.steps[step.ID] = step
		c.order = append(c.order, step.ID)
	}

	for _, step := range steps {
		if step.IsTerminal() {
			if step.Next != "" || step.Branch != nil {
				return nil, fmt.Errorf("terminal step %s must not declare a next step", step.ID)
			}
		} else if step.Next == "" && step.Branch == nil {
			return nil, fmt.Errorf("step %s has no next step and is not terminal", step.ID)
		}
		if step.Next != "" {
			if _, ok := c.steps[step.Next]; !ok {
				return nil, fmt.Errorf("step %s: %w: next %s", step.ID, models.ErrUnknownStep, step.Next)
			}
		}
		if step.Prev != "" {
			if _, ok := c.steps[step.Prev]; !ok {
				return nil, fmt.Errorf("step %s: %w: prev %s", step.ID, models.ErrUnknownStep, step.Prev)
			}
		}
	}
	return c, nil
}

// MustNew builds a catalog and panics on a structural error. Intended for
// the compiled-in funnel definition, where a broken catalog is a programming
// error that should abort loudly at startup.
func MustNew(steps []models.StepDefinition) *Catalog {
	c, err := New(steps)
	if err != nil {
		panic(fmt.Sprintf("invalid step catalog: %v", err))
	}
	return c
}

// Step looks up a step definition by id.
func (c *Catalog) Step(id string) (models.StepDefinition, error) {
	step, ok := c.steps[id]
	if !ok {
		return models.StepDefinition{}, fmt.Errorf("%w: %s", models.ErrUnknownStep, id)
	}
	return step, nil
}

// Has reports whether the catalog contains the given step id.
func (c *Catalog) Has(id string) bool {
	_, ok := c.steps[id]
	return ok
}

// First returns the id of the funnel's entry step.
func (c *Catalog) First() string {
	return c.order[0]
}

// StepIDs returns all step ids in funnel order.
func (c *Catalog) StepIDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of steps in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}
