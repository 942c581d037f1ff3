package catalog

import (
	"errors"
	"testing"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

func TestNewRejectsEmptyCatalog(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for empty catalog")
	}
}

func TestNewRejectsDuplicateStepIDs(t *testing.T) {
	steps := []models.StepDefinition{
		{ID: "a", Kind: models.StepKindTerminal},
		{ID: "a", Kind: models.StepKindTerminal},
	}
	_, err := New(steps)
	if !errors.Is(err, models.ErrDuplicateStep) {
		t.Errorf("expected ErrDuplicateStep, got %v", err)
	}
}

func TestNewRejectsDanglingNext(t *testing.T) {
	steps := []models.StepDefinition{
		{ID: "a", Kind: models.StepKindField, Next: "missing"},
	}
	_, err := New(steps)
	if !errors.Is(err, models.ErrUnknownStep) {
		t.Errorf("expected ErrUnknownStep, got %v", err)
	}
}

func TestNewRejectsNonTerminalWithoutNext(t *testing.T) {
	steps := []models.StepDefinition{
		{ID: "a", Kind: models.StepKindField},
	}
	if _, err := New(steps); err == nil {
		t.Error("expected error for non-terminal step without next")
	}
}

func TestNewRejectsTerminalWithNext(t *testing.T) {
	steps := []models.StepDefinition{
		{ID: "a", Kind: models.StepKindTerminal, Next: "a"},
	}
	if _, err := New(steps); err == nil {
		t.Error("expected error for terminal step with next")
	}
}

func TestStepLookup(t *testing.T) {
	c := Intake()
	step, err := c.Step(StepPersonalInfo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.ID != StepPersonalInfo {
		t.Errorf("expected %s, got %s", StepPersonalInfo, step.ID)
	}

	if _, err := c.Step("no-such-step"); !errors.Is(err, models.ErrUnknownStep) {
		t.Errorf("expected ErrUnknownStep, got %v", err)
	}
}

func TestIntakeCatalogIsValid(t *testing.T) {
	c := Intake()
	if c.First() != StepLanguage {
		t.Errorf("expected first step %s, got %s", StepLanguage, c.First())
	}
	if c.Len() != 16 {
		t.Errorf("expected 16 steps, got %d", c.Len())
	}
	// Exactly one terminal step.
	terminals := 0
	for _, id := range c.StepIDs() {
		step, err := c.Step(id)
		if err != nil {
			t.Fatalf("step %s: %v", id, err)
		}
		if step.IsTerminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Errorf("expected exactly one terminal step, got %d", terminals)
	}
}

func TestChronicConditionsBranch(t *testing.T) {
	c := Intake()
	step, err := c.Step(StepChronicConditions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Branch == nil {
		t.Fatal("chronic-conditions must branch")
	}

	cases := []struct {
		name      string
		responses map[string]interface{}
		want      string
	}{
		{"none selected", map[string]interface{}{KeyChronicConditions: []interface{}{"none"}}, StepDigestiveConditions},
		{"missing key", map[string]interface{}{}, StepDigestiveConditions},
		{"nil value", map[string]interface{}{KeyChronicConditions: nil}, StepDigestiveConditions},
		{"empty slice", map[string]interface{}{KeyChronicConditions: []string{}}, StepDigestiveConditions},
		{"condition selected", map[string]interface{}{KeyChronicConditions: []interface{}{"diabetes_type2"}}, StepChronicConditionDetail},
		{"mixed with none", map[string]interface{}{KeyChronicConditions: []string{"none", "pcos"}}, StepChronicConditionDetail},
		{"unexpected shape", map[string]interface{}{KeyChronicConditions: 7}, StepDigestiveConditions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := step.Branch(step.ID, tc.responses)
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestGLP1Branch(t *testing.T) {
	c := Intake()
	step, err := c.Step(StepGLP1History)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := step.Branch(step.ID, map[string]interface{}{KeyHasTakenGLP1: "yes"}); got != StepGLP1Details {
		t.Errorf("expected %s, got %s", StepGLP1Details, got)
	}
	if got := step.Branch(step.ID, map[string]interface{}{KeyHasTakenGLP1: "no"}); got != StepReview {
		t.Errorf("expected %s, got %s", StepReview, got)
	}
	// Missing answer resolves to the default branch, never panics.
	if got := step.Branch(step.ID, map[string]interface{}{}); got != StepReview {
		t.Errorf("expected %s, got %s", StepReview, got)
	}
}

func TestReviewStepSharesStorageKeys(t *testing.T) {
	c := Intake()
	review, err := c.Step(StepReview)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	personal, err := c.Step(StepPersonalInfo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// review_first_name and first_name are distinct field ids over the same
	// storage key.
	if review.Fields[0].ID == personal.Fields[0].ID {
		t.Error("expected distinct field ids")
	}
	if review.Fields[0].Key != personal.Fields[0].Key {
		t.Errorf("expected shared storage key, got %s and %s", review.Fields[0].Key, personal.Fields[0].Key)
	}
}
