// Package models defines step and field structures for the intake funnel.
package models

// StepKind distinguishes step behavior at catalog construction time.
type StepKind string

const (
	// StepKindField is a standard data-collection step that advances on
	// explicit confirmation after all fields validate.
	StepKindField StepKind = "field"
	// StepKindInfo is an auto-advancing step that completes itself on the
	// first valid input (e.g. a single radio choice).
	StepKindInfo StepKind = "info"
	// StepKindTerminal ends the funnel and triggers the final submission.
	StepKindTerminal StepKind = "terminal"
)

// Text holds a bilingual display string.
type Text struct {
	EN string `json:"en"`
	ES string `json:"es,omitempty"`
}

// IsEmpty reports whether the text carries no content in any language.
func (t Text) IsEmpty() bool {
	return t.EN == "" && t.ES == ""
}

// In returns the text in the requested language, falling back to English.
func (t Text) In(lang Language) string {
	if lang == LanguageSpanish && t.ES != "" {
		return t.ES
	}
	return t.EN
}

// RuleKind identifies a validation rule.
type RuleKind string

const (
	RuleRequired  RuleKind = "required"
	RuleMinLength RuleKind = "minLength"
	RuleMaxLength RuleKind = "maxLength"
	RuleEmail     RuleKind = "email"
	RulePhone     RuleKind = "phone"
)

// ValidationRule is one entry in a field's ordered rule list.
//
// A rule whose Message is empty in every language is inert: it is evaluated
// but never contributes a failure. Catalogs rely on inert rules not blocking
// advancement, so a rule without user-facing text never rejects a value.
type ValidationRule struct {
	Kind    RuleKind `json:"kind"`
	Param   int      `json:"param,omitempty"`
	Message Text     `json:"message"`
}

// Inert reports whether the rule is documentation-only and cannot fail.
func (r ValidationRule) Inert() bool {
	return r.Message.IsEmpty()
}

// ValidationFailure describes one violated rule on one field.
type ValidationFailure struct {
	FieldID string   `json:"field_id"`
	Key     string   `json:"key"`
	Rule    RuleKind `json:"rule"`
	Message Text     `json:"message"`
}

// FieldOption is one selectable option of a select/radio/checkbox field.
// Value is the canonical token stored and submitted; Label is what the user
// sees in their display language.
type FieldOption struct {
	Value string `json:"value"`
	Label Text   `json:"label"`
}

// FieldDefinition describes one input within a step.
//
// ID identifies the field within its step; Key is the storage key under
// which the value persists. Several steps may share a Key (e.g. a review
// step re-editing the first name), so Key, not ID, is the unit of
// persistence identity.
type FieldDefinition struct {
	ID      string           `json:"id"`
	Key     string           `json:"key"`
	Type    FieldType        `json:"type"`
	Options []FieldOption    `json:"options,omitempty"`
	Rules   []ValidationRule `json:"rules,omitempty"`
	Default interface{}      `json:"default,omitempty"`
}

// BranchFunc computes the next step id from the full response map. It must
// be total: missing keys resolve to a sane default branch, never a panic.
// An empty return means the step is terminal for that response shape.
type BranchFunc func(stepID string, responses map[string]interface{}) string

// StepDefinition describes one screen of the intake funnel.
//
// Next is a fixed next step id; Branch, when set, takes precedence and is
// evaluated against the freshest response snapshot on every navigation
// request. A terminal step has neither.
type StepDefinition struct {
	ID     string
	Kind   StepKind
	Fields []FieldDefinition
	Next   string
	Branch BranchFunc
	Prev   string

	// Checkpoint, when non-empty, names the milestone checkpoint fired in
	// the background after this step completes.
	Checkpoint       string
	CheckpointStatus CheckpointStatus
}

// IsTerminal reports whether the step ends the funnel.
func (s StepDefinition) IsTerminal() bool {
	return s.Kind == StepKindTerminal
}
