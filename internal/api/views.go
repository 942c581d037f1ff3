// Package api view types: the JSON shapes returned to intake clients.
package api

import (
	"log/slog"

	"github.com/BTreeMap/IntakeFlow/internal/funnel"
	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// sessionView is the client-facing snapshot of a session: where it is, what
// it has answered, and the renderable definition of its current step.
type sessionView struct {
	SessionID      string                 `json:"session_id"`
	Language       models.Language        `json:"language"`
	CurrentStep    string                 `json:"current_step"`
	Completed      bool                   `json:"completed"`
	CompletedSteps []string               `json:"completed_steps"`
	Responses      map[string]interface{} `json:"responses"`
	Step           *stepView              `json:"step,omitempty"`
}

// stepView is a step definition rendered for one display language.
type stepView struct {
	ID        string          `json:"id"`
	Kind      models.StepKind `json:"kind"`
	Terminal  bool            `json:"terminal"`
	CanGoBack bool            `json:"can_go_back"`
	Fields    []fieldView     `json:"fields,omitempty"`
}

type fieldView struct {
	ID       string           `json:"id"`
	Type     models.FieldType `json:"type"`
	Required bool             `json:"required"`
	Options  []optionView     `json:"options,omitempty"`
	Default  interface{}      `json:"default,omitempty"`
}

type optionView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// failureView is one validation failure with its message resolved to the
// session's display language.
type failureView struct {
	FieldID string          `json:"field_id"`
	Rule    models.RuleKind `json:"rule"`
	Message string          `json:"message"`
}

// advanceView echoes an advance outcome with the freshly rendered next step.
type advanceView struct {
	CurrentStep string    `json:"current_step"`
	Completed   bool      `json:"completed"`
	Step        *stepView `json:"step,omitempty"`
}

func (s *Server) sessionView(snapshot models.ResponseRecord) sessionView {
	view := sessionView{
		SessionID:      snapshot.SessionID,
		Language:       snapshot.Language,
		CurrentStep:    snapshot.CurrentStep,
		CompletedSteps: snapshot.CompletedSteps,
		Responses:      snapshot.Responses,
		Step:           s.stepView(snapshot.CurrentStep, snapshot.Language),
	}
	if view.CompletedSteps == nil {
		view.CompletedSteps = []string{}
	}
	if view.Responses == nil {
		view.Responses = map[string]interface{}{}
	}
	if view.Step != nil {
		view.Completed = view.Step.Terminal
	}
	return view
}

func (s *Server) advanceView(sessionID string, result funnel.AdvanceResult) advanceView {
	lang := models.LanguageEnglish
	if sess, err := s.engine.Session(sessionID); err == nil {
		lang = sess.Language()
	}
	return advanceView{
		CurrentStep: result.CurrentStep,
		Completed:   result.Completed,
		Step:        s.stepView(result.CurrentStep, lang),
	}
}

func (s *Server) stepView(stepID string, lang models.Language) *stepView {
	step, err := s.engine.Catalog().Step(stepID)
	if err != nil {
		// A session can only point at catalog steps, so this is a
		// programming error rather than client input.
		slog.Error("Server.stepView: unknown step", "error", err, "step", stepID)
		return nil
	}
	view := &stepView{
		ID:        step.ID,
		Kind:      step.Kind,
		Terminal:  step.IsTerminal(),
		CanGoBack: step.Prev != "",
	}
	for _, field := range step.Fields {
		fv := fieldView{
			ID:       field.ID,
			Type:     field.Type,
			Required: isRequired(field),
			Default:  field.Default,
		}
		for _, opt := range field.Options {
			fv.Options = append(fv.Options, optionView{
				Value: opt.Value,
				Label: opt.Label.In(lang),
			})
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

// isRequired reports whether the field carries a non-inert required rule.
func isRequired(field models.FieldDefinition) bool {
	for _, rule := range field.Rules {
		if rule.Kind == models.RuleRequired && !rule.Inert() {
			return true
		}
	}
	return false
}

func failureViews(failures []models.ValidationFailure, lang models.Language) []failureView {
	views := make([]failureView, 0, len(failures))
	for _, f := range failures {
		views = append(views, failureView{
			FieldID: f.FieldID,
			Rule:    f.Rule,
			Message: f.Message.In(lang),
		})
	}
	return views
}
