// Package validate evaluates field validation rules against candidate
// values.
//
// Validation is stateless and idempotent: callers re-run it on every
// advancement attempt. Rules are evaluated in declaration order without
// short-circuiting, so the UI can surface every violated rule at once.
package validate

import (
	"regexp"
	"strings"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9()\-.\s]{7,20}$`)
)

// Field evaluates every rule of the field definition against the candidate
// value and returns all failures. An empty result means the field is
// acceptable.
//
// Rules with no message in either language are inert: they are matched for
// completeness but never contribute a failure. Catalogs have long declared
// such rules on fields that must stay optional, so a rule only blocks
// advancement when it has something to tell the user.
func Field(field models.FieldDefinition, value interface{}) []models.ValidationFailure {
	var failures []models.ValidationFailure
	for _, rule := range field.Rules {
		if rule.Inert() {
			continue
		}
		if !applies(rule, value) {
			continue
		}
		if violated(rule, value) {
			failures = append(failures, models.ValidationFailure{
				FieldID: field.ID,
				Key:     field.Key,
				Rule:    rule.Kind,
				Message: rule.Message,
			})
		}
	}
	return failures
}

// Step validates every field of a step against the supplied answers, keyed
// by field id. Missing answers fall back to the field default, then nil.
func Step(step models.StepDefinition, answers map[string]interface{}) []models.ValidationFailure {
	var failures []models.ValidationFailure
	for _, field := range step.Fields {
		value, ok := answers[field.ID]
		if !ok {
			value = field.Default
		}
		failures = append(failures, Field(field, value)...)
	}
	return failures
}

// applies reports whether a rule is applicable to the value's shape.
// Format rules only validate non-empty strings: an empty optional field is
// not an email/phone error, that is required's job. Length rules only apply
// to strings and are ignored, not failed, for other types.
func applies(rule models.ValidationRule, value interface{}) bool {
	switch rule.Kind {
	case models.RuleRequired:
		return true
	case models.RuleMinLength, models.RuleMaxLength:
		_, ok := value.(string)
		return ok
	case models.RuleEmail, models.RulePhone:
		s, ok := value.(string)
		return ok && strings.TrimSpace(s) != ""
	default:
		return false
	}
}

func violated(rule models.ValidationRule, value interface{}) bool {
	switch rule.Kind {
	case models.RuleRequired:
		return isEmpty(value)
	case models.RuleMinLength:
		s := value.(string)
		return len([]rune(s)) < rule.Param
	case models.RuleMaxLength:
		s := value.(string)
		return len([]rune(s)) > rule.Param
	case models.RuleEmail:
		return !emailPattern.MatchString(strings.TrimSpace(value.(string)))
	case models.RulePhone:
		return !phonePattern.MatchString(strings.TrimSpace(value.(string)))
	default:
		return false
	}
}

// isEmpty implements required's emptiness check: nil, empty or
// whitespace-only strings, and empty arrays fail; everything else passes,
// including zero numbers and false booleans.
func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}
