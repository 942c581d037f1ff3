// Package i18n provides bilingual option labels and canonical-language
// normalization for submission payloads.
//
// Answers may be stored as canonical tokens, as display labels in the
// session's language, or as translation keys, depending on which UI surface
// wrote them. Canonicalize maps all three spellings onto one canonical token
// so the submission collector never emits a localized value.
package i18n

import (
	"strings"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// labels maps each canonical token to its display text per language.
var labels = map[string]models.Text{
	// Generic answers
	"yes":  {EN: "Yes", ES: "Sí"},
	"no":   {EN: "No", ES: "No"},
	"none": {EN: "None", ES: "Ninguna"},

	// Sex
	"male":   {EN: "Male", ES: "Masculino"},
	"female": {EN: "Female", ES: "Femenino"},

	// Weight goals
	"lose_1_20":    {EN: "Lose 1-20 lbs", ES: "Perder 1-20 libras"},
	"lose_21_50":   {EN: "Lose 21-50 lbs", ES: "Perder 21-50 libras"},
	"lose_over_50": {EN: "Lose 50+ lbs", ES: "Perder más de 50 libras"},
	"maintain":     {EN: "Maintain weight", ES: "Mantener el peso"},

	// Activity levels
	"sedentary":         {EN: "Sedentary", ES: "Sedentario"},
	"lightly_active":    {EN: "Lightly active", ES: "Ligeramente activo"},
	"moderately_active": {EN: "Moderately active", ES: "Moderadamente activo"},
	"very_active":       {EN: "Very active", ES: "Muy activo"},

	// Chronic conditions
	"diabetes_type1":   {EN: "Type 1 diabetes", ES: "Diabetes tipo 1"},
	"diabetes_type2":   {EN: "Type 2 diabetes", ES: "Diabetes tipo 2"},
	"hypertension":     {EN: "High blood pressure", ES: "Presión arterial alta"},
	"high_cholesterol": {EN: "High cholesterol", ES: "Colesterol alto"},
	"thyroid_disorder": {EN: "Thyroid disorder", ES: "Trastorno de tiroides"},
	"pcos":             {EN: "PCOS", ES: "SOP"},
	"sleep_apnea":      {EN: "Sleep apnea", ES: "Apnea del sueño"},

	// Digestive conditions
	"gallbladder_disease": {EN: "Gallbladder disease", ES: "Enfermedad de la vesícula"},
	"pancreatitis":        {EN: "Pancreatitis", ES: "Pancreatitis"},
	"gerd":                {EN: "Acid reflux (GERD)", ES: "Reflujo ácido (ERGE)"},
	"ibs":                 {EN: "IBS", ES: "SII"},

	// GLP-1 medications
	"semaglutide": {EN: "Semaglutide (Ozempic/Wegovy)", ES: "Semaglutida (Ozempic/Wegovy)"},
	"tirzepatide": {EN: "Tirzepatide (Mounjaro/Zepbound)", ES: "Tirzepatida (Mounjaro/Zepbound)"},
	"liraglutide": {EN: "Liraglutide (Saxenda)", ES: "Liraglutida (Saxenda)"},
}

// reverse maps lowercased display labels (all languages) back to tokens.
// Built once at package init.
var reverse = buildReverseIndex()

func buildReverseIndex() map[string]string {
	idx := make(map[string]string, len(labels)*2)
	for token, text := range labels {
		if text.EN != "" {
			idx[strings.ToLower(text.EN)] = token
		}
		if text.ES != "" {
			idx[strings.ToLower(text.ES)] = token
		}
	}
	return idx
}

// Label returns the display text for a canonical token in the given
// language, falling back to the token itself when unknown.
func Label(token string, lang models.Language) string {
	if text, ok := labels[token]; ok {
		return text.In(lang)
	}
	return token
}

// Known reports whether the value is a canonical token.
func Known(token string) bool {
	_, ok := labels[token]
	return ok
}

// Canonicalize maps a stored answer value to its canonical token. It accepts
// three spellings: the token itself, a display label in any supported
// language, or a dotted translation key whose last segment is a token.
// Unknown values pass through unchanged so free-form answers survive.
func Canonicalize(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return trimmed
	}
	if _, ok := labels[trimmed]; ok {
		return trimmed
	}
	if token, ok := reverse[strings.ToLower(trimmed)]; ok {
		return token
	}
	if i := strings.LastIndex(trimmed, "."); i >= 0 {
		if tail := trimmed[i+1:]; Known(tail) {
			return tail
		}
	}
	return trimmed
}

// CanonicalizeValue normalizes a stored answer of any shape: strings are
// canonicalized directly, string slices element-wise, and everything else is
// returned as-is.
func CanonicalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return Canonicalize(v)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = Canonicalize(s)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = CanonicalizeValue(item)
		}
		return out
	default:
		return value
	}
}

// CanonicalizeStrings normalizes a stored answer into a string slice,
// accepting a single string, []string, or []interface{}. Nil input yields an
// empty slice so submission arrays are never null.
func CanonicalizeStrings(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		return []string{Canonicalize(v)}
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, Canonicalize(s))
			}
		}
		return out
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, Canonicalize(s))
			}
		}
		return out
	default:
		return []string{}
	}
}
