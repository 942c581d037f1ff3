package i18n

import (
	"reflect"
	"testing"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

func TestCanonicalizeToken(t *testing.T) {
	if got := Canonicalize("yes"); got != "yes" {
		t.Errorf("expected token to pass through, got %q", got)
	}
}

func TestCanonicalizeLabelsBothLanguages(t *testing.T) {
	// A Spanish display label and its English equivalent must normalize to
	// the same canonical token.
	en := Canonicalize("Yes")
	es := Canonicalize("Sí")
	if en != es {
		t.Errorf("expected identical tokens, got %q and %q", en, es)
	}
	if en != "yes" {
		t.Errorf("expected canonical token 'yes', got %q", en)
	}
}

func TestCanonicalizeCaseInsensitive(t *testing.T) {
	if got := Canonicalize("high blood pressure"); got != "hypertension" {
		t.Errorf("expected 'hypertension', got %q", got)
	}
}

func TestCanonicalizeTranslationKey(t *testing.T) {
	if got := Canonicalize("intake.options.sedentary"); got != "sedentary" {
		t.Errorf("expected 'sedentary', got %q", got)
	}
}

func TestCanonicalizeUnknownPassesThrough(t *testing.T) {
	if got := Canonicalize("penicillin"); got != "penicillin" {
		t.Errorf("expected free-form value unchanged, got %q", got)
	}
}

func TestCanonicalizeEmpty(t *testing.T) {
	if got := Canonicalize("  "); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

func TestCanonicalizeValueSlices(t *testing.T) {
	in := []interface{}{"Sí", "Pancreatitis", "custom"}
	out := CanonicalizeValue(in)
	want := []interface{}{"yes", "pancreatitis", "custom"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("expected %v, got %v", want, out)
	}
}

func TestCanonicalizeStrings(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want []string
	}{
		{"nil", nil, []string{}},
		{"single string", "Ninguna", []string{"none"}},
		{"string slice", []string{"Type 2 diabetes", "SOP"}, []string{"diabetes_type2", "pcos"}},
		{"interface slice", []interface{}{"Sleep apnea", ""}, []string{"sleep_apnea"}},
		{"non-string", 42, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanonicalizeStrings(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestLabelFallsBackToEnglish(t *testing.T) {
	if got := Label("pancreatitis", models.LanguageSpanish); got != "Pancreatitis" {
		t.Errorf("unexpected label %q", got)
	}
	if got := Label("unknown_token", models.LanguageEnglish); got != "unknown_token" {
		t.Errorf("expected token fallback, got %q", got)
	}
}
