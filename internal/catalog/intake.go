// Package catalog ships the weight-loss intake funnel definition.
package catalog

import (
	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// Step ids for the intake funnel.
const (
	StepLanguage               = "language"
	StepPersonalInfo           = "personal-info"
	StepAddress                = "address"
	StepBodyProfile            = "body-profile"
	StepWeightGoal             = "weight-goal"
	StepActivityLevel          = "activity-level"
	StepMedicalIntro           = "medical-intro"
	StepChronicConditions      = "chronic-conditions"
	StepChronicConditionDetail = "chronic-conditions-detail"
	StepDigestiveConditions    = "digestive-conditions"
	StepMedications            = "medications"
	StepAllergies              = "allergies"
	StepGLP1History            = "glp1-history"
	StepGLP1Details            = "glp1-details"
	StepReview                 = "review"
	StepQualification          = "qualification"
)

// Checkpoint milestone names fired as steps complete.
const (
	CheckpointContactCaptured = "contact-captured"
	CheckpointAddressCaptured = "address-captured"
	CheckpointMedicalComplete = "medical-complete"
	CheckpointQualified       = "qualified"
)

// Storage keys shared across steps. The review step re-edits the same keys
// the earlier steps wrote, so these are declared once.
const (
	KeyLanguage = "language"
	// FieldLanguage is the field id of the language choice on the first
	// step; the engine inspects it to switch the session language.
	FieldLanguage        = "language"
	KeyFirstName         = "first_name"
	KeyLastName          = "last_name"
	KeyEmail             = "email"
	KeyPhone             = "phone"
	KeyAddressLine1      = "address_line1"
	KeyAddressLine2      = "address_line2"
	KeyCity              = "city"
	KeyState             = "state"
	KeyZip               = "zip"
	KeyWeightLbs         = "weight_lbs"
	KeyHeightFeet        = "height_feet"
	KeyHeightInches      = "height_inches"
	KeyGoalWeightLbs     = "goal_weight_lbs"
	KeyWeightGoal        = "weight_goal"
	KeyActivityLevel     = "activity_level"
	KeyChronicConditions = "chronic_conditions"
	KeyChronicDetail     = "chronic_conditions_detail"
	KeyDigestive         = "digestive_conditions"
	KeyMedications       = "medications"
	KeyAllergies         = "allergies"
	KeyHasTakenGLP1      = "has_taken_glp1"
	KeyLastMedication    = "glp1_last_medication"
	KeyLastDose          = "glp1_last_dose"
	KeyLastTakenAt       = "glp1_last_taken_at"
)

func required(en, es string) models.ValidationRule {
	return models.ValidationRule{Kind: models.RuleRequired, Message: models.Text{EN: en, ES: es}}
}

func minLength(n int, en, es string) models.ValidationRule {
	return models.ValidationRule{Kind: models.RuleMinLength, Param: n, Message: models.Text{EN: en, ES: es}}
}

func yesNoOptions() []models.FieldOption {
	return []models.FieldOption{
		{Value: "yes", Label: models.Text{EN: "Yes", ES: "Sí"}},
		{Value: "no", Label: models.Text{EN: "No", ES: "No"}},
	}
}

// hasOnlyNone reports whether a multi-select answer is empty or contains
// only the "none" sentinel. Missing keys count as none so branch functions
// stay total over every response shape.
func hasOnlyNone(responses map[string]interface{}, key string) bool {
	raw, ok := responses[key]
	if !ok || raw == nil {
		return true
	}
	var values []string
	switch v := raw.(type) {
	case string:
		values = []string{v}
	case []string:
		values = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	default:
		return true
	}
	for _, s := range values {
		if s != "" && s != "none" {
			return false
		}
	}
	return true
}

// Intake returns the compiled-in weight-loss intake funnel catalog.
func Intake() *Catalog {
	return MustNew([]models.StepDefinition{
		{
			ID:   StepLanguage,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: FieldLanguage, Key: KeyLanguage, Type: models.FieldTypeRadio,
					Options: []models.FieldOption{
						{Value: "en", Label: models.Text{EN: "English", ES: "Inglés"}},
						{Value: "es", Label: models.Text{EN: "Spanish", ES: "Español"}},
					},
					Default: "en",
					Rules:   []models.ValidationRule{required("Please choose a language", "Por favor elige un idioma")},
				},
			},
			Next: StepPersonalInfo,
		},
		{
			ID:   StepPersonalInfo,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "first_name", Key: KeyFirstName, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{
						required("First name is required", "El nombre es obligatorio"),
						minLength(2, "First name is too short", "El nombre es demasiado corto"),
					},
				},
				{
					ID: "last_name", Key: KeyLastName, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{
						required("Last name is required", "El apellido es obligatorio"),
						minLength(2, "Last name is too short", "El apellido es demasiado corto"),
					},
				},
				{
					ID: "email", Key: KeyEmail, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{
						required("Email is required", "El correo es obligatorio"),
						{Kind: models.RuleEmail, Message: models.Text{EN: "Enter a valid email", ES: "Ingresa un correo válido"}},
					},
				},
				{
					ID: "phone", Key: KeyPhone, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{
						required("Phone number is required", "El teléfono es obligatorio"),
						{Kind: models.RulePhone, Message: models.Text{EN: "Enter a valid phone number", ES: "Ingresa un teléfono válido"}},
					},
				},
			},
			Prev:             StepLanguage,
			Next:             StepAddress,
			Checkpoint:       CheckpointContactCaptured,
			CheckpointStatus: models.CheckpointStatusPartial,
		},
		{
			ID:   StepAddress,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "address_line1", Key: KeyAddressLine1, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{required("Street address is required", "La dirección es obligatoria")},
				},
				{ID: "address_line2", Key: KeyAddressLine2, Type: models.FieldTypeText},
				{
					ID: "city", Key: KeyCity, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{required("City is required", "La ciudad es obligatoria")},
				},
				{
					ID: "state", Key: KeyState, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{required("State is required", "El estado es obligatorio")},
				},
				{
					ID: "zip", Key: KeyZip, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{
						required("ZIP code is required", "El código postal es obligatorio"),
						minLength(5, "Enter a valid ZIP code", "Ingresa un código postal válido"),
					},
				},
			},
			Prev:             StepPersonalInfo,
			Next:             StepBodyProfile,
			Checkpoint:       CheckpointAddressCaptured,
			CheckpointStatus: models.CheckpointStatusPartial,
		},
		{
			ID:   StepBodyProfile,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "weight_lbs", Key: KeyWeightLbs, Type: models.FieldTypeNumber,
					Rules: []models.ValidationRule{required("Weight is required", "El peso es obligatorio")},
				},
				{
					ID: "height_feet", Key: KeyHeightFeet, Type: models.FieldTypeNumber,
					Rules: []models.ValidationRule{required("Height is required", "La estatura es obligatoria")},
				},
				{
					ID: "height_inches", Key: KeyHeightInches, Type: models.FieldTypeNumber,
					// No message, so the rule is inert: a bare zero inches
					// never blocks advancement.
					Rules: []models.ValidationRule{{Kind: models.RuleRequired}},
				},
				{ID: "goal_weight_lbs", Key: KeyGoalWeightLbs, Type: models.FieldTypeNumber},
			},
			Prev: StepAddress,
			Next: StepWeightGoal,
		},
		{
			ID:   StepWeightGoal,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "weight_goal", Key: KeyWeightGoal, Type: models.FieldTypeRadio,
					Options: []models.FieldOption{
						{Value: "lose_1_20", Label: models.Text{EN: "Lose 1-20 lbs", ES: "Perder 1-20 libras"}},
						{Value: "lose_21_50", Label: models.Text{EN: "Lose 21-50 lbs", ES: "Perder 21-50 libras"}},
						{Value: "lose_over_50", Label: models.Text{EN: "Lose 50+ lbs", ES: "Perder más de 50 libras"}},
						{Value: "maintain", Label: models.Text{EN: "Maintain weight", ES: "Mantener el peso"}},
					},
					Rules: []models.ValidationRule{required("Please choose a goal", "Por favor elige una meta")},
				},
			},
			Prev: StepBodyProfile,
			Next: StepActivityLevel,
		},
		{
			ID:   StepActivityLevel,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "activity_level", Key: KeyActivityLevel, Type: models.FieldTypeRadio,
					Options: []models.FieldOption{
						{Value: "sedentary", Label: models.Text{EN: "Sedentary", ES: "Sedentario"}},
						{Value: "lightly_active", Label: models.Text{EN: "Lightly active", ES: "Ligeramente activo"}},
						{Value: "moderately_active", Label: models.Text{EN: "Moderately active", ES: "Moderadamente activo"}},
						{Value: "very_active", Label: models.Text{EN: "Very active", ES: "Muy activo"}},
					},
					Rules: []models.ValidationRule{required("Please choose an activity level", "Por favor elige un nivel de actividad")},
				},
			},
			Prev: StepWeightGoal,
			Next: StepMedicalIntro,
		},
		{
			// Interstitial before the medical history section. Carries no
			// fields and completes on arrival; Back from the next step skips
			// it.
			ID:   StepMedicalIntro,
			Kind: models.StepKindInfo,
			Prev: StepActivityLevel,
			Next: StepChronicConditions,
		},
		{
			ID:   StepChronicConditions,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "chronic_conditions", Key: KeyChronicConditions, Type: models.FieldTypeCheckbox,
					Options: []models.FieldOption{
						{Value: "diabetes_type1", Label: models.Text{EN: "Type 1 diabetes", ES: "Diabetes tipo 1"}},
						{Value: "diabetes_type2", Label: models.Text{EN: "Type 2 diabetes", ES: "Diabetes tipo 2"}},
						{Value: "hypertension", Label: models.Text{EN: "High blood pressure", ES: "Presión arterial alta"}},
						{Value: "high_cholesterol", Label: models.Text{EN: "High cholesterol", ES: "Colesterol alto"}},
						{Value: "thyroid_disorder", Label: models.Text{EN: "Thyroid disorder", ES: "Trastorno de tiroides"}},
						{Value: "pcos", Label: models.Text{EN: "PCOS", ES: "SOP"}},
						{Value: "sleep_apnea", Label: models.Text{EN: "Sleep apnea", ES: "Apnea del sueño"}},
						{Value: "none", Label: models.Text{EN: "None", ES: "Ninguna"}},
					},
					Rules: []models.ValidationRule{required("Select at least one option", "Selecciona al menos una opción")},
				},
			},
			Prev: StepActivityLevel,
			Branch: func(stepID string, responses map[string]interface{}) string {
				// No conditions selected: skip the elaboration step entirely.
				if hasOnlyNone(responses, KeyChronicConditions) {
					return StepDigestiveConditions
				}
				return StepChronicConditionDetail
			},
		},
		{
			ID:   StepChronicConditionDetail,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "chronic_conditions_detail", Key: KeyChronicDetail, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{required("Please describe your conditions", "Por favor describe tus condiciones")},
				},
			},
			Prev: StepChronicConditions,
			Next: StepDigestiveConditions,
		},
		{
			ID:   StepDigestiveConditions,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "digestive_conditions", Key: KeyDigestive, Type: models.FieldTypeCheckbox,
					Options: []models.FieldOption{
						{Value: "gallbladder_disease", Label: models.Text{EN: "Gallbladder disease", ES: "Enfermedad de la vesícula"}},
						{Value: "pancreatitis", Label: models.Text{EN: "Pancreatitis", ES: "Pancreatitis"}},
						{Value: "gerd", Label: models.Text{EN: "Acid reflux (GERD)", ES: "Reflujo ácido (ERGE)"}},
						{Value: "ibs", Label: models.Text{EN: "IBS", ES: "SII"}},
						{Value: "none", Label: models.Text{EN: "None", ES: "Ninguna"}},
					},
					Rules: []models.ValidationRule{required("Select at least one option", "Selecciona al menos una opción")},
				},
			},
			Prev: StepChronicConditions,
			Next: StepMedications,
		},
		{
			ID:   StepMedications,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{ID: "medications", Key: KeyMedications, Type: models.FieldTypeText},
			},
			Prev: StepDigestiveConditions,
			Next: StepAllergies,
		},
		{
			ID:   StepAllergies,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{ID: "allergies", Key: KeyAllergies, Type: models.FieldTypeText},
			},
			Prev: StepMedications,
			Next: StepGLP1History,
		},
		{
			ID:   StepGLP1History,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "has_taken_glp1", Key: KeyHasTakenGLP1, Type: models.FieldTypeRadio,
					Options: yesNoOptions(),
					Rules:   []models.ValidationRule{required("Please answer yes or no", "Por favor responde sí o no")},
				},
			},
			Prev: StepAllergies,
			Branch: func(stepID string, responses map[string]interface{}) string {
				if answer, _ := responses[KeyHasTakenGLP1].(string); answer == "yes" {
					return StepGLP1Details
				}
				return StepReview
			},
		},
		{
			ID:   StepGLP1Details,
			Kind: models.StepKindField,
			Fields: []models.FieldDefinition{
				{
					ID: "glp1_last_medication", Key: KeyLastMedication, Type: models.FieldTypeSelect,
					Options: []models.FieldOption{
						{Value: "semaglutide", Label: models.Text{EN: "Semaglutide (Ozempic/Wegovy)", ES: "Semaglutida (Ozempic/Wegovy)"}},
						{Value: "tirzepatide", Label: models.Text{EN: "Tirzepatide (Mounjaro/Zepbound)", ES: "Tirzepatida (Mounjaro/Zepbound)"}},
						{Value: "liraglutide", Label: models.Text{EN: "Liraglutide (Saxenda)", ES: "Liraglutida (Saxenda)"}},
					},
					Rules: []models.ValidationRule{required("Please select a medication", "Por favor selecciona un medicamento")},
				},
				{ID: "glp1_last_dose", Key: KeyLastDose, Type: models.FieldTypeText},
				{ID: "glp1_last_taken_at", Key: KeyLastTakenAt, Type: models.FieldTypeText},
			},
			Prev: StepGLP1History,
			Next: StepReview,
		},
		{
			ID:   StepReview,
			Kind: models.StepKindField,
			// Review re-edits the storage keys the earlier steps wrote;
			// field ids differ from the originals but the keys are shared.
			Fields: []models.FieldDefinition{
				{
					ID: "review_first_name", Key: KeyFirstName, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{required("First name is required", "El nombre es obligatorio")},
				},
				{
					ID: "review_last_name", Key: KeyLastName, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{required("Last name is required", "El apellido es obligatorio")},
				},
				{
					ID: "review_email", Key: KeyEmail, Type: models.FieldTypeText,
					Rules: []models.ValidationRule{
						required("Email is required", "El correo es obligatorio"),
						{Kind: models.RuleEmail, Message: models.Text{EN: "Enter a valid email", ES: "Ingresa un correo válido"}},
					},
				},
			},
			Prev:             StepGLP1History,
			Next:             StepQualification,
			Checkpoint:       CheckpointMedicalComplete,
			CheckpointStatus: models.CheckpointStatusComplete,
		},
		{
			ID:               StepQualification,
			Kind:             models.StepKindTerminal,
			Prev:             StepReview,
			Checkpoint:       CheckpointQualified,
			CheckpointStatus: models.CheckpointStatusQualified,
		},
	})
}
