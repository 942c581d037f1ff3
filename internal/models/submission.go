// Package models defines the final submission payload shape.
package models

import "time"

// SubmissionPayload is the canonical-language payload sent once to the
// record-creation collaborator at terminal qualification. Every enumerated or
// localized answer has already been normalized to English; downstream
// consumers never need to know which language the user filled the form in.
type SubmissionPayload struct {
	PersonalInfo        PersonalInfo        `json:"personalInfo"`
	Address             Address             `json:"address"`
	MedicalProfile      MedicalProfile      `json:"medicalProfile"`
	MedicalHistory      MedicalHistory      `json:"medicalHistory"`
	GLP1Profile         GLP1Profile         `json:"glp1Profile"`
	QualificationStatus QualificationStatus `json:"qualificationStatus"`
}

// PersonalInfo groups identity and contact answers.
type PersonalInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Sex         string `json:"sex,omitempty"`
}

// Address groups shipping/residence answers.
type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// MedicalProfile groups body metrics and goals. BMI is computed at
// collection time from the current weight and height answers.
type MedicalProfile struct {
	WeightLbs     float64 `json:"weightLbs"`
	HeightInches  float64 `json:"heightInches"`
	BMI           float64 `json:"bmi"`
	GoalWeightLbs float64 `json:"goalWeightLbs,omitempty"`
	WeightGoal    string  `json:"weightGoal,omitempty"`
	ActivityLevel string  `json:"activityLevel,omitempty"`
}

// MedicalHistory groups condition and medication answers as
// canonical-language arrays.
type MedicalHistory struct {
	ChronicConditions       []string `json:"chronicConditions"`
	ChronicConditionsDetail string   `json:"chronicConditionsDetail,omitempty"`
	DigestiveConditions     []string `json:"digestiveConditions"`
	Medications             []string `json:"medications"`
	Allergies               []string `json:"allergies"`
}

// GLP1Profile groups GLP-1 medication history answers.
type GLP1Profile struct {
	HasTakenGLP1   string `json:"hasTakenGlp1"`
	LastMedication string `json:"lastMedication,omitempty"`
	LastDose       string `json:"lastDose,omitempty"`
	LastTakenAt    string `json:"lastTakenAt,omitempty"`
}

// QualificationStatus records the gate decision and the checkpoint trail.
type QualificationStatus struct {
	Qualified   bool      `json:"qualified"`
	Reason      string    `json:"reason,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
	Checkpoints []string  `json:"checkpoints"`
}
