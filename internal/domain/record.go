package domain

import (
	"fmt"
	"strings"
)

// Pain scale bounds, inclusive
const (
	MinPainScale = 1
	MaxPainScale = 10
)

// PatientRecord is the structured anamnesis extracted from the raw answers
type PatientRecord struct {
	PatientName           string  `json:"patient_name"`
	DateOfBirth           string  `json:"date_of_birth"`
	PhoneNumber           *string `json:"phone_number"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`

	ChiefComplaint     string   `json:"chief_complaint"`
	Onset              string   `json:"onset"`
	Duration           *string  `json:"duration"`
	PainScale          *int     `json:"pain_scale"`
	PainType           *string  `json:"pain_type"`
	Location           *string  `json:"location"`
	Radiation          *string  `json:"radiation"`
	AssociatedSymptoms []string `json:"associated_symptoms"`
	MedicalHistory     []string `json:"medical_history"`
	CurrentMedications []string `json:"current_medications"`
	Allergies          []string `json:"allergies"`
}

// Validate checks the record invariants. A pain scale outside [1,10] is an
// error, never clamped.
func (r *PatientRecord) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"patient_name", r.PatientName},
		{"date_of_birth", r.DateOfBirth},
		{"chief_complaint", r.ChiefComplaint},
		{"onset", r.Onset},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrExtractionValidation, f.name)
		}
	}
	if r.PainScale != nil && (*r.PainScale < MinPainScale || *r.PainScale > MaxPainScale) {
		return fmt.Errorf("%w: pain_scale %d outside [%d,%d]",
			ErrExtractionValidation, *r.PainScale, MinPainScale, MaxPainScale)
	}
	return nil
}

// Clone returns a deep copy
func (r *PatientRecord) Clone() *PatientRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.PhoneNumber = cloneString(r.PhoneNumber)
	cp.EmergencyContactName = cloneString(r.EmergencyContactName)
	cp.EmergencyContactPhone = cloneString(r.EmergencyContactPhone)
	cp.Duration = cloneString(r.Duration)
	cp.PainType = cloneString(r.PainType)
	cp.Location = cloneString(r.Location)
	cp.Radiation = cloneString(r.Radiation)
	if r.PainScale != nil {
		v := *r.PainScale
		cp.PainScale = &v
	}
	cp.AssociatedSymptoms = cloneStrings(r.AssociatedSymptoms)
	cp.MedicalHistory = cloneStrings(r.MedicalHistory)
	cp.CurrentMedications = cloneStrings(r.CurrentMedications)
	cp.Allergies = cloneStrings(r.Allergies)
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
