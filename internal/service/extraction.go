package service

import (
	"context"
	"fmt"
	"time"

	"github.com/liliang-cn/triage/internal/catalog"
	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/llm"
	"go.uber.org/zap"
)

// Extractor turns raw intake answers into a validated PatientRecord
type Extractor struct {
	llm     llm.Client
	catalog *catalog.Catalog
	timeout time.Duration
	logger  *zap.Logger
}

// NewExtractor creates a new extraction stage
func NewExtractor(client llm.Client, cat *catalog.Catalog, callTimeout time.Duration, logger *zap.Logger) *Extractor {
	return &Extractor{llm: client, catalog: cat, timeout: callTimeout, logger: logger}
}

// Extract asks the model to structure the answers and validates the result
func (e *Extractor) Extract(ctx context.Context, answers map[int]string, lang domain.Language) (*domain.PatientRecord, error) {
	prompt := buildExtractionPrompt(e.catalog, answers, lang)

	callCtx, cancel := boundedContext(ctx, e.timeout)
	out, err := e.llm.Complete(callCtx, prompt)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("extraction completion failed: %w", err)
	}

	obj, err := parseModelJSON(out)
	if err != nil {
		e.logger.Debug("Unparseable extraction output", zap.String("output", out))
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionParse, err)
	}

	record, err := recordFromJSON(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionValidation, err)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// recordFromJSON maps each key explicitly; required fields are checked by
// PatientRecord.Validate afterwards
func recordFromJSON(obj map[string]any) (*domain.PatientRecord, error) {
	r := &domain.PatientRecord{}
	var err error

	required := []struct {
		key string
		dst *string
	}{
		{"patient_name", &r.PatientName},
		{"date_of_birth", &r.DateOfBirth},
		{"chief_complaint", &r.ChiefComplaint},
		{"onset", &r.Onset},
	}
	for _, f := range required {
		s, err := optString(obj, f.key)
		if err != nil {
			return nil, err
		}
		if s != nil {
			*f.dst = *s
		}
	}

	optional := []struct {
		key string
		dst **string
	}{
		{"phone_number", &r.PhoneNumber},
		{"emergency_contact_name", &r.EmergencyContactName},
		{"emergency_contact_phone", &r.EmergencyContactPhone},
		{"duration", &r.Duration},
		{"pain_type", &r.PainType},
		{"location", &r.Location},
		{"radiation", &r.Radiation},
	}
	for _, f := range optional {
		if *f.dst, err = optString(obj, f.key); err != nil {
			return nil, err
		}
	}

	if r.PainScale, err = optInt(obj, "pain_scale"); err != nil {
		return nil, err
	}

	lists := []struct {
		key string
		dst *[]string
	}{
		{"associated_symptoms", &r.AssociatedSymptoms},
		{"medical_history", &r.MedicalHistory},
		{"current_medications", &r.CurrentMedications},
		{"allergies", &r.Allergies},
	}
	for _, f := range lists {
		if *f.dst, err = stringList(obj, f.key); err != nil {
			return nil, err
		}
	}

	return r, nil
}
