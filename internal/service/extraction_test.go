package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/liliang-cn/triage/internal/domain"
	"go.uber.org/zap"
)

func extractionWith(painScale string) string {
	return fmt.Sprintf(`{
  "patient_name": "Ana Souza",
  "date_of_birth": "1985-02-01",
  "chief_complaint": "abdominal pain",
  "onset": "yesterday",
  "pain_scale": %s
}`, painScale)
}

func runExtraction(t *testing.T, output string) (*domain.PatientRecord, error) {
	t.Helper()
	client := &stubLLM{extraction: output}
	e := NewExtractor(client, nineQuestionCatalog(), time.Second, zap.NewNop())
	return e.Extract(context.Background(), map[int]string{1: "Ana"}, domain.LanguageEnglish)
}

func TestExtract_PainScaleBounds(t *testing.T) {
	tests := []struct {
		pain    string
		want    *int
		wantErr error
	}{
		{"0", nil, domain.ErrExtractionValidation},
		{"11", nil, domain.ErrExtractionValidation},
		{"-3", nil, domain.ErrExtractionValidation},
		{"null", nil, nil},
		{"1", intPtr(1), nil},
		{"10", intPtr(10), nil},
		{"6.5", nil, domain.ErrExtractionValidation},
		{`"seven"`, nil, domain.ErrExtractionValidation},
	}

	for _, tt := range tests {
		t.Run(tt.pain, func(t *testing.T) {
			record, err := runExtraction(t, extractionWith(tt.pain))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch {
			case tt.want == nil && record.PainScale != nil:
				t.Errorf("expected nil pain scale, got %d", *record.PainScale)
			case tt.want != nil && (record.PainScale == nil || *record.PainScale != *tt.want):
				t.Errorf("expected pain scale %d, got %v", *tt.want, record.PainScale)
			}
		})
	}
}

func TestExtract_DefaultsAbsentFields(t *testing.T) {
	record, err := runExtraction(t, extractionWith("null"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Location != nil || record.PhoneNumber != nil {
		t.Error("expected absent optional strings to be nil")
	}
	for name, list := range map[string][]string{
		"associated_symptoms": record.AssociatedSymptoms,
		"medical_history":     record.MedicalHistory,
		"current_medications": record.CurrentMedications,
		"allergies":           record.Allergies,
	} {
		if list == nil || len(list) != 0 {
			t.Errorf("%s: expected empty non-nil slice, got %#v", name, list)
		}
	}
}

func TestExtract_RequiredFields(t *testing.T) {
	for _, field := range []string{"patient_name", "date_of_birth", "chief_complaint", "onset"} {
		t.Run(field, func(t *testing.T) {
			output := strings.Replace(validExtraction, `"`+field+`"`, `"ignored_`+field+`"`, 1)
			_, err := runExtraction(t, output)
			if !errors.Is(err, domain.ErrExtractionValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	_, err := runExtraction(t, strings.Replace(validExtraction, `"chest pain"`, `"   "`, 1))
	if !errors.Is(err, domain.ErrExtractionValidation) {
		t.Errorf("expected validation error for blank complaint, got %v", err)
	}
}

func TestExtract_TypeMismatchIsValidationError(t *testing.T) {
	tests := []string{
		strings.Replace(validExtraction, `"allergies": ["penicillin"]`, `"allergies": "penicillin"`, 1),
		strings.Replace(validExtraction, `"location": "left chest"`, `"location": 4`, 1),
		strings.Replace(validExtraction, `"patient_name": "John Smith"`, `"patient_name": ["John"]`, 1),
	}
	for i, output := range tests {
		if _, err := runExtraction(t, output); !errors.Is(err, domain.ErrExtractionValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestExtract_ParseErrors(t *testing.T) {
	for _, output := range []string{
		"no json here",
		"```json\n" + validExtraction,
		`{"patient_name": }`,
	} {
		if _, err := runExtraction(t, output); !errors.Is(err, domain.ErrExtractionParse) {
			t.Errorf("expected parse error for %q, got %v", output, err)
		}
	}
}

func TestExtract_FullRecord(t *testing.T) {
	record, err := runExtraction(t, "```json\n"+validExtraction+"\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.PatientName != "John Smith" || record.ChiefComplaint != "chest pain" {
		t.Errorf("unexpected record: %+v", record)
	}
	if record.Radiation == nil || *record.Radiation != "left arm" {
		t.Errorf("unexpected radiation: %v", record.Radiation)
	}
	if len(record.AssociatedSymptoms) != 2 || record.AssociatedSymptoms[0] != "diaphoresis" {
		t.Errorf("unexpected symptoms: %v", record.AssociatedSymptoms)
	}
}

func TestExtract_PromptListsEveryQuestion(t *testing.T) {
	client := &stubLLM{extraction: validExtraction}
	cat := nineQuestionCatalog()
	e := NewExtractor(client, cat, time.Second, zap.NewNop())

	answers := map[int]string{1: "Juan", 3: "dolor de pecho"}
	if _, err := e.Extract(context.Background(), answers, domain.LanguageSpanish); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := client.promptFor(extractionMarker)
	if !strings.Contains(prompt, "Spanish") {
		t.Error("expected prompt to name the patient language")
	}
	if !strings.Contains(prompt, "Q3: ¿Pregunta sobre chief complaint?\nA: dolor de pecho") {
		t.Error("expected question 3 in Spanish with its answer")
	}
	if !strings.Contains(prompt, "Q9: ¿Pregunta sobre allergies?\nA: Not provided") {
		t.Error("expected missing answers to be marked as not provided")
	}
}

func TestExtract_CompletionError(t *testing.T) {
	client := &stubLLM{err: errors.New("connection refused")}
	e := NewExtractor(client, nineQuestionCatalog(), time.Second, zap.NewNop())
	_, err := e.Extract(context.Background(), nil, domain.LanguageEnglish)
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.ErrorKind(err) != "Internal" {
		t.Errorf("expected Internal kind, got %s", domain.ErrorKind(err))
	}
}
