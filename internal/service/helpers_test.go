package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/liliang-cn/triage/internal/catalog"
	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/repository"
	"go.uber.org/zap"
)

const (
	extractionMarker     = "medical data extraction assistant"
	classificationMarker = "emergency department triage specialist"
	routingMarker        = "hospital routing specialist"
)

// stubLLM answers each stage with a canned reply, chosen by prompt content
type stubLLM struct {
	mu      sync.Mutex
	prompts []string

	extraction     string
	classification string
	routing        string
	err            error
	delay          time.Duration
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	switch {
	case strings.Contains(prompt, extractionMarker):
		return s.extraction, nil
	case strings.Contains(prompt, classificationMarker):
		return s.classification, nil
	case strings.Contains(prompt, routingMarker):
		return s.routing, nil
	}
	return "", nil
}

func (s *stubLLM) promptFor(marker string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prompts {
		if strings.Contains(p, marker) {
			return p
		}
	}
	return ""
}

// stubSearcher returns fixed texts per corpus and records each query
type stubSearcher struct {
	mu      sync.Mutex
	results map[domain.Corpus][]string
	queries map[domain.Corpus]string
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, corpus domain.Corpus, query string, k int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queries == nil {
		s.queries = make(map[domain.Corpus]string)
	}
	s.queries[corpus] = query
	if s.err != nil {
		return nil, s.err
	}
	res := s.results[corpus]
	if len(res) > k {
		res = res[:k]
	}
	return append([]string{}, res...), nil
}

func (s *stubSearcher) query(corpus domain.Corpus) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[corpus]
}

// nineQuestionCatalog is a short intake used by the end-to-end tests
func nineQuestionCatalog() *catalog.Catalog {
	fields := []string{
		"patient_name", "date_of_birth", "chief_complaint", "onset", "pain_scale",
		"location", "associated_symptoms", "medical_history", "allergies",
	}
	qs := make([]catalog.Question, len(fields))
	for i, f := range fields {
		qs[i] = catalog.Question{
			Number:    i + 1,
			FieldName: f,
			Text: map[domain.Language]string{
				domain.LanguageEnglish: "Question about " + strings.ReplaceAll(f, "_", " ") + "?",
				domain.LanguageSpanish: "¿Pregunta sobre " + strings.ReplaceAll(f, "_", " ") + "?",
			},
		}
	}
	c, err := catalog.New(qs)
	if err != nil {
		panic(err)
	}
	return c
}

const validExtraction = `{
  "patient_name": "John Smith",
  "date_of_birth": "1970-03-15",
  "phone_number": null,
  "chief_complaint": "chest pain",
  "onset": "30 minutes ago",
  "pain_scale": 9,
  "location": "left chest",
  "radiation": "left arm",
  "associated_symptoms": ["diaphoresis", "dyspnea"],
  "medical_history": ["hypertension"],
  "current_medications": [],
  "allergies": ["penicillin"]
}`

const redClassification = "```json\n" + `{
  "color": "RED",
  "priority": "LOW",
  "reasoning": "Chest pain with diaphoresis suggests ACS",
  "risk_factors": ["hypertension"],
  "matched_protocols": ["RED: Chest pain with diaphoresis"]
}` + "\n```"

const unknownUrgencyRouting = `Here is the routing:
{
  "department": "Cardiology",
  "doctor_type": "Cardiologist",
  "urgency": "ASAP",
  "room_type": "Emergency bay",
  "preliminary_orders": ["12-lead ECG", "Troponin"],
  "contraindications": ["Avoid penicillin-based antibiotics"],
  "notes_for_staff": "Possible ACS"
}`

type testEnv struct {
	llm      *stubLLM
	refs     *stubSearcher
	sessions *repository.SessionStore
	jobs     *repository.JobStore
	intake   *IntakeService
	pipeline *PipelineService
}

func newTestEnv(cat *catalog.Catalog, client *stubLLM) *testEnv {
	logger := zap.NewNop()
	refs := &stubSearcher{results: map[domain.Corpus][]string{
		domain.CorpusTriage:  {"RED: Chest pain with diaphoresis - possible ACS."},
		domain.CorpusRouting: {"Chest pain with cardiac features: route to Cardiology."},
		domain.CorpusOrders:  {"Chest pain: 12-lead ECG within 10 minutes, troponin."},
	}}
	sessions := repository.NewSessionStore()
	jobs := repository.NewJobStore()

	return &testEnv{
		llm:      client,
		refs:     refs,
		sessions: sessions,
		jobs:     jobs,
		intake:   NewIntakeService(sessions, cat, logger),
		pipeline: NewPipelineService(
			sessions,
			jobs,
			NewExtractor(client, cat, time.Second, logger),
			NewClassifier(client, refs, 5, time.Second, logger),
			NewRouter(client, refs, 5, time.Second, logger),
			logger,
		),
	}
}

func intPtr(i int) *int { return &i }
