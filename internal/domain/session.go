package domain

import "time"

// Language is a supported intake language code
type Language string

// Supported languages
const (
	LanguageEnglish    Language = "en"
	LanguageSpanish    Language = "es"
	LanguagePortuguese Language = "pt-BR"
	LanguageItalian    Language = "it"
)

// DefaultLanguage is used when a translation is missing
const DefaultLanguage = LanguageEnglish

// Languages returns the supported languages in display order
func Languages() []Language {
	return []Language{LanguageEnglish, LanguageSpanish, LanguagePortuguese, LanguageItalian}
}

// ParseLanguage validates a language code
func ParseLanguage(code string) (Language, bool) {
	for _, l := range Languages() {
		if string(l) == code {
			return l, true
		}
	}
	return "", false
}

// Name returns the language name in English, as used in prompts
func (l Language) Name() string {
	switch l {
	case LanguageSpanish:
		return "Spanish"
	case LanguagePortuguese:
		return "Portuguese (Brazil)"
	case LanguageItalian:
		return "Italian"
	default:
		return "English"
	}
}

// Session is one patient intake conversation.
//
// CurrentQuestion is 0 while the session awaits a language choice, n while it
// awaits the answer to question n, and stays at N once IsComplete is set.
// Record, Classification and Routing hold the artifacts of the latest pipeline
// run; each pointer is assigned once per run and its target is never mutated.
type Session struct {
	ID              string           `json:"session_id"`
	Language        Language         `json:"language,omitempty"`
	CurrentQuestion int              `json:"current_question"`
	Answers         map[int]string   `json:"answers"`
	IsComplete      bool             `json:"is_complete"`
	CreatedAt       time.Time        `json:"created_at"`
	ActiveJobID     string           `json:"active_job_id,omitempty"`
	Record          *PatientRecord   `json:"record,omitempty"`
	Classification  *Classification  `json:"classification,omitempty"`
	Routing         *RoutingDecision `json:"routing,omitempty"`
}

// AwaitingLanguage reports whether the session is still at language selection
func (s *Session) AwaitingLanguage() bool {
	return s.Language == ""
}

// Clone returns a copy that shares no mutable state with s
func (s *Session) Clone() *Session {
	cp := *s
	cp.Answers = make(map[int]string, len(s.Answers))
	for k, v := range s.Answers {
		cp.Answers[k] = v
	}
	return &cp
}
