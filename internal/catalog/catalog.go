// Package catalog holds the fixed intake questionnaire and its translations.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/liliang-cn/triage/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultCatalogYAML []byte

// Question is one intake question
type Question struct {
	Number    int                        `yaml:"number"`
	FieldName string                     `yaml:"field"`
	Text      map[domain.Language]string `yaml:"text"`
}

type file struct {
	Languages      map[domain.Language]string `yaml:"languages"`
	Welcome        map[domain.Language]string `yaml:"welcome"`
	LanguagePrompt map[domain.Language]string `yaml:"language_prompt"`
	Questions      []Question                 `yaml:"questions"`
}

// Catalog is an immutable, ordered questionnaire
type Catalog struct {
	languages      map[domain.Language]string
	welcome        map[domain.Language]string
	languagePrompt map[domain.Language]string
	questions      []Question
}

// Default returns the bundled questionnaire
func Default() (*Catalog, error) {
	return Load(defaultCatalogYAML)
}

// Load parses a questionnaire from YAML
func Load(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	c, err := New(f.Questions)
	if err != nil {
		return nil, err
	}
	c.languages = f.Languages
	c.welcome = f.Welcome
	c.languagePrompt = f.LanguagePrompt
	return c, nil
}

// New builds a catalog from questions. Numbers must be contiguous from 1 and
// each question needs default-language text.
func New(questions []Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("catalog has no questions")
	}
	qs := make([]Question, len(questions))
	copy(qs, questions)
	sort.Slice(qs, func(i, j int) bool { return qs[i].Number < qs[j].Number })

	for i, q := range qs {
		if q.Number != i+1 {
			return nil, fmt.Errorf("catalog question numbers must be contiguous from 1, got %d at position %d", q.Number, i+1)
		}
		if q.Text[domain.DefaultLanguage] == "" {
			return nil, fmt.Errorf("question %d has no %q text", q.Number, domain.DefaultLanguage)
		}
	}
	return &Catalog{questions: qs}, nil
}

// Total returns the number of questions
func (c *Catalog) Total() int {
	return len(c.questions)
}

// Question returns question n (1-indexed)
func (c *Catalog) Question(n int) (Question, bool) {
	if n < 1 || n > len(c.questions) {
		return Question{}, false
	}
	return c.questions[n-1], true
}

// Text returns question n in lang, falling back to the default language
func (c *Catalog) Text(n int, lang domain.Language) (string, bool) {
	q, ok := c.Question(n)
	if !ok {
		return "", false
	}
	return fallback(q.Text, lang), true
}

// Welcome returns the welcome message in lang
func (c *Catalog) Welcome(lang domain.Language) string {
	return fallback(c.welcome, lang)
}

// LanguagePrompt returns the language selection prompt in lang
func (c *Catalog) LanguagePrompt(lang domain.Language) string {
	return fallback(c.languagePrompt, lang)
}

// Languages returns the selectable language codes
func (c *Catalog) Languages() []domain.Language {
	return domain.Languages()
}

// LanguageOptions returns the selectable languages with their display names
func (c *Catalog) LanguageOptions() map[domain.Language]string {
	out := make(map[domain.Language]string, len(domain.Languages()))
	for _, l := range domain.Languages() {
		name := c.languages[l]
		if name == "" {
			name = l.Name()
		}
		out[l] = name
	}
	return out
}

func fallback(m map[domain.Language]string, lang domain.Language) string {
	if s := m[lang]; s != "" {
		return s
	}
	return m[domain.DefaultLanguage]
}
