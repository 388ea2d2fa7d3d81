package domain

import (
	"fmt"
	"time"
)

// Corpus names one of the reference text collections
type Corpus string

// Reference corpora
const (
	CorpusTriage  Corpus = "triage"
	CorpusRouting Corpus = "routing"
	CorpusOrders  Corpus = "orders"
)

// Corpora returns every corpus
func Corpora() []Corpus {
	return []Corpus{CorpusTriage, CorpusRouting, CorpusOrders}
}

// ParseCorpus validates a corpus name
func ParseCorpus(s string) (Corpus, error) {
	switch Corpus(s) {
	case CorpusTriage, CorpusRouting, CorpusOrders:
		return Corpus(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCorpus, s)
}

// CorpusEntry is one reference text
type CorpusEntry struct {
	ID        string    `json:"id"`
	Corpus    Corpus    `json:"corpus"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AddEntryRequest is the request to add a reference text
type AddEntryRequest struct {
	Content string `json:"content" binding:"required"`
}

// CorpusStats holds entry counts per corpus
type CorpusStats map[Corpus]int
