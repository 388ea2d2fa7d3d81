package service

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/llm"
	"github.com/liliang-cn/triage/internal/repository"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// ReferenceSearcher returns up to k reference texts from corpus, best match
// first. An empty corpus yields an empty slice, not an error.
type ReferenceSearcher interface {
	Search(ctx context.Context, corpus domain.Corpus, query string, k int) ([]string, error)
}

// CorpusService manages the reference corpora backing classification and routing
type CorpusService struct {
	repo          *repository.CorpusRepository
	embedder      llm.Embedder
	useEmbeddings bool
	logger        *zap.Logger
}

// NewCorpusService creates a new corpus service. embedder may be nil, in
// which case only keyword search is used.
func NewCorpusService(repo *repository.CorpusRepository, embedder llm.Embedder, useEmbeddings bool, logger *zap.Logger) *CorpusService {
	return &CorpusService{
		repo:          repo,
		embedder:      embedder,
		useEmbeddings: useEmbeddings && embedder != nil,
		logger:        logger,
	}
}

// Search implements ReferenceSearcher
func (s *CorpusService) Search(ctx context.Context, corpus domain.Corpus, query string, k int) ([]string, error) {
	entries, err := s.Preview(ctx, corpus, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out, nil
}

// Preview returns the matching entries themselves
func (s *CorpusService) Preview(ctx context.Context, corpus domain.Corpus, query string, k int) ([]*domain.CorpusEntry, error) {
	if s.useEmbeddings {
		entries, err := s.searchByVector(ctx, corpus, query, k)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			s.logger.Warn("Vector search failed, falling back to keyword search",
				zap.String("corpus", string(corpus)),
				zap.Error(err),
			)
		}
	}

	entries, err := s.repo.Search(ctx, corpus, query, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s corpus: %w", corpus, err)
	}
	return entries, nil
}

func (s *CorpusService) searchByVector(ctx context.Context, corpus domain.Corpus, query string, k int) ([]*domain.CorpusEntry, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.repo.SearchByVector(ctx, corpus, vec, k)
}

// AddEntry stores one reference text
func (s *CorpusService) AddEntry(ctx context.Context, corpus domain.Corpus, content string) (*domain.CorpusEntry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is empty", domain.ErrInvalidInput)
	}

	var vec []float32
	if s.useEmbeddings {
		var err error
		if vec, err = s.embedder.Embed(ctx, content); err != nil {
			return nil, fmt.Errorf("failed to embed entry: %w", err)
		}
	}
	return s.repo.Add(ctx, corpus, content, vec)
}

// Stats returns the entry count of every corpus
func (s *CorpusService) Stats(ctx context.Context) (domain.CorpusStats, error) {
	return s.repo.Stats(ctx)
}

// Seed loads the bundled reference texts. With reset every corpus is cleared
// first; without it corpora that already hold entries are left alone.
func (s *CorpusService) Seed(ctx context.Context, reset bool) (domain.CorpusStats, error) {
	var seed map[domain.Corpus][]string
	if err := yaml.Unmarshal(seedYAML, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}

	for _, corpus := range domain.Corpora() {
		if reset {
			if err := s.repo.Clear(ctx, corpus); err != nil {
				return nil, fmt.Errorf("failed to clear %s corpus: %w", corpus, err)
			}
		} else {
			n, err := s.repo.Count(ctx, corpus)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				s.logger.Info("Corpus already seeded", zap.String("corpus", string(corpus)), zap.Int("entries", n))
				continue
			}
		}

		for _, text := range seed[corpus] {
			if _, err := s.AddEntry(ctx, corpus, text); err != nil {
				return nil, fmt.Errorf("failed to seed %s corpus: %w", corpus, err)
			}
		}
		s.logger.Info("Seeded corpus", zap.String("corpus", string(corpus)), zap.Int("entries", len(seed[corpus])))
	}

	return s.repo.Stats(ctx)
}
