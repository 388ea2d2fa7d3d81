package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liliang-cn/triage/internal/catalog"
	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/repository"
	"go.uber.org/zap"
)

// IntakeService drives the question-by-question intake conversation
type IntakeService struct {
	sessions *repository.SessionStore
	catalog  *catalog.Catalog
	logger   *zap.Logger
}

// NewIntakeService creates a new intake service
func NewIntakeService(
	sessions *repository.SessionStore,
	cat *catalog.Catalog,
	logger *zap.Logger,
) *IntakeService {
	return &IntakeService{
		sessions: sessions,
		catalog:  cat,
		logger:   logger,
	}
}

// Create starts a session that awaits a language choice
func (s *IntakeService) Create(ctx context.Context) (*domain.CreateSessionResponse, error) {
	session := &domain.Session{}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}

	s.logger.Info("Session created", zap.String("session_id", session.ID))

	return &domain.CreateSessionResponse{
		SessionID:           session.ID,
		Welcome:             s.catalog.Welcome(domain.DefaultLanguage),
		LanguagePrompt:      s.catalog.LanguagePrompt(domain.DefaultLanguage),
		LanguageOptions:     s.catalog.LanguageOptions(),
		IsLanguageSelection: true,
	}, nil
}

// Advance feeds one patient input to the session. The first input selects
// the language; each later one answers the current question.
func (s *IntakeService) Advance(ctx context.Context, sessionID, input string) (*domain.ChatResponse, error) {
	trimmed := strings.TrimSpace(input)
	total := s.catalog.Total()

	var resp *domain.ChatResponse
	session, err := s.sessions.Update(sessionID, func(session *domain.Session) error {
		switch {
		case session.IsComplete:
			return domain.ErrSessionAlreadyComplete

		case session.AwaitingLanguage():
			lang, ok := domain.ParseLanguage(trimmed)
			if !ok {
				return fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidInput, trimmed)
			}
			session.Language = lang
			session.CurrentQuestion = 1

		default:
			if trimmed == "" {
				return fmt.Errorf("%w: answer is empty", domain.ErrInvalidInput)
			}
			// stored as sent; only emptiness is judged on the trimmed text
			session.Answers[session.CurrentQuestion] = input
			if session.CurrentQuestion == total {
				session.IsComplete = true
				resp = &domain.ChatResponse{
					SessionID:      session.ID,
					QuestionNumber: total,
					IsComplete:     true,
				}
				return nil
			}
			session.CurrentQuestion++
		}

		next, _ := s.catalog.Text(session.CurrentQuestion, session.Language)
		resp = &domain.ChatResponse{
			SessionID:      session.ID,
			QuestionNumber: session.CurrentQuestion,
			NextQuestion:   &next,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if session.IsComplete {
		s.logger.Info("Intake complete",
			zap.String("session_id", session.ID),
			zap.String("language", string(session.Language)),
			zap.Int("answers", len(session.Answers)),
		)
	}
	return resp, nil
}

// Get returns a snapshot of the session's progress
func (s *IntakeService) Get(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return &domain.SessionSummary{
		SessionID:       session.ID,
		CurrentQuestion: session.CurrentQuestion,
		IsComplete:      session.IsComplete,
		AnswersCount:    len(session.Answers),
		Language:        session.Language,
	}, nil
}

// Sweep removes sessions older than ttl
func (s *IntakeService) Sweep(ttl time.Duration) int {
	removed := s.sessions.SweepExpired(time.Now().UTC().Add(-ttl))
	if removed > 0 {
		s.logger.Info("Expired sessions removed", zap.Int("count", removed))
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done
func (s *IntakeService) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ttl)
		}
	}
}
