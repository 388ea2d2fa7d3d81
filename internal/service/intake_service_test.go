package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/liliang-cn/triage/internal/catalog"
	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/repository"
	"go.uber.org/zap"
)

func newTestIntake(t *testing.T) (*IntakeService, *repository.SessionStore, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	store := repository.NewSessionStore()
	return NewIntakeService(store, cat, zap.NewNop()), store, cat
}

func TestIntake_Create(t *testing.T) {
	svc, _, cat := newTestIntake(t)

	resp, err := svc.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if resp.SessionID == "" || !resp.IsLanguageSelection {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Welcome == "" || resp.LanguagePrompt == "" {
		t.Error("expected welcome and language prompt")
	}
	if len(resp.LanguageOptions) != len(cat.Languages()) {
		t.Errorf("expected %d language options, got %d", len(cat.Languages()), len(resp.LanguageOptions))
	}

	summary, err := svc.Get(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if summary.CurrentQuestion != 0 || summary.IsComplete || summary.Language != "" {
		t.Errorf("unexpected initial state: %+v", summary)
	}
}

func TestIntake_FullWalkthrough(t *testing.T) {
	ctx := context.Background()
	svc, _, cat := newTestIntake(t)
	resp, _ := svc.Create(ctx)
	id := resp.SessionID

	step, err := svc.Advance(ctx, id, "  es ")
	if err != nil {
		t.Fatalf("language selection failed: %v", err)
	}
	want, _ := cat.Text(1, domain.LanguageSpanish)
	if step.QuestionNumber != 1 || step.NextQuestion == nil || *step.NextQuestion != want {
		t.Fatalf("unexpected first question: %+v", step)
	}

	for n := 1; n <= cat.Total(); n++ {
		step, err = svc.Advance(ctx, id, fmt.Sprintf("answer %d", n))
		if err != nil {
			t.Fatalf("answer %d failed: %v", n, err)
		}
		if n < cat.Total() {
			if step.QuestionNumber != n+1 || step.IsComplete {
				t.Fatalf("after answer %d: unexpected %+v", n, step)
			}
			want, _ := cat.Text(n+1, domain.LanguageSpanish)
			if *step.NextQuestion != want {
				t.Errorf("question %d not in session language", n+1)
			}
		}
	}

	if !step.IsComplete || step.NextQuestion != nil || step.QuestionNumber != cat.Total() {
		t.Errorf("unexpected final step: %+v", step)
	}

	summary, _ := svc.Get(ctx, id)
	if !summary.IsComplete || summary.AnswersCount != cat.Total() || summary.Language != domain.LanguageSpanish {
		t.Errorf("unexpected summary: %+v", summary)
	}

	if _, err := svc.Advance(ctx, id, "one more"); !errors.Is(err, domain.ErrSessionAlreadyComplete) {
		t.Errorf("expected ErrSessionAlreadyComplete, got %v", err)
	}
}

func TestIntake_InvalidLanguage(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestIntake(t)
	resp, _ := svc.Create(ctx)

	for _, input := range []string{"fr", "EN", "", "english"} {
		if _, err := svc.Advance(ctx, resp.SessionID, input); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%q: expected ErrInvalidInput, got %v", input, err)
		}
	}

	summary, _ := svc.Get(ctx, resp.SessionID)
	if summary.CurrentQuestion != 0 || summary.Language != "" {
		t.Errorf("state changed after invalid input: %+v", summary)
	}
}

func TestIntake_EmptyAnswerRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestIntake(t)
	resp, _ := svc.Create(ctx)
	svc.Advance(ctx, resp.SessionID, "en")

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Advance(ctx, resp.SessionID, input); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%q: expected ErrInvalidInput, got %v", input, err)
		}
	}

	summary, _ := svc.Get(ctx, resp.SessionID)
	if summary.CurrentQuestion != 1 || summary.AnswersCount != 0 {
		t.Errorf("state changed after empty answer: %+v", summary)
	}
}

func TestIntake_AdvanceIncrementsByOne(t *testing.T) {
	ctx := context.Background()
	svc, _, cat := newTestIntake(t)
	resp, _ := svc.Create(ctx)
	svc.Advance(ctx, resp.SessionID, "it")

	prev := 1
	for i := 0; i < cat.Total()-1; i++ {
		step, err := svc.Advance(ctx, resp.SessionID, "ok")
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if step.QuestionNumber != prev+1 {
			t.Fatalf("expected question %d, got %d", prev+1, step.QuestionNumber)
		}
		prev = step.QuestionNumber
	}
}

func TestIntake_UnknownSession(t *testing.T) {
	svc, _, _ := newTestIntake(t)
	if _, err := svc.Advance(context.Background(), "nope", "en"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestIntake_AnswersStoredVerbatim(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestIntake(t)
	resp, _ := svc.Create(ctx)
	if _, err := svc.Advance(ctx, resp.SessionID, " pt-BR\n"); err != nil {
		t.Fatalf("language selection failed: %v", err)
	}
	answers := []string{"Maria da Silva, 45 anos", "  Maria\n", "\tdor no peito "}
	for _, a := range answers {
		if _, err := svc.Advance(ctx, resp.SessionID, a); err != nil {
			t.Fatalf("answer %q failed: %v", a, err)
		}
	}

	s, _ := store.Get(resp.SessionID)
	for i, want := range answers {
		if got := s.Answers[i+1]; got != want {
			t.Errorf("answer %d: got %q, want %q", i+1, got, want)
		}
	}
}

func TestIntake_ConcurrentSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc, store, cat := newTestIntake(t)

	const n = 20
	ids := make([]string, n)
	for i := range ids {
		resp, _ := svc.Create(ctx)
		ids[i] = resp.SessionID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			if _, err := svc.Advance(ctx, id, "en"); err != nil {
				errs <- err
				return
			}
			for q := 1; q <= cat.Total(); q++ {
				if _, err := svc.Advance(ctx, id, fmt.Sprintf("s%d-q%d", i, q)); err != nil {
					errs <- err
					return
				}
			}
		}(i, id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("advance failed: %v", err)
	}

	for i, id := range ids {
		s, _ := store.Get(id)
		if !s.IsComplete {
			t.Errorf("session %d not complete", i)
		}
		for q := 1; q <= cat.Total(); q++ {
			if want := fmt.Sprintf("s%d-q%d", i, q); s.Answers[q] != want {
				t.Errorf("session %d question %d: got %q want %q", i, q, s.Answers[q], want)
			}
		}
	}
}

func TestIntake_Sweep(t *testing.T) {
	svc, store, _ := newTestIntake(t)
	old := &domain.Session{CreatedAt: time.Now().UTC().Add(-25 * time.Hour)}
	store.Create(old)
	resp, _ := svc.Create(context.Background())

	if removed := svc.Sweep(24 * time.Hour); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, err := svc.Get(context.Background(), resp.SessionID); err != nil {
		t.Errorf("fresh session swept: %v", err)
	}
}

func TestIntake_RunSweeperStopsOnCancel(t *testing.T) {
	svc, store, _ := newTestIntake(t)
	store.Create(&domain.Session{CreatedAt: time.Now().UTC().Add(-time.Hour)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx, time.Minute, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not remove expired session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
