package service

import (
	"context"
	"sync"
	"time"

	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/repository"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PipelineService runs extraction, classification and routing for completed
// sessions as asynchronous jobs
type PipelineService struct {
	sessions   *repository.SessionStore
	jobs       *repository.JobStore
	extractor  *Extractor
	classifier *Classifier
	router     *Router
	logger     *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(
	sessions *repository.SessionStore,
	jobs *repository.JobStore,
	extractor *Extractor,
	classifier *Classifier,
	router *Router,
	logger *zap.Logger,
) *PipelineService {
	return &PipelineService{
		sessions:   sessions,
		jobs:       jobs,
		extractor:  extractor,
		classifier: classifier,
		router:     router,
		logger:     logger,
	}
}

type runInput struct {
	jobID     string
	sessionID string
	answers   map[int]string
	language  domain.Language
}

// Submit starts a pipeline run for a completed session and returns the job id.
// A session may have only one pending or running job at a time.
func (p *PipelineService) Submit(ctx context.Context, sessionID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", eris.New("pipeline is shut down")
	}

	var in runInput
	_, err := p.sessions.Update(sessionID, func(s *domain.Session) error {
		if !s.IsComplete {
			return domain.ErrSessionIncomplete
		}
		if s.ActiveJobID != "" {
			if active, err := p.jobs.Get(s.ActiveJobID); err == nil && !active.Status.Terminal() {
				return domain.ErrPipelineInFlight
			}
		}

		job := &domain.Job{SessionID: s.ID}
		if err := p.jobs.Create(job); err != nil {
			return err
		}

		s.ActiveJobID = job.ID
		s.Record = nil
		s.Classification = nil
		s.Routing = nil

		in = runInput{
			jobID:     job.ID,
			sessionID: s.ID,
			answers:   make(map[int]string, len(s.Answers)),
			language:  s.Language,
		}
		for k, v := range s.Answers {
			in.answers[k] = v
		}
		return nil
	})
	if err != nil {
		return "", eris.Wrapf(err, "submit session %s", sessionID)
	}

	p.logger.Info("Pipeline job submitted",
		zap.String("job_id", in.jobID),
		zap.String("session_id", sessionID),
	)

	p.wg.Add(1)
	go p.run(in)

	return in.jobID, nil
}

// Poll returns a copy of the job's current state
func (p *PipelineService) Poll(ctx context.Context, jobID string) (*domain.Job, error) {
	return p.jobs.Get(jobID)
}

// Wait blocks until the job is completed or failed, or ctx is done
func (p *PipelineService) Wait(ctx context.Context, jobID string) (*domain.Job, error) {
	done, err := p.jobs.Done(jobID)
	if err != nil {
		return nil, err
	}
	select {
	case <-done:
		return p.jobs.Get(jobID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting jobs and waits for in-flight runs to finish
func (p *PipelineService) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}

// run executes the stages in order. It is detached from the submitting
// request; each external call carries its own timeout.
func (p *PipelineService) run(in runInput) {
	defer p.wg.Done()

	ctx := context.Background()
	start := time.Now()
	log := p.logger.With(zap.String("job_id", in.jobID), zap.String("session_id", in.sessionID))

	p.enterStage(in.jobID, domain.StageExtraction, log)
	record, err := p.extractor.Extract(ctx, in.answers, in.language)
	if err != nil {
		p.fail(in.jobID, domain.StageExtraction, err, log)
		return
	}
	p.attach(in.sessionID, log, func(s *domain.Session) { s.Record = record })

	p.enterStage(in.jobID, domain.StageClassification, log)
	classification, err := p.classifier.Classify(ctx, record)
	if err != nil {
		p.fail(in.jobID, domain.StageClassification, err, log)
		return
	}
	p.attach(in.sessionID, log, func(s *domain.Session) { s.Classification = classification })

	p.enterStage(in.jobID, domain.StageRouting, log)
	routing, err := p.router.Route(ctx, record, classification, in.language)
	if err != nil {
		p.fail(in.jobID, domain.StageRouting, err, log)
		return
	}
	p.attach(in.sessionID, log, func(s *domain.Session) { s.Routing = routing })

	result := &domain.TriageResult{
		SessionID:      in.sessionID,
		Timestamp:      time.Now().UTC(),
		Record:         record,
		Classification: classification,
		Routing:        routing,
	}
	p.jobs.Update(in.jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusCompleted
		j.Result = result.Clone()
		j.FinishedAt = &result.Timestamp
	})

	log.Info("Pipeline completed",
		zap.String("color", string(classification.Color)),
		zap.String("department", routing.Department),
		zap.Duration("duration", time.Since(start)),
	)
}

func (p *PipelineService) enterStage(jobID string, stage domain.Stage, log *zap.Logger) {
	p.jobs.Update(jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusRunning
		j.Stage = stage
	})
	log.Info("Pipeline stage started", zap.String("stage", string(stage)))
}

func (p *PipelineService) fail(jobID string, stage domain.Stage, err error, log *zap.Logger) {
	kind := domain.ErrorKind(err)
	wrapped := eris.Wrapf(err, "%s stage", stage)
	now := time.Now().UTC()

	p.jobs.Update(jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusFailed
		j.Error = wrapped.Error()
		j.ErrorKind = kind
		j.FinishedAt = &now
	})

	log.Error("Pipeline stage failed",
		zap.String("stage", string(stage)),
		zap.String("error_kind", kind),
		zap.Error(err),
	)
}

// attach stores a stage artifact on the session. The session may have been
// swept while the job ran; the job result is unaffected.
func (p *PipelineService) attach(sessionID string, log *zap.Logger, set func(*domain.Session)) {
	_, err := p.sessions.Update(sessionID, func(s *domain.Session) error {
		set(s)
		return nil
	})
	if err != nil {
		log.Warn("Failed to attach stage output to session", zap.Error(err))
	}
}
