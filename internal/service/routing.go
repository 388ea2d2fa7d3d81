package service

import (
	"context"
	"fmt"
	"time"

	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/llm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Router picks a department and preliminary orders for a classified patient
type Router struct {
	llm     llm.Client
	refs    ReferenceSearcher
	topK    int
	timeout time.Duration
	logger  *zap.Logger
}

// NewRouter creates a new routing stage
func NewRouter(client llm.Client, refs ReferenceSearcher, topK int, callTimeout time.Duration, logger *zap.Logger) *Router {
	return &Router{llm: client, refs: refs, topK: topK, timeout: callTimeout, logger: logger}
}

// Route retrieves routing rules and order sets, then asks the model for a
// routing decision written in the patient's language
func (r *Router) Route(ctx context.Context, record *domain.PatientRecord, classification *domain.Classification, lang domain.Language) (*domain.RoutingDecision, error) {
	var rules, orders []string

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		searchCtx, cancel := boundedContext(gCtx, r.timeout)
		defer cancel()
		res, err := r.refs.Search(searchCtx, domain.CorpusRouting, record.ChiefComplaint+" "+string(classification.Color), r.topK)
		if err != nil {
			return fmt.Errorf("routing rule search failed: %w", err)
		}
		rules = res
		return nil
	})
	g.Go(func() error {
		searchCtx, cancel := boundedContext(gCtx, r.timeout)
		defer cancel()
		res, err := r.refs.Search(searchCtx, domain.CorpusOrders, symptomQuery(record), r.topK)
		if err != nil {
			return fmt.Errorf("preliminary order search failed: %w", err)
		}
		orders = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	callCtx, cancel := boundedContext(ctx, r.timeout)
	out, err := r.llm.Complete(callCtx, buildRoutingPrompt(record, classification, rules, orders, lang))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("routing completion failed: %w", err)
	}

	obj, err := parseModelJSON(out)
	if err != nil {
		r.logger.Debug("Unparseable routing output", zap.String("output", out))
		return nil, fmt.Errorf("%w: %v", domain.ErrRoutingParse, err)
	}

	decision, err := r.decisionFromJSON(obj, classification.Color)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRoutingParse, err)
	}

	if conflicts := domain.ConflictingOrders(record.Allergies, decision.PreliminaryOrders); len(conflicts) > 0 {
		r.logger.Warn("Preliminary orders mention a patient allergy",
			zap.Strings("orders", conflicts),
			zap.Strings("allergies", record.Allergies),
		)
	}
	return decision, nil
}

func (r *Router) decisionFromJSON(obj map[string]any, color domain.Color) (*domain.RoutingDecision, error) {
	department, err := reqString(obj, "department")
	if err != nil {
		return nil, err
	}
	doctorType, err := reqString(obj, "doctor_type")
	if err != nil {
		return nil, err
	}
	roomType, err := optString(obj, "room_type")
	if err != nil {
		return nil, err
	}
	orders, err := stringList(obj, "preliminary_orders")
	if err != nil {
		return nil, err
	}
	contraindications, err := stringList(obj, "contraindications")
	if err != nil {
		return nil, err
	}
	notes, err := optString(obj, "notes_for_staff")
	if err != nil {
		return nil, err
	}

	return &domain.RoutingDecision{
		Department:        department,
		DoctorType:        doctorType,
		Urgency:           r.urgency(obj["urgency"], color),
		RoomType:          roomType,
		PreliminaryOrders: orders,
		Contraindications: contraindications,
		NotesForStaff:     orDefault(notes, ""),
	}, nil
}

// urgency falls back to the color's default for anything but one of the
// four known strings
func (r *Router) urgency(raw any, color domain.Color) domain.Urgency {
	if s, ok := raw.(string); ok {
		if u, ok := domain.ParseUrgency(s); ok {
			return u
		}
	}
	fallback := color.DefaultUrgency()
	r.logger.Warn("Unrecognized urgency, using color default",
		zap.Any("urgency", raw),
		zap.String("color", string(color)),
		zap.String("fallback", string(fallback)),
	)
	return fallback
}
