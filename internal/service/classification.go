package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liliang-cn/triage/internal/domain"
	"github.com/liliang-cn/triage/internal/llm"
	"go.uber.org/zap"
)

// Classifier assigns a triage color to a record
type Classifier struct {
	llm     llm.Client
	refs    ReferenceSearcher
	topK    int
	timeout time.Duration
	logger  *zap.Logger
}

// NewClassifier creates a new classification stage
func NewClassifier(client llm.Client, refs ReferenceSearcher, topK int, callTimeout time.Duration, logger *zap.Logger) *Classifier {
	return &Classifier{llm: client, refs: refs, topK: topK, timeout: callTimeout, logger: logger}
}

// Classify retrieves matching triage protocols and asks the model for a color.
// Priority always comes from the color.
func (c *Classifier) Classify(ctx context.Context, record *domain.PatientRecord) (*domain.Classification, error) {
	query := symptomQuery(record)

	searchCtx, cancel := boundedContext(ctx, c.timeout)
	protocols, err := c.refs.Search(searchCtx, domain.CorpusTriage, query, c.topK)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("triage protocol search failed: %w", err)
	}

	callCtx, cancel := boundedContext(ctx, c.timeout)
	out, err := c.llm.Complete(callCtx, buildClassificationPrompt(record, protocols))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("classification completion failed: %w", err)
	}

	obj, err := parseModelJSON(out)
	if err != nil {
		c.logger.Debug("Unparseable classification output", zap.String("output", out))
		return nil, fmt.Errorf("%w: %v", domain.ErrClassificationParse, err)
	}

	classification, err := classificationFromJSON(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassificationParse, err)
	}
	return classification, nil
}

func classificationFromJSON(obj map[string]any) (*domain.Classification, error) {
	raw, err := reqString(obj, "color")
	if err != nil {
		return nil, err
	}
	color, ok := domain.ParseColor(raw)
	if !ok {
		return nil, fmt.Errorf("unknown color %q", raw)
	}

	reasoning, err := reqString(obj, "reasoning")
	if err != nil {
		return nil, err
	}
	risks, err := stringList(obj, "risk_factors")
	if err != nil {
		return nil, err
	}
	matched, err := stringList(obj, "matched_protocols")
	if err != nil {
		return nil, err
	}

	// a "priority" key in the output is ignored
	return domain.NewClassification(color, reasoning, risks, matched), nil
}

// symptomQuery is the chief complaint followed by the associated symptoms
func symptomQuery(r *domain.PatientRecord) string {
	return strings.TrimSpace(r.ChiefComplaint + " " + strings.Join(r.AssociatedSymptoms, " "))
}

// boundedContext applies d to ctx when d is positive
func boundedContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
