// Package analysis turns rule outcomes into an eligibility verdict and recommendation.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/repository"
	"claimflow/internal/rules"
)

const (
	failedRuleDecay   = 0.8
	delayFailureDecay = 0.5

	highConfidence   = 0.8
	reviewConfidence = 0.6
)

// RuleEvaluator evaluates the active rule set in priority order.
type RuleEvaluator interface {
	EvaluateAll(ctx context.Context, in rules.Input) ([]model.BusinessRuleResult, error)
}

// Request is one analysis. RequestKey, when set, makes the audit record idempotent.
type Request struct {
	DocumentID string
	FlightData *model.FlightData
	Validation *model.ValidationResult
	RequestKey string
}

type Analyzer struct {
	rules   RuleEvaluator
	records repository.AnalysisRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewAnalyzer(rules RuleEvaluator, records repository.AnalysisRepository, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{rules: rules, records: records, logger: logger, now: time.Now}
}

// Analyze evaluates the rules plus the mandatory delay check and persists the
// audit record before returning.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, apperr.InvalidInput("document id is required")
	}

	in := rules.Input{FlightData: req.FlightData, Validation: req.Validation}
	applied, err := a.rules.EvaluateAll(ctx, in)
	if err != nil {
		return nil, err
	}

	eligible := true
	confidence := 1.0
	reasoning := make([]string, 0, len(applied)+1)
	for _, r := range applied {
		if r.Passed {
			reasoning = append(reasoning, fmt.Sprintf("rule '%s' passed: %s", r.RuleName, r.Reason))
			continue
		}
		eligible = false
		confidence *= failedRuleDecay
		reasoning = append(reasoning, fmt.Sprintf("rule '%s' failed: %s", r.RuleName, r.Reason))
	}

	delayOK, delayReason := DelayEligibility(req.FlightData, req.Validation)
	if !delayOK {
		eligible = false
		confidence *= delayFailureDecay
	}
	reasoning = append(reasoning, "delay eligibility: "+delayReason)

	result := &model.AnalysisResult{
		DocumentID:     req.DocumentID,
		IsEligible:     eligible,
		Recommendation: Recommend(eligible, confidence),
		Confidence:     confidence,
		Reasoning:      strings.Join(reasoning, "; "),
		RulesApplied:   applied,
		AnalyzedAt:     a.now().UTC(),
	}

	rec := &model.AnalysisRecord{
		ID:             uuid.NewString(),
		DocumentID:     result.DocumentID,
		IsEligible:     result.IsEligible,
		Recommendation: result.Recommendation,
		Confidence:     result.Confidence,
		Reasoning:      result.Reasoning,
		RequestKey:     req.RequestKey,
		AnalyzedAt:     result.AnalyzedAt,
	}
	stored, err := a.records.Create(ctx, rec)
	if err != nil {
		if !apperr.Is(err, apperr.KindPersistence) {
			err = apperr.Persistence(err, "save analysis record")
		}
		return nil, err
	}
	if !stored {
		a.logger.Info("analysis record already stored",
			zap.String("document_id", req.DocumentID), zap.String("request_key", req.RequestKey))
	}

	a.logger.Info("analysis completed",
		zap.String("document_id", req.DocumentID),
		zap.Bool("eligible", eligible),
		zap.Float64("confidence", confidence),
		zap.String("recommendation", result.Recommendation))
	return result, nil
}

// DelayEligibility is the delay check applied after the configured rules.
func DelayEligibility(fd *model.FlightData, v *model.ValidationResult) (bool, string) {
	if fd == nil {
		return false, "flight data not available"
	}
	hours, ok := rules.DelayHours(v)
	if !ok {
		return false, "delay information not available"
	}
	if hours >= rules.MinDelayHours {
		return true, fmt.Sprintf("delay of %.2f hours meets the minimum of %.0f hours", hours, rules.MinDelayHours)
	}
	return false, fmt.Sprintf("delay of %.2f hours does not meet the minimum of %.0f hours", hours, rules.MinDelayHours)
}

// Recommend maps a verdict to its recommendation; the first matching tier wins.
func Recommend(eligible bool, confidence float64) string {
	switch {
	case eligible && confidence >= highConfidence:
		return model.RecommendApprove
	case eligible && confidence >= reviewConfidence:
		return model.RecommendApproveWithReview
	case !eligible && confidence >= highConfidence:
		return model.RecommendReject
	default:
		return model.RecommendManualReview
	}
}
