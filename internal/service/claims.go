package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"claimflow/internal/analysis"
	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/repository"
)

// RuleManager is the rule administration surface of the rule engine.
type RuleManager interface {
	ActiveRules(ctx context.Context) ([]model.BusinessRule, error)
	ListAll(ctx context.Context) ([]model.BusinessRule, error)
	CreateRule(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error)
	Seed(ctx context.Context, rules []model.BusinessRule) (int, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*model.AnalysisResult, error)
}

// AnalyzeInput requests an on-demand analysis. Missing evidence is read from
// the document's stored stage output.
type AnalyzeInput struct {
	DocumentID string                  `json:"document_id"`
	FlightData *model.FlightData       `json:"flight_data,omitempty"`
	Validation *model.ValidationResult `json:"validation_result,omitempty"`
}

// ClaimService exposes eligibility analysis and rule administration.
type ClaimService interface {
	Analyze(ctx context.Context, in AnalyzeInput) (*model.AnalysisResult, error)
	AnalysisHistory(ctx context.Context, documentID string) ([]model.AnalysisRecord, error)
	ListRules(ctx context.Context, includeInactive bool) ([]model.BusinessRule, error)
	CreateRule(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error)
	SeedRules(ctx context.Context, rules []model.BusinessRule) (int, error)
}

type claimService struct {
	docs     repository.DocumentRepository
	records  repository.AnalysisRepository
	analyzer Analyzer
	rules    RuleManager
	logger   *zap.Logger
}

func NewClaimService(docs repository.DocumentRepository, records repository.AnalysisRepository, analyzer Analyzer, rules RuleManager, logger *zap.Logger) ClaimService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &claimService{docs: docs, records: records, analyzer: analyzer, rules: rules, logger: logger}
}

func (s *claimService) Analyze(ctx context.Context, in AnalyzeInput) (*model.AnalysisResult, error) {
	if in.DocumentID == "" {
		return nil, apperr.InvalidInput("document_id is required")
	}
	doc, err := s.docs.FindByID(ctx, in.DocumentID)
	if err != nil {
		return nil, err
	}

	fd := in.FlightData
	if fd == nil && len(doc.ExtractedData) > 0 {
		fd = new(model.FlightData)
		if err := json.Unmarshal(doc.ExtractedData, fd); err != nil {
			return nil, apperr.Wrap(apperr.KindValidationInput, err, "decode stored extracted data")
		}
	}
	vr := in.Validation
	if vr == nil && len(doc.ValidationResult) > 0 {
		vr = new(model.ValidationResult)
		if err := json.Unmarshal(doc.ValidationResult, vr); err != nil {
			return nil, apperr.Wrap(apperr.KindValidationInput, err, "decode stored validation result")
		}
	}

	return s.analyzer.Analyze(ctx, analysis.Request{DocumentID: doc.ID, FlightData: fd, Validation: vr})
}

func (s *claimService) AnalysisHistory(ctx context.Context, documentID string) ([]model.AnalysisRecord, error) {
	if documentID == "" {
		return nil, ErrIDRequired
	}
	if _, err := s.docs.FindByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.records.ListByDocument(ctx, documentID)
}

func (s *claimService) ListRules(ctx context.Context, includeInactive bool) ([]model.BusinessRule, error) {
	if includeInactive {
		return s.rules.ListAll(ctx)
	}
	return s.rules.ActiveRules(ctx)
}

func (s *claimService) CreateRule(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error) {
	return s.rules.CreateRule(ctx, rule)
}

func (s *claimService) SeedRules(ctx context.Context, rules []model.BusinessRule) (int, error) {
	n, err := s.rules.Seed(ctx, rules)
	if err == nil {
		s.logger.Info("business rules seeded", zap.Int("count", n))
	}
	return n, err
}
