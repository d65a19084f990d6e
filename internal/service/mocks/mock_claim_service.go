package mocks

import (
	"context"

	"claimflow/internal/model"
	"claimflow/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockClaimService struct {
	mock.Mock
}

func (m *MockClaimService) Analyze(ctx context.Context, in service.AnalyzeInput) (*model.AnalysisResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisResult), args.Error(1)
}

func (m *MockClaimService) AnalysisHistory(ctx context.Context, documentID string) ([]model.AnalysisRecord, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnalysisRecord), args.Error(1)
}

func (m *MockClaimService) ListRules(ctx context.Context, includeInactive bool) ([]model.BusinessRule, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BusinessRule), args.Error(1)
}

func (m *MockClaimService) CreateRule(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error) {
	args := m.Called(ctx, rule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BusinessRule), args.Error(1)
}

func (m *MockClaimService) SeedRules(ctx context.Context, rules []model.BusinessRule) (int, error) {
	args := m.Called(ctx, rules)
	return args.Int(0), args.Error(1)
}
