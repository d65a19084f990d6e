package mocks

import (
	"context"

	"claimflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockAnalysisRepository struct {
	mock.Mock
}

func (m *MockAnalysisRepository) Create(ctx context.Context, rec *model.AnalysisRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockAnalysisRepository) ListByDocument(ctx context.Context, documentID string) ([]model.AnalysisRecord, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnalysisRecord), args.Error(1)
}
