package mocks

import (
	"context"

	"claimflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) ListActive(ctx context.Context) ([]model.BusinessRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BusinessRule), args.Error(1)
}

func (m *MockRuleRepository) ListAll(ctx context.Context) ([]model.BusinessRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BusinessRule), args.Error(1)
}

func (m *MockRuleRepository) Create(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error) {
	args := m.Called(ctx, rule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BusinessRule), args.Error(1)
}

func (m *MockRuleRepository) Upsert(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error) {
	args := m.Called(ctx, rule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BusinessRule), args.Error(1)
}
