package mocks

import (
	"context"
	"time"

	"claimflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *model.Notification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkResult(ctx context.Context, id string, status model.NotificationStatus, sentAt *time.Time, errMsg string) error {
	args := m.Called(ctx, id, status, sentAt, errMsg)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Notification, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}
