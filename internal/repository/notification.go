package repository

import (
	"context"
	"time"

	"claimflow/internal/model"
)

// NotificationRepository stores outbound notifications, one per document, type and recipient type.
type NotificationRepository interface {
	// Create inserts n unless an equivalent notification exists, and reports whether it did.
	Create(ctx context.Context, n *model.Notification) (bool, error)
	MarkResult(ctx context.Context, id string, status model.NotificationStatus, sentAt *time.Time, errMsg string) error
	ListByDocument(ctx context.Context, documentID string) ([]model.Notification, error)
}
