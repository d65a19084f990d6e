package model

import "time"

type RecipientType string

const (
	RecipientPassenger RecipientType = "passenger"
	RecipientAnalyst   RecipientType = "analyst"
	RecipientManager   RecipientType = "manager"
)

type NotificationType string

const (
	NotificationApproval     NotificationType = "approval"
	NotificationRejection    NotificationType = "rejection"
	NotificationManualReview NotificationType = "manual_review"
	NotificationError        NotificationType = "error"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an outbound message about a document's outcome.
type Notification struct {
	ID            string             `json:"id"`
	DocumentID    string             `json:"document_id"`
	RecipientType RecipientType      `json:"recipient_type"`
	Recipient     string             `json:"recipient"`
	Subject       string             `json:"subject"`
	Body          string             `json:"body"`
	Type          NotificationType   `json:"type"`
	Status        NotificationStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
	Error         string             `json:"error,omitempty"`
}
