// Package notification informs passengers and staff about a claim's outcome.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/repository"
)

// Recipients holds staff addresses. An empty address means the notification is
// recorded for the dashboard and not mailed.
type Recipients struct {
	Analyst string
	Manager string
}

type Notifier struct {
	repo       repository.NotificationRepository
	mailer     Mailer
	recipients Recipients
	logger     *zap.Logger
	now        func() time.Time
}

func NewNotifier(repo repository.NotificationRepository, mailer Mailer, recipients Recipients, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{repo: repo, mailer: mailer, recipients: recipients, logger: logger, now: time.Now}
}

// TypeFor maps a final document status to the notification it triggers.
func TypeFor(status model.DocumentStatus) (model.NotificationType, bool) {
	switch status {
	case model.StatusApproved:
		return model.NotificationApproval, true
	case model.StatusRejected:
		return model.NotificationRejection, true
	case model.StatusAnalysisCompleted:
		return model.NotificationManualReview, true
	case model.StatusError:
		return model.NotificationError, true
	}
	return "", false
}

type recipient struct {
	kind    model.RecipientType
	address string
}

func (n *Notifier) recipientsFor(typ model.NotificationType, doc *model.Document) []recipient {
	var out []recipient
	if (typ == model.NotificationApproval || typ == model.NotificationRejection) && doc.PassengerEmail != "" {
		out = append(out, recipient{model.RecipientPassenger, doc.PassengerEmail})
	}
	out = append(out, recipient{model.RecipientAnalyst, n.recipients.Analyst})
	if typ == model.NotificationError {
		out = append(out, recipient{model.RecipientManager, n.recipients.Manager})
	}
	return out
}

// Notify records and delivers the notifications for ev. Notifications already
// recorded for the same document, type and recipient are skipped. A delivery
// failure marks that notification failed and does not stop the others; only
// storage errors are returned.
func (n *Notifier) Notify(ctx context.Context, doc *model.Document, ev model.NotificationEvent) ([]model.Notification, error) {
	if doc == nil {
		return nil, apperr.InvalidInput("document is required")
	}
	typ, ok := TypeFor(ev.Status)
	if !ok {
		return nil, apperr.InvalidInput("no notification for status " + string(ev.Status))
	}

	log := n.logger.With(zap.String("document_id", doc.ID), zap.String("type", string(typ)))

	var sent []model.Notification
	for _, r := range n.recipientsFor(typ, doc) {
		subject, body, err := render(typ, messageData{
			DocumentID:     doc.ID,
			FileName:       doc.FileName,
			PassengerName:  doc.PassengerName,
			FlightNumber:   doc.FlightNumber,
			Status:         ev.Status,
			Recommendation: ev.Recommendation,
			Reason:         ev.Reason,
			Recipient:      r.kind,
		})
		if err != nil {
			return sent, err
		}

		note := model.Notification{
			ID:            uuid.NewString(),
			DocumentID:    doc.ID,
			RecipientType: r.kind,
			Recipient:     r.address,
			Subject:       subject,
			Body:          body,
			Type:          typ,
			Status:        model.NotificationPending,
			CreatedAt:     n.now().UTC(),
		}
		created, err := n.repo.Create(ctx, &note)
		if err != nil {
			return sent, err
		}
		if !created {
			log.Debug("notification already recorded", zap.String("recipient_type", string(r.kind)))
			continue
		}

		n.deliver(ctx, &note, log)
		sent = append(sent, note)
	}
	return sent, nil
}

func (n *Notifier) deliver(ctx context.Context, note *model.Notification, log *zap.Logger) {
	var sendErr error
	if note.Recipient != "" {
		sendErr = n.mailer.Send(ctx, note.Recipient, note.Subject, note.Body)
	} else {
		log.Info("internal notification", zap.String("recipient_type", string(note.RecipientType)), zap.String("subject", note.Subject))
	}

	if sendErr != nil {
		log.Warn("notification delivery failed", zap.String("recipient_type", string(note.RecipientType)), zap.Error(sendErr))
		note.Status = model.NotificationFailed
		note.Error = sendErr.Error()
	} else {
		at := n.now().UTC()
		note.Status = model.NotificationSent
		note.SentAt = &at
	}

	if err := n.repo.MarkResult(ctx, note.ID, note.Status, note.SentAt, note.Error); err != nil {
		log.Error("record notification result", zap.String("notification_id", note.ID), zap.Error(err))
	}
}

// History lists a document's notifications.
func (n *Notifier) History(ctx context.Context, documentID string) ([]model.Notification, error) {
	return n.repo.ListByDocument(ctx, documentID)
}
