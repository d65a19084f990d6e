package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/repository"
)

// NotificationPostgres persists outbound notifications.
type NotificationPostgres struct {
	db *sql.DB
}

func NewNotificationPostgres(db *sql.DB) *NotificationPostgres {
	return &NotificationPostgres{db: db}
}

var _ repository.NotificationRepository = (*NotificationPostgres)(nil)

func (r *NotificationPostgres) Create(ctx context.Context, n *model.Notification) (bool, error) {
	const q = `
		INSERT INTO notifications (id, document_id, recipient_type, recipient, subject, body, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (document_id, type, recipient_type) DO NOTHING
		RETURNING id`
	var id string
	err := r.db.QueryRowContext(ctx, q,
		n.ID,
		n.DocumentID,
		string(n.RecipientType),
		n.Recipient,
		n.Subject,
		n.Body,
		string(n.Type),
		string(n.Status),
		n.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Persistence(err, "insert notification")
	}
	return true, nil
}

func (r *NotificationPostgres) MarkResult(ctx context.Context, id string, status model.NotificationStatus, sentAt *time.Time, errMsg string) error {
	const q = `UPDATE notifications SET status = $2, sent_at = $3, error_message = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, string(status), nullTime(sentAt), errMsg)
	if err != nil {
		return apperr.Persistence(err, "update notification")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("notification " + id + " not found")
	}
	return nil
}

func (r *NotificationPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.Notification, error) {
	const q = `
		SELECT id, document_id, recipient_type, recipient, subject, body, type, status, created_at, sent_at, error_message
		FROM notifications
		WHERE document_id = $1
		ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, apperr.Persistence(err, "list notifications")
	}
	defer rows.Close()

	out := make([]model.Notification, 0)
	for rows.Next() {
		var (
			n                     model.Notification
			rtype, ntype, nstatus string
			sent                  sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.DocumentID, &rtype, &n.Recipient, &n.Subject, &n.Body, &ntype, &nstatus, &n.CreatedAt, &sent, &n.Error); err != nil {
			return nil, apperr.Persistence(err, "scan notification")
		}
		n.RecipientType = model.RecipientType(rtype)
		n.Type = model.NotificationType(ntype)
		n.Status = model.NotificationStatus(nstatus)
		if sent.Valid {
			t := sent.Time
			n.SentAt = &t
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err, "list notifications")
	}
	return out, nil
}
