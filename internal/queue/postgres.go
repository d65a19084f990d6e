package queue

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PostgresOptions tunes PostgresBroker polling and redelivery.
type PostgresOptions struct {
	PollInterval time.Duration
	// Visibility hides a claimed message from other consumers; an unacknowledged
	// message reappears once it elapses.
	Visibility  time.Duration
	RetryDelay  time.Duration
	MaxAttempts int
}

// PostgresBroker stores messages in the queue_messages table and claims them
// with FOR UPDATE SKIP LOCKED so several workers can share a queue.
type PostgresBroker struct {
	db      *sql.DB
	opts    PostgresOptions
	metrics *Metrics
	logger  *zap.Logger
}

func NewPostgresBroker(db *sql.DB, opts PostgresOptions, metrics *Metrics, logger *zap.Logger) *PostgresBroker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.Visibility <= 0 {
		opts.Visibility = 2 * time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresBroker{db: db, opts: opts, metrics: metrics, logger: logger}
}

var _ Broker = (*PostgresBroker)(nil)

func (b *PostgresBroker) Publish(ctx context.Context, queue string, payload any) error {
	body, err := encode(queue, payload)
	if err != nil {
		return err
	}
	const q = `INSERT INTO queue_messages (queue, payload) VALUES ($1, $2)`
	if _, err := b.db.ExecContext(ctx, q, queue, string(body)); err != nil {
		return eris.Wrapf(err, "publish to %s", queue)
	}
	b.metrics.onPublish(queue)
	return nil
}

// claim leases the oldest visible message on queue. It returns false when the queue is empty.
func (b *PostgresBroker) claim(ctx context.Context, queue string) (Message, bool, error) {
	const q = `
		UPDATE queue_messages
		SET attempts = attempts + 1,
		    available_at = now() + make_interval(secs => $2)
		WHERE id = (
			SELECT id FROM queue_messages
			WHERE queue = $1 AND available_at <= now()
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, payload, attempts`
	var (
		id      int64
		payload []byte
		msg     = Message{Queue: queue}
	)
	err := b.db.QueryRowContext(ctx, q, queue, b.opts.Visibility.Seconds()).Scan(&id, &payload, &msg.Attempt)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, eris.Wrapf(err, "claim from %s", queue)
	}
	msg.ID = strconv.FormatInt(id, 10)
	msg.Body = payload
	return msg, true, nil
}

func (b *PostgresBroker) ack(ctx context.Context, msg Message) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM queue_messages WHERE id = $1`, msg.ID); err != nil {
		return eris.Wrapf(err, "ack message %s", msg.ID)
	}
	return nil
}

func (b *PostgresBroker) nack(ctx context.Context, msg Message, cause error) error {
	if msg.Attempt >= b.opts.MaxAttempts {
		const q = `UPDATE queue_messages SET queue = $2, last_error = $3, available_at = now() WHERE id = $1`
		if _, err := b.db.ExecContext(ctx, q, msg.ID, DeadLetter(msg.Queue), cause.Error()); err != nil {
			return eris.Wrapf(err, "dead-letter message %s", msg.ID)
		}
		b.metrics.onDead(msg.Queue)
		b.logger.Warn("message dead-lettered",
			zap.String("queue", msg.Queue),
			zap.String("message_id", msg.ID),
			zap.Int("attempt", msg.Attempt),
			zap.Error(cause),
		)
		return nil
	}
	const q = `UPDATE queue_messages SET last_error = $2, available_at = now() + make_interval(secs => $3) WHERE id = $1`
	if _, err := b.db.ExecContext(ctx, q, msg.ID, cause.Error(), b.opts.RetryDelay.Seconds()); err != nil {
		return eris.Wrapf(err, "requeue message %s", msg.ID)
	}
	return nil
}

// Consume polls queue until ctx is cancelled. Claim errors are logged and retried on the next tick.
func (b *PostgresBroker) Consume(ctx context.Context, queue string, h Handler) error {
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	for {
		drained, err := b.drain(ctx, queue, h)
		if err != nil && ctx.Err() == nil {
			b.logger.Error("queue poll failed", zap.String("queue", queue), zap.Error(err))
		}
		if drained || err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

// drain handles one message. It reports true when the queue had nothing to deliver.
func (b *PostgresBroker) drain(ctx context.Context, queue string, h Handler) (bool, error) {
	msg, ok, err := b.claim(ctx, queue)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	herr := h(ctx, msg)
	b.metrics.onResult(queue, herr)

	// Settle on a fresh context so a shutdown mid-handler still records the outcome.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if herr == nil {
		return false, b.ack(settleCtx, msg)
	}
	return false, b.nack(settleCtx, msg, herr)
}
