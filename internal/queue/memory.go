package queue

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// MemoryBroker is an in-process Broker for development and tests.
// Failed deliveries are requeued until MaxAttempts, then parked on the dead-letter queue.
type MemoryBroker struct {
	maxAttempts int
	metrics     *Metrics
	logger      *zap.Logger
	seq         atomic.Int64

	mu     sync.Mutex
	queues map[string]*memQueue
}

type memQueue struct {
	items  []Message
	notify chan struct{}
}

func NewMemoryBroker(maxAttempts int, metrics *Metrics, logger *zap.Logger) *MemoryBroker {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryBroker{
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger,
		queues:      make(map[string]*memQueue),
	}
}

var _ Broker = (*MemoryBroker)(nil)

func (b *MemoryBroker) queue(name string) *memQueue {
	q, ok := b.queues[name]
	if !ok {
		q = &memQueue{notify: make(chan struct{}, 1)}
		b.queues[name] = q
	}
	return q
}

func (b *MemoryBroker) push(msg Message) {
	b.mu.Lock()
	q := b.queue(msg.Queue)
	q.items = append(q.items, msg)
	b.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (b *MemoryBroker) pop(name string) (Message, chan struct{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queue(name)
	if len(q.items) == 0 {
		return Message{}, q.notify, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	if len(q.items) > 0 {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return msg, q.notify, true
}

func (b *MemoryBroker) Publish(_ context.Context, queue string, payload any) error {
	body, err := encode(queue, payload)
	if err != nil {
		return err
	}
	id := strconv.FormatInt(b.seq.Add(1), 10)
	b.push(Message{ID: id, Queue: queue, Body: body})
	b.metrics.onPublish(queue)
	return nil
}

func (b *MemoryBroker) Consume(ctx context.Context, queue string, h Handler) error {
	for {
		msg, notify, ok := b.pop(queue)
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-notify:
				continue
			}
		}

		msg.Attempt++
		err := h(ctx, msg)
		b.metrics.onResult(queue, err)
		if err == nil {
			continue
		}

		if msg.Attempt >= b.maxAttempts {
			b.logger.Warn("message dead-lettered",
				zap.String("queue", queue),
				zap.String("message_id", msg.ID),
				zap.Int("attempt", msg.Attempt),
				zap.Error(err),
			)
			b.metrics.onDead(queue)
			msg.Queue = DeadLetter(queue)
			b.push(msg)
			continue
		}
		b.push(msg)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// Len reports how many messages wait on queue.
func (b *MemoryBroker) Len(queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue(queue).items)
}

// Drain removes and returns every message waiting on queue.
func (b *MemoryBroker) Drain(queue string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(queue)
	out := q.items
	q.items = nil
	return out
}
