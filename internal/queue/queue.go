// Package queue carries stage messages between pipeline workers with at-least-once delivery.
package queue

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

// Message is one delivery of a published payload. Attempt starts at 1.
type Message struct {
	ID      string
	Queue   string
	Body    []byte
	Attempt int
}

// Handler processes a message. A non-nil error asks for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Broker publishes JSON payloads and delivers them to handlers.
type Broker interface {
	Publish(ctx context.Context, queue string, payload any) error
	// Consume delivers messages from queue to h until ctx is cancelled.
	Consume(ctx context.Context, queue string, h Handler) error
}

// DeadLetter is the queue a message moves to once it exhausts its attempts.
func DeadLetter(queue string) string {
	return queue + ".dead"
}

// Decode unmarshals a message body into T.
func Decode[T any](msg Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Body, &v); err != nil {
		return v, eris.Wrapf(err, "decode %s message %s", msg.Queue, msg.ID)
	}
	return v, nil
}

func encode(queue string, payload any) ([]byte, error) {
	if b, ok := payload.([]byte); ok {
		return b, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "encode %s message", queue)
	}
	return b, nil
}

// Metrics counts broker traffic per queue. A nil *Metrics records nothing.
type Metrics struct {
	published  *prometheus.CounterVec
	processed  *prometheus.CounterVec
	deadLetter *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_published_total",
			Help: "Messages published per queue.",
		}, []string{"queue"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_processed_total",
			Help: "Message deliveries per queue and result.",
		}, []string{"queue", "result"}),
		deadLetter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_dead_lettered_total",
			Help: "Messages moved to the dead-letter queue.",
		}, []string{"queue"}),
	}
	for _, c := range []prometheus.Collector{m.published, m.processed, m.deadLetter} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) onPublish(queue string) {
	if m != nil {
		m.published.WithLabelValues(queue).Inc()
	}
}

func (m *Metrics) onResult(queue string, err error) {
	if m == nil {
		return
	}
	result := "ack"
	if err != nil {
		result = "nack"
	}
	m.processed.WithLabelValues(queue, result).Inc()
}

func (m *Metrics) onDead(queue string) {
	if m != nil {
		m.deadLetter.WithLabelValues(queue).Inc()
	}
}
