// Package pipeline drives a claim document through OCR, validation, analysis
// and notification, one queue per stage.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"claimflow/internal/analysis"
	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/queue"
	"claimflow/internal/repository"
	"claimflow/internal/storage"
	"claimflow/internal/validation"
)

// Extractor turns document bytes into flight data.
type Extractor interface {
	Extract(ctx context.Context, content []byte, contentType string) (*model.FlightData, error)
}

type Validator interface {
	Validate(ctx context.Context, req validation.Request) (*model.ValidationResult, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*model.AnalysisResult, error)
}

type Notifier interface {
	Notify(ctx context.Context, doc *model.Document, ev model.NotificationEvent) ([]model.Notification, error)
}

// Options tunes the coordinator.
type Options struct {
	// StageTimeout bounds the work of one stage. Zero means no bound.
	StageTimeout time.Duration
	// AutoDecide lets clear-cut recommendations approve or reject without an operator.
	AutoDecide bool
	// MaxDocumentBytes caps how much of a stored document OCR reads. Zero means no cap.
	MaxDocumentBytes int64
	// Workers is the number of consumers per queue.
	Workers int
}

type Coordinator struct {
	docs      repository.DocumentRepository
	store     storage.Storage
	extractor Extractor
	validator Validator
	analyzer  Analyzer
	notifier  Notifier
	broker    queue.Broker
	opts      Options
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Deps groups the collaborators of a Coordinator.
type Deps struct {
	Documents repository.DocumentRepository
	Storage   storage.Storage
	Extractor Extractor
	Validator Validator
	Analyzer  Analyzer
	Notifier  Notifier
	Broker    queue.Broker
	Metrics   *Metrics
	Logger    *zap.Logger
}

func NewCoordinator(d Deps, opts Options) *Coordinator {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Coordinator{
		docs:      d.Documents,
		store:     d.Storage,
		extractor: d.Extractor,
		validator: d.Validator,
		analyzer:  d.Analyzer,
		notifier:  d.Notifier,
		broker:    d.Broker,
		opts:      opts,
		metrics:   d.Metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Run consumes every stage queue until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	handlers := map[string]queue.Handler{
		model.QueueProcessing:   c.HandleIngress,
		model.QueueValidation:   c.HandleValidation,
		model.QueueAnalysis:     c.HandleAnalysis,
		model.QueueNotification: c.HandleNotification,
	}

	g, ctx := errgroup.WithContext(ctx)
	for name, h := range handlers {
		for i := 0; i < c.opts.Workers; i++ {
			g.Go(func() error {
				return c.broker.Consume(ctx, name, h)
			})
		}
	}
	c.logger.Info("pipeline started", zap.Int("workers_per_queue", c.opts.Workers))
	err := g.Wait()
	c.logger.Info("pipeline stopped")
	return err
}

func (c *Coordinator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.StageTimeout)
}

// load fetches the document for a message. A nil document with a nil error
// means the message refers to a document that no longer exists.
func (c *Coordinator) load(ctx context.Context, id string) (*model.Document, error) {
	doc, err := c.docs.FindByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		c.logger.Warn("message for unknown document discarded", zap.String("document_id", id))
		return nil, nil
	}
	return doc, err
}

// asStageError classifies a failure that escaped a stage. Timeouts and
// unclassified faults count as provider errors.
func asStageError(err error) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.Provider(err, "stage failed")
}

// fail moves doc from its current status to Error, keeping any partial stage
// output in patch, and announces the failure. The returned error is non-nil
// only when the failure could not be recorded.
func (c *Coordinator) fail(ctx context.Context, doc *model.Document, from model.DocumentStatus, stage string, cause error, patch repository.StatusPatch) error {
	cause = asStageError(cause)
	patch.Reason = cause.Error()

	log := c.logger.With(zap.String("document_id", doc.ID), zap.String("stage", stage))
	log.Warn("stage failed", zap.String("kind", string(apperr.KindOf(cause))), zap.Error(cause))
	log.Debug("stage failure detail", zap.String("stack", apperr.Stack(cause)))

	ok, err := c.docs.Transition(ctx, doc.ID, from, model.StatusError, patch)
	if err != nil {
		log.Error("record stage failure", zap.Error(err))
		return err
	}
	if !ok {
		log.Info("document moved on before failure was recorded")
		return nil
	}

	c.publishNotification(ctx, doc.ID, model.NotificationEvent{
		DocumentID: doc.ID,
		Status:     model.StatusError,
		Reason:     patch.Reason,
	})
	return nil
}

func (c *Coordinator) publishNotification(ctx context.Context, documentID string, ev model.NotificationEvent) {
	ev.Timestamp = c.now().UTC()
	if err := c.broker.Publish(ctx, model.QueueNotification, ev); err != nil {
		c.logger.Error("publish notification", zap.String("document_id", documentID), zap.Error(err))
	}
}

func (c *Coordinator) publishStage(ctx context.Context, q string, documentID, stage, ref string) error {
	err := c.broker.Publish(ctx, q, model.StageEvent{
		DocumentID: documentID,
		Stage:      stage,
		PayloadRef: ref,
		Timestamp:  c.now().UTC(),
	})
	if err != nil {
		return apperr.Provider(err, "publish "+q)
	}
	return nil
}

func decodeBlob[T any](raw json.RawMessage, what string) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperr.Wrap(apperr.KindValidationInput, err, "decode stored "+what)
	}
	return &v, nil
}

func encodeBlob(v any, what string) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidationInput, err, "encode "+what)
	}
	return b, nil
}
