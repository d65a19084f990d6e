package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"claimflow/internal/analysis"
	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/queue"
	"claimflow/internal/repository"
	"claimflow/internal/storage"
	"claimflow/internal/validation"
)

// HandleIngress runs OCR on a freshly uploaded document.
func (c *Coordinator) HandleIngress(ctx context.Context, msg queue.Message) error {
	started := time.Now()
	ev, err := queue.Decode[model.IngressEvent](msg)
	if err != nil {
		c.logger.Error("malformed ingress message discarded", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	doc, err := c.load(ctx, ev.DocumentID)
	if err != nil || doc == nil {
		return err
	}

	switch doc.Status {
	case model.StatusUploaded:
		ok, err := c.docs.Transition(ctx, doc.ID, model.StatusUploaded, model.StatusProcessing, repository.StatusPatch{})
		if err != nil {
			return err
		}
		if !ok {
			c.skip(model.StageOCR, doc.ID, model.StatusUploaded, started)
			return nil
		}
	default:
		c.skip(model.StageOCR, doc.ID, doc.Status, started)
		return nil
	}

	fd, err := c.extract(ctx, doc)
	if err != nil {
		c.metrics.observe(model.StageOCR, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusProcessing, model.StageOCR, err, repository.StatusPatch{})
	}

	blob, err := encodeBlob(fd, "extracted data")
	if err != nil {
		c.metrics.observe(model.StageOCR, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusProcessing, model.StageOCR, err, repository.StatusPatch{})
	}
	patch := repository.StatusPatch{ExtractedData: blob}
	if doc.PassengerName == "" {
		patch.PassengerName = fd.PassengerName
	}
	if doc.FlightNumber == "" {
		patch.FlightNumber = fd.FlightNumber
	}

	ok, err := c.docs.Transition(ctx, doc.ID, model.StatusProcessing, model.StatusOCRCompleted, patch)
	if err != nil {
		return err
	}
	if !ok {
		c.skip(model.StageOCR, doc.ID, model.StatusProcessing, started)
		return nil
	}

	if err := c.publishStage(ctx, model.QueueValidation, doc.ID, model.StageOCR, "extracted_data"); err != nil {
		c.metrics.observe(model.StageOCR, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusOCRCompleted, model.StageOCR, err, repository.StatusPatch{})
	}

	c.metrics.observe(model.StageOCR, outcomeCompleted, started)
	c.logger.Info("ocr completed",
		zap.String("document_id", doc.ID),
		zap.String("flight_number", fd.FlightNumber),
		zap.Float64("confidence", fd.Confidence))
	return nil
}

func (c *Coordinator) extract(ctx context.Context, doc *model.Document) (*model.FlightData, error) {
	ctx, cancel := c.stageContext(ctx)
	defer cancel()

	content, _, err := storage.Fetch(ctx, c.store, doc.StoragePath, c.opts.MaxDocumentBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperr.Wrap(apperr.KindValidationInput, err, "document too large for ocr")
		}
		return nil, apperr.Provider(err, "fetch document")
	}
	return c.extractor.Extract(ctx, content, doc.ContentType)
}

// HandleValidation cross-checks the extracted data.
func (c *Coordinator) HandleValidation(ctx context.Context, msg queue.Message) error {
	started := time.Now()
	ev, err := queue.Decode[model.StageEvent](msg)
	if err != nil {
		c.logger.Error("malformed validation message discarded", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	doc, err := c.load(ctx, ev.DocumentID)
	if err != nil || doc == nil {
		return err
	}
	if doc.Status != model.StatusOCRCompleted {
		c.skip(model.StageValidation, doc.ID, doc.Status, started)
		return nil
	}

	fd, err := decodeBlob[model.FlightData](doc.ExtractedData, "extracted data")
	if err != nil {
		c.metrics.observe(model.StageValidation, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusOCRCompleted, model.StageValidation, err, repository.StatusPatch{})
	}

	stageCtx, cancel := c.stageContext(ctx)
	result, verr := c.validator.Validate(stageCtx, validation.RequestFrom(fd, doc.FlightNumber, doc.PassengerName))
	cancel()

	var patch repository.StatusPatch
	if result != nil {
		blob, err := encodeBlob(result, "validation result")
		if err == nil {
			patch.ValidationResult = blob
		} else if verr == nil {
			verr = err
		}
	}
	if verr != nil {
		c.metrics.observe(model.StageValidation, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusOCRCompleted, model.StageValidation, verr, patch)
	}

	ok, err := c.docs.Transition(ctx, doc.ID, model.StatusOCRCompleted, model.StatusValidationCompleted, patch)
	if err != nil {
		return err
	}
	if !ok {
		c.skip(model.StageValidation, doc.ID, model.StatusOCRCompleted, started)
		return nil
	}

	if err := c.publishStage(ctx, model.QueueAnalysis, doc.ID, model.StageValidation, "validation_result"); err != nil {
		c.metrics.observe(model.StageValidation, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusValidationCompleted, model.StageValidation, err, repository.StatusPatch{})
	}

	c.metrics.observe(model.StageValidation, outcomeCompleted, started)
	c.logger.Info("validation completed",
		zap.String("document_id", doc.ID),
		zap.Bool("valid", result.IsValid),
		zap.Float64("confidence", result.Confidence))
	return nil
}

// HandleAnalysis runs the eligibility analysis and, when enabled, applies a
// clear-cut decision.
func (c *Coordinator) HandleAnalysis(ctx context.Context, msg queue.Message) error {
	started := time.Now()
	ev, err := queue.Decode[model.StageEvent](msg)
	if err != nil {
		c.logger.Error("malformed analysis message discarded", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	doc, err := c.load(ctx, ev.DocumentID)
	if err != nil || doc == nil {
		return err
	}

	switch doc.Status {
	case model.StatusValidationCompleted:
	case model.StatusAnalysisCompleted:
		// the decision step may not have run before a redelivery
		if res, err := decodeBlob[model.AnalysisResult](doc.AnalysisResult, "analysis result"); err == nil && res != nil {
			return c.decide(ctx, doc, res)
		}
		c.skip(model.StageAnalysis, doc.ID, doc.Status, started)
		return nil
	default:
		c.skip(model.StageAnalysis, doc.ID, doc.Status, started)
		return nil
	}

	fd, err := decodeBlob[model.FlightData](doc.ExtractedData, "extracted data")
	if err != nil {
		c.metrics.observe(model.StageAnalysis, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusValidationCompleted, model.StageAnalysis, err, repository.StatusPatch{})
	}
	vr, err := decodeBlob[model.ValidationResult](doc.ValidationResult, "validation result")
	if err != nil {
		c.metrics.observe(model.StageAnalysis, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusValidationCompleted, model.StageAnalysis, err, repository.StatusPatch{})
	}

	stageCtx, cancel := c.stageContext(ctx)
	result, err := c.analyzer.Analyze(stageCtx, analysis.Request{
		DocumentID: doc.ID,
		FlightData: fd,
		Validation: vr,
		RequestKey: "pipeline/" + doc.ID,
	})
	cancel()
	if err != nil {
		c.metrics.observe(model.StageAnalysis, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusValidationCompleted, model.StageAnalysis, err, repository.StatusPatch{})
	}

	blob, err := encodeBlob(result, "analysis result")
	if err != nil {
		c.metrics.observe(model.StageAnalysis, outcomeFailed, started)
		return c.fail(ctx, doc, model.StatusValidationCompleted, model.StageAnalysis, err, repository.StatusPatch{})
	}
	ok, err := c.docs.Transition(ctx, doc.ID, model.StatusValidationCompleted, model.StatusAnalysisCompleted, repository.StatusPatch{
		Reason:         result.Recommendation,
		AnalysisResult: blob,
	})
	if err != nil {
		return err
	}
	if !ok {
		c.skip(model.StageAnalysis, doc.ID, model.StatusValidationCompleted, started)
		return nil
	}

	c.metrics.observe(model.StageAnalysis, outcomeCompleted, started)
	c.logger.Info("analysis completed",
		zap.String("document_id", doc.ID),
		zap.Bool("eligible", result.IsEligible),
		zap.String("recommendation", result.Recommendation))
	return c.decide(ctx, doc, result)
}

// decide applies the automatic decision for an analysed document and announces
// the status it ends up in.
func (c *Coordinator) decide(ctx context.Context, doc *model.Document, result *model.AnalysisResult) error {
	final := model.StatusAnalysisCompleted
	if c.opts.AutoDecide {
		switch result.Recommendation {
		case model.RecommendApprove:
			final = model.StatusApproved
		case model.RecommendReject:
			final = model.StatusRejected
		}
	}

	if final != model.StatusAnalysisCompleted {
		ok, err := c.docs.Transition(ctx, doc.ID, model.StatusAnalysisCompleted, final, repository.StatusPatch{
			Reason: result.Recommendation,
		})
		if err != nil {
			return err
		}
		if !ok {
			c.logger.Info("document decided elsewhere", zap.String("document_id", doc.ID))
			return nil
		}
		c.logger.Info("document decided automatically",
			zap.String("document_id", doc.ID), zap.String("status", string(final)))
	}

	c.publishNotification(ctx, doc.ID, model.NotificationEvent{
		DocumentID:     doc.ID,
		Status:         final,
		Recommendation: result.Recommendation,
		Reason:         result.Reasoning,
	})
	return nil
}

// HandleNotification informs stakeholders of a document's final status.
func (c *Coordinator) HandleNotification(ctx context.Context, msg queue.Message) error {
	ev, err := queue.Decode[model.NotificationEvent](msg)
	if err != nil {
		c.logger.Error("malformed notification message discarded", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	doc, err := c.load(ctx, ev.DocumentID)
	if err != nil || doc == nil {
		return err
	}

	notes, err := c.notifier.Notify(ctx, doc, ev)
	switch {
	case apperr.Is(err, apperr.KindValidationInput):
		c.logger.Warn("notification discarded", zap.String("document_id", doc.ID), zap.Error(err))
		return nil
	case err != nil:
		return err
	}
	c.logger.Info("notifications processed",
		zap.String("document_id", doc.ID),
		zap.String("status", string(ev.Status)),
		zap.Int("sent", len(notes)))
	return nil
}

func (c *Coordinator) skip(stage, documentID string, status model.DocumentStatus, started time.Time) {
	c.metrics.observe(stage, outcomeSkipped, started)
	c.logger.Info("duplicate or stale message discarded",
		zap.String("stage", stage),
		zap.String("document_id", documentID),
		zap.String("status", string(status)))
}
