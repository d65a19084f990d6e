package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"claimflow/internal/apperr"
	"claimflow/internal/extraction"
	"claimflow/internal/model"
	"claimflow/internal/queue"
	"claimflow/internal/repository"
	"claimflow/internal/storage"
)

var (
	ErrIDRequired      = apperr.InvalidInput("id is required")
	ErrReaderNil       = apperr.InvalidInput("file is required")
	ErrUnsupportedType = apperr.InvalidInput("unsupported file type, expected .pdf, .jpg, .jpeg or .png")
)

// allowedExtensions maps accepted upload extensions to their content type.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Decision is a manual verdict on a claim.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) status() (model.DocumentStatus, bool) {
	switch d {
	case DecisionApprove:
		return model.StatusApproved, true
	case DecisionReject:
		return model.StatusRejected, true
	}
	return "", false
}

// UploadInput describes one uploaded claim document. Passenger fields are optional.
type UploadInput struct {
	Reader         io.Reader
	FileName       string
	ContentType    string
	Size           int64
	PassengerName  string
	PassengerEmail string
	FlightNumber   string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for claim documents.
type DocumentService interface {
	// Upload stores the file, records the document and starts processing.
	// The stored object is removed again if the record cannot be saved.
	Upload(ctx context.Context, in UploadInput) (*model.Document, error)

	// List returns documents newest first, optionally filtered by status.
	List(ctx context.Context, status string, limit, offset int) (*DocumentListResult, error)

	Get(ctx context.Context, id string) (*model.Document, error)

	Status(ctx context.Context, id string) (*model.DocumentStatusView, error)

	// Decide applies an operator's approve or reject. Repeating the same decision
	// is a no-op; reversing a decision is a conflict.
	Decide(ctx context.Context, id string, decision Decision, reason string) (*model.Document, error)

	Notifications(ctx context.Context, id string) ([]model.Notification, error)

	// DownloadURL returns a presigned link to the stored file, valid for DownloadURLExpiry.
	DownloadURL(ctx context.Context, id string) (string, error)

	// Delete removes a document from both storage and repository.
	Delete(ctx context.Context, id string) error
}

// DownloadURLExpiry bounds presigned download links handed to reviewers.
const DownloadURLExpiry = 15 * time.Minute

// NotificationHistory lists the notifications sent for a document.
type NotificationHistory interface {
	History(ctx context.Context, documentID string) ([]model.Notification, error)
}

type documentService struct {
	store   storage.Storage
	repo    repository.DocumentRepository
	broker  queue.Broker
	history NotificationHistory
	logger  *zap.Logger
	now     func() time.Time
}

func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, broker queue.Broker, history NotificationHistory, logger *zap.Logger) DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &documentService{
		store:   store,
		repo:    repo,
		broker:  broker,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	ext := strings.ToLower(filepath.Ext(in.FileName))
	defaultType, ok := allowedExtensions[ext]
	if !ok {
		return nil, ErrUnsupportedType
	}
	contentType := in.ContentType
	if !extraction.IsSupportedContentType(contentType) {
		contentType = defaultType
	}

	id := uuid.NewString()
	key := storage.DocumentKey(id, in.FileName)

	objInfo, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": filepath.Base(in.FileName),
			"document-id":       id,
		},
	})
	if err != nil {
		return nil, apperr.Provider(err, "upload to storage")
	}

	size := objInfo.Size
	if size <= 0 {
		size = in.Size
	}
	doc := &model.Document{
		ID:             id,
		FileName:       filepath.Base(in.FileName),
		ContentType:    contentType,
		Size:           size,
		StoragePath:    key,
		Status:         model.StatusUploaded,
		UploadedAt:     s.now().UTC(),
		PassengerName:  strings.TrimSpace(in.PassengerName),
		PassengerEmail: strings.TrimSpace(in.PassengerEmail),
		FlightNumber:   strings.ToUpper(strings.TrimSpace(in.FlightNumber)),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Error("rollback stored object", zap.String("key", key), zap.Error(delErr))
			return nil, apperr.Wrapf(apperr.KindPersistence, err, "db save failed; rollback delete failed: %v", delErr)
		}
		return nil, err
	}

	err = s.broker.Publish(ctx, model.QueueProcessing, model.IngressEvent{
		DocumentID:    stored.ID,
		StorageURL:    stored.StoragePath,
		ContentType:   stored.ContentType,
		PassengerName: stored.PassengerName,
		FlightNumber:  stored.FlightNumber,
		Timestamp:     s.now().UTC(),
	})
	if err != nil {
		reason := "queue publish failed: " + err.Error()
		if uerr := s.repo.UpdateStatus(ctx, stored.ID, model.StatusError, reason); uerr != nil {
			s.logger.Error("mark document failed", zap.String("document_id", stored.ID), zap.Error(uerr))
		}
		return nil, apperr.Provider(err, "queue publish failed")
	}

	s.logger.Info("document uploaded",
		zap.String("document_id", stored.ID),
		zap.String("content_type", stored.ContentType),
		zap.Int64("size", stored.Size))
	return stored, nil
}

func (s *documentService) List(ctx context.Context, status string, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	f := repository.DocumentFilter{PageQuery: repository.PageQuery{Limit: limit, Offset: offset}}
	if status != "" {
		st, ok := model.ParseStatus(status)
		if !ok {
			return nil, apperr.InvalidInput("unknown status " + status)
		}
		f.Status = st
	}

	res, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	return s.repo.FindByID(ctx, id)
}

func (s *documentService) Status(ctx context.Context, id string) (*model.DocumentStatusView, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := doc.StatusView()
	return &view, nil
}

func (s *documentService) Decide(ctx context.Context, id string, decision Decision, reason string) (*model.Document, error) {
	target, ok := decision.status()
	if !ok {
		return nil, apperr.InvalidInput("decision must be approve or reject")
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == target {
		return doc, nil
	}
	if !doc.Status.CanDecide() {
		return nil, apperr.Conflict("document is already " + string(doc.Status))
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manually " + strings.ToLower(string(target))
	}
	applied, err := s.repo.Transition(ctx, id, doc.Status, target, repository.StatusPatch{Reason: reason})
	if err != nil {
		return nil, err
	}
	if !applied {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == target {
			return current, nil
		}
		return nil, apperr.Conflict("document status changed to " + string(current.Status))
	}

	if err := s.broker.Publish(ctx, model.QueueNotification, model.NotificationEvent{
		DocumentID: id,
		Status:     target,
		Reason:     reason,
		Timestamp:  s.now().UTC(),
	}); err != nil {
		s.logger.Error("publish decision notification", zap.String("document_id", id), zap.Error(err))
	}

	s.logger.Info("document decided manually",
		zap.String("document_id", id),
		zap.String("from", string(doc.Status)),
		zap.String("status", string(target)))
	return s.Get(ctx, id)
}

func (s *documentService) Notifications(ctx context.Context, id string) ([]model.Notification, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.history.History(ctx, id)
}

func (s *documentService) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, DownloadURLExpiry)
	if err != nil {
		return "", apperr.Provider(err, "presign download")
	}
	return u, nil
}

// Delete removes the stored object first so a failure keeps the record pointing at it.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return apperr.Provider(err, "delete storage")
	}
	return s.repo.Delete(ctx, id)
}
