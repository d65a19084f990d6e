package model

import "time"

// Queue names connecting the pipeline stages.
const (
	QueueProcessing   = "document-processing"
	QueueValidation   = "document-validation"
	QueueAnalysis     = "document-analysis"
	QueueNotification = "document-notification"
)

// Stage names carried on StageEvent.
const (
	StageOCR        = "ocr"
	StageValidation = "validation"
	StageAnalysis   = "analysis"
)

// IngressEvent is published by ingestion and triggers the OCR stage.
type IngressEvent struct {
	DocumentID    string    `json:"document_id"`
	StorageURL    string    `json:"storage_url"`
	ContentType   string    `json:"content_type"`
	PassengerName string    `json:"passenger_name,omitempty"`
	FlightNumber  string    `json:"flight_number,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// StageEvent announces that a stage committed its result for a document.
// PayloadRef names the document column holding the stage output.
type StageEvent struct {
	DocumentID string    `json:"document_id"`
	Stage      string    `json:"stage"`
	PayloadRef string    `json:"payload_ref"`
	Timestamp  time.Time `json:"timestamp"`
}

// NotificationEvent asks the notifier to inform stakeholders of a final status.
type NotificationEvent struct {
	DocumentID     string         `json:"document_id"`
	Status         DocumentStatus `json:"status"`
	Recommendation string         `json:"recommendation,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
