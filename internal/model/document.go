package model

import (
	"encoding/json"
	"time"
)

// DocumentStatus is the lifecycle state of a claim document.
type DocumentStatus string

const (
	StatusUploaded            DocumentStatus = "Uploaded"
	StatusProcessing          DocumentStatus = "Processing"
	StatusOCRCompleted        DocumentStatus = "OCRCompleted"
	StatusValidationCompleted DocumentStatus = "ValidationCompleted"
	StatusAnalysisCompleted   DocumentStatus = "AnalysisCompleted"
	StatusApproved            DocumentStatus = "Approved"
	StatusRejected            DocumentStatus = "Rejected"
	StatusError               DocumentStatus = "Error"
)

// AllStatuses lists every status in expected progression order, Error last.
var AllStatuses = []DocumentStatus{
	StatusUploaded,
	StatusProcessing,
	StatusOCRCompleted,
	StatusValidationCompleted,
	StatusAnalysisCompleted,
	StatusApproved,
	StatusRejected,
	StatusError,
}

// automated holds the forward edges the pipeline may take. Error is handled separately.
var automated = map[DocumentStatus][]DocumentStatus{
	StatusUploaded:            {StatusProcessing},
	StatusProcessing:          {StatusOCRCompleted},
	StatusOCRCompleted:        {StatusValidationCompleted},
	StatusValidationCompleted: {StatusAnalysisCompleted},
	StatusAnalysisCompleted:   {StatusApproved, StatusRejected},
}

// ParseStatus validates s as a known status.
func ParseStatus(s string) (DocumentStatus, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further automated transition leaves s.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusError
}

// CanTransitionTo reports whether the pipeline may move a document from s to next.
// Error is reachable from every non-terminal status.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusError {
		return true
	}
	for _, n := range automated[s] {
		if n == next {
			return true
		}
	}
	return false
}

// CanDecide reports whether a manual approve/reject may be applied from s.
// Operators may override a failed document, but a decided one stays decided.
func (s DocumentStatus) CanDecide() bool {
	return s != StatusApproved && s != StatusRejected
}

// StampsProcessedAt reports whether entering s records processed_at.
func (s DocumentStatus) StampsProcessedAt() bool {
	return s != StatusUploaded && s != StatusProcessing
}

// Document is the canonical record of an uploaded claim document.
type Document struct {
	ID               string          `json:"id"`
	FileName         string          `json:"file_name"`
	ContentType      string          `json:"content_type"`
	Size             int64           `json:"size"`
	StoragePath      string          `json:"storage_path"`
	Status           DocumentStatus  `json:"status"`
	StatusReason     string          `json:"status_reason,omitempty"`
	UploadedAt       time.Time       `json:"uploaded_at"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	PassengerName    string          `json:"passenger_name,omitempty"`
	PassengerEmail   string          `json:"passenger_email,omitempty"`
	FlightNumber     string          `json:"flight_number,omitempty"`
	ExtractedData    json.RawMessage `json:"extracted_data,omitempty"`
	ValidationResult json.RawMessage `json:"validation_result,omitempty"`
	AnalysisResult   json.RawMessage `json:"analysis_result,omitempty"`
}

// DocumentStatusView is the lightweight status query response.
type DocumentStatusView struct {
	ID          string         `json:"id"`
	Status      DocumentStatus `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	LastUpdated time.Time      `json:"last_updated"`
}

// StatusView projects d into its status query response.
func (d *Document) StatusView() DocumentStatusView {
	last := d.UploadedAt
	if d.ProcessedAt != nil {
		last = *d.ProcessedAt
	}
	return DocumentStatusView{ID: d.ID, Status: d.Status, Reason: d.StatusReason, LastUpdated: last}
}
