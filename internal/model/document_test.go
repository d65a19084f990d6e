package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from DocumentStatus
		to   DocumentStatus
		want bool
	}{
		{StatusUploaded, StatusProcessing, true},
		{StatusProcessing, StatusOCRCompleted, true},
		{StatusOCRCompleted, StatusValidationCompleted, true},
		{StatusValidationCompleted, StatusAnalysisCompleted, true},
		{StatusAnalysisCompleted, StatusApproved, true},
		{StatusAnalysisCompleted, StatusRejected, true},
		{StatusUploaded, StatusOCRCompleted, false},
		{StatusOCRCompleted, StatusAnalysisCompleted, false},
		{StatusProcessing, StatusError, true},
		{StatusAnalysisCompleted, StatusError, true},
		{StatusApproved, StatusError, false},
		{StatusError, StatusProcessing, false},
		{StatusRejected, StatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTerminalAndDecide(t *testing.T) {
	for _, s := range []DocumentStatus{StatusApproved, StatusRejected, StatusError} {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range []DocumentStatus{StatusUploaded, StatusProcessing, StatusOCRCompleted, StatusValidationCompleted, StatusAnalysisCompleted} {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, s.CanDecide(), s)
	}
	assert.True(t, StatusError.CanDecide())
	assert.False(t, StatusApproved.CanDecide())
	assert.False(t, StatusRejected.CanDecide())
}

func TestStampsProcessedAt(t *testing.T) {
	assert.False(t, StatusUploaded.StampsProcessedAt())
	assert.False(t, StatusProcessing.StampsProcessedAt())
	assert.True(t, StatusOCRCompleted.StampsProcessedAt())
	assert.True(t, StatusError.StampsProcessedAt())
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("ValidationCompleted")
	assert.True(t, ok)
	assert.Equal(t, StatusValidationCompleted, s)

	_, ok = ParseStatus("validationcompleted")
	assert.False(t, ok)
}

func TestStatusView(t *testing.T) {
	uploaded := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := &Document{ID: "doc-1", Status: StatusUploaded, UploadedAt: uploaded}
	assert.Equal(t, uploaded, d.StatusView().LastUpdated)

	processed := uploaded.Add(time.Hour)
	d.ProcessedAt = &processed
	d.Status = StatusError
	d.StatusReason = "ocr failed"

	v := d.StatusView()
	assert.Equal(t, processed, v.LastUpdated)
	assert.Equal(t, StatusError, v.Status)
	assert.Equal(t, "ocr failed", v.Reason)
}
