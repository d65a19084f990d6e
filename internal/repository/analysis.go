package repository

import (
	"context"

	"claimflow/internal/model"
)

// AnalysisRepository stores the audit trail of analyses.
type AnalysisRepository interface {
	// Create persists rec. When rec.RequestKey was already used it stores nothing and returns false.
	Create(ctx context.Context, rec *model.AnalysisRecord) (bool, error)
	ListByDocument(ctx context.Context, documentID string) ([]model.AnalysisRecord, error)
}
