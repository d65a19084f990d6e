package postgres

import (
	"context"
	"database/sql"
	"errors"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/repository"
)

// AnalysisPostgres persists analysis records.
type AnalysisPostgres struct {
	db *sql.DB
}

func NewAnalysisPostgres(db *sql.DB) *AnalysisPostgres {
	return &AnalysisPostgres{db: db}
}

var _ repository.AnalysisRepository = (*AnalysisPostgres)(nil)

func (r *AnalysisPostgres) Create(ctx context.Context, rec *model.AnalysisRecord) (bool, error) {
	const q = `
		INSERT INTO analysis_records (id, document_id, is_eligible, recommendation, confidence, reasoning, request_key, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (request_key) DO NOTHING
		RETURNING id`
	var id string
	err := r.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.DocumentID,
		rec.IsEligible,
		rec.Recommendation,
		rec.Confidence,
		rec.Reasoning,
		nullString(rec.RequestKey),
		rec.AnalyzedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Persistence(err, "insert analysis record")
	}
	return true, nil
}

func (r *AnalysisPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.AnalysisRecord, error) {
	const q = `
		SELECT id, document_id, is_eligible, recommendation, confidence, reasoning, COALESCE(request_key, ''), analyzed_at
		FROM analysis_records
		WHERE document_id = $1
		ORDER BY analyzed_at ASC`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, apperr.Persistence(err, "list analysis records")
	}
	defer rows.Close()

	out := make([]model.AnalysisRecord, 0)
	for rows.Next() {
		var a model.AnalysisRecord
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.IsEligible, &a.Recommendation, &a.Confidence, &a.Reasoning, &a.RequestKey, &a.AnalyzedAt); err != nil {
			return nil, apperr.Persistence(err, "scan analysis record")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err, "list analysis records")
	}
	return out, nil
}
