package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"claimflow/internal/apperr"
	"claimflow/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAnalysisPostgres(db)
	now := time.Now().UTC()
	rec := &model.AnalysisRecord{
		ID: "a1", DocumentID: "doc-1", IsEligible: true, Recommendation: model.RecommendApprove,
		Confidence: 1, Reasoning: "ok", RequestKey: "pipeline/doc-1", AnalyzedAt: now,
	}

	t.Run("inserted", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO analysis_records (.+) ON CONFLICT \\(request_key\\) DO NOTHING").
			WithArgs("a1", "doc-1", true, model.RecommendApprove, 1.0, "ok", "pipeline/doc-1", now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))

		ok, err := repo.Create(context.Background(), rec)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("duplicate request key", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO analysis_records").WillReturnError(sql.ErrNoRows)

		ok, err := repo.Create(context.Background(), rec)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no request key stores null", func(t *testing.T) {
		adhoc := *rec
		adhoc.RequestKey = ""
		mock.ExpectQuery("INSERT INTO analysis_records").
			WithArgs("a1", "doc-1", true, model.RecommendApprove, 1.0, "ok", nil, now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))

		ok, err := repo.Create(context.Background(), &adhoc)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("write failure", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO analysis_records").WillReturnError(errors.New("disk full"))

		_, err := repo.Create(context.Background(), rec)
		assert.True(t, apperr.Is(err, apperr.KindPersistence))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisPostgres_ListByDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM analysis_records WHERE document_id = \\$1").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "is_eligible", "recommendation", "confidence", "reasoning", "request_key", "analyzed_at"}).
			AddRow("a1", "doc-1", false, model.RecommendReject, 0.8, "late", "", now))

	recs, err := NewAnalysisPostgres(db).ListByDocument(context.Background(), "doc-1")

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.RecommendReject, recs[0].Recommendation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
