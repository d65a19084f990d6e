package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/repository"
)

const documentColumns = `id, file_name, content_type, size, storage_path, status, status_reason,
	uploaded_at, processed_at, passenger_name, passenger_email, flight_number,
	extracted_data, validation_result, analysis_result`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
type DocumentPostgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db, now: time.Now}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

func scanDocument(s scanner) (*model.Document, error) {
	var (
		d                         model.Document
		status                    string
		processedAt               sql.NullTime
		extracted, valid, analyse []byte
	)
	if err := s.Scan(
		&d.ID,
		&d.FileName,
		&d.ContentType,
		&d.Size,
		&d.StoragePath,
		&status,
		&d.StatusReason,
		&d.UploadedAt,
		&processedAt,
		&d.PassengerName,
		&d.PassengerEmail,
		&d.FlightNumber,
		&extracted,
		&valid,
		&analyse,
	); err != nil {
		return nil, err
	}
	d.Status = model.DocumentStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		d.ProcessedAt = &t
	}
	d.ExtractedData = rawOrNil(extracted)
	d.ValidationResult = rawOrNil(valid)
	d.AnalysisResult = rawOrNil(analyse)
	return &d, nil
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	q := `
		INSERT INTO documents (id, file_name, content_type, size, storage_path, status,
			uploaded_at, passenger_name, passenger_email, flight_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.FileName,
		doc.ContentType,
		doc.Size,
		doc.StoragePath,
		string(doc.Status),
		doc.UploadedAt,
		doc.PassengerName,
		doc.PassengerEmail,
		doc.FlightNumber,
	)
	out, err := scanDocument(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "document already exists")
		}
		return nil, apperr.Persistence(err, "insert document")
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("document " + id + " not found")
		}
		return nil, apperr.Persistence(err, "find document")
	}
	return d, nil
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, f repository.DocumentFilter) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE ($1 = '' OR status = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, string(f.Status)).Scan(&total); err != nil {
		return nil, apperr.Persistence(err, "count documents")
	}

	qList := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE ($1 = '' OR status = $1)
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, qList, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, apperr.Persistence(err, "list documents")
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, apperr.Persistence(err, "scan document")
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err, "list documents")
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

func (r *DocumentPostgres) processedAt(status model.DocumentStatus) *time.Time {
	if !status.StampsProcessedAt() {
		return nil
	}
	t := r.now().UTC()
	return &t
}

// UpdateStatus sets status and reason, stamping processed_at once the document leaves the intake states.
func (r *DocumentPostgres) UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, reason string) error {
	const q = `
		UPDATE documents
		SET status = $2, status_reason = $3, processed_at = COALESCE($4::timestamptz, processed_at)
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, string(status), reason, nullTime(r.processedAt(status)))
	if err != nil {
		return apperr.Persistence(err, "update document status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence(err, "update document status")
	}
	if n == 0 {
		return apperr.NotFound("document " + id + " not found")
	}
	return nil
}

// Transition is a compare-and-set on status that also writes the stage output.
func (r *DocumentPostgres) Transition(ctx context.Context, id string, from, to model.DocumentStatus, p repository.StatusPatch) (bool, error) {
	const q = `
		UPDATE documents
		SET status            = $3,
		    status_reason     = $4,
		    processed_at      = COALESCE($5::timestamptz, processed_at),
		    passenger_name    = COALESCE($6, passenger_name),
		    flight_number     = COALESCE($7, flight_number),
		    extracted_data    = COALESCE($8::jsonb, extracted_data),
		    validation_result = COALESCE($9::jsonb, validation_result),
		    analysis_result   = COALESCE($10::jsonb, analysis_result)
		WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, q,
		id,
		string(from),
		string(to),
		p.Reason,
		nullTime(r.processedAt(to)),
		nullString(p.PassengerName),
		nullString(p.FlightNumber),
		nullJSON(p.ExtractedData),
		nullJSON(p.ValidationResult),
		nullJSON(p.AnalysisResult),
	)
	if err != nil {
		return false, apperr.Persistence(err, "transition document")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Persistence(err, "transition document")
	}
	return n == 1, nil
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return apperr.Persistence(err, "delete document")
	}
	return nil
}
