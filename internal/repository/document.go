package repository

import (
	"context"

	"claimflow/internal/model"
)

// DocumentRepository is the document registry. Missing rows surface as apperr NotFound.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a page of documents, newest upload first, and the total for the filter.
	List(ctx context.Context, f DocumentFilter) (*PageResult[model.Document], error)

	// UpdateStatus unconditionally sets the status and reason.
	UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, reason string) error

	// Transition moves the document from one status to another only if it is still in from.
	// It reports whether the row was updated.
	Transition(ctx context.Context, id string, from, to model.DocumentStatus, patch StatusPatch) (bool, error)

	// Delete removes a document by ID. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error
}
