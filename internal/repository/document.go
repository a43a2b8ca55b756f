package repository

import (
	"context"

	"certdocs/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	// A second live document for the same (application, category) pair fails with
	// ErrUniqueViolation unless the category allows multiple documents.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// ListByApplication returns the documents of one application, most recent upload first.
	ListByApplication(ctx context.Context, applicationID string) ([]model.Document, error)

	// Delete removes a document by ID. It returns sql.ErrNoRows if nothing was deleted.
	Delete(ctx context.Context, id string) error
}
