package repository

import (
	"context"

	"certdocs/internal/model"
)

// ApplicationRepository is the read-only view of applications needed by the document workflow.
type ApplicationRepository interface {
	// Get returns the ownership and status snapshot of an application, or sql.ErrNoRows.
	Get(ctx context.Context, id string) (*model.ApplicationSnapshot, error)
}
