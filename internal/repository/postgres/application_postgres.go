package postgres

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"certdocs/internal/model"
	"certdocs/internal/repository"
)

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// ApplicationPostgres reads application snapshots from the applications table.
type ApplicationPostgres struct {
	db *sql.DB
}

func NewApplicationPostgres(db *sql.DB) *ApplicationPostgres {
	return &ApplicationPostgres{db: db}
}

var _ repository.ApplicationRepository = (*ApplicationPostgres)(nil)

// Get returns the snapshot of one application.
func (r *ApplicationPostgres) Get(ctx context.Context, id string) (*model.ApplicationSnapshot, error) {
	query, args, err := psql().
		Select("id", "owner_id", "status").
		From("applications").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var s model.ApplicationSnapshot
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.OwnerID, &s.Status); err != nil {
		return nil, err
	}
	return &s, nil
}
