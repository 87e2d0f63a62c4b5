package albums

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/dbx"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) IsLinked(ctx context.Context, albumID, photoID string) (bool, error) {
	if _, err := uuid.Parse(photoID); err != nil {
		return false, nil
	}

	query := `SELECT EXISTS (SELECT 1 FROM album_photos WHERE album_id=$1 AND photo_id=$2)`

	var linked bool
	if err := r.db.QueryRowContext(ctx, query, albumID, photoID).Scan(&linked); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return linked, nil
}

func (r *PostgresRepository) Link(ctx context.Context, albumID, photoID string) error {
	if _, err := uuid.Parse(photoID); err != nil {
		return common.ErrorNotFound
	}

	query := `INSERT INTO album_photos (album_id, photo_id)
		SELECT $1, id FROM photos WHERE id=$2`

	res, err := r.db.ExecContext(ctx, query, albumID, photoID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UnlinkPhoto(ctx context.Context, photoID string) (int64, error) {
	if _, err := uuid.Parse(photoID); err != nil {
		return 0, nil
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM album_photos WHERE photo_id=$1`, photoID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
