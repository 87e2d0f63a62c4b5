package photos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/dbx"
	"github.com/dmitrijs2005/guestlens/internal/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, p *models.Photo) (string, error) {
	var row *sql.Row
	if p.ID == "" {
		query := `INSERT INTO photos (user_id, storage_path, thumbnail_path)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
		row = r.db.QueryRowContext(ctx, query, p.UserID, p.StoragePath, p.ThumbnailPath)
	} else {
		if _, err := uuid.Parse(p.ID); err != nil {
			return "", fmt.Errorf("invalid photo id %q: %w", p.ID, err)
		}
		query := `INSERT INTO photos (id, user_id, storage_path, thumbnail_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
		row = r.db.QueryRowContext(ctx, query, p.ID, p.UserID, p.StoragePath, p.ThumbnailPath)
	}

	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return p.ID, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	// ids are uuids; anything else cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query := `SELECT id, user_id, storage_path, thumbnail_path, created_at FROM photos WHERE id=$1`

	p := &models.Photo{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.UserID, &p.StoragePath, &p.ThumbnailPath, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE id=$1`, id)
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

func (r *PostgresRepository) SelectByOwner(ctx context.Context, userID string) ([]*models.Photo, error) {
	query := `SELECT id, user_id, storage_path, thumbnail_path, created_at FROM photos
		WHERE user_id=$1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	var result []*models.Photo
	for rows.Next() {
		p := &models.Photo{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.StoragePath, &p.ThumbnailPath, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
