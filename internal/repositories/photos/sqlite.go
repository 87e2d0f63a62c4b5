package photos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/dbx"
	"github.com/dmitrijs2005/guestlens/internal/models"
	"github.com/google/uuid"
)

// TimeLayout is the fixed-width UTC text form of SQLite timestamps. It sorts
// chronologically as plain text.
const TimeLayout = "2006-01-02 15:04:05.000000000"

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Insert(ctx context.Context, p *models.Photo) (string, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := r.now().UTC()

	query := `INSERT INTO photos (id, user_id, storage_path, thumbnail_path, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, id, p.UserID, p.StoragePath, p.ThumbnailPath, created.Format(TimeLayout))
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}

	p.ID = id
	p.CreatedAt = created
	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `select id, user_id, storage_path, thumbnail_path, created_at from photos where id=?`

	p, err := scanPhoto(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from photos where id=?`, id)
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

func (r *SQLiteRepository) SelectByOwner(ctx context.Context, userID string) ([]*models.Photo, error) {
	query := `select id, user_id, storage_path, thumbnail_path, created_at from photos
		where user_id=?
		order by created_at desc`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	var result []*models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s scanner) (*models.Photo, error) {
	p := &models.Photo{}
	var created string
	if err := s.Scan(&p.ID, &p.UserID, &p.StoragePath, &p.ThumbnailPath, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(TimeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	p.CreatedAt = t
	return p, nil
}
