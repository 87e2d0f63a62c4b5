package albums

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/dbx"
	"github.com/dmitrijs2005/guestlens/internal/repositories/photos"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) IsLinked(ctx context.Context, albumID, photoID string) (bool, error) {
	query := `select exists (select 1 from album_photos where album_id=? and photo_id=?)`

	var linked bool
	if err := r.db.QueryRowContext(ctx, query, albumID, photoID).Scan(&linked); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return linked, nil
}

func (r *SQLiteRepository) Link(ctx context.Context, albumID, photoID string) error {
	query := `insert into album_photos (album_id, photo_id, added_at)
		select ?, id, ? from photos where id=?`

	res, err := r.db.ExecContext(ctx, query, albumID, r.now().UTC().Format(photos.TimeLayout), photoID)
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

func (r *SQLiteRepository) UnlinkPhoto(ctx context.Context, photoID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `delete from album_photos where photo_id=?`, photoID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
