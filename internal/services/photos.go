package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/guestlens/internal/dbx"
	"github.com/dmitrijs2005/guestlens/internal/logging"
	"github.com/dmitrijs2005/guestlens/internal/models"
	"github.com/dmitrijs2005/guestlens/internal/repositories/repomanager"
	"github.com/dmitrijs2005/guestlens/internal/storage"
	"github.com/dmitrijs2005/guestlens/internal/upload"
)

type PhotoService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	logger      logging.Logger
	observer    BatchObserver
}

func NewPhotoService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, logger logging.Logger, observer BatchObserver) *PhotoService {
	return &PhotoService{db: db, repomanager: m, store: store, logger: logger, observer: observer}
}

// List returns the owner's photos, newest first, with public URLs resolved.
func (s *PhotoService) List(ctx context.Context, ownerID string) ([]*models.Photo, error) {
	list, err := s.repomanager.Photos(s.db).SelectByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing photos: %w", err)
	}
	for _, p := range list {
		p.URL = s.store.PublicURL(p.StoragePath)
		p.ThumbnailURL = s.store.PublicURL(p.ThumbnailPath)
	}
	return list, nil
}

// Delete removes the photo's album links and row in one transaction, then
// deletes both objects. Object deletion failures are logged, not returned.
func (s *PhotoService) Delete(ctx context.Context, id string) error {
	p, err := s.repomanager.Photos(s.db).GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Albums(tx).UnlinkPhoto(ctx, id); err != nil {
			return fmt.Errorf("error unlinking photo: %w", err)
		}
		return s.repomanager.Photos(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	for _, path := range []string{p.StoragePath, p.ThumbnailPath} {
		if err := s.store.Delete(ctx, path); err != nil {
			s.logger.Warn(ctx, "object delete failed", "photo", id, "path", path, "error", err)
		}
	}
	s.logger.Info(ctx, "photo deleted", "photo", id)
	return nil
}

// DeleteMany deletes each selected photo. Ids repeated in the selection are
// skipped after their first occurrence.
func (s *PhotoService) DeleteMany(ctx context.Context, ids []string) upload.BatchResult {
	seen := make(map[string]bool, len(ids))

	return upload.ApplyBatch(ctx, ids, upload.Operation[string]{
		Key: func(id string) string { return id },
		IsDuplicate: func(_ context.Context, id string) (bool, error) {
			if seen[id] {
				return true, nil
			}
			seen[id] = true
			return false, nil
		},
		Apply:  s.Delete,
		OnItem: observeItems(s.observer),
	})
}
