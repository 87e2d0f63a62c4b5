package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/guestlens/internal/logging"
	"github.com/dmitrijs2005/guestlens/internal/repositories/repomanager"
	"github.com/dmitrijs2005/guestlens/internal/upload"
)

type AlbumService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	observer    BatchObserver
}

func NewAlbumService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, observer BatchObserver) *AlbumService {
	return &AlbumService{db: db, repomanager: m, logger: logger, observer: observer}
}

// AddPhotos links each photo to the album in selection order. Photos
// already in the album are skipped; failures do not stop the batch.
func (s *AlbumService) AddPhotos(ctx context.Context, albumID string, photoIDs []string) upload.BatchResult {
	repo := s.repomanager.Albums(s.db)

	res := upload.ApplyBatch(ctx, photoIDs, upload.Operation[string]{
		Key: func(id string) string { return id },
		IsDuplicate: func(ctx context.Context, id string) (bool, error) {
			return repo.IsLinked(ctx, albumID, id)
		},
		Apply: func(ctx context.Context, id string) error {
			return repo.Link(ctx, albumID, id)
		},
		OnItem: observeItems(s.observer),
	})

	s.logger.Info(ctx, "album batch finished",
		"album", albumID,
		"total", res.Total,
		"succeeded", res.Succeeded,
		"skipped", res.Skipped(),
		"status", string(res.Status()),
	)
	return res
}
