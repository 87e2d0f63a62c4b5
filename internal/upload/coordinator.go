// Package upload persists transcoded photos: object storage writes first,
// then the metadata row.
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/guestlens/internal/booth"
	"github.com/dmitrijs2005/guestlens/internal/capture"
	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/logging"
	"github.com/dmitrijs2005/guestlens/internal/models"
	"github.com/dmitrijs2005/guestlens/internal/repositories/photos"
	"github.com/dmitrijs2005/guestlens/internal/storage"
	"github.com/dmitrijs2005/guestlens/internal/transcode"
	"github.com/google/uuid"
)

const thumbnailPrefix = "thumbnails/"

type Transcoder interface {
	Transcode(ctx context.Context, raw []byte, fileName string) (*transcode.Result, error)
}

// Observer is notified of terminal upload states.
type Observer interface {
	ObserveUpload(status string)
}

type Option func(*Coordinator)

func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithTimeout bounds each Upload call, storage writes and insert together.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

type Coordinator struct {
	store      storage.ObjectStore
	photos     photos.Repository
	transcoder Transcoder
	logger     logging.Logger
	observer   Observer
	timeout    time.Duration
	newID      func() string
}

func NewCoordinator(store storage.ObjectStore, repo photos.Repository, transcoder Transcoder, logger logging.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      store,
		photos:     repo,
		transcoder: transcoder,
		logger:     logger,
		newID:      uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ObjectPaths returns the full-size and thumbnail paths for an object id.
func ObjectPaths(id string) (full, thumb string) {
	return id + ".webp", thumbnailPrefix + id + ".webp"
}

// Upload writes both variants and inserts the metadata row. A storage
// failure aborts before the insert. An insert failure leaves the written
// objects in place.
func (c *Coordinator) Upload(ctx context.Context, res *transcode.Result, ownerID string) (*models.Photo, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: no variants", common.ErrTranscode)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	job := &models.UploadJob{ID: c.newID(), OwnerID: ownerID, Status: models.UploadPending}
	job.FullPath, job.ThumbnailPath = ObjectPaths(job.ID)
	ctx = logging.ContextWith(ctx, "job", job.ID, "owner", ownerID)

	if err := c.store.Upload(ctx, job.FullPath, res.Full.Data, res.Full.MimeType); err != nil {
		return nil, c.fail(ctx, job, fmt.Errorf("%w: %v", common.ErrStorage, err))
	}
	if err := c.store.Upload(ctx, job.ThumbnailPath, res.Thumbnail.Data, res.Thumbnail.MimeType); err != nil {
		return nil, c.fail(ctx, job, fmt.Errorf("%w: %v", common.ErrStorage, err))
	}
	job.Status = models.UploadUploaded

	photo := &models.Photo{
		ID:            job.ID,
		UserID:        ownerID,
		StoragePath:   job.FullPath,
		ThumbnailPath: job.ThumbnailPath,
	}
	if _, err := c.photos.Insert(ctx, photo); err != nil {
		c.logger.Warn(ctx, "objects left without metadata", "full", job.FullPath, "thumbnail", job.ThumbnailPath)
		return nil, c.fail(ctx, job, fmt.Errorf("%w: %v", common.ErrMetadata, err))
	}

	job.Status = models.UploadCommitted
	c.observe(job.Status)
	c.logger.Info(ctx, "photo uploaded", "photo", photo.ID)

	photo.URL = c.store.PublicURL(photo.StoragePath)
	photo.ThumbnailURL = c.store.PublicURL(photo.ThumbnailPath)
	return photo, nil
}

// UploadFile transcodes raw image bytes and uploads the result.
func (c *Coordinator) UploadFile(ctx context.Context, raw []byte, fileName, ownerID string) (*models.Photo, error) {
	res, err := c.transcoder.Transcode(ctx, raw, fileName)
	if err != nil {
		c.observe(models.UploadFailed)
		return nil, err
	}
	return c.Upload(ctx, res, ownerID)
}

// SaveFrame uploads a captured camera frame.
func (c *Coordinator) SaveFrame(ctx context.Context, f *capture.Frame, ownerID string) (*models.Photo, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: no frame", common.ErrNotReady)
	}
	return c.UploadFile(ctx, f.Data, f.FileName(), ownerID)
}

// Saver binds SaveFrame to an owner for the booth.
func (c *Coordinator) Saver(ownerID string) booth.Saver {
	return booth.SaverFunc(func(ctx context.Context, f *capture.Frame) error {
		_, err := c.SaveFrame(ctx, f, ownerID)
		return err
	})
}

func (c *Coordinator) fail(ctx context.Context, job *models.UploadJob, err error) error {
	job.Status = models.UploadFailed
	job.Err = err
	c.observe(job.Status)
	c.logger.Error(ctx, "upload failed", "error", err)
	return err
}

func (c *Coordinator) observe(s models.UploadStatus) {
	if c.observer != nil {
		c.observer.ObserveUpload(string(s))
	}
}
