// Package models defines the records persisted by the upload pipeline.
package models

import "time"

// Photo is the metadata row for one uploaded image. Object paths are
// relative to the configured bucket.
type Photo struct {
	ID            string
	UserID        string
	StoragePath   string
	ThumbnailPath string
	CreatedAt     time.Time

	// URL and ThumbnailURL are resolved from the object store on read and
	// are not persisted.
	URL          string
	ThumbnailURL string
}
