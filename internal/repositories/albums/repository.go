// Package albums stores the links between albums and photos. Albums
// themselves are opaque ids owned elsewhere.
package albums

import "context"

type Repository interface {
	IsLinked(ctx context.Context, albumID, photoID string) (bool, error)
	// Link adds the photo to the album. ErrorNotFound if the photo does not
	// exist.
	Link(ctx context.Context, albumID, photoID string) error
	// UnlinkPhoto removes the photo from every album and returns how many
	// links were removed.
	UnlinkPhoto(ctx context.Context, photoID string) (int64, error)
}
