// Package photos stores photo metadata rows.
package photos

import (
	"context"

	"github.com/dmitrijs2005/guestlens/internal/models"
)

type Repository interface {
	// Insert stores p and returns its ID. A non-empty p.ID is used as the row
	// id; otherwise one is generated. CreatedAt is always assigned.
	Insert(ctx context.Context, p *models.Photo) (string, error)
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	Delete(ctx context.Context, id string) error
	// SelectByOwner returns the owner's photos, newest first.
	SelectByOwner(ctx context.Context, userID string) ([]*models.Photo, error)
}
