package photos

import (
	"context"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, p *models.Photo) error
	GetByLocalID(ctx context.Context, farmID, localPhotoID string) (*models.Photo, error)
	Confirm(ctx context.Context, sessionID, localPhotoID, objectKey string, at time.Time) (*models.Photo, error)
	SelectChanged(ctx context.Context, farmID string, since time.Time, after *models.Cursor, includeDeleted bool, limit int) ([]*models.Photo, error)
	CountBySyncStatus(ctx context.Context, status models.SyncStatus) (int, error)
}
