package client

import (
	"context"

	"github.com/katlaang/pestscan-sub001/internal/api"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	BulkUpsert(ctx context.Context, sessionID string, items []models.UpsertObservationInput) ([]models.BulkItemResult, error)
	Changes(ctx context.Context, req api.SyncChangesRequest) (*models.ChangeSet, error)
	RegisterPhoto(ctx context.Context, in models.RegisterPhotoInput) (*models.Photo, *models.PhotoUpload, error)
	ConfirmPhoto(ctx context.Context, sessionID, localPhotoID, objectKey string) (*models.Photo, error)
}
