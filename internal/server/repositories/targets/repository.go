package targets

import (
	"context"

	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, t *models.SessionTarget, position int) error
	Delete(ctx context.Context, sessionID, id string) error
	ListBySession(ctx context.Context, sessionID string) ([]models.SessionTarget, error)
}
