package sessions

import (
	"context"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetForShare(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, s *models.Session, expectedVersion int64) error
	ListByFarm(ctx context.Context, farmID string) ([]*models.Session, error)
	SelectChanged(ctx context.Context, farmID string, since time.Time, after *models.Cursor, includeDeleted bool, limit int) ([]*models.Session, error)
}
