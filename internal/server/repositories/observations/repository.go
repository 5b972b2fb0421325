package observations

import (
	"context"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

// Repository stores observations. Update is a compare-and-swap on version;
// deletions are tombstones written through Update.
type Repository interface {
	Insert(ctx context.Context, o *models.Observation) error
	GetByID(ctx context.Context, id string) (*models.Observation, error)
	GetByClientRequestID(ctx context.Context, clientRequestID string) (*models.Observation, error)
	GetLiveByCell(ctx context.Context, cell models.CellKey) (*models.Observation, error)
	Update(ctx context.Context, o *models.Observation, expectedVersion int64) error
	ListBySession(ctx context.Context, sessionID string) ([]*models.Observation, error)
	SelectChanged(ctx context.Context, farmID string, since time.Time, after *models.Cursor,
		includeDeleted bool, limit int) ([]*models.Observation, error)
	CountBySyncStatus(ctx context.Context, status models.SyncStatus) (int, error)
}
