package audit

import (
	"context"

	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.AuditEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]*models.AuditEvent, error)
}
