// Package outbox keeps observation edits recorded offline until the server
// has accepted them.
package outbox

import (
	"context"

	"github.com/katlaang/pestscan-sub001/internal/client/models"
)

type Repository interface {
	// Add enqueues item as PENDING. Re-adding a known client request id
	// replaces its payload and makes it pending again.
	Add(ctx context.Context, item *models.OutboxItem) error
	// Pending returns up to limit pending items, oldest first.
	Pending(ctx context.Context, limit int) ([]*models.OutboxItem, error)
	// List returns every item in the given status, oldest first.
	List(ctx context.Context, status models.OutboxStatus) ([]*models.OutboxItem, error)
	// Remove drops an item the server has applied.
	Remove(ctx context.Context, clientRequestID string) error
	// Mark records a delivery attempt outcome.
	Mark(ctx context.Context, clientRequestID string, status models.OutboxStatus, lastError string) error
}
