// Package models defines the device-side records kept in the local store.
package models

import (
	"time"

	sm "github.com/katlaang/pestscan-sub001/internal/server/models"
)

// OutboxStatus is the delivery state of a locally recorded edit.
type OutboxStatus string

const (
	// OutboxPending edits are sent on the next push.
	OutboxPending OutboxStatus = "PENDING"
	// OutboxConflict edits collided with a newer server row and wait for review.
	OutboxConflict OutboxStatus = "CONFLICT"
	// OutboxRejected edits failed validation on the server and are never resent.
	OutboxRejected OutboxStatus = "REJECTED"
)

// OutboxItem is an observation upsert recorded offline. The client request id
// is the idempotency key the server deduplicates retries by.
type OutboxItem struct {
	ClientRequestID string
	SessionID       string
	Input           sm.UpsertObservationInput
	Status          OutboxStatus
	LastError       string
	Attempts        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
