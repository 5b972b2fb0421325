// Package cache mirrors the server rows of the device's farm. Rows are kept
// as their JSON wire form; tombstones remove the cached row.
package cache

import (
	"context"

	sm "github.com/katlaang/pestscan-sub001/internal/server/models"
)

type Repository interface {
	PutSession(ctx context.Context, s *sm.Session) error
	DeleteSession(ctx context.Context, id string) error
	GetSession(ctx context.Context, id string) (*sm.Session, error)
	ListSessions(ctx context.Context) ([]*sm.Session, error)

	PutObservation(ctx context.Context, o *sm.Observation) error
	DeleteObservation(ctx context.Context, id string) error
	ListObservations(ctx context.Context, sessionID string) ([]*sm.Observation, error)

	PutPhoto(ctx context.Context, p *sm.Photo) error
	GetPhoto(ctx context.Context, localPhotoID string) (*sm.Photo, error)
}
