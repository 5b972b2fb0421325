// Package metadata stores the device's sync bookkeeping as key/value pairs.
package metadata

import (
	"context"
	"time"
)

// Keys used by the sync agent.
const (
	KeyWatermark = "sync.watermark"
	KeyLastPush  = "sync.last_push"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Time reads a timestamp stored under key. The zero time means unset.
	Time(ctx context.Context, key string) (time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
