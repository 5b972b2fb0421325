package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/repomanager"
)

// PendingMonitor periodically counts photos waiting for their upload and
// observations flagged CONFLICT, and publishes the numbers as gauges.
type PendingMonitor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	interval    time.Duration
	opts        Options
}

func NewPendingMonitor(db *sql.DB, m repomanager.RepositoryManager, interval time.Duration, opts Options) *PendingMonitor {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With("module", "pending-monitor")
	if interval <= 0 {
		interval = time.Minute
	}
	return &PendingMonitor{db: db, repomanager: m, interval: interval, opts: opts}
}

// Check counts once and updates the gauges.
func (m *PendingMonitor) Check(ctx context.Context) (photos, conflicts int, err error) {
	photos, err = m.repomanager.Photos(m.db).CountBySyncStatus(ctx, models.SyncPendingUpload)
	if err != nil {
		return 0, 0, err
	}
	conflicts, err = m.repomanager.Observations(m.db).CountBySyncStatus(ctx, models.SyncConflict)
	if err != nil {
		return 0, 0, err
	}
	m.opts.Metrics.SetPending(photos, conflicts)
	return photos, conflicts, nil
}

// Run checks on every tick until ctx is cancelled.
func (m *PendingMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			photos, conflicts, err := m.Check(ctx)
			if err != nil {
				if ctx.Err() == nil {
					m.opts.Logger.Error(ctx, "pending check failed", "error", err)
				}
				continue
			}
			m.opts.Logger.Info(ctx, "pending items", "photos_pending_upload", photos, "observations_conflict", conflicts)
		}
	}
}
