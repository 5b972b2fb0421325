// Package services implements the device sync agent: offline recording into
// the outbox, pushing it to the server, pulling the farm's change feed into
// the local cache and the photo upload handshake.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/katlaang/pestscan-sub001/internal/api"
	"github.com/katlaang/pestscan-sub001/internal/client/client"
	"github.com/katlaang/pestscan-sub001/internal/client/models"
	"github.com/katlaang/pestscan-sub001/internal/client/repositories/cache"
	"github.com/katlaang/pestscan-sub001/internal/client/repositories/metadata"
	"github.com/katlaang/pestscan-sub001/internal/client/repositories/outbox"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/filex"
	"github.com/katlaang/pestscan-sub001/internal/logging"
	"github.com/katlaang/pestscan-sub001/internal/netx"
	sm "github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/timex"
)

const (
	// maxBatch matches the server's bulk upsert limit.
	maxBatch = 500
	// maxPushItems bounds one push pass.
	maxPushItems = 5000
)

// Seams for tests.
var (
	uploadToPresignedURL = netx.UploadToPresignedURL
	readPhoto            = filex.ReadPhoto
)

type Options struct {
	Logger    logging.Logger
	Clock     timex.Clock
	BatchSize int
	PageSize  int
}

// PushReport summarizes one push pass.
type PushReport struct {
	Applied   int
	Conflicts int
	Rejected  int
	Retry     int
}

// PullReport summarizes one pull.
type PullReport struct {
	Pages        int
	Sessions     int
	Observations int
	Photos       int
	Removed      int
	Watermark    time.Time
}

type SyncAgent struct {
	client   client.Client
	db       *sql.DB
	metadata metadata.Repository
	cache    cache.Repository
	outbox   outbox.Repository
	farmID   string
	opts     Options
}

func NewSyncAgent(c client.Client, repos *client.Repositories, farmID string, opts Options) *SyncAgent {
	if opts.Logger == nil {
		opts.Logger = logging.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = timex.SystemClock{}
	}
	if opts.BatchSize <= 0 || opts.BatchSize > maxBatch {
		opts.BatchSize = maxBatch
	}
	opts.Logger = opts.Logger.With("module", "sync_agent")
	return &SyncAgent{
		client:   c,
		db:       repos.DB,
		metadata: repos.Metadata,
		cache:    repos.Cache,
		outbox:   repos.Outbox,
		farmID:   farmID,
		opts:     opts,
	}
}

// Record queues an observation edit made offline and returns its client
// request id. An id already set on in is kept, so re-recording the same edit
// replaces the queued one.
func (a *SyncAgent) Record(ctx context.Context, in sm.UpsertObservationInput) (string, error) {
	if in.SessionID == "" {
		return "", fmt.Errorf("%w: sessionId is required", common.ErrValidation)
	}
	if in.ClientRequestID == nil || *in.ClientRequestID == "" {
		id := uuid.NewString()
		in.ClientRequestID = &id
	}
	if in.LastSyncedAt == nil {
		if wm, err := a.metadata.Time(ctx, metadata.KeyWatermark); err == nil && !wm.IsZero() {
			in.LastSyncedAt = &wm
		}
	}

	item := &models.OutboxItem{ClientRequestID: *in.ClientRequestID, SessionID: in.SessionID, Input: in}
	if err := a.outbox.Add(ctx, item); err != nil {
		return "", err
	}
	return item.ClientRequestID, nil
}

// Push sends pending outbox items in per-session batches. Applied items
// leave the outbox, conflicting ones are kept as CONFLICT for review and
// rejected ones as REJECTED. Transport failures stop the pass and leave the
// remaining items pending.
func (a *SyncAgent) Push(ctx context.Context) (PushReport, error) {
	var report PushReport

	items, err := a.outbox.Pending(ctx, maxPushItems)
	if err != nil {
		return report, err
	}

	for _, batch := range batches(items, a.opts.BatchSize) {
		inputs := make([]sm.UpsertObservationInput, len(batch))
		for i, it := range batch {
			inputs[i] = it.Input
		}
		sessionID := batch[0].SessionID

		results, err := a.client.BulkUpsert(ctx, sessionID, inputs)
		if err != nil {
			if errors.Is(err, client.ErrUnavailable) || errors.Is(err, client.ErrUnauthorized) || ctx.Err() != nil {
				return report, err
			}
			// the whole batch was refused, usually because the session is gone
			a.opts.Logger.Warn(ctx, "batch refused", "session", sessionID, "error", err)
			for _, it := range batch {
				if err := a.outbox.Mark(ctx, it.ClientRequestID, models.OutboxRejected, err.Error()); err != nil {
					return report, err
				}
				report.Rejected++
			}
			continue
		}

		for _, res := range results {
			if res.Index < 0 || res.Index >= len(batch) {
				continue
			}
			if err := a.settle(ctx, batch[res.Index], res, &report); err != nil {
				return report, err
			}
		}
	}

	if err := a.metadata.SetTime(ctx, metadata.KeyLastPush, a.opts.Clock.Now()); err != nil {
		return report, err
	}
	a.opts.Logger.Info(ctx, "push done", "applied", report.Applied, "conflicts", report.Conflicts,
		"rejected", report.Rejected, "retry", report.Retry)
	return report, nil
}

func (a *SyncAgent) settle(ctx context.Context, it *models.OutboxItem, res sm.BulkItemResult, report *PushReport) error {
	msg := res.Code
	if res.Error != "" {
		msg += ": " + res.Error
	}

	switch res.Code {
	case "", "OK":
		if res.Observation != nil {
			if err := a.cache.PutObservation(ctx, res.Observation); err != nil {
				return err
			}
			if res.Observation.SyncStatus == sm.SyncConflict {
				report.Conflicts++
			}
		}
		report.Applied++
		return a.outbox.Remove(ctx, it.ClientRequestID)
	case "VERSION_CONFLICT", "IDEMPOTENCY_MISMATCH", "CONFLICT":
		report.Conflicts++
		return a.outbox.Mark(ctx, it.ClientRequestID, models.OutboxConflict, msg)
	case "INTERNAL":
		report.Retry++
		return a.outbox.Mark(ctx, it.ClientRequestID, models.OutboxPending, msg)
	default:
		report.Rejected++
		return a.outbox.Mark(ctx, it.ClientRequestID, models.OutboxRejected, msg)
	}
}

// batches splits items into runs of one session, each at most size long.
func batches(items []*models.OutboxItem, size int) [][]*models.OutboxItem {
	order := make([]string, 0)
	bySession := make(map[string][]*models.OutboxItem)
	for _, it := range items {
		if _, ok := bySession[it.SessionID]; !ok {
			order = append(order, it.SessionID)
		}
		bySession[it.SessionID] = append(bySession[it.SessionID], it)
	}

	var out [][]*models.OutboxItem
	for _, sid := range order {
		group := bySession[sid]
		for len(group) > size {
			out = append(out, group[:size])
			group = group[size:]
		}
		out = append(out, group)
	}
	return out
}

// Pull pages through the change feed from the stored watermark and applies
// every page to the cache in one transaction. The watermark is stored with
// the last page only, so an interrupted pull restarts from the previous one.
func (a *SyncAgent) Pull(ctx context.Context) (PullReport, error) {
	var report PullReport

	if a.farmID == "" {
		return report, fmt.Errorf("%w: farm id is not configured", common.ErrValidation)
	}
	since, err := a.metadata.Time(ctx, metadata.KeyWatermark)
	if err != nil {
		return report, err
	}
	report.Watermark = since

	cursor := ""
	for {
		cs, err := a.client.Changes(ctx, api.SyncChangesRequest{
			FarmID:         a.farmID,
			Since:          since,
			IncludeDeleted: true,
			Cursor:         cursor,
			Limit:          a.opts.PageSize,
		})
		if err != nil {
			return report, err
		}

		err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := apply(ctx, cache.NewSQLiteRepository(tx), cs, &report); err != nil {
				return err
			}
			if cs.HasMore {
				return nil
			}
			return metadata.NewSQLiteRepository(tx).SetTime(ctx, metadata.KeyWatermark, cs.Watermark)
		})
		if err != nil {
			return report, fmt.Errorf("apply page %d: %w", report.Pages+1, err)
		}
		report.Pages++

		if !cs.HasMore {
			report.Watermark = cs.Watermark
			break
		}
		cursor = cs.NextCursor
	}

	a.opts.Logger.Info(ctx, "pull done", "pages", report.Pages, "sessions", report.Sessions,
		"observations", report.Observations, "photos", report.Photos, "removed", report.Removed,
		"watermark", report.Watermark)
	return report, nil
}

func apply(ctx context.Context, c cache.Repository, cs *sm.ChangeSet, report *PullReport) error {
	for _, s := range cs.Sessions {
		if s.Deleted {
			if err := c.DeleteSession(ctx, s.ID); err != nil {
				return err
			}
			report.Removed++
			continue
		}
		if err := c.PutSession(ctx, s); err != nil {
			return err
		}
		report.Sessions++
	}
	for _, o := range cs.Observations {
		if o.Deleted {
			if err := c.DeleteObservation(ctx, o.ID); err != nil {
				return err
			}
			report.Removed++
			continue
		}
		if err := c.PutObservation(ctx, o); err != nil {
			return err
		}
		report.Observations++
	}
	for _, p := range cs.Photos {
		if err := c.PutPhoto(ctx, p); err != nil {
			return err
		}
		report.Photos++
	}
	return nil
}

// SyncOnce pushes the outbox, then pulls the change feed.
func (a *SyncAgent) SyncOnce(ctx context.Context) error {
	if _, err := a.Push(ctx); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if _, err := a.Pull(ctx); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// Run syncs every interval until ctx is canceled. Failures are logged and
// retried on the next tick.
func (a *SyncAgent) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := a.SyncOnce(ctx); err != nil && ctx.Err() == nil {
			a.opts.Logger.Warn(ctx, "sync failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
