// Package services contains the server-side business logic: the session
// lifecycle engine, the observation reconciler, the change feed and the
// photo registry. Every mutation runs in one transaction together with its
// audit event; repositories are always bound to that transaction.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/logging"
	"github.com/katlaang/pestscan-sub001/internal/server/metrics"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/audit"
	"github.com/katlaang/pestscan-sub001/internal/timex"
)

var (
	// newID is a seam for deterministic identifiers in tests.
	newID = func() string { return uuid.NewString() }

	// runInTx is a seam for dbx.WithTx.
	runInTx = dbx.WithTx
)

// Options carries the collaborators shared by all services. Zero values get
// defaults: the system clock, a no-op logger and no metrics.
type Options struct {
	Clock   timex.Clock
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = timex.SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = logging.Nop{}
	}
	return o
}

// now returns the current time in the precision the store keeps.
func (o Options) now() time.Time {
	return timex.StoreTime(o.Clock.Now())
}

// parseID checks that id is a UUID. Unknown-looking ids can never match a
// stored row, so they are reported as missing.
func parseID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s %q", common.ErrorNotFound, what, id)
	}
	return nil
}

func newAuditEvent(s *models.Session, action models.AuditAction, actor models.Actor, device models.Device,
	comment string, at time.Time) *models.AuditEvent {
	return &models.AuditEvent{
		ID:         newID(),
		SessionID:  s.ID,
		FarmID:     s.FarmID,
		Action:     action,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		DeviceID:   device.DeviceID,
		DeviceType: device.DeviceType,
		Location:   device.Location,
		Comment:    comment,
		OccurredAt: at,
	}
}

func appendAudit(ctx context.Context, repo audit.Repository, s *models.Session, action models.AuditAction,
	actor models.Actor, device models.Device, comment string, at time.Time) error {
	if err := repo.Append(ctx, newAuditEvent(s, action, actor, device, comment, at)); err != nil {
		return fmt.Errorf("append %s audit event: %w", action, err)
	}
	return nil
}

// checkActor rejects calls without an identity.
func checkActor(actor models.Actor) error {
	if actor.ID == "" || !actor.Role.Valid() {
		return common.ErrorUnauthorized
	}
	return nil
}

// txOptions is used for every read-modify-write unit of work.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
