package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/repomanager"
)

// SessionService is the session lifecycle engine. It enforces the state
// graph, applies edits under optimistic versioning and writes one audit
// event per transition in the same transaction as the state change.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	opts        Options
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, opts Options) *SessionService {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With("module", "sessions")
	return &SessionService{db: db, repomanager: m, opts: opts}
}

// Create stores a new session with its targets. A client may pre-generate
// the id; replaying the same id for the same farm returns the stored session.
func (s *SessionService) Create(ctx context.Context, actor models.Actor, device models.Device,
	in models.CreateSessionInput) (*models.Session, error) {

	if err := checkActor(actor); err != nil {
		return nil, err
	}

	id := newID()
	if in.ID != nil {
		parsed, err := uuid.Parse(*in.ID)
		if err != nil {
			return nil, invalid("malformed session id %q", *in.ID)
		}
		id = parsed.String()
	}

	farmID := strings.TrimSpace(in.FarmID)
	scoutID := strings.TrimSpace(in.ScoutID)
	switch {
	case farmID == "":
		return nil, invalid("farmId is required")
	case scoutID == "":
		return nil, invalid("scoutId is required")
	case in.SessionDate.IsZero():
		return nil, invalid("sessionDate is required")
	}
	if err := validateMetadata(in.SessionMetadata); err != nil {
		return nil, err
	}
	targets, err := buildTargets(id, in.Targets)
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	day := sessionDay(in.SessionDate)
	status := entryStatus(day, now)
	if in.Status != nil {
		if !in.Status.IsEntry() {
			return nil, invalid("a new session must be NEW or SCHEDULED, got %q", *in.Status)
		}
		status = *in.Status
	}

	session := &models.Session{
		ID:          id,
		FarmID:      farmID,
		ScoutID:     scoutID,
		SessionDate: day,
		WeekNumber:  isoWeek(day),
		Status:      status,
		Version:     1,
		SyncStatus:  models.SyncSynced,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyMetadata(session, in.SessionMetadata)

	var replayed bool
	err = runInTx(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
		sessions := s.repomanager.Sessions(tx)

		err := sessions.Create(ctx, session)
		if errors.Is(err, common.ErrorAlreadyExists) {
			stored, err := sessions.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if stored.FarmID != farmID || stored.Deleted {
				return fmt.Errorf("%w: session %s already exists", common.ErrIdempotencyMismatch, id)
			}
			if stored.Targets, err = s.repomanager.Targets(tx).ListBySession(ctx, id); err != nil {
				return err
			}
			session, replayed = stored, true
			return nil
		}
		if err != nil {
			return err
		}

		targetRepo := s.repomanager.Targets(tx)
		for i := range targets {
			if err := targetRepo.Upsert(ctx, &targets[i], i); err != nil {
				return err
			}
		}
		session.Targets = targets

		return appendAudit(ctx, s.repomanager.Audit(tx), session, models.AuditCreated, actor, device, "", now)
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		s.opts.Logger.Info(ctx, "session create replayed", "session_id", id, "actor", actor.ID)
	} else {
		s.opts.Metrics.AuditEvent(string(models.AuditCreated))
		s.opts.Logger.Info(ctx, "session created", "session_id", id, "farm_id", farmID, "status", status, "actor", actor.ID)
	}
	return session, nil
}

// Update applies a patch while the session is editable and the caller's
// version is current. Metadata-only edits bump the version without an audit
// event; structural edits (scout, date, targets) append UPDATED.
func (s *SessionService) Update(ctx context.Context, actor models.Actor, device models.Device,
	id string, version int64, patch models.SessionPatch) (*models.Session, error) {

	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := parseID(id, "session"); err != nil {
		return nil, err
	}
	if err := validateMetadata(patch.SessionMetadata); err != nil {
		return nil, err
	}
	if patch.ScoutID != nil && strings.TrimSpace(*patch.ScoutID) == "" {
		return nil, invalid("scoutId must not be empty")
	}
	var newTargets []models.SessionTarget
	if patch.Targets != nil {
		var err error
		if newTargets, err = buildTargets(id, patch.Targets); err != nil {
			return nil, err
		}
	}

	var (
		session    *models.Session
		structural bool
	)
	err := runInTx(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		session, err = s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !session.Status.MetadataEditable() {
			return fmt.Errorf("%w: session is %s", common.ErrInvalidTransition, session.Status)
		}
		if session.Version != version {
			return common.ErrVersionConflict
		}

		now := s.opts.now()
		if patch.ScoutID != nil {
			scout := strings.TrimSpace(*patch.ScoutID)
			structural = structural || scout != session.ScoutID
			session.ScoutID = scout
		}
		if patch.SessionDate != nil {
			day := sessionDay(*patch.SessionDate)
			if !day.Equal(session.SessionDate) {
				structural = true
				session.SessionDate = day
				session.WeekNumber = isoWeek(day)
				if session.Status.IsEntry() {
					session.Status = entryStatus(day, now)
				}
			}
		}
		applyMetadata(session, patch.SessionMetadata)

		targetRepo := s.repomanager.Targets(tx)
		if newTargets != nil {
			if err := s.replaceTargets(ctx, tx, session, newTargets); err != nil {
				return err
			}
			structural = true
		}

		session.UpdatedAt = bumpTime(session.UpdatedAt, now)
		if err := s.repomanager.Sessions(tx).Update(ctx, session, version); err != nil {
			return err
		}
		if session.Targets, err = targetRepo.ListBySession(ctx, id); err != nil {
			return err
		}
		if structural {
			return appendAudit(ctx, s.repomanager.Audit(tx), session, models.AuditUpdated, actor, device, "", session.UpdatedAt)
		}
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "update", id, err)
		return nil, err
	}
	if structural {
		s.opts.Metrics.AuditEvent(string(models.AuditUpdated))
	}
	s.opts.Logger.Info(ctx, "session updated", "session_id", id, "version", session.Version, "structural", structural)
	return session, nil
}

// replaceTargets makes targets the session's target set. A target that still
// has live observations cannot be dropped.
func (s *SessionService) replaceTargets(ctx context.Context, tx dbx.DBTX, session *models.Session,
	targets []models.SessionTarget) error {

	keep := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		keep[t.ID] = struct{}{}
	}

	var removed []string
	for _, t := range session.Targets {
		if _, ok := keep[t.ID]; !ok {
			removed = append(removed, t.ID)
		}
	}
	if len(removed) > 0 {
		live, err := s.repomanager.Observations(tx).ListBySession(ctx, session.ID)
		if err != nil {
			return err
		}
		for _, o := range live {
			for _, r := range removed {
				if o.SessionTargetID == r {
					return invalid("target %s still has observations", r)
				}
			}
		}
	}

	targetRepo := s.repomanager.Targets(tx)
	for _, r := range removed {
		if err := targetRepo.Delete(ctx, session.ID, r); err != nil {
			return err
		}
	}
	for i := range targets {
		if err := targetRepo.Upsert(ctx, &targets[i], i); err != nil {
			return err
		}
	}
	return nil
}

// Start moves a NEW or SCHEDULED session to IN_PROGRESS. A nil version
// skips the caller-side version check.
func (s *SessionService) Start(ctx context.Context, actor models.Actor, device models.Device,
	id string, version *int64) (*models.Session, error) {

	return s.transition(ctx, actor, device, id, version, models.AuditStarted, "",
		func(session *models.Session, now time.Time) error {
			if !session.Status.IsEntry() {
				return invalidTransition(session.Status, models.StatusInProgress)
			}
			session.Status = models.StatusInProgress
			if session.StartedAt == nil {
				session.StartedAt = &now
			}
			return nil
		})
}

// Submit hands an IN_PROGRESS session over for review.
func (s *SessionService) Submit(ctx context.Context, actor models.Actor, device models.Device,
	id string, version int64) (*models.Session, error) {

	return s.transition(ctx, actor, device, id, &version, models.AuditSubmitted, "",
		func(session *models.Session, now time.Time) error {
			if !models.CanTransition(session.Status, models.StatusSubmitted) {
				return invalidTransition(session.Status, models.StatusSubmitted)
			}
			session.Status = models.StatusSubmitted
			session.SubmittedAt = &now
			return nil
		})
}

// Complete closes an IN_PROGRESS or SUBMITTED session. The caller must
// acknowledge the confirmation and may be a reviewer only.
func (s *SessionService) Complete(ctx context.Context, actor models.Actor, device models.Device,
	id string, version int64, confirmationAcknowledged bool) (*models.Session, error) {

	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if !actor.Role.CanReview() {
		return nil, fmt.Errorf("%w: %s may not complete sessions", common.ErrorForbidden, actor.Role)
	}
	if !confirmationAcknowledged {
		return nil, invalid("confirmation must be acknowledged to complete a session")
	}

	return s.transition(ctx, actor, device, id, &version, models.AuditCompleted, "",
		func(session *models.Session, now time.Time) error {
			if !models.CanTransition(session.Status, models.StatusCompleted) {
				return invalidTransition(session.Status, models.StatusCompleted)
			}
			if session.SubmittedAt == nil {
				session.SubmittedAt = &now
			}
			session.Status = models.StatusCompleted
			session.CompletedAt = &now
			session.ConfirmationAcknowledged = true
			return nil
		})
}

// Reopen sends a COMPLETED session back to IN_PROGRESS for corrections.
// The comment is mandatory and is attached to the REOPENED event.
func (s *SessionService) Reopen(ctx context.Context, actor models.Actor, device models.Device,
	id string, version *int64, comment string) (*models.Session, error) {

	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if !actor.Role.CanReview() {
		return nil, fmt.Errorf("%w: %s may not reopen sessions", common.ErrorForbidden, actor.Role)
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, invalid("a comment is required to reopen a session")
	}

	return s.transition(ctx, actor, device, id, version, models.AuditReopened, comment,
		func(session *models.Session, now time.Time) error {
			if session.Status != models.StatusCompleted {
				return invalidTransition(session.Status, models.StatusInProgress)
			}
			session.Status = models.StatusInProgress
			session.CompletedAt = nil
			session.SubmittedAt = nil
			session.ConfirmationAcknowledged = false
			session.ReopenComment = comment
			return nil
		})
}

// Delete tombstones a session that is not COMPLETED. Its observations are
// left as they are; devices drop them together with the session.
func (s *SessionService) Delete(ctx context.Context, actor models.Actor, device models.Device,
	id string, version int64) (*models.Session, error) {

	return s.transition(ctx, actor, device, id, &version, models.AuditDeleted, "",
		func(session *models.Session, now time.Time) error {
			if session.Status == models.StatusCompleted {
				return fmt.Errorf("%w: completed sessions cannot be deleted", common.ErrInvalidTransition)
			}
			session.Deleted = true
			session.DeletedAt = &now
			return nil
		})
}

func invalidTransition(from, to models.SessionStatus) error {
	return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, from, to)
}

// transition runs one lifecycle step: load, version check, apply, CAS write
// and audit append, all in one transaction.
func (s *SessionService) transition(ctx context.Context, actor models.Actor, device models.Device,
	id string, version *int64, action models.AuditAction, comment string,
	apply func(session *models.Session, now time.Time) error) (*models.Session, error) {

	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := parseID(id, "session"); err != nil {
		return nil, err
	}

	var session *models.Session
	err := runInTx(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		session, err = s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if version != nil && *version != session.Version {
			return common.ErrVersionConflict
		}
		expected := session.Version
		from := session.Status

		now := bumpTime(session.UpdatedAt, s.opts.now())
		if err := apply(session, now); err != nil {
			return err
		}
		session.UpdatedAt = now

		if err := s.repomanager.Sessions(tx).Update(ctx, session, expected); err != nil {
			return err
		}
		if err := appendAudit(ctx, s.repomanager.Audit(tx), session, action, actor, device, comment, now); err != nil {
			return err
		}
		s.opts.Logger.Info(ctx, "session transition", "session_id", id, "action", action,
			"from", from, "to", session.Status, "actor", actor.ID)
		return nil
	})
	if err != nil {
		s.logFailure(ctx, string(action), id, err)
		return nil, err
	}
	s.opts.Metrics.AuditEvent(string(action))
	return session, nil
}

// load reads a live session with its targets.
func (s *SessionService) load(ctx context.Context, db dbx.DBTX, id string) (*models.Session, error) {
	session, err := s.repomanager.Sessions(db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Deleted {
		return nil, fmt.Errorf("%w: session %s", common.ErrorNotFound, id)
	}
	if session.Targets, err = s.repomanager.Targets(db).ListBySession(ctx, id); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns a live session with its targets.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	if err := parseID(id, "session"); err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, id)
}

// List returns the live sessions of a farm with their targets.
func (s *SessionService) List(ctx context.Context, farmID string) ([]*models.Session, error) {
	if strings.TrimSpace(farmID) == "" {
		return nil, invalid("farmId is required")
	}
	list, err := s.repomanager.Sessions(s.db).ListByFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}
	targetRepo := s.repomanager.Targets(s.db)
	for _, session := range list {
		if session.Targets, err = targetRepo.ListBySession(ctx, session.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// FarmOf returns the farm a session belongs to, deleted sessions included.
func (s *SessionService) FarmOf(ctx context.Context, id string) (string, error) {
	if err := parseID(id, "session"); err != nil {
		return "", err
	}
	session, err := s.repomanager.Sessions(s.db).GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return session.FarmID, nil
}

// Audit returns the audit stream of a session, deleted sessions included.
func (s *SessionService) Audit(ctx context.Context, id string) ([]*models.AuditEvent, error) {
	if err := parseID(id, "session"); err != nil {
		return nil, err
	}
	if _, err := s.repomanager.Sessions(s.db).GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repomanager.Audit(s.db).ListBySession(ctx, id)
}

func (s *SessionService) logFailure(ctx context.Context, op, id string, err error) {
	code := ErrorCode(err)
	switch code {
	case CodeInternal:
		s.opts.Logger.Error(ctx, "session operation failed", "op", op, "session_id", id, "error", err)
	case CodeVersionConflict:
		s.opts.Logger.Warn(ctx, "session version conflict", "op", op, "session_id", id)
	default:
		s.opts.Logger.Debug(ctx, "session operation rejected", "op", op, "session_id", id, "code", code, "error", err)
	}
}

// bumpTime returns now, or one microsecond after prev if the clock has not
// moved past it. Row timestamps never go backwards.
func bumpTime(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}
