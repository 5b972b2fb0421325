package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/observations"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/repomanager"
	"github.com/katlaang/pestscan-sub001/internal/server/species"
)

// MaxBulkItems caps one BulkUpsert call.
const MaxBulkItems = 500

// Upsert outcomes, also used as metric labels.
const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
	OutcomeReplayed = "replayed"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
)

// clientRequestIDConstraint can still fire on update when two requests race
// with the same client request id.
const clientRequestIDConstraint = "observations_client_request_id_key"

// ObservationService is the observation reconciler: cell-level upserts
// that are idempotent by client request id and versioned per row.
type ObservationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	catalog     *species.Catalog
	opts        Options
}

func NewObservationService(db *sql.DB, m repomanager.RepositoryManager, catalog *species.Catalog, opts Options) *ObservationService {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With("module", "observations")
	if catalog == nil {
		catalog = species.Default()
	}
	return &ObservationService{db: db, repomanager: m, catalog: catalog, opts: opts}
}

// Upsert records the count of one species at one cell.
func (s *ObservationService) Upsert(ctx context.Context, actor models.Actor, device models.Device,
	in models.UpsertObservationInput) (*models.Observation, error) {

	var (
		out     *models.Observation
		outcome string
	)
	err := runInTx(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, outcome, err = s.upsert(ctx, tx, actor, device, in)
		return err
	})
	s.record(ctx, in, outcome, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BulkUpsert reconciles every item in its own transaction and reports a
// result per item. When at least one item changed data a single SYNCED
// event is appended to the session's audit stream.
func (s *ObservationService) BulkUpsert(ctx context.Context, actor models.Actor, device models.Device,
	sessionID string, items []models.UpsertObservationInput) ([]models.BulkItemResult, error) {

	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := parseID(sessionID, "session"); err != nil {
		return nil, err
	}
	if len(items) > MaxBulkItems {
		return nil, invalid("at most %d items per batch", MaxBulkItems)
	}

	results := make([]models.BulkItemResult, len(items))
	applied := 0
	for i, item := range items {
		results[i].Index = i
		if item.SessionID == "" {
			item.SessionID = sessionID
		}

		var (
			out     *models.Observation
			outcome string
			err     error
		)
		if item.SessionID != sessionID {
			err = invalid("item belongs to session %s", item.SessionID)
		} else {
			err = runInTx(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
				var err error
				out, outcome, err = s.upsert(ctx, tx, actor, device, item)
				return err
			})
		}
		s.record(ctx, item, outcome, err)

		if err != nil {
			results[i].Code = ErrorCode(err)
			results[i].Error = publicMessage(err)
			continue
		}
		results[i].Code = CodeOK
		results[i].Observation = out
		if outcome != OutcomeReplayed {
			applied++
		}
	}

	if applied > 0 {
		comment := fmt.Sprintf("bulk upsert applied %d of %d items", applied, len(items))
		err := runInTx(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
			session, err := s.repomanager.Sessions(tx).GetByID(ctx, sessionID)
			if err != nil {
				return err
			}
			return appendAudit(ctx, s.repomanager.Audit(tx), session, models.AuditSynced, actor, device, comment, s.opts.now())
		})
		if err != nil {
			return nil, err
		}
		s.opts.Metrics.AuditEvent(string(models.AuditSynced))
	}
	s.opts.Logger.Info(ctx, "bulk upsert done", "session_id", sessionID, "items", len(items), "applied", applied)
	return results, nil
}

// publicMessage hides internal error details from clients.
func publicMessage(err error) string {
	if ErrorCode(err) == CodeInternal {
		return "internal error"
	}
	return err.Error()
}

func (s *ObservationService) record(ctx context.Context, in models.UpsertObservationInput, outcome string, err error) {
	switch {
	case err == nil:
		s.opts.Metrics.ObservationOutcome(outcome)
		if outcome != OutcomeReplayed {
			s.opts.Metrics.AuditEvent(string(auditFor(outcome)))
		}
	case errors.Is(err, common.ErrVersionConflict), errors.Is(err, common.ErrIdempotencyMismatch):
		s.opts.Metrics.ObservationOutcome(OutcomeConflict)
		s.opts.Logger.Warn(ctx, "observation upsert conflict", "session_id", in.SessionID,
			"species", in.SpeciesCode, "code", ErrorCode(err))
	default:
		s.opts.Metrics.ObservationOutcome(OutcomeRejected)
		if ErrorCode(err) == CodeInternal {
			s.opts.Logger.Error(ctx, "observation upsert failed", "session_id", in.SessionID, "error", err)
		}
	}
}

func auditFor(outcome string) models.AuditAction {
	if outcome == OutcomeInserted {
		return models.AuditObservationAdded
	}
	return models.AuditObservationUpdated
}

type upsertRequest struct {
	models.UpsertObservationInput
	category models.Category
	crid     *string
}

func (r *upsertRequest) cell() models.CellKey {
	return models.CellKey{
		SessionID:       r.SessionID,
		SessionTargetID: r.SessionTargetID,
		BayIndex:        r.BayIndex,
		BenchIndex:      r.BenchIndex,
		SpotIndex:       r.SpotIndex,
		SpeciesCode:     r.SpeciesCode,
	}
}

// samePayload reports whether o already holds exactly what r asks for.
func (r *upsertRequest) samePayload(o *models.Observation) bool {
	return o.Count == r.Count &&
		o.Notes == r.Notes &&
		o.Category == r.category &&
		equalPtr(o.BayLabel, r.BayLabel) &&
		equalPtr(o.BenchLabel, r.BenchLabel)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *ObservationService) validate(in models.UpsertObservationInput) (*upsertRequest, error) {
	if err := parseID(in.SessionID, "session"); err != nil {
		return nil, err
	}
	if err := parseID(in.SessionTargetID, "session target"); err != nil {
		return nil, invalid("malformed sessionTargetId %q", in.SessionTargetID)
	}
	if in.Count < 0 {
		return nil, invalid("count must not be negative")
	}
	if in.BayIndex < 0 || in.BenchIndex < 0 || in.SpotIndex < 0 {
		return nil, invalid("cell indexes must not be negative")
	}
	code, category, err := s.catalog.Resolve(in.SpeciesCode, in.Category)
	if err != nil {
		return nil, err
	}
	r := &upsertRequest{UpsertObservationInput: in, category: category, crid: trimmed(in.ClientRequestID)}
	r.SpeciesCode = code
	r.BayLabel = trimmed(in.BayLabel)
	r.BenchLabel = trimmed(in.BenchLabel)
	return r, nil
}

// upsert runs inside a transaction. It returns the stored row and how the
// request was applied.
func (s *ObservationService) upsert(ctx context.Context, tx dbx.DBTX, actor models.Actor, device models.Device,
	in models.UpsertObservationInput) (*models.Observation, string, error) {

	if err := checkActor(actor); err != nil {
		return nil, "", err
	}
	req, err := s.validate(in)
	if err != nil {
		return nil, "", err
	}

	session, err := s.editableSession(ctx, tx, req.SessionID)
	if err != nil {
		return nil, "", err
	}
	target, ok := session.Target(req.SessionTargetID)
	if !ok {
		return nil, "", invalid("target %s does not belong to session %s", req.SessionTargetID, session.ID)
	}
	if !target.AllowsBay(req.BayLabel) {
		return nil, "", invalid("bay label is not one of the target's bays")
	}
	if !target.AllowsBench(req.BenchLabel) {
		return nil, "", invalid("bench label is not one of the target's benches")
	}

	repo := s.repomanager.Observations(tx)
	now := s.opts.now()

	// A lost insert race is resolved by reading the winner once more.
	for attempt := 0; attempt < 2; attempt++ {
		existing, byKey, err := s.resolve(ctx, repo, req)
		if err != nil {
			return nil, "", err
		}

		if existing == nil {
			o := &models.Observation{
				ID:              newID(),
				SessionID:       req.SessionID,
				SessionTargetID: req.SessionTargetID,
				SpeciesCode:     req.SpeciesCode,
				Category:        req.category,
				BayIndex:        req.BayIndex,
				BenchIndex:      req.BenchIndex,
				SpotIndex:       req.SpotIndex,
				BayLabel:        req.BayLabel,
				BenchLabel:      req.BenchLabel,
				Count:           req.Count,
				Notes:           req.Notes,
				Version:         1,
				SyncStatus:      models.SyncSynced,
				ClientRequestID: req.crid,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			err := repo.Insert(ctx, o)
			if errors.Is(err, common.ErrorAlreadyExists) {
				continue
			}
			if err != nil {
				return nil, "", err
			}
			if err := appendAudit(ctx, s.repomanager.Audit(tx), session, models.AuditObservationAdded,
				actor, device, "observation "+o.ID, now); err != nil {
				return nil, "", err
			}
			return o, OutcomeInserted, nil
		}

		return s.applyTo(ctx, tx, session, existing, byKey, req, actor, device, now)
	}
	return nil, "", fmt.Errorf("%w: concurrent write to the same cell, retry", common.ErrConflict)
}

// resolve finds the row a request addresses: first by client request id,
// then by live cell. byKey is true when the request id matched.
func (s *ObservationService) resolve(ctx context.Context, repo observations.Repository,
	req *upsertRequest) (*models.Observation, bool, error) {

	if req.crid != nil {
		o, err := repo.GetByClientRequestID(ctx, *req.crid)
		switch {
		case err == nil:
			if o.Cell() != req.cell() {
				return nil, false, fmt.Errorf("%w: client request id %s was used for another cell",
					common.ErrIdempotencyMismatch, *req.crid)
			}
			return o, true, nil
		case !errors.Is(err, common.ErrorNotFound):
			return nil, false, err
		}
	}

	o, err := repo.GetLiveByCell(ctx, req.cell())
	if errors.Is(err, common.ErrorNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return o, false, nil
}

func (s *ObservationService) applyTo(ctx context.Context, tx dbx.DBTX, session *models.Session,
	existing *models.Observation, byKey bool, req *upsertRequest,
	actor models.Actor, device models.Device, now time.Time) (*models.Observation, string, error) {

	if byKey && req.samePayload(existing) {
		return existing, OutcomeReplayed, nil
	}
	if existing.Deleted {
		return nil, "", fmt.Errorf("%w: client request id %s belongs to a deleted observation",
			common.ErrIdempotencyMismatch, *req.crid)
	}

	syncStatus := models.SyncSynced
	if req.Version != nil {
		if *req.Version != existing.Version {
			return nil, "", fmt.Errorf("%w: observation %s is at version %d", common.ErrVersionConflict,
				existing.ID, existing.Version)
		}
	} else if req.LastSyncedAt == nil || existing.UpdatedAt.After(*req.LastSyncedAt) {
		// Last writer wins, but the overwritten edit is surfaced.
		syncStatus = models.SyncConflict
	}

	expected := existing.Version
	o := *existing
	o.Category = req.category
	o.BayLabel = req.BayLabel
	o.BenchLabel = req.BenchLabel
	o.Count = req.Count
	o.Notes = req.Notes
	o.SyncStatus = syncStatus
	o.UpdatedAt = bumpTime(existing.UpdatedAt, now)
	if req.crid != nil {
		o.ClientRequestID = req.crid
	}

	if err := s.repomanager.Observations(tx).Update(ctx, &o, expected); err != nil {
		if dbx.IsUniqueViolation(err, clientRequestIDConstraint) {
			return nil, "", fmt.Errorf("%w: client request id is being used concurrently", common.ErrConflict)
		}
		return nil, "", err
	}
	if err := appendAudit(ctx, s.repomanager.Audit(tx), session, models.AuditObservationUpdated,
		actor, device, "observation "+o.ID, o.UpdatedAt); err != nil {
		return nil, "", err
	}
	return &o, OutcomeUpdated, nil
}

// editableSession reads the session under a shared lock and checks that
// observations may change.
func (s *ObservationService) editableSession(ctx context.Context, tx dbx.DBTX, id string) (*models.Session, error) {
	session, err := s.repomanager.Sessions(tx).GetForShare(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Deleted {
		return nil, fmt.Errorf("%w: session %s", common.ErrorNotFound, id)
	}
	if !session.Status.ObservationsEditable() {
		return nil, fmt.Errorf("%w: observations of a %s session cannot change", common.ErrInvalidTransition, session.Status)
	}
	if session.Targets, err = s.repomanager.Targets(tx).ListBySession(ctx, id); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete tombstones an observation of the session. Deleting a tombstone
// again returns it unchanged.
func (s *ObservationService) Delete(ctx context.Context, actor models.Actor, device models.Device,
	sessionID, observationID string, version *int64) (*models.Observation, error) {

	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := parseID(sessionID, "session"); err != nil {
		return nil, err
	}
	if err := parseID(observationID, "observation"); err != nil {
		return nil, err
	}

	var (
		out     *models.Observation
		changed bool
	)
	err := runInTx(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
		session, err := s.editableSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		repo := s.repomanager.Observations(tx)
		o, err := repo.GetByID(ctx, observationID)
		if err != nil {
			return err
		}
		if o.SessionID != sessionID {
			return fmt.Errorf("%w: observation %s", common.ErrorNotFound, observationID)
		}
		if o.Deleted {
			out = o
			return nil
		}
		if version != nil && *version != o.Version {
			return common.ErrVersionConflict
		}

		expected := o.Version
		now := bumpTime(o.UpdatedAt, s.opts.now())
		o.Deleted = true
		o.DeletedAt = &now
		o.UpdatedAt = now
		if err := repo.Update(ctx, o, expected); err != nil {
			return err
		}
		out, changed = o, true
		return appendAudit(ctx, s.repomanager.Audit(tx), session, models.AuditObservationDeleted,
			actor, device, "observation "+o.ID, now)
	})
	if err != nil {
		if ErrorCode(err) == CodeInternal {
			s.opts.Logger.Error(ctx, "observation delete failed", "observation_id", observationID, "error", err)
		}
		return nil, err
	}
	if changed {
		s.opts.Metrics.AuditEvent(string(models.AuditObservationDeleted))
		s.opts.Logger.Info(ctx, "observation deleted", "observation_id", observationID, "actor", actor.ID)
	}
	return out, nil
}

// List returns the live observations of a live session.
func (s *ObservationService) List(ctx context.Context, sessionID string) ([]*models.Observation, error) {
	if err := parseID(sessionID, "session"); err != nil {
		return nil, err
	}
	session, err := s.repomanager.Sessions(s.db).GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Deleted {
		return nil, fmt.Errorf("%w: session %s", common.ErrorNotFound, sessionID)
	}
	list, err := s.repomanager.Observations(s.db).ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Observation{}
	}
	return list, nil
}
