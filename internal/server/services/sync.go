package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/repomanager"
	"github.com/katlaang/pestscan-sub001/internal/timex"
)

// DefaultPageSize applies when neither the caller nor the config sets one.
const DefaultPageSize = 500

// ChangesRequest asks for one page of a farm's change feed. Cursor, when
// set, continues a previous page and takes precedence over Since.
type ChangesRequest struct {
	FarmID         string
	Since          time.Time
	IncludeDeleted bool
	Cursor         string
	Limit          int
}

// SyncService serves the change feed. It only reads and never advances
// server-side state; the watermark belongs to the caller.
type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	pageSize    int
	opts        Options
}

func NewSyncService(db *sql.DB, m repomanager.RepositoryManager, pageSize int, opts Options) *SyncService {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With("module", "sync")
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SyncService{db: db, repomanager: m, pageSize: pageSize, opts: opts}
}

// Changes returns sessions (with targets), observations and photos of the
// farm changed after the request position, each ordered by (updatedAt, id)
// and capped at the page limit per kind.
func (s *SyncService) Changes(ctx context.Context, req ChangesRequest) (*models.ChangeSet, error) {
	farmID := strings.TrimSpace(req.FarmID)
	if farmID == "" {
		return nil, invalid("farmId is required")
	}

	limit := req.Limit
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}

	cursor := models.FeedCursor{Since: req.Since}
	if req.Cursor != "" {
		var err error
		if cursor, err = models.DecodeFeedCursor(req.Cursor); err != nil {
			return nil, invalid("%v", err)
		}
	}
	cursor.Since = timex.StoreTime(cursor.Since)

	sessionRepo := s.repomanager.Sessions(s.db)
	sessions, moreSessions, err := page(limit, func(n int) ([]*models.Session, error) {
		return sessionRepo.SelectChanged(ctx, farmID, cursor.Since, cursor.Sessions, req.IncludeDeleted, n)
	})
	if err != nil {
		return nil, err
	}
	targetRepo := s.repomanager.Targets(s.db)
	for _, session := range sessions {
		if session.Targets, err = targetRepo.ListBySession(ctx, session.ID); err != nil {
			return nil, err
		}
	}

	observationRepo := s.repomanager.Observations(s.db)
	observations, moreObservations, err := page(limit, func(n int) ([]*models.Observation, error) {
		return observationRepo.SelectChanged(ctx, farmID, cursor.Since, cursor.Observations, req.IncludeDeleted, n)
	})
	if err != nil {
		return nil, err
	}

	photoRepo := s.repomanager.Photos(s.db)
	photos, morePhotos, err := page(limit, func(n int) ([]*models.Photo, error) {
		return photoRepo.SelectChanged(ctx, farmID, cursor.Since, cursor.Photos, req.IncludeDeleted, n)
	})
	if err != nil {
		return nil, err
	}

	next := cursor
	for _, x := range sessions {
		next.Sessions = &models.Cursor{UpdatedAt: x.UpdatedAt, ID: x.ID}
	}
	for _, x := range observations {
		next.Observations = &models.Cursor{UpdatedAt: x.UpdatedAt, ID: x.ID}
	}
	for _, x := range photos {
		next.Photos = &models.Cursor{UpdatedAt: x.UpdatedAt, ID: x.ID}
	}

	cs := &models.ChangeSet{
		Sessions:     sessions,
		Observations: observations,
		Photos:       photos,
		Watermark:    watermark(next),
		HasMore:      moreSessions || moreObservations || morePhotos,
	}
	if cs.HasMore {
		cs.NextCursor = next.Encode()
	}

	n := len(sessions) + len(observations) + len(photos)
	s.opts.Metrics.ChangeFeedPage(n)
	s.opts.Logger.Debug(ctx, "change feed page", "farm_id", farmID, "since", cursor.Since,
		"rows", n, "has_more", cs.HasMore)
	return cs, nil
}

// page fetches one row more than limit to learn whether another page exists.
func page[T any](limit int, fetch func(n int) ([]T, error)) ([]T, bool, error) {
	rows, err := fetch(limit + 1)
	if err != nil {
		return nil, false, err
	}
	if len(rows) > limit {
		return rows[:limit], true, nil
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, false, nil
}

// watermark is the greatest updatedAt reached by any stream, or since when
// nothing was returned yet.
func watermark(c models.FeedCursor) time.Time {
	w := c.Since
	for _, p := range []*models.Cursor{c.Sessions, c.Observations, c.Photos} {
		if p != nil && p.UpdatedAt.After(w) {
			w = p.UpdatedAt
		}
	}
	return w
}
