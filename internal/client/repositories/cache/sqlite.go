package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	sm "github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/timex"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func stamp(t time.Time) string {
	return t.UTC().Format(timex.SortableLayout)
}

// PutSession stores s unless the cached copy is newer.
func (r *SQLiteRepository) PutSession(ctx context.Context, s *sm.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, farm_id, status, version, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			farm_id = excluded.farm_id,
			status = excluded.status,
			version = excluded.version,
			updated_at = excluded.updated_at,
			payload = excluded.payload
		WHERE excluded.version >= sessions.version
	`, s.ID, s.FarmID, string(s.Status), s.Version, stamp(s.UpdatedAt), payload)
	if err != nil {
		return fmt.Errorf("failed to cache session %s: %w", s.ID, err)
	}
	return nil
}

// DeleteSession drops the session and its cached observations.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM observations WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to drop observations of session %s: %w", id, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to drop session %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*sm.Session, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	var s sm.Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *SQLiteRepository) ListSessions(ctx context.Context) ([]*sm.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM sessions ORDER BY updated_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return scanAll[sm.Session](rows)
}

// PutObservation stores o unless the cached copy has a higher version.
func (r *SQLiteRepository) PutObservation(ctx context.Context, o *sm.Observation) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode observation %s: %w", o.ID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO observations (id, session_id, version, sync_status, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			sync_status = excluded.sync_status,
			updated_at = excluded.updated_at,
			payload = excluded.payload
		WHERE excluded.version >= observations.version
	`, o.ID, o.SessionID, o.Version, string(o.SyncStatus), stamp(o.UpdatedAt), payload)
	if err != nil {
		return fmt.Errorf("failed to cache observation %s: %w", o.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteObservation(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM observations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to drop observation %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListObservations(ctx context.Context, sessionID string) ([]*sm.Observation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM observations WHERE session_id = ? ORDER BY updated_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	return scanAll[sm.Observation](rows)
}

func (r *SQLiteRepository) PutPhoto(ctx context.Context, p *sm.Photo) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode photo %s: %w", p.LocalPhotoID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO photos (local_photo_id, session_id, sync_status, updated_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(local_photo_id) DO UPDATE SET
			session_id = excluded.session_id,
			sync_status = excluded.sync_status,
			updated_at = excluded.updated_at,
			payload = excluded.payload
	`, p.LocalPhotoID, p.SessionID, string(p.SyncStatus), stamp(p.UpdatedAt), payload)
	if err != nil {
		return fmt.Errorf("failed to cache photo %s: %w", p.LocalPhotoID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetPhoto(ctx context.Context, localPhotoID string) (*sm.Photo, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM photos WHERE local_photo_id = ?`, localPhotoID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", localPhotoID, err)
	}
	var p sm.Photo
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode photo %s: %w", localPhotoID, err)
	}
	return &p, nil
}

func scanAll[T any](rows *sql.Rows) ([]*T, error) {
	defer rows.Close()

	var result []*T
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		item := new(T)
		if err := json.Unmarshal(payload, item); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
