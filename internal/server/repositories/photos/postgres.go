// Package photos stores photo metadata. Binaries live in object storage.
package photos

import (
	"context"
	"fmt"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

const columns = `id, farm_id, session_id, observation_id, local_photo_id, purpose,
	object_key, captured_at, sync_status, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row scanner) (*models.Photo, error) {
	p := &models.Photo{}
	if err := row.Scan(&p.ID, &p.FarmID, &p.SessionID, &p.ObservationID, &p.LocalPhotoID, &p.Purpose,
		&p.ObjectKey, &p.CapturedAt, &p.SyncStatus, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// Insert registers a photo. A (farm, local photo id) pair that is already
// registered yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Insert(ctx context.Context, p *models.Photo) error {
	query := `
		INSERT INTO photos (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (farm_id, local_photo_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.FarmID, p.SessionID, p.ObservationID, p.LocalPhotoID, p.Purpose,
		p.ObjectKey, p.CapturedAt, p.SyncStatus, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorAlreadyExists
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) GetByLocalID(ctx context.Context, farmID, localPhotoID string) (*models.Photo, error) {
	query := `SELECT ` + columns + ` FROM photos WHERE farm_id = $1 AND local_photo_id = $2`
	p, err := scanPhoto(r.db.QueryRowContext(ctx, query, farmID, localPhotoID))
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select photo: %w", err)
	}
	return p, nil
}

// Confirm marks a registered, not yet confirmed photo as uploaded under
// objectKey. common.ErrorNotFound means there was no such pending photo.
func (r *PostgresRepository) Confirm(ctx context.Context, sessionID, localPhotoID, objectKey string, at time.Time) (*models.Photo, error) {
	query := `
		UPDATE photos SET sync_status = $3, object_key = $4, updated_at = $5
		WHERE session_id = $1 AND local_photo_id = $2 AND sync_status <> $3
		RETURNING ` + columns
	p, err := scanPhoto(r.db.QueryRowContext(ctx, query, sessionID, localPhotoID, models.SyncSynced, objectKey, at))
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// SelectChanged pages through the photos of a farm ordered by (updated_at, id).
// Without includeDeleted, photos of deleted sessions are left out.
func (r *PostgresRepository) SelectChanged(ctx context.Context, farmID string, since time.Time, after *models.Cursor,
	includeDeleted bool, limit int) ([]*models.Photo, error) {

	query := `SELECT ` + columns + ` FROM photos WHERE farm_id = $1`
	args := []any{farmID}
	if after == nil {
		query += ` AND updated_at > $2`
		args = append(args, since)
	} else {
		query += ` AND (updated_at, id) > ($2, $3)`
		args = append(args, after.UpdatedAt, after.ID)
	}
	if !includeDeleted {
		query += ` AND NOT EXISTS (SELECT 1 FROM sessions s WHERE s.id = photos.session_id AND s.deleted)`
	}
	query += fmt.Sprintf(` ORDER BY updated_at, id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	var result []*models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) CountBySyncStatus(ctx context.Context, status models.SyncStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos WHERE sync_status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return n, nil
}
