// Package sessions provides the PostgreSQL-backed store of scouting sessions.
// Targets live in their own repository; rows returned here carry no targets.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

const columns = `id, farm_id, scout_id, manager_id, session_date, week_number, crop_type, crop_variety,
	temperature_celsius, relative_humidity_percent, weather_notes, notes, recommendations,
	status, version, sync_status, confirmation_acknowledged, reopen_comment,
	started_at, submitted_at, completed_at, deleted, deleted_at, created_at, updated_at`

// PostgresRepository implements session storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	s := &models.Session{}
	var recommendations []byte
	if err := row.Scan(
		&s.ID, &s.FarmID, &s.ScoutID, &s.ManagerID, &s.SessionDate, &s.WeekNumber, &s.CropType, &s.CropVariety,
		&s.TemperatureCelsius, &s.RelativeHumidityPercent, &s.WeatherNotes, &s.Notes, &recommendations,
		&s.Status, &s.Version, &s.SyncStatus, &s.ConfirmationAcknowledged, &s.ReopenComment,
		&s.StartedAt, &s.SubmittedAt, &s.CompletedAt, &s.Deleted, &s.DeletedAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(recommendations) > 0 {
		if err := json.Unmarshal(recommendations, &s.Recommendations); err != nil {
			return nil, fmt.Errorf("decode recommendations: %w", err)
		}
	}
	return s, nil
}

func encodeRecommendations(r map[models.RecommendationType]string) (string, error) {
	if len(r) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Create inserts a new session. An existing row with the same id is left
// untouched and common.ErrorAlreadyExists is returned.
func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) error {
	recommendations, err := encodeRecommendations(s.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}

	query := `
		INSERT INTO sessions (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.FarmID, s.ScoutID, s.ManagerID, s.SessionDate, s.WeekNumber, s.CropType, s.CropVariety,
		s.TemperatureCelsius, s.RelativeHumidityPercent, s.WeatherNotes, s.Notes, recommendations,
		s.Status, s.Version, s.SyncStatus, s.ConfirmationAcknowledged, s.ReopenComment,
		s.StartedAt, s.SubmittedAt, s.CompletedAt, s.Deleted, s.DeletedAt, s.CreatedAt, s.UpdatedAt)
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

// GetByID returns the session with the given id, tombstones included.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + columns + ` FROM sessions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetForShare reads the session and holds a shared row lock until the
// transaction ends. Observation writes use it so they cannot interleave with
// a concurrent status change, while writes to different cells do not block
// each other.
func (r *PostgresRepository) GetForShare(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + columns + ` FROM sessions WHERE id = $1 FOR SHARE`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id string) (*models.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select session: %w", err)
	}
	return s, nil
}

// Update writes every mutable column of s if the stored version equals
// expectedVersion, bumping the version by one. A stale version or a deleted
// row yields common.ErrVersionConflict and changes nothing.
func (r *PostgresRepository) Update(ctx context.Context, s *models.Session, expectedVersion int64) error {
	recommendations, err := encodeRecommendations(s.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}

	query := `
		UPDATE sessions SET
			scout_id = $2, manager_id = $3, session_date = $4, week_number = $5,
			crop_type = $6, crop_variety = $7, temperature_celsius = $8, relative_humidity_percent = $9,
			weather_notes = $10, notes = $11, recommendations = $12,
			status = $13, sync_status = $14, confirmation_acknowledged = $15, reopen_comment = $16,
			started_at = $17, submitted_at = $18, completed_at = $19,
			deleted = $20, deleted_at = $21, updated_at = $22,
			version = version + 1
		WHERE id = $1 AND version = $23 AND NOT deleted
	`
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.ScoutID, s.ManagerID, s.SessionDate, s.WeekNumber,
		s.CropType, s.CropVariety, s.TemperatureCelsius, s.RelativeHumidityPercent,
		s.WeatherNotes, s.Notes, recommendations,
		s.Status, s.SyncStatus, s.ConfirmationAcknowledged, s.ReopenComment,
		s.StartedAt, s.SubmittedAt, s.CompletedAt,
		s.Deleted, s.DeletedAt, s.UpdatedAt,
		expectedVersion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		s.Version = expectedVersion + 1
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// ListByFarm returns the live sessions of a farm, newest session date first.
func (r *PostgresRepository) ListByFarm(ctx context.Context, farmID string) ([]*models.Session, error) {
	query := `SELECT ` + columns + ` FROM sessions
		WHERE farm_id = $1 AND NOT deleted
		ORDER BY session_date DESC, created_at DESC`
	return r.list(ctx, query, farmID)
}

// SelectChanged returns sessions of a farm changed after since, ordered by
// (updated_at, id). With after set the page resumes strictly after that
// position instead.
func (r *PostgresRepository) SelectChanged(ctx context.Context, farmID string, since time.Time, after *models.Cursor,
	includeDeleted bool, limit int) ([]*models.Session, error) {

	query := `SELECT ` + columns + ` FROM sessions WHERE farm_id = $1`
	args := []any{farmID}
	if after == nil {
		query += ` AND updated_at > $2`
		args = append(args, since)
	} else {
		query += ` AND (updated_at, id) > ($2, $3)`
		args = append(args, after.UpdatedAt, after.ID)
	}
	if !includeDeleted {
		query += ` AND NOT deleted`
	}
	query += fmt.Sprintf(` ORDER BY updated_at, id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return r.list(ctx, query, args...)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	var result []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
