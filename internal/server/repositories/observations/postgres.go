// Package observations provides the PostgreSQL-backed observation store.
//
// Uniqueness of client request ids and of live cells is enforced by the
// schema; Insert reports either violation as common.ErrorAlreadyExists so
// the caller can re-resolve the row that won.
package observations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

const columns = `id, session_id, session_target_id, species_code, category,
	bay_index, bench_index, spot_index, bay_label, bench_label, count, notes,
	version, sync_status, client_request_id, deleted, deleted_at, created_at, updated_at`

// prefixed returns columns qualified with the table alias.
func prefixed(alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObservation(row scanner) (*models.Observation, error) {
	o := &models.Observation{}
	err := row.Scan(
		&o.ID, &o.SessionID, &o.SessionTargetID, &o.SpeciesCode, &o.Category,
		&o.BayIndex, &o.BenchIndex, &o.SpotIndex, &o.BayLabel, &o.BenchLabel, &o.Count, &o.Notes,
		&o.Version, &o.SyncStatus, &o.ClientRequestID, &o.Deleted, &o.DeletedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Insert adds a new observation. If the client request id or the live cell
// is already taken nothing is written and common.ErrorAlreadyExists is
// returned.
func (r *PostgresRepository) Insert(ctx context.Context, o *models.Observation) error {
	query := `
		INSERT INTO observations (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		o.ID, o.SessionID, o.SessionTargetID, o.SpeciesCode, o.Category,
		o.BayIndex, o.BenchIndex, o.SpotIndex, o.BayLabel, o.BenchLabel, o.Count, o.Notes,
		o.Version, o.SyncStatus, o.ClientRequestID, o.Deleted, o.DeletedAt, o.CreatedAt, o.UpdatedAt)
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

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Observation, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM observations WHERE id = $1`, id)
}

// GetByClientRequestID looks the key up across live rows and tombstones.
func (r *PostgresRepository) GetByClientRequestID(ctx context.Context, clientRequestID string) (*models.Observation, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM observations WHERE client_request_id = $1`, clientRequestID)
}

// GetLiveByCell returns the non-deleted observation occupying cell.
func (r *PostgresRepository) GetLiveByCell(ctx context.Context, cell models.CellKey) (*models.Observation, error) {
	query := `SELECT ` + columns + ` FROM observations
		WHERE session_id = $1 AND session_target_id = $2
			AND bay_index = $3 AND bench_index = $4 AND spot_index = $5
			AND species_code = $6 AND NOT deleted`
	return r.getOne(ctx, query, cell.SessionID, cell.SessionTargetID,
		cell.BayIndex, cell.BenchIndex, cell.SpotIndex, cell.SpeciesCode)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Observation, error) {
	o, err := scanObservation(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select observation: %w", err)
	}
	return o, nil
}

// Update rewrites the mutable fields of a live observation if its version
// still equals expectedVersion. The cell itself never changes. A nil
// ClientRequestID keeps the stored key.
func (r *PostgresRepository) Update(ctx context.Context, o *models.Observation, expectedVersion int64) error {
	query := `
		UPDATE observations SET
			category = $2, bay_label = $3, bench_label = $4, count = $5, notes = $6,
			sync_status = $7, client_request_id = COALESCE($8, client_request_id),
			deleted = $9, deleted_at = $10, updated_at = $11,
			version = version + 1
		WHERE id = $1 AND version = $12 AND NOT deleted
	`
	res, err := r.db.ExecContext(ctx, query,
		o.ID, o.Category, o.BayLabel, o.BenchLabel, o.Count, o.Notes,
		o.SyncStatus, o.ClientRequestID, o.Deleted, o.DeletedAt, o.UpdatedAt,
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
		o.Version = expectedVersion + 1
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// ListBySession returns the live observations of a session in cell order.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.Observation, error) {
	query := `SELECT ` + columns + ` FROM observations
		WHERE session_id = $1 AND NOT deleted
		ORDER BY session_target_id, bay_index, bench_index, spot_index, species_code`
	return r.list(ctx, query, sessionID)
}

// SelectChanged pages through observations of a farm's sessions ordered by
// (updated_at, id). The first page is strictly after since; later pages
// resume after the given cursor. Without includeDeleted, observations that
// are deleted or belong to a deleted session are left out.
func (r *PostgresRepository) SelectChanged(ctx context.Context, farmID string, since time.Time, after *models.Cursor,
	includeDeleted bool, limit int) ([]*models.Observation, error) {

	query := `SELECT ` + prefixed("o") + ` FROM observations o
		JOIN sessions s ON s.id = o.session_id
		WHERE s.farm_id = $1`
	args := []any{farmID}
	if after == nil {
		query += ` AND o.updated_at > $2`
		args = append(args, since)
	} else {
		query += ` AND (o.updated_at, o.id) > ($2, $3)`
		args = append(args, after.UpdatedAt, after.ID)
	}
	if !includeDeleted {
		query += ` AND NOT o.deleted AND NOT s.deleted`
	}
	query += fmt.Sprintf(` ORDER BY o.updated_at, o.id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return r.list(ctx, query, args...)
}

// CountBySyncStatus counts live observations in the given sync state.
func (r *PostgresRepository) CountBySyncStatus(ctx context.Context, status models.SyncStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM observations WHERE sync_status = $1 AND NOT deleted`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Observation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select observations: %w", err)
	}
	defer rows.Close()

	var result []*models.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
