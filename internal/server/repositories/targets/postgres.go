// Package targets stores the greenhouse / field block targets of sessions.
package targets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Upsert inserts the target or rewrites it in place. A target id that is
// already owned by another session is not touched and ErrConflict is returned.
func (r *PostgresRepository) Upsert(ctx context.Context, t *models.SessionTarget, position int) error {
	bays, err := encodeTags(t.BayTags)
	if err != nil {
		return fmt.Errorf("encode bay tags: %w", err)
	}
	benches, err := encodeTags(t.BenchTags)
	if err != nil {
		return fmt.Errorf("encode bench tags: %w", err)
	}

	query := `
		INSERT INTO session_targets (id, session_id, greenhouse_id, field_block_id,
			include_all_bays, include_all_benches, bay_tags, bench_tags, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			greenhouse_id = EXCLUDED.greenhouse_id,
			field_block_id = EXCLUDED.field_block_id,
			include_all_bays = EXCLUDED.include_all_bays,
			include_all_benches = EXCLUDED.include_all_benches,
			bay_tags = EXCLUDED.bay_tags,
			bench_tags = EXCLUDED.bench_tags,
			position = EXCLUDED.position
			WHERE session_targets.session_id = EXCLUDED.session_id
	`
	res, err := r.db.ExecContext(ctx, query,
		t.ID, t.SessionID, t.GreenhouseID, t.FieldBlockID,
		t.IncludeAllBays, t.IncludeAllBenches, bays, benches, position)
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
		return fmt.Errorf("%w: target %s belongs to another session", common.ErrConflict, t.ID)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Delete removes a target from its session.
func (r *PostgresRepository) Delete(ctx context.Context, sessionID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_targets WHERE id = $1 AND session_id = $2`, id, sessionID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return common.ErrorNotFound
	}
	return nil
}

// ListBySession returns the targets of a session in the order they were given.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]models.SessionTarget, error) {
	query := `SELECT id, session_id, greenhouse_id, field_block_id, include_all_bays, include_all_benches, bay_tags, bench_tags
		FROM session_targets WHERE session_id = $1 ORDER BY position, id`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select targets: %w", err)
	}
	defer rows.Close()

	result := []models.SessionTarget{}
	for rows.Next() {
		var t models.SessionTarget
		var bays, benches []byte
		if err := rows.Scan(&t.ID, &t.SessionID, &t.GreenhouseID, &t.FieldBlockID,
			&t.IncludeAllBays, &t.IncludeAllBenches, &bays, &benches); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(bays, &t.BayTags); err != nil {
			return nil, fmt.Errorf("decode bay tags: %w", err)
		}
		if err := json.Unmarshal(benches, &t.BenchTags); err != nil {
			return nil, fmt.Errorf("decode bench tags: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
