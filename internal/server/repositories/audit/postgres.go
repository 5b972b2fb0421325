// Package audit stores the append-only session audit stream.
package audit

import (
	"context"
	"fmt"

	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append stores e and fills in Seq and the effective OccurredAt. The stored
// time never goes below the latest event of the same session, so a clock
// stepping backwards cannot reorder the stream.
func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditEvent) error {
	query := `
		INSERT INTO session_audit_events (id, session_id, farm_id, action, actor_id, actor_name, actor_role,
			device_id, device_type, location, comment, occurred_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			GREATEST($12::timestamptz, COALESCE(
				(SELECT MAX(occurred_at) FROM session_audit_events WHERE session_id = $2), $12::timestamptz))
		RETURNING seq, occurred_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.ID, e.SessionID, e.FarmID, e.Action, e.ActorID, e.ActorName, e.ActorRole,
		e.DeviceID, e.DeviceType, e.Location, e.Comment, e.OccurredAt,
	).Scan(&e.Seq, &e.OccurredAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListBySession returns the events of a session in stream order.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.AuditEvent, error) {
	query := `SELECT seq, id, session_id, farm_id, action, actor_id, actor_name, actor_role,
			device_id, device_type, location, comment, occurred_at
		FROM session_audit_events
		WHERE session_id = $1
		ORDER BY occurred_at, seq`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit events: %w", err)
	}
	defer rows.Close()

	result := []*models.AuditEvent{}
	for rows.Next() {
		e := &models.AuditEvent{}
		if err := rows.Scan(&e.Seq, &e.ID, &e.SessionID, &e.FarmID, &e.Action, &e.ActorID, &e.ActorName, &e.ActorRole,
			&e.DeviceID, &e.DeviceType, &e.Location, &e.Comment, &e.OccurredAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
