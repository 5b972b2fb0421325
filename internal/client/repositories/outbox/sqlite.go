package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/client/models"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/timex"
)

type SQLiteRepository struct {
	db    dbx.DBTX
	clock timex.Clock
}

func NewSQLiteRepository(db dbx.DBTX, clock timex.Clock) *SQLiteRepository {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &SQLiteRepository{db: db, clock: clock}
}

func (r *SQLiteRepository) now() string {
	return r.clock.Now().UTC().Format(timex.SortableLayout)
}

func (r *SQLiteRepository) Add(ctx context.Context, item *models.OutboxItem) error {
	payload, err := json.Marshal(item.Input)
	if err != nil {
		return fmt.Errorf("encode outbox item %s: %w", item.ClientRequestID, err)
	}
	now := r.now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO outbox (client_request_id, session_id, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_request_id) DO UPDATE SET
			session_id = excluded.session_id,
			payload = excluded.payload,
			status = excluded.status,
			last_error = '',
			updated_at = excluded.updated_at
	`, item.ClientRequestID, item.SessionID, payload, string(models.OutboxPending), now, now)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", item.ClientRequestID, err)
	}
	return nil
}

const selectItems = `SELECT client_request_id, session_id, payload, status, last_error, attempts, created_at, updated_at FROM outbox`

func (r *SQLiteRepository) Pending(ctx context.Context, limit int) ([]*models.OutboxItem, error) {
	rows, err := r.db.QueryContext(ctx, selectItems+` WHERE status = ? ORDER BY created_at, client_request_id LIMIT ?`,
		string(models.OutboxPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending items: %w", err)
	}
	return scanItems(rows)
}

func (r *SQLiteRepository) List(ctx context.Context, status models.OutboxStatus) ([]*models.OutboxItem, error) {
	rows, err := r.db.QueryContext(ctx, selectItems+` WHERE status = ? ORDER BY created_at, client_request_id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to select %s items: %w", status, err)
	}
	return scanItems(rows)
}

func (r *SQLiteRepository) Remove(ctx context.Context, clientRequestID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE client_request_id = ?`, clientRequestID); err != nil {
		return fmt.Errorf("failed to remove %s: %w", clientRequestID, err)
	}
	return nil
}

func (r *SQLiteRepository) Mark(ctx context.Context, clientRequestID string, status models.OutboxStatus, lastError string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outbox SET status = ?, last_error = ?, attempts = attempts + 1, updated_at = ?
		WHERE client_request_id = ?
	`, string(status), lastError, r.now(), clientRequestID)
	if err != nil {
		return fmt.Errorf("failed to mark %s: %w", clientRequestID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("outbox item %s: %w", clientRequestID, common.ErrorNotFound)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]*models.OutboxItem, error) {
	defer rows.Close()

	var result []*models.OutboxItem
	for rows.Next() {
		var (
			item                 models.OutboxItem
			payload              []byte
			status               string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&item.ClientRequestID, &item.SessionID, &payload, &status, &item.LastError,
			&item.Attempts, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &item.Input); err != nil {
			return nil, fmt.Errorf("decode outbox item %s: %w", item.ClientRequestID, err)
		}
		item.Status = models.OutboxStatus(status)
		item.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		item.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
