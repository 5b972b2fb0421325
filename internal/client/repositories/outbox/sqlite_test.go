package outbox

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/client/migrations"
	"github.com/katlaang/pestscan-sub001/internal/client/models"
	"github.com/katlaang/pestscan-sub001/internal/common"
	sm "github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/timex"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return db
}

func item(crid string, count int) *models.OutboxItem {
	return &models.OutboxItem{
		ClientRequestID: crid,
		SessionID:       "s-1",
		Input: sm.UpsertObservationInput{
			SessionID: "s-1", SessionTargetID: "t-1", SpeciesCode: "APHID",
			BayIndex: 1, BenchIndex: 1, SpotIndex: 1, Count: count, ClientRequestID: &crid,
		},
	}
}

func TestAddAndPending_OldestFirst(t *testing.T) {
	clock := &timex.FixedClock{T: time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)}
	r := NewSQLiteRepository(setupDB(t), clock)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, item("c-2", 1)))
	clock.Advance(time.Second)
	require.NoError(t, r.Add(ctx, item("c-1", 2)))
	clock.Advance(time.Second)
	require.NoError(t, r.Add(ctx, item("c-3", 3)))

	got, err := r.Pending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c-2", got[0].ClientRequestID)
	assert.Equal(t, "c-1", got[1].ClientRequestID)
	assert.Equal(t, 2, got[1].Input.Count)
	assert.Equal(t, models.OutboxPending, got[1].Status)
	require.NotNil(t, got[1].Input.ClientRequestID)
	assert.Equal(t, "c-1", *got[1].Input.ClientRequestID)
	assert.True(t, got[0].CreatedAt.Equal(clock.T.Add(-2*time.Second)))
}

func TestMarkAndRemove(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t), nil)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, item("c-1", 1)))
	require.NoError(t, r.Add(ctx, item("c-2", 1)))

	require.NoError(t, r.Mark(ctx, "c-1", models.OutboxConflict, "VERSION_CONFLICT: version conflict"))
	pending, err := r.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c-2", pending[0].ClientRequestID)

	conflicts, err := r.List(ctx, models.OutboxConflict)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, 1, conflicts[0].Attempts)
	assert.Contains(t, conflicts[0].LastError, "VERSION_CONFLICT")

	// re-recording the cell makes it pending again
	require.NoError(t, r.Add(ctx, item("c-1", 5)))
	pending, err = r.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, r.Remove(ctx, "c-1"))
	pending, err = r.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.ErrorIs(t, r.Mark(ctx, "c-1", models.OutboxRejected, "x"), common.ErrorNotFound)
}
