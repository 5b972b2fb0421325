package metadata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSetGetDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	v, err := r.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))
	v, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)

	require.NoError(t, r.Delete(ctx, "k"))
	require.NoError(t, r.Delete(ctx, "k"))
	v, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTime_RoundTripsMicroseconds(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	got, err := r.Time(ctx, KeyWatermark)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	wm := time.Date(2025, 3, 3, 8, 15, 0, 123456000, time.FixedZone("EAT", 3*3600))
	require.NoError(t, r.SetTime(ctx, KeyWatermark, wm))

	got, err = r.Time(ctx, KeyWatermark)
	require.NoError(t, err)
	assert.True(t, wm.Equal(got))
	assert.Equal(t, time.UTC, got.Location())
}

func TestTime_Garbage(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyWatermark, []byte("yesterday")))
	_, err := r.Time(ctx, KeyWatermark)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a timestamp")
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "get metadata k")
	require.ErrorContains(t, r.Set(ctx, "k", []byte("v")), "set metadata k")
	require.ErrorContains(t, r.Delete(ctx, "k"), "delete metadata k")
}
