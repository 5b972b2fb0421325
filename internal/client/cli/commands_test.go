package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/client/client"
	"github.com/katlaang/pestscan-sub001/internal/client/config"
	"github.com/katlaang/pestscan-sub001/internal/client/models"
	"github.com/katlaang/pestscan-sub001/internal/client/services"
	sm "github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	recorded []sm.UpsertObservationInput
	photos   []sm.RegisterPhotoInput
	synced   int
	push     services.PushReport
}

func (f *fakeSyncer) Record(_ context.Context, in sm.UpsertObservationInput) (string, error) {
	f.recorded = append(f.recorded, in)
	return "req-1", nil
}
func (f *fakeSyncer) Push(context.Context) (services.PushReport, error) { return f.push, nil }
func (f *fakeSyncer) Pull(context.Context) (services.PullReport, error) {
	return services.PullReport{Sessions: 2, Watermark: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}, nil
}
func (f *fakeSyncer) SyncOnce(context.Context) error { f.synced++; return nil }
func (f *fakeSyncer) Run(context.Context, time.Duration) {}
func (f *fakeSyncer) UploadPhoto(_ context.Context, in sm.RegisterPhotoInput, _ string) (*sm.Photo, error) {
	f.photos = append(f.photos, in)
	return &sm.Photo{LocalPhotoID: in.LocalPhotoID, SyncStatus: sm.SyncSynced}, nil
}

func newTestApp(t *testing.T, input string) (*App, *fakeSyncer, *bytes.Buffer) {
	t.Helper()
	repos, err := client.InitDatabase(context.Background(), ":memory:", &timex.FixedClock{T: time.Now()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.DB.Close() })

	fs := &fakeSyncer{}
	var out bytes.Buffer
	return &App{
		config: &config.Config{FarmID: "farm-1"},
		repos:  repos,
		agent:  fs,
		reader: bufio.NewReader(strings.NewReader(input)),
		out:    &out,
	}, fs, &out
}

func TestRecord_UsesCachedVersion(t *testing.T) {
	ctx := context.Background()
	a, fs, out := newTestApp(t, "t1\nTHRIPS\n2\n\n4\n7\nyellow sticky\n")

	require.NoError(t, a.repos.Cache.PutObservation(ctx, &sm.Observation{
		ID: "o1", SessionID: "s1", SessionTargetID: "t1", SpeciesCode: "THRIPS",
		BayIndex: 2, BenchIndex: 1, SpotIndex: 4, Count: 3, Version: 5,
	}))

	require.NoError(t, a.Record(ctx, "s1"))
	require.Len(t, fs.recorded, 1)

	in := fs.recorded[0]
	assert.Equal(t, "s1", in.SessionID)
	assert.Equal(t, 2, in.BayIndex)
	assert.Equal(t, 1, in.BenchIndex)
	assert.Equal(t, 4, in.SpotIndex)
	assert.Equal(t, 7, in.Count)
	assert.Equal(t, "yellow sticky", in.Notes)
	require.NotNil(t, in.Version)
	assert.Equal(t, int64(5), *in.Version)
	assert.Contains(t, out.String(), "Queued req-1")
}

func TestRecord_NewCell(t *testing.T) {
	a, fs, _ := newTestApp(t, "t1\nAPHIDS\n1\n1\n1\n2\n\n")

	require.NoError(t, a.Record(context.Background(), "s1"))
	require.Len(t, fs.recorded, 1)
	assert.Nil(t, fs.recorded[0].Version)
}

func TestRecord_BadNumber(t *testing.T) {
	a, fs, _ := newTestApp(t, "t1\nAPHIDS\nlots\n")

	require.Error(t, a.Record(context.Background(), "s1"))
	assert.Empty(t, fs.recorded)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	a, _, out := newTestApp(t, "")

	require.NoError(t, a.Sessions(ctx))
	assert.Contains(t, out.String(), "No sessions cached")

	out.Reset()
	require.NoError(t, a.repos.Cache.PutSession(ctx, &sm.Session{
		ID: "s1", FarmID: "farm-1", Status: sm.StatusInProgress, Version: 3,
		SessionDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, a.Sessions(ctx))
	assert.Contains(t, out.String(), "s1")
	assert.Contains(t, out.String(), "2026-03-02")
	assert.Contains(t, out.String(), "IN_PROGRESS")
}

func TestConflicts(t *testing.T) {
	ctx := context.Background()
	a, _, out := newTestApp(t, "")

	item := &models.OutboxItem{
		ClientRequestID: "req-9",
		SessionID:       "s1",
		Input:           sm.UpsertObservationInput{SessionID: "s1", SpeciesCode: "THRIPS", BayIndex: 1, BenchIndex: 2, SpotIndex: 3},
	}
	require.NoError(t, a.repos.Outbox.Add(ctx, item))
	require.NoError(t, a.repos.Outbox.Mark(ctx, "req-9", models.OutboxConflict, "VERSION_CONFLICT: stale"))

	require.NoError(t, a.Conflicts(ctx))
	assert.Contains(t, out.String(), "req-9")
	assert.Contains(t, out.String(), "THRIPS 1/2/3")
	assert.Contains(t, out.String(), "VERSION_CONFLICT: stale")
}

func TestSyncPushPull(t *testing.T) {
	ctx := context.Background()
	a, fs, out := newTestApp(t, "")
	fs.push = services.PushReport{Applied: 3, Conflicts: 1}

	require.NoError(t, a.Sync(ctx))
	assert.Equal(t, 1, fs.synced)

	require.NoError(t, a.Push(ctx))
	assert.Contains(t, out.String(), "Applied 3, conflicts 1, rejected 0, retry 0")

	require.NoError(t, a.Pull(ctx))
	assert.Contains(t, out.String(), "Pulled 2 sessions")
	assert.Contains(t, out.String(), "2026-03-02T08:00:00Z")
}

func TestPhoto(t *testing.T) {
	a, fs, out := newTestApp(t, "evidence\n")

	require.NoError(t, a.Photo(context.Background(), "s1", "/tmp/p.jpg"))
	require.Len(t, fs.photos, 1)
	assert.Equal(t, "s1", fs.photos[0].SessionID)
	assert.Equal(t, "evidence", fs.photos[0].Purpose)
	assert.NotEmpty(t, fs.photos[0].LocalPhotoID)
	assert.Contains(t, out.String(), "SYNCED")
}

func TestGetStatus(t *testing.T) {
	a := &App{config: &config.Config{FarmID: "farm-1"}}
	assert.Equal(t, "farm-1", a.getStatus())

	a.Mode = ModeOffline
	assert.Equal(t, "farm-1 offline", a.getStatus())
}
