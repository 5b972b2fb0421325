package sessions

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columnNames = []string{
	"id", "farm_id", "scout_id", "manager_id", "session_date", "week_number", "crop_type", "crop_variety",
	"temperature_celsius", "relative_humidity_percent", "weather_notes", "notes", "recommendations",
	"status", "version", "sync_status", "confirmation_acknowledged", "reopen_comment",
	"started_at", "submitted_at", "completed_at", "deleted", "deleted_at", "created_at", "updated_at",
}

var (
	day = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	ts  = time.Date(2025, 3, 3, 8, 30, 0, 0, time.UTC)
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func sampleSession() *models.Session {
	temp := 24.5
	return &models.Session{
		ID:                 "11111111-1111-1111-1111-111111111111",
		FarmID:             "farm-1",
		ScoutID:            "scout-1",
		SessionDate:        day,
		WeekNumber:         10,
		CropType:           "Roses",
		TemperatureCelsius: &temp,
		Recommendations:    map[models.RecommendationType]string{models.RecommendationChemicalSprays: "spot spray bay 3"},
		Status:             models.StatusNew,
		Version:            1,
		SyncStatus:         models.SyncSynced,
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}
}

func sessionRow(id string, status models.SessionStatus, version int64, deleted bool, updated time.Time) []driver.Value {
	return []driver.Value{
		id, "farm-1", "scout-1", nil, day, 10, "Roses", "",
		24.5, nil, "", "", []byte(`{"CHEMICAL_SPRAYS":"spot spray bay 3"}`),
		string(status), version, "SYNCED", false, "",
		nil, nil, nil, deleted, nil, ts, updated,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	s := sampleSession()
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+sessions\s*\(.*\)\s*VALUES\s*\(.*\)\s*ON\s+CONFLICT\s*\(id\)\s*DO\s+NOTHING\s*$`).
		WithArgs(s.ID, "farm-1", "scout-1", nil, day, 10, "Roses", "",
			24.5, nil, "", "", `{"CHEMICAL_SPRAYS":"spot spray bay 3"}`,
			"NEW", int64(1), "SYNCED", false, "",
			nil, nil, nil, false, nil, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_AlreadyExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+sessions`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), sampleSession())
	assert.True(t, errors.Is(err, common.ErrorAlreadyExists), "got %v", err)
}

func TestCreate_DBErrorAndRowsAffected(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+sessions`).WillReturnError(errors.New("db down"))
	err := repo.Create(context.Background(), sampleSession())
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())

	mock.ExpectExec(`INSERT\s+INTO\s+sessions`).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))
	err = repo.Create(context.Background(), sampleSession())
	require.Error(t, err)
	assert.Regexp(t, `rows affected error: .*rows-err`, err.Error())

	mock.ExpectExec(`INSERT\s+INTO\s+sessions`).WillReturnResult(sqlmock.NewResult(0, 2))
	err = repo.Create(context.Background(), sampleSession())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected rows affected: 2")
}

func TestGetByID_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columnNames).AddRow(sessionRow("s-1", models.StatusInProgress, 3, false, ts)...)
	mock.ExpectQuery(`(?s)SELECT .* FROM sessions WHERE id = \$1$`).WithArgs("s-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, int64(3), got.Version)
	require.NotNil(t, got.TemperatureCelsius)
	assert.Equal(t, 24.5, *got.TemperatureCelsius)
	assert.Nil(t, got.RelativeHumidityPercent)
	assert.Nil(t, got.StartedAt)
	assert.Equal(t, "spot spray bay 3", got.Recommendations[models.RecommendationChemicalSprays])
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM sessions`).WithArgs("missing").WillReturnRows(sqlmock.NewRows(columnNames))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrorNotFound), "got %v", err)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM sessions`).WithArgs("s-1").WillReturnError(errors.New("boom"))

	_, err := repo.GetByID(context.Background(), "s-1")
	require.Error(t, err)
	assert.Regexp(t, `failed to select session: .*boom`, err.Error())
}

func TestGetForShare_UsesRowLock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columnNames).AddRow(sessionRow("s-1", models.StatusInProgress, 2, false, ts)...)
	mock.ExpectQuery(`(?s)SELECT .* FROM sessions WHERE id = \$1 FOR SHARE$`).WithArgs("s-1").WillReturnRows(rows)

	got, err := repo.GetForShare(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_Success_BumpsVersion(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	s := sampleSession()
	s.Status = models.StatusInProgress
	s.StartedAt = &ts

	mock.ExpectExec(`(?s)UPDATE sessions SET.*version = version \+ 1\s+WHERE id = \$1 AND version = \$23 AND NOT deleted`).
		WithArgs(s.ID, "scout-1", nil, day, 10,
			"Roses", "", 24.5, nil,
			"", "", `{"CHEMICAL_SPRAYS":"spot spray bay 3"}`,
			"IN_PROGRESS", "SYNCED", false, "",
			ts, nil, nil,
			false, nil, ts,
			int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), s, 1))
	assert.Equal(t, int64(2), s.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_VersionConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	s := sampleSession()
	mock.ExpectExec(`UPDATE sessions SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), s, 7)
	assert.True(t, errors.Is(err, common.ErrVersionConflict), "got %v", err)
	assert.Equal(t, int64(1), s.Version, "version must not change on conflict")
}

func TestUpdate_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE sessions SET`).WillReturnError(errors.New("db down"))
	err := repo.Update(context.Background(), sampleSession(), 1)
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())

	mock.ExpectExec(`UPDATE sessions SET`).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))
	err = repo.Update(context.Background(), sampleSession(), 1)
	require.Error(t, err)
	assert.Regexp(t, `rows affected error: .*rows-err`, err.Error())

	mock.ExpectExec(`UPDATE sessions SET`).WillReturnResult(sqlmock.NewResult(0, 3))
	err = repo.Update(context.Background(), sampleSession(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected rows affected: 3")
}

func TestListByFarm(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columnNames).
		AddRow(sessionRow("s-1", models.StatusNew, 1, false, ts)...).
		AddRow(sessionRow("s-2", models.StatusCompleted, 5, false, ts)...)
	mock.ExpectQuery(`(?s)FROM sessions\s+WHERE farm_id = \$1 AND NOT deleted\s+ORDER BY session_date DESC`).
		WithArgs("farm-1").WillReturnRows(rows)

	got, err := repo.ListByFarm(context.Background(), "farm-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s-2", got[1].ID)
	assert.Equal(t, models.StatusCompleted, got[1].Status)
}

func TestSelectChanged_FirstPageIsStrict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := ts.Add(-time.Hour)
	rows := sqlmock.NewRows(columnNames).AddRow(sessionRow("s-1", models.StatusNew, 1, false, ts)...)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE farm_id = $1 AND updated_at > $2 AND NOT deleted ORDER BY updated_at, id LIMIT $3`)).
		WithArgs("farm-1", since, 50).
		WillReturnRows(rows)

	got, err := repo.SelectChanged(context.Background(), "farm-1", since, nil, false, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectChanged_ResumesAfterCursorWithTombstones(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	cursor := &models.Cursor{UpdatedAt: ts, ID: "s-1"}
	rows := sqlmock.NewRows(columnNames).AddRow(sessionRow("s-2", models.StatusNew, 2, true, ts)...)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE farm_id = $1 AND (updated_at, id) > ($2, $3) ORDER BY updated_at, id LIMIT $4`)).
		WithArgs("farm-1", ts, "s-1", 10).
		WillReturnRows(rows)

	got, err := repo.SelectChanged(context.Background(), "farm-1", time.Time{}, cursor, true, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Deleted)
}

func TestSelectChanged_QueryAndScanErrors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sessions`).WillReturnError(errors.New("db err"))
	_, err := repo.SelectChanged(context.Background(), "farm-1", ts, nil, false, 10)
	require.Error(t, err)
	assert.Regexp(t, `failed to select sessions: .*db err`, err.Error())

	bad := sessionRow("s-1", models.StatusNew, 1, false, ts)
	bad[14] = "not-int"
	mock.ExpectQuery(`FROM sessions`).WillReturnRows(sqlmock.NewRows(columnNames).AddRow(bad...))
	_, err = repo.SelectChanged(context.Background(), "farm-1", ts, nil, false, 10)
	require.Error(t, err)

	mock.ExpectQuery(`FROM sessions`).WillReturnRows(
		sqlmock.NewRows(columnNames).
			AddRow(sessionRow("s-1", models.StatusNew, 1, false, ts)...).
			RowError(0, errors.New("row err")))
	_, err = repo.SelectChanged(context.Background(), "farm-1", ts, nil, false, 10)
	require.Error(t, err)
}
