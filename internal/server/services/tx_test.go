package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/audit"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/sessions"
	"github.com/katlaang/pestscan-sub001/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// txRecordingManager remembers which handles repositories were bound to.
type txRecordingManager struct {
	fakeRepoManager
	handles []dbx.DBTX
}

func (m *txRecordingManager) Sessions(db dbx.DBTX) sessions.Repository {
	m.handles = append(m.handles, db)
	return m.fakeRepoManager.Sessions(db)
}

func (m *txRecordingManager) Audit(db dbx.DBTX) audit.Repository {
	m.handles = append(m.handles, db)
	return m.fakeRepoManager.Audit(db)
}

func TestSessionService_TransitionRunsInOneTransaction(t *testing.T) {
	tests := []struct {
		name     string
		auditErr error
		expect   func(mock sqlmock.Sqlmock)
	}{
		{
			name: "commit",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit()
			},
		},
		{
			name:     "rollback when the audit append fails",
			auditErr: errors.New("audit_events: disk full"),
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
			require.NoError(t, err)
			defer db.Close()
			tt.expect(mock)

			st := newMemStore()
			st.auditErr = tt.auditErr
			rm := &txRecordingManager{fakeRepoManager: fakeRepoManager{st: st}}
			svc := NewSessionService(db, rm, Options{Clock: &timex.FixedClock{T: t0}})

			e := &env{st: st}
			s := seedSession(e, models.StatusNew)

			_, err = svc.Start(context.Background(), scout, tablet, s.ID, nil)
			if tt.auditErr != nil {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			require.NotEmpty(t, rm.handles)
			for _, h := range rm.handles {
				_, isTx := h.(*sql.Tx)
				assert.True(t, isTx, "repository bound to %T", h)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
