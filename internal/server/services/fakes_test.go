package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/audit"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/observations"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/photos"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/repomanager"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/sessions"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/targets"
	"github.com/katlaang/pestscan-sub001/internal/timex"
)

// -------- in-memory store --------

type targetRow struct {
	t        models.SessionTarget
	position int
}

// memStore mimics the PostgreSQL schema closely enough for service tests:
// compare-and-swap updates, unique keys reported as ErrorAlreadyExists and
// an audit stream ordered by (occurredAt, seq).
type memStore struct {
	mu sync.Mutex

	sessions     map[string]models.Session
	targets      map[string][]targetRow
	observations map[string]models.Observation
	audit        []models.AuditEvent
	photos       map[string]models.Photo
	seq          int64

	auditErr     error
	beforeInsert func(o *models.Observation)
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     map[string]models.Session{},
		targets:      map[string][]targetRow{},
		observations: map[string]models.Observation{},
		photos:       map[string]models.Photo{},
	}
}

type memSnapshot struct {
	sessions     map[string]models.Session
	targets      map[string][]targetRow
	observations map[string]models.Observation
	audit        []models.AuditEvent
	photos       map[string]models.Photo
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memSnapshot{
		sessions:     make(map[string]models.Session, len(m.sessions)),
		targets:      make(map[string][]targetRow, len(m.targets)),
		observations: make(map[string]models.Observation, len(m.observations)),
		audit:        append([]models.AuditEvent(nil), m.audit...),
		photos:       make(map[string]models.Photo, len(m.photos)),
	}
	for k, v := range m.sessions {
		s.sessions[k] = copySession(v)
	}
	for k, v := range m.targets {
		s.targets[k] = append([]targetRow(nil), v...)
	}
	for k, v := range m.observations {
		s.observations[k] = v
	}
	for k, v := range m.photos {
		s.photos[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions, m.targets, m.observations, m.audit, m.photos = s.sessions, s.targets, s.observations, s.audit, s.photos
}

func copySession(s models.Session) models.Session {
	if s.Recommendations != nil {
		recs := make(map[models.RecommendationType]string, len(s.Recommendations))
		for k, v := range s.Recommendations {
			recs[k] = v
		}
		s.Recommendations = recs
	}
	s.Targets = nil
	return s
}

func (m *memStore) auditFor(sessionID string) []models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEvent
	for _, e := range m.audit {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) session(id string) models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *memStore) observation(id string) models.Observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observations[id]
}

func (m *memStore) putSession(s models.Session, targets ...models.SessionTarget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = copySession(s)
	for i, t := range targets {
		m.targets[s.ID] = append(m.targets[s.ID], targetRow{t: t, position: i})
	}
}

func (m *memStore) putObservation(o models.Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations[o.ID] = o
}

func afterPosition(updatedAt time.Time, id string, since time.Time, after *models.Cursor) bool {
	if after == nil {
		return updatedAt.After(since)
	}
	if updatedAt.Equal(after.UpdatedAt) {
		return id > after.ID
	}
	return updatedAt.After(after.UpdatedAt)
}

func byPosition[T any](rows []T, key func(T) (time.Time, string), limit int) []T {
	sort.Slice(rows, func(i, j int) bool {
		ti, ii := key(rows[i])
		tj, ij := key(rows[j])
		if ti.Equal(tj) {
			return ii < ij
		}
		return ti.Before(tj)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// -------- repositories --------

type memSessions struct {
	sessions.Repository
	st *memStore
}

func (r *memSessions) Create(ctx context.Context, s *models.Session) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.sessions[s.ID]; ok {
		return common.ErrorAlreadyExists
	}
	r.st.sessions[s.ID] = copySession(*s)
	return nil
}

func (r *memSessions) GetByID(ctx context.Context, id string) (*models.Session, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := copySession(s)
	return &c, nil
}

func (r *memSessions) GetForShare(ctx context.Context, id string) (*models.Session, error) {
	return r.GetByID(ctx, id)
}

func (r *memSessions) Update(ctx context.Context, s *models.Session, expectedVersion int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.sessions[s.ID]
	if !ok || stored.Deleted || stored.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	s.Version = expectedVersion + 1
	r.st.sessions[s.ID] = copySession(*s)
	return nil
}

func (r *memSessions) ListByFarm(ctx context.Context, farmID string) ([]*models.Session, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Session
	for _, s := range r.st.sessions {
		if s.FarmID == farmID && !s.Deleted {
			c := copySession(s)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SessionDate.Equal(out[j].SessionDate) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].SessionDate.After(out[j].SessionDate)
	})
	return out, nil
}

func (r *memSessions) SelectChanged(ctx context.Context, farmID string, since time.Time, after *models.Cursor,
	includeDeleted bool, limit int) ([]*models.Session, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Session
	for _, s := range r.st.sessions {
		if s.FarmID != farmID || (s.Deleted && !includeDeleted) || !afterPosition(s.UpdatedAt, s.ID, since, after) {
			continue
		}
		c := copySession(s)
		out = append(out, &c)
	}
	return byPosition(out, func(s *models.Session) (time.Time, string) { return s.UpdatedAt, s.ID }, limit), nil
}

type memTargets struct {
	targets.Repository
	st *memStore
}

func (r *memTargets) Upsert(ctx context.Context, t *models.SessionTarget, position int) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for sid, rows := range r.st.targets {
		for i, row := range rows {
			if row.t.ID != t.ID {
				continue
			}
			if sid != t.SessionID {
				return common.ErrConflict
			}
			rows[i] = targetRow{t: *t, position: position}
			return nil
		}
	}
	r.st.targets[t.SessionID] = append(r.st.targets[t.SessionID], targetRow{t: *t, position: position})
	return nil
}

func (r *memTargets) Delete(ctx context.Context, sessionID, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	rows := r.st.targets[sessionID]
	for i, row := range rows {
		if row.t.ID == id {
			r.st.targets[sessionID] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *memTargets) ListBySession(ctx context.Context, sessionID string) ([]models.SessionTarget, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	rows := append([]targetRow(nil), r.st.targets[sessionID]...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].position < rows[j].position })
	out := []models.SessionTarget{}
	for _, row := range rows {
		out = append(out, row.t)
	}
	return out, nil
}

type memObservations struct {
	observations.Repository
	st *memStore
}

func (r *memObservations) Insert(ctx context.Context, o *models.Observation) error {
	if hook := r.st.beforeInsert; hook != nil {
		r.st.beforeInsert = nil
		hook(o)
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, x := range r.st.observations {
		if o.ClientRequestID != nil && x.ClientRequestID != nil && *o.ClientRequestID == *x.ClientRequestID {
			return common.ErrorAlreadyExists
		}
		if !x.Deleted && x.Cell() == o.Cell() {
			return common.ErrorAlreadyExists
		}
	}
	r.st.observations[o.ID] = *o
	return nil
}

func (r *memObservations) find(match func(o models.Observation) bool) (*models.Observation, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, o := range r.st.observations {
		if match(o) {
			c := o
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memObservations) GetByID(ctx context.Context, id string) (*models.Observation, error) {
	return r.find(func(o models.Observation) bool { return o.ID == id })
}

func (r *memObservations) GetByClientRequestID(ctx context.Context, crid string) (*models.Observation, error) {
	return r.find(func(o models.Observation) bool { return o.ClientRequestID != nil && *o.ClientRequestID == crid })
}

func (r *memObservations) GetLiveByCell(ctx context.Context, cell models.CellKey) (*models.Observation, error) {
	return r.find(func(o models.Observation) bool { return !o.Deleted && o.Cell() == cell })
}

func (r *memObservations) Update(ctx context.Context, o *models.Observation, expectedVersion int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.observations[o.ID]
	if !ok || stored.Deleted || stored.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	o.Version = expectedVersion + 1
	c := *o
	if c.ClientRequestID == nil {
		c.ClientRequestID = stored.ClientRequestID
	}
	r.st.observations[o.ID] = c
	return nil
}

func (r *memObservations) ListBySession(ctx context.Context, sessionID string) ([]*models.Observation, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Observation
	for _, o := range r.st.observations {
		if o.SessionID == sessionID && !o.Deleted {
			c := o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memObservations) SelectChanged(ctx context.Context, farmID string, since time.Time, after *models.Cursor,
	includeDeleted bool, limit int) ([]*models.Observation, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Observation
	for _, o := range r.st.observations {
		s := r.st.sessions[o.SessionID]
		if s.FarmID != farmID || ((o.Deleted || s.Deleted) && !includeDeleted) ||
			!afterPosition(o.UpdatedAt, o.ID, since, after) {
			continue
		}
		c := o
		out = append(out, &c)
	}
	return byPosition(out, func(o *models.Observation) (time.Time, string) { return o.UpdatedAt, o.ID }, limit), nil
}

func (r *memObservations) CountBySyncStatus(ctx context.Context, status models.SyncStatus) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	n := 0
	for _, o := range r.st.observations {
		if o.SyncStatus == status && !o.Deleted {
			n++
		}
	}
	return n, nil
}

type memAudit struct {
	audit.Repository
	st *memStore
}

func (r *memAudit) Append(ctx context.Context, e *models.AuditEvent) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.auditErr != nil {
		return r.st.auditErr
	}
	for _, x := range r.st.audit {
		if x.SessionID == e.SessionID && x.OccurredAt.After(e.OccurredAt) {
			e.OccurredAt = x.OccurredAt
		}
	}
	r.st.seq++
	e.Seq = r.st.seq
	r.st.audit = append(r.st.audit, *e)
	return nil
}

func (r *memAudit) ListBySession(ctx context.Context, sessionID string) ([]*models.AuditEvent, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []*models.AuditEvent{}
	for _, e := range r.st.audit {
		if e.SessionID == sessionID {
			c := e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

type memPhotos struct {
	photos.Repository
	st *memStore
}

func (r *memPhotos) Insert(ctx context.Context, p *models.Photo) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, x := range r.st.photos {
		if x.FarmID == p.FarmID && x.LocalPhotoID == p.LocalPhotoID {
			return common.ErrorAlreadyExists
		}
	}
	r.st.photos[p.ID] = *p
	return nil
}

func (r *memPhotos) GetByLocalID(ctx context.Context, farmID, localPhotoID string) (*models.Photo, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, p := range r.st.photos {
		if p.FarmID == farmID && p.LocalPhotoID == localPhotoID {
			c := p
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memPhotos) Confirm(ctx context.Context, sessionID, localPhotoID, objectKey string, at time.Time) (*models.Photo, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for id, p := range r.st.photos {
		if p.SessionID == sessionID && p.LocalPhotoID == localPhotoID && p.SyncStatus != models.SyncSynced {
			key := objectKey
			p.ObjectKey = &key
			p.SyncStatus = models.SyncSynced
			p.UpdatedAt = at
			r.st.photos[id] = p
			c := p
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memPhotos) SelectChanged(ctx context.Context, farmID string, since time.Time, after *models.Cursor,
	includeDeleted bool, limit int) ([]*models.Photo, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Photo
	for _, p := range r.st.photos {
		if s, ok := r.st.sessions[p.SessionID]; ok && s.Deleted && !includeDeleted {
			continue
		}
		if p.FarmID == farmID && afterPosition(p.UpdatedAt, p.ID, since, after) {
			c := p
			out = append(out, &c)
		}
	}
	return byPosition(out, func(p *models.Photo) (time.Time, string) { return p.UpdatedAt, p.ID }, limit), nil
}

func (r *memPhotos) CountBySyncStatus(ctx context.Context, status models.SyncStatus) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	n := 0
	for _, p := range r.st.photos {
		if p.SyncStatus == status {
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	st *memStore
}

func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessions.Repository { return &memSessions{st: m.st} }
func (m *fakeRepoManager) Targets(db dbx.DBTX) targets.Repository   { return &memTargets{st: m.st} }
func (m *fakeRepoManager) Observations(db dbx.DBTX) observations.Repository {
	return &memObservations{st: m.st}
}
func (m *fakeRepoManager) Audit(db dbx.DBTX) audit.Repository   { return &memAudit{st: m.st} }
func (m *fakeRepoManager) Photos(db dbx.DBTX) photos.Repository { return &memPhotos{st: m.st} }

// -------- helpers --------

var (
	t0      = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	scout   = models.Actor{ID: "scout-1", Name: "Peter", Role: models.RoleScout}
	manager = models.Actor{ID: "manager-1", Name: "Mary", Role: models.RoleManager}
	tablet  = models.Device{DeviceID: "tab-7", DeviceType: "ANDROID", Location: "-1.28,36.82"}
)

// useMemTx replaces the transaction runner with one that snapshots the
// store and restores it when fn fails.
func useMemTx(t *testing.T, st *memStore) {
	t.Helper()
	orig := runInTx
	runInTx = func(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		snap := st.snapshot()
		if err := fn(ctx, nil); err != nil {
			st.restore(snap)
			return err
		}
		return nil
	}
	t.Cleanup(func() { runInTx = orig })
}

type env struct {
	st           *memStore
	clock        *timex.FixedClock
	sessions     *SessionService
	observations *ObservationService
	sync         *SyncService
	photos       *PhotoService
	presigner    *fakePresigner
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := newMemStore()
	useMemTx(t, st)
	clock := &timex.FixedClock{T: t0}
	rm := &fakeRepoManager{st: st}
	opts := Options{Clock: clock}
	presigner := &fakePresigner{}
	return &env{
		st:           st,
		clock:        clock,
		sessions:     NewSessionService(nil, rm, opts),
		observations: NewObservationService(nil, rm, nil, opts),
		sync:         NewSyncService(nil, rm, 100, opts),
		photos:       NewPhotoService(nil, rm, presigner, opts),
		presigner:    presigner,
	}
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }
func int64p(v int64) *int64 { return &v }

func greenhouseInput(day time.Time) models.CreateSessionInput {
	return models.CreateSessionInput{
		FarmID:      "farm-1",
		ScoutID:     "scout-1",
		SessionDate: day,
		Targets:     []models.TargetInput{{GreenhouseID: strp("gh-1")}},
	}
}

// createStarted creates a session and starts it, returning the session.
func (e *env) createStarted(t *testing.T) *models.Session {
	t.Helper()
	s, err := e.sessions.Create(context.Background(), scout, tablet, greenhouseInput(t0.AddDate(0, 0, -1)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s, err = e.sessions.Start(context.Background(), scout, tablet, s.ID, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func cellInput(s *models.Session, count int) models.UpsertObservationInput {
	return models.UpsertObservationInput{
		SessionID:       s.ID,
		SessionTargetID: s.Targets[0].ID,
		SpeciesCode:     "APHID",
		BayIndex:        1,
		BenchIndex:      1,
		SpotIndex:       1,
		Count:           count,
	}
}

type fakePresigner struct {
	putKeys []string
	err     error
}

func (p *fakePresigner) PresignPut(ctx context.Context, key string) (string, time.Time, error) {
	if p.err != nil {
		return "", time.Time{}, p.err
	}
	p.putKeys = append(p.putKeys, key)
	return "http://minio/" + key + "?sig", t0.Add(15 * time.Minute), nil
}

func (p *fakePresigner) PresignGet(ctx context.Context, key string) (string, error) {
	return "http://minio/" + key + "?get", nil
}
