package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classwatch/pkg/types"
)

// mockBackend records lifecycle commands and serves configurable results.
type mockBackend struct {
	mu sync.Mutex

	startSessionErr error
	startMonErr     error
	stopMonErr      error
	endErr          error

	created      *types.MonitoringSession
	endResult    *types.SessionEndResult
	startedWith  []string // classroomID, subject
	startedCount int
	monStarts    []string
	monStops     []string
	endedIDs     []string
}

func (b *mockBackend) ListClassrooms(ctx context.Context) ([]types.Classroom, error) {
	return nil, nil
}

func (b *mockBackend) ListActiveSessions(ctx context.Context) ([]types.MonitoringSession, error) {
	return nil, nil
}

func (b *mockBackend) StartSession(ctx context.Context, classroomID, subject string, studentCount int) (*types.MonitoringSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startSessionErr != nil {
		return nil, b.startSessionErr
	}
	b.startedWith = []string{classroomID, subject}
	b.startedCount = studentCount
	if b.created != nil {
		s := *b.created
		return &s, nil
	}
	return &types.MonitoringSession{
		ID:           "sess-1",
		ClassroomID:  classroomID,
		Subject:      subject,
		StudentCount: studentCount,
		StartTime:    time.Now(),
		Status:       types.SessionStatusCreated,
	}, nil
}

func (b *mockBackend) StartMonitoring(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startMonErr != nil {
		return b.startMonErr
	}
	b.monStarts = append(b.monStarts, sessionID)
	return nil
}

func (b *mockBackend) StopMonitoring(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopMonErr != nil {
		return b.stopMonErr
	}
	b.monStops = append(b.monStops, sessionID)
	return nil
}

func (b *mockBackend) EndSession(ctx context.Context, sessionID string) (*types.SessionEndResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.endErr != nil {
		return nil, b.endErr
	}
	b.endedIDs = append(b.endedIDs, sessionID)
	if b.endResult != nil {
		r := *b.endResult
		return &r, nil
	}
	return &types.SessionEndResult{SessionID: sessionID, DurationFormatted: "00:45:10"}, nil
}

func (b *mockBackend) StartCamera(ctx context.Context) error { return nil }
func (b *mockBackend) StopCamera(ctx context.Context) error  { return nil }

func (b *mockBackend) CameraStatus(ctx context.Context) (*types.CameraStatus, error) {
	return &types.CameraStatus{}, nil
}

func (b *mockBackend) EmotionSnapshot(ctx context.Context) (*types.EmotionSnapshot, error) {
	return &types.EmotionSnapshot{}, nil
}

func (b *mockBackend) EmotionDistribution(ctx context.Context) (*types.EmotionSnapshot, error) {
	return &types.EmotionSnapshot{}, nil
}

func (b *mockBackend) StreamURL(epoch int64) string { return "" }

// mockCache serves one optional class info record and records writes.
type mockCache struct {
	mu      sync.Mutex
	info    *types.ClassSessionInfo
	readErr error
	saveErr error
	saved   []*types.ClassSessionInfo
}

func (c *mockCache) LoadClassInfo() (*types.ClassSessionInfo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, false, c.readErr
	}
	if c.info == nil {
		return nil, false, nil
	}
	info := *c.info
	return &info, true, nil
}

func (c *mockCache) SaveClassInfo(info *types.ClassSessionInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	saved := *info
	c.saved = append(c.saved, &saved)
	return nil
}

func (c *mockCache) Get(key string) (string, bool, error) { return "", false, nil }
func (c *mockCache) Set(key, value string) error          { return nil }
func (c *mockCache) Close() error                         { return nil }

type mockCamera struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	starts   int
	stops    int
}

func (m *mockCamera) StartCamera(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.starts++
	return nil
}

func (m *mockCamera) StopCamera(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stops++
	return nil
}

type mockClock struct {
	mu     sync.Mutex
	starts []time.Time
	stops  int
}

func (m *mockClock) Start(start time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts = append(m.starts, start)
}

func (m *mockClock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

type mockBinder struct {
	mu      sync.Mutex
	binds   int
	unbinds int
}

func (m *mockBinder) BindSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binds++
}

func (m *mockBinder) UnbindSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unbinds++
}

type fixture struct {
	backend *mockBackend
	cache   *mockCache
	camera  *mockCamera
	clock   *mockClock
	binder  *mockBinder
	errs    []error
	c       *Controller
}

func newFixture() *fixture {
	f := &fixture{
		backend: &mockBackend{},
		cache:   &mockCache{},
		camera:  &mockCamera{},
		clock:   &mockClock{},
		binder:  &mockBinder{},
	}
	f.c = NewController(f.backend, f.cache, f.camera, f.clock, f.binder, func(err error) {
		f.errs = append(f.errs, err)
	})
	return f
}

func (f *fixture) selectClassroom(t *testing.T) {
	t.Helper()
	require.NoError(t, f.c.SelectClassroom(types.Classroom{ID: "C1", Name: "Aula 1"}))
}

func (f *fixture) startSession(t *testing.T) {
	t.Helper()
	f.selectClassroom(t)
	require.NoError(t, f.c.SubmitClassInfo(context.Background(), "Algebra", 28))
	require.Equal(t, StateSessionActive, f.c.State())
}

func TestSelectClassroom(t *testing.T) {
	f := newFixture()

	assert.Equal(t, StateNoClassroomSelected, f.c.State())
	f.selectClassroom(t)
	assert.Equal(t, StateClassroomSelected, f.c.State())

	room, ok := f.c.Classroom()
	require.True(t, ok)
	assert.Equal(t, "C1", room.ID)
}

func TestSelectClassroomRejectedDuringSession(t *testing.T) {
	f := newFixture()
	f.startSession(t)

	err := f.c.SelectClassroom(types.Classroom{ID: "C2"})
	assert.ErrorIs(t, err, ErrSessionInProgress)
}

func TestRequestStartSessionNeedsClassroom(t *testing.T) {
	f := newFixture()
	assert.ErrorIs(t, f.c.RequestStartSession(context.Background()), ErrNoClassroomSelected)
}

func TestRequestStartSessionAwaitsInfoWhenCacheEmpty(t *testing.T) {
	f := newFixture()
	f.selectClassroom(t)

	require.NoError(t, f.c.RequestStartSession(context.Background()))
	assert.Equal(t, StateAwaitingClassInfo, f.c.State())
	assert.Nil(t, f.backend.startedWith)
}

func TestRequestStartSessionUsesCachedInfo(t *testing.T) {
	f := newFixture()
	f.cache.info = &types.ClassSessionInfo{Subject: "Historia", StudentCount: 31, ClassroomName: "Aula 1"}
	f.selectClassroom(t)

	require.NoError(t, f.c.RequestStartSession(context.Background()))
	assert.Equal(t, StateSessionActive, f.c.State())
	assert.Equal(t, []string{"C1", "Historia"}, f.backend.startedWith)
	assert.Equal(t, 31, f.backend.startedCount)
	assert.Equal(t, 1, f.binder.binds)
	require.Len(t, f.clock.starts, 1)
}

func TestCacheReadFailureFallsBackToForm(t *testing.T) {
	f := newFixture()
	f.cache.readErr = errors.New("disk error")
	f.selectClassroom(t)

	require.NoError(t, f.c.RequestStartSession(context.Background()))
	assert.Equal(t, StateAwaitingClassInfo, f.c.State())
}

func TestSubmitClassInfoValidation(t *testing.T) {
	f := newFixture()
	f.selectClassroom(t)
	require.NoError(t, f.c.RequestStartSession(context.Background()))

	assert.ErrorIs(t, f.c.SubmitClassInfo(context.Background(), "   ", 28), types.ErrEmptySubject)
	assert.ErrorIs(t, f.c.SubmitClassInfo(context.Background(), "Algebra", 0), types.ErrInvalidStudentCount)

	// Form stays open, nothing reached the backend or cache.
	assert.Equal(t, StateAwaitingClassInfo, f.c.State())
	assert.Nil(t, f.backend.startedWith)
	assert.Empty(t, f.cache.saved)
}

func TestSubmitClassInfoStartsSession(t *testing.T) {
	f := newFixture()
	f.selectClassroom(t)
	require.NoError(t, f.c.RequestStartSession(context.Background()))

	require.NoError(t, f.c.SubmitClassInfo(context.Background(), "Algebra", 28))

	assert.Equal(t, StateSessionActive, f.c.State())
	current, ok := f.c.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, "C1", current.ClassroomID)
	assert.Equal(t, "Algebra", current.Subject)
	assert.Equal(t, 28, current.StudentCount)
	assert.Equal(t, types.SessionStatusCreated, current.Status)

	require.Len(t, f.cache.saved, 1)
	assert.Equal(t, "Algebra", f.cache.saved[0].Subject)
	assert.Equal(t, "Aula 1", f.cache.saved[0].ClassroomName)
	assert.Equal(t, 1, f.binder.binds)
}

func TestCacheWriteFailureDoesNotBlockStart(t *testing.T) {
	f := newFixture()
	f.cache.saveErr = errors.New("disk full")
	f.selectClassroom(t)

	require.NoError(t, f.c.SubmitClassInfo(context.Background(), "Algebra", 28))
	assert.Equal(t, StateSessionActive, f.c.State())
}

func TestStartSessionBackendFailureKeepsState(t *testing.T) {
	f := newFixture()
	f.backend.startSessionErr = errors.New("backend unreachable")
	f.selectClassroom(t)
	require.NoError(t, f.c.RequestStartSession(context.Background()))

	require.Error(t, f.c.SubmitClassInfo(context.Background(), "Algebra", 28))

	assert.Equal(t, StateAwaitingClassInfo, f.c.State())
	_, ok := f.c.CurrentSession()
	assert.False(t, ok)
	assert.Empty(t, f.clock.starts)
	assert.Zero(t, f.binder.binds)
	assert.Len(t, f.errs, 1)
}

func TestStartMonitoring(t *testing.T) {
	f := newFixture()
	f.startSession(t)

	require.NoError(t, f.c.StartMonitoring(context.Background()))

	assert.Equal(t, StateMonitoring, f.c.State())
	assert.Equal(t, []string{"sess-1"}, f.backend.monStarts)
	assert.Equal(t, 1, f.camera.starts)

	current, _ := f.c.CurrentSession()
	assert.Equal(t, types.SessionStatusMonitoring, current.Status)

	// Already monitoring.
	assert.ErrorIs(t, f.c.StartMonitoring(context.Background()), ErrInvalidTransition)
}

func TestStartMonitoringBackendFailure(t *testing.T) {
	f := newFixture()
	f.backend.startMonErr = errors.New("backend unreachable")
	f.startSession(t)

	require.Error(t, f.c.StartMonitoring(context.Background()))

	assert.Equal(t, StateSessionActive, f.c.State())
	assert.Zero(t, f.camera.starts)
	assert.Len(t, f.errs, 1)
}

func TestStartMonitoringCameraFailureDoesNotRollBack(t *testing.T) {
	f := newFixture()
	f.camera.startErr = errors.New("camera hardware busy")
	f.startSession(t)

	require.NoError(t, f.c.StartMonitoring(context.Background()))
	assert.Equal(t, StateMonitoring, f.c.State())
}

func TestStopMonitoring(t *testing.T) {
	f := newFixture()
	f.startSession(t)
	require.NoError(t, f.c.StartMonitoring(context.Background()))

	require.NoError(t, f.c.StopMonitoring(context.Background()))

	assert.Equal(t, StateSessionActive, f.c.State())
	assert.Equal(t, []string{"sess-1"}, f.backend.monStops)
	assert.Equal(t, 1, f.camera.stops)

	// The record is back to created, not ended.
	current, _ := f.c.CurrentSession()
	assert.Equal(t, types.SessionStatusCreated, current.Status)
}

func TestStopMonitoringInvalidFromSessionActive(t *testing.T) {
	f := newFixture()
	f.startSession(t)
	assert.ErrorIs(t, f.c.StopMonitoring(context.Background()), ErrInvalidTransition)
}

func TestStopMonitoringBackendFailure(t *testing.T) {
	f := newFixture()
	f.startSession(t)
	require.NoError(t, f.c.StartMonitoring(context.Background()))
	f.backend.stopMonErr = errors.New("backend unreachable")

	require.Error(t, f.c.StopMonitoring(context.Background()))
	assert.Equal(t, StateMonitoring, f.c.State())
	assert.Zero(t, f.camera.stops)
}

func TestEndSessionFromMonitoring(t *testing.T) {
	f := newFixture()
	f.backend.endResult = &types.SessionEndResult{SessionID: "sess-1", DurationFormatted: "01:02:03"}
	f.startSession(t)
	require.NoError(t, f.c.StartMonitoring(context.Background()))

	result, err := f.c.EndSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "01:02:03", result.DurationFormatted)

	assert.Equal(t, StateEnded, f.c.State())
	assert.Equal(t, 1, f.camera.stops)
	assert.Equal(t, 1, f.clock.stops)
	assert.Equal(t, 1, f.binder.unbinds)

	current, _ := f.c.CurrentSession()
	assert.Equal(t, types.SessionStatusFinished, current.Status)
	assert.Equal(t, "01:02:03", current.DurationFormatted)
}

func TestEndSessionFromSessionActiveSkipsCamera(t *testing.T) {
	f := newFixture()
	f.startSession(t)

	_, err := f.c.EndSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateEnded, f.c.State())
	assert.Zero(t, f.camera.stops)
	assert.Equal(t, 1, f.clock.stops)
}

func TestEndSessionBackendFailureKeepsState(t *testing.T) {
	f := newFixture()
	f.startSession(t)
	require.NoError(t, f.c.StartMonitoring(context.Background()))
	f.backend.endErr = errors.New("backend unreachable")

	_, err := f.c.EndSession(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateMonitoring, f.c.State())
	assert.Zero(t, f.clock.stops)
	assert.Zero(t, f.binder.unbinds)
}

func TestEndedSessionNeverBindsAgain(t *testing.T) {
	f := newFixture()
	f.startSession(t)
	_, err := f.c.EndSession(context.Background())
	require.NoError(t, err)

	// Resuming the same id is rejected even if a stale list still shows it.
	err = f.c.ResumeSession(types.MonitoringSession{
		ID:        "sess-1",
		Status:    types.SessionStatusMonitoring,
		StartTime: time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestResumeSessionSeedsClockFromRecord(t *testing.T) {
	f := newFixture()
	startedAt := time.Now().Add(-85 * time.Minute)

	err := f.c.ResumeSession(types.MonitoringSession{
		ID:            "sess-9",
		ClassroomID:   "C3",
		ClassroomName: "Aula 3",
		Subject:       "Quimica",
		StudentCount:  22,
		StartTime:     startedAt,
		Status:        types.SessionStatusCreated,
	})
	require.NoError(t, err)

	assert.Equal(t, StateSessionActive, f.c.State())
	require.Len(t, f.clock.starts, 1)
	assert.True(t, f.clock.starts[0].Equal(startedAt))
	assert.Equal(t, 1, f.binder.binds)

	room, ok := f.c.Classroom()
	require.True(t, ok)
	assert.Equal(t, "C3", room.ID)
}

func TestResumeMonitoringSessionLandsInMonitoring(t *testing.T) {
	f := newFixture()

	err := f.c.ResumeSession(types.MonitoringSession{
		ID:        "sess-9",
		Status:    types.SessionStatusMonitoring,
		StartTime: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, StateMonitoring, f.c.State())
}

func TestResumeFinishedSessionRejected(t *testing.T) {
	f := newFixture()

	err := f.c.ResumeSession(types.MonitoringSession{
		ID:     "sess-9",
		Status: types.SessionStatusFinished,
	})
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, StateNoClassroomSelected, f.c.State())
}

func TestResumeWhileSessionActiveRejected(t *testing.T) {
	f := newFixture()
	f.startSession(t)

	err := f.c.ResumeSession(types.MonitoringSession{ID: "sess-9", StartTime: time.Now()})
	assert.ErrorIs(t, err, ErrSessionInProgress)
}

func TestResetReturnsToClassroomSelected(t *testing.T) {
	f := newFixture()
	f.startSession(t)

	f.c.Reset()

	assert.Equal(t, StateClassroomSelected, f.c.State())
	_, ok := f.c.CurrentSession()
	assert.False(t, ok)
	assert.Equal(t, 1, f.clock.stops)
	assert.Equal(t, 1, f.binder.unbinds)
}
