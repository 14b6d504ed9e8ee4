package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"classwatch/pkg/interfaces"
	"classwatch/pkg/types"
)

// State names the lifecycle controller's position in the session state
// machine.
type State string

const (
	StateNoClassroomSelected State = "no_classroom_selected"
	StateClassroomSelected   State = "classroom_selected"
	StateAwaitingClassInfo   State = "awaiting_class_info"
	StateSessionActive       State = "session_active"
	StateMonitoring          State = "monitoring"
	StateEnded               State = "ended"
)

// Camera is the video controller surface the lifecycle drives.
type Camera interface {
	StartCamera(ctx context.Context) error
	StopCamera(ctx context.Context) error
}

// DurationClock is the elapsed-time ticker bound to the current session.
type DurationClock interface {
	Start(start time.Time)
	Stop()
}

// Binder attaches the synchronization engine's fast polls to the
// lifetime of the bound session.
type Binder interface {
	BindSession()
	UnbindSession()
}

// Controller is the top-level session state machine. It is the only
// writer of the current-session state; the synchronization engine and
// video controller feed it but never mutate it directly.
//
// One mutex is held for the whole of each operation, backend call
// included, so completions never interleave mid-transition. Every
// backend failure leaves the machine in its pre-call state.
type Controller struct {
	backend interfaces.Backend
	cache   interfaces.RecoveryCache
	camera  Camera
	clock   DurationClock
	binder  Binder
	onError func(error)

	mu        sync.Mutex
	state     State
	classroom *types.Classroom
	current   *types.MonitoringSession
	ended     map[string]struct{}
}

// NewController creates a lifecycle controller in NoClassroomSelected.
// onError receives recoverable, operator-visible failures and may be nil.
func NewController(backend interfaces.Backend, cache interfaces.RecoveryCache, camera Camera, clock DurationClock, binder Binder, onError func(error)) *Controller {
	return &Controller{
		backend: backend,
		cache:   cache,
		camera:  camera,
		clock:   clock,
		binder:  binder,
		onError: onError,
		state:   StateNoClassroomSelected,
		ended:   make(map[string]struct{}),
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Classroom returns a copy of the selected classroom, if any.
func (c *Controller) Classroom() (types.Classroom, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.classroom == nil {
		return types.Classroom{}, false
	}
	return *c.classroom, true
}

// CurrentSession returns a copy of the bound session, if any.
func (c *Controller) CurrentSession() (types.MonitoringSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return types.MonitoringSession{}, false
	}
	return *c.current, true
}

// SelectClassroom sets the active classroom reference. It contacts no
// backend. Valid from any idle state; rejected while a session is bound.
func (c *Controller) SelectClassroom(classroom types.Classroom) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateSessionActive, StateMonitoring:
		return ErrSessionInProgress
	}

	c.classroom = &classroom
	c.current = nil
	c.state = StateClassroomSelected
	zap.S().Infow("classroom selected", "classroom_id", classroom.ID, "name", classroom.Name)
	return nil
}

// RequestStartSession begins the start-session flow. With cached class
// info the start command is issued immediately; without it the
// controller moves to AwaitingClassInfo and waits for SubmitClassInfo.
func (c *Controller) RequestStartSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClassroomSelected, StateEnded:
	case StateNoClassroomSelected:
		return ErrNoClassroomSelected
	default:
		return fmt.Errorf("%w: cannot start a session from %s", ErrInvalidTransition, c.state)
	}

	info, ok, err := c.cache.LoadClassInfo()
	if err != nil {
		zap.S().Warnw("class info cache read failed", "error", err)
		ok = false
	}
	if !ok {
		c.state = StateAwaitingClassInfo
		return nil
	}
	return c.startSessionLocked(ctx, info)
}

// SubmitClassInfo validates the operator's form, persists it for later
// pre-fill and issues the start-session command. Validation failures
// leave the form open; nothing reaches the backend.
func (c *Controller) SubmitClassInfo(ctx context.Context, subject string, studentCount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateAwaitingClassInfo, StateClassroomSelected, StateEnded:
	case StateNoClassroomSelected:
		return ErrNoClassroomSelected
	default:
		return fmt.Errorf("%w: cannot submit class info from %s", ErrInvalidTransition, c.state)
	}

	info := &types.ClassSessionInfo{
		Subject:       subject,
		StudentCount:  studentCount,
		ClassroomName: c.classroom.Name,
	}
	if err := info.Validate(); err != nil {
		return err
	}

	// Persistence is best-effort; a cache write failure never blocks the
	// session start.
	if err := c.cache.SaveClassInfo(info); err != nil {
		zap.S().Warnw("class info cache write failed", "error", err)
	}

	return c.startSessionLocked(ctx, info)
}

// startSessionLocked issues the create command and on success binds the
// returned session. Caller holds the mutex and has verified a classroom
// is selected.
func (c *Controller) startSessionLocked(ctx context.Context, info *types.ClassSessionInfo) error {
	created, err := c.backend.StartSession(ctx, c.classroom.ID, info.Subject, info.StudentCount)
	if err != nil {
		c.reportError(err)
		return err
	}

	start := created.StartTime
	if start.IsZero() {
		start = time.Now()
	}

	c.current = created
	c.state = StateSessionActive
	c.clock.Start(start)
	c.binder.BindSession()
	zap.S().Infow("session started",
		"session_id", created.ID,
		"classroom_id", created.ClassroomID,
		"subject", created.Subject,
		"student_count", created.StudentCount)
	return nil
}

// StartMonitoring issues the start-monitoring command and activates the
// camera. The transition to Monitoring happens only after the backend
// confirms; a camera activation failure is reported but does not roll
// the state back.
func (c *Controller) StartMonitoring(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSessionActive {
		if c.current == nil {
			return ErrNoCurrentSession
		}
		return fmt.Errorf("%w: cannot start monitoring from %s", ErrInvalidTransition, c.state)
	}

	if err := c.backend.StartMonitoring(ctx, c.current.ID); err != nil {
		c.reportError(err)
		return err
	}

	c.current.Status = types.SessionStatusMonitoring
	c.state = StateMonitoring

	if err := c.camera.StartCamera(ctx); err != nil {
		zap.S().Warnw("camera activation failed after monitoring start",
			"session_id", c.current.ID, "error", err)
	}
	zap.S().Infow("monitoring started", "session_id", c.current.ID)
	return nil
}

// StopMonitoring issues the stop-monitoring command, stops the camera
// and returns to SessionActive. The session record itself is not ended.
func (c *Controller) StopMonitoring(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateMonitoring {
		if c.current == nil {
			return ErrNoCurrentSession
		}
		return fmt.Errorf("%w: cannot stop monitoring from %s", ErrInvalidTransition, c.state)
	}

	if err := c.backend.StopMonitoring(ctx, c.current.ID); err != nil {
		c.reportError(err)
		return err
	}

	if err := c.camera.StopCamera(ctx); err != nil {
		zap.S().Warnw("camera deactivation failed after monitoring stop",
			"session_id", c.current.ID, "error", err)
	}

	c.current.Status = types.SessionStatusCreated
	c.state = StateSessionActive
	zap.S().Infow("monitoring stopped", "session_id", c.current.ID)
	return nil
}

// EndSession issues the end command, tears the camera and clock down
// and moves to Ended. The session becomes finished and can never be
// bound again. The backend's computed total duration is returned for
// the operator.
func (c *Controller) EndSession(ctx context.Context) (*types.SessionEndResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateSessionActive, StateMonitoring:
	default:
		if c.current == nil {
			return nil, ErrNoCurrentSession
		}
		return nil, fmt.Errorf("%w: cannot end a session from %s", ErrInvalidTransition, c.state)
	}

	wasMonitoring := c.state == StateMonitoring

	result, err := c.backend.EndSession(ctx, c.current.ID)
	if err != nil {
		c.reportError(err)
		return nil, err
	}

	if wasMonitoring {
		if err := c.camera.StopCamera(ctx); err != nil {
			zap.S().Warnw("camera deactivation failed after session end",
				"session_id", c.current.ID, "error", err)
		}
	}
	c.clock.Stop()
	c.binder.UnbindSession()

	c.current.Status = types.SessionStatusFinished
	if result.EndTime != nil {
		c.current.EndTime = result.EndTime
	}
	c.current.DurationFormatted = result.DurationFormatted
	c.ended[c.current.ID] = struct{}{}
	c.state = StateEnded
	zap.S().Infow("session ended",
		"session_id", c.current.ID, "duration", result.DurationFormatted)
	return result, nil
}

// ResumeSession binds the controller to an externally discovered active
// session, adopting its recorded start time so the duration clock shows
// true elapsed time rather than zero. A finished session is rejected.
func (c *Controller) ResumeSession(record types.MonitoringSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if record.IsEnded() {
		return ErrSessionEnded
	}
	if _, done := c.ended[record.ID]; done {
		return ErrSessionEnded
	}

	switch c.state {
	case StateSessionActive, StateMonitoring:
		return ErrSessionInProgress
	}

	adopted := record
	c.current = &adopted
	c.classroom = &types.Classroom{ID: record.ClassroomID, Name: record.ClassroomName}
	if record.Status == types.SessionStatusMonitoring {
		c.state = StateMonitoring
	} else {
		c.state = StateSessionActive
	}
	c.clock.Start(record.StartTime)
	c.binder.BindSession()
	zap.S().Infow("session resumed",
		"session_id", record.ID,
		"status", record.Status,
		"started_at", record.StartTime)
	return nil
}

// Reset unbinds everything and returns to ClassroomSelected (or
// NoClassroomSelected when nothing is selected). Used when the hosting
// view wants a fresh start after an ended session.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSessionActive || c.state == StateMonitoring {
		c.clock.Stop()
		c.binder.UnbindSession()
	}
	c.current = nil
	if c.classroom != nil {
		c.state = StateClassroomSelected
	} else {
		c.state = StateNoClassroomSelected
	}
}

func (c *Controller) reportError(err error) {
	zap.S().Errorw("session command failed", "state", c.state, "error", err)
	if c.onError != nil {
		c.onError(err)
	}
}
