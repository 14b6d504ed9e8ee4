package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"classwatch/internal/api"
	"classwatch/internal/cache"
	"classwatch/internal/clock"
	"classwatch/internal/config"
	"classwatch/internal/push"
	"classwatch/internal/session"
	realtime "classwatch/internal/sync"
	"classwatch/internal/video"
	"classwatch/pkg/interfaces"
	"classwatch/pkg/types"
)

// Callbacks carries the hosting view's observers. Every field is
// optional; a nil callback is skipped.
type Callbacks struct {
	OnSessions func(sessions []types.MonitoringSession)
	OnEmotion  func(snapshot *types.EmotionSnapshot)
	OnDuration func(display string)
	OnError    func(err error)
}

// Application wires the whole monitoring client as one mountable unit.
// Mount builds and starts the components in dependency order
// (cache, backend client, video, clock, lifecycle controller, engine,
// push channel); Unmount tears them down in reverse. A fresh set of
// components is built on every mount, so a remount never inherits
// stopped timers or a closed push connection.
type Application struct {
	config    *config.Config
	presenter interfaces.FullscreenPresenter
	callbacks Callbacks

	mu         sync.Mutex
	mounted    bool
	store      *cache.Store
	backend    *api.Client
	video      *video.Controller
	clock      *clock.Clock
	controller *session.Controller
	engine     *realtime.Engine
	channel    interfaces.PushChannel

	stateMu  sync.Mutex
	sessions []types.MonitoringSession
	emotion  *types.EmotionSnapshot
}

// NewApplication validates the configuration and prepares an unmounted
// application. presenter provides platform fullscreen; it is required.
func NewApplication(cfg *config.Config, presenter interfaces.FullscreenPresenter, callbacks Callbacks) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Application{
		config:    cfg,
		presenter: presenter,
		callbacks: callbacks,
	}, nil
}

// Mount builds and starts every component. classroomID optionally
// preselects a classroom resolved against the backend's classroom list;
// pass "" to start unselected. On any startup failure the components
// already started are torn down before the error returns.
func (a *Application) Mount(ctx context.Context, classroomID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mounted {
		return ErrAlreadyMounted
	}

	store, err := cache.NewStore(a.config.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open recovery cache: %w", err)
	}

	backend := api.NewClient(a.config.Backend.BaseURL, a.config.Backend.Timeout)
	videoCtrl := video.NewController(backend, a.presenter, a.config.Video.EpochRefreshInterval, a.reportError)
	durClock := clock.New(a.config.Video.ClockTickInterval, a.callbacks.OnDuration)

	engine := realtime.NewEngine(backend, &engineListener{app: a, video: videoCtrl}, realtime.Intervals{
		SessionList: a.config.Sync.SessionListInterval,
		Camera:      a.config.Sync.CameraInterval,
		Emotion:     a.config.Sync.EmotionInterval,
	})

	controller := session.NewController(backend, store, videoCtrl, durClock, engine, a.reportError)

	a.store = store
	a.backend = backend
	a.video = videoCtrl
	a.clock = durClock
	a.engine = engine
	a.controller = controller

	if err := engine.Start(ctx); err != nil {
		videoCtrl.Close()
		store.Close()
		a.reset()
		return fmt.Errorf("failed to start synchronization engine: %w", err)
	}

	// The push channel is an accelerator, not a dependency: if it cannot
	// connect, polling still keeps the dashboard current. Channel loss
	// routes into the engine for one forced refresh of all resources.
	var channel interfaces.PushChannel = push.NewChannel(a.config.Push.URL, a.config.Push.HandshakeTimeout, a.config.Push.ReadTimeout)
	notify := func(n types.Notification) { engine.Invalidate(n.Type) }
	if err := channel.Connect(ctx, notify, engine.HandleChannelLoss); err != nil {
		zap.S().Warnw("push channel unavailable, polling only", "error", err)
		engine.HandleChannelLoss(err)
		channel = nil
	}
	a.channel = channel

	if classroomID != "" {
		if err := a.selectClassroomLocked(ctx, classroomID); err != nil {
			a.unmountLocked()
			return err
		}
	}

	a.mounted = true
	zap.S().Infow("monitoring client mounted",
		"backend", a.config.Backend.BaseURL,
		"classroom_id", classroomID,
		"push", channel != nil)
	return nil
}

// Unmount stops every timer and connection. Safe to call with a
// best-effort context; nothing here blocks on the network.
func (a *Application) Unmount() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.mounted {
		return ErrNotMounted
	}
	a.unmountLocked()
	zap.S().Infow("monitoring client unmounted")
	return nil
}

func (a *Application) unmountLocked() {
	if a.channel != nil {
		if err := a.channel.Close(); err != nil {
			zap.S().Warnw("push channel close failed", "error", err)
		}
	}
	if err := a.engine.Stop(); err != nil {
		zap.S().Warnw("engine stop failed", "error", err)
	}
	a.clock.Stop()
	a.video.Close()
	if err := a.store.Close(); err != nil {
		zap.S().Warnw("recovery cache close failed", "error", err)
	}
	a.reset()
}

func (a *Application) reset() {
	a.mounted = false
	a.store = nil
	a.backend = nil
	a.video = nil
	a.clock = nil
	a.engine = nil
	a.controller = nil
	a.channel = nil
}

// selectClassroomLocked resolves an id against the backend's classroom
// list and selects it on the lifecycle controller.
func (a *Application) selectClassroomLocked(ctx context.Context, classroomID string) error {
	classrooms, err := a.backend.ListClassrooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve classroom %s: %w", classroomID, err)
	}
	for _, room := range classrooms {
		if room.ID == classroomID {
			return a.controller.SelectClassroom(room)
		}
	}
	return fmt.Errorf("%w: %s", ErrClassroomNotFound, classroomID)
}

// Controller exposes the session lifecycle for operator actions.
func (a *Application) Controller() *session.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.controller
}

// Video exposes the stream controller for display actions.
func (a *Application) Video() *video.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.video
}

// Duration returns the clock's current display, ZeroDisplay when idle
// or unmounted.
func (a *Application) Duration() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.clock == nil {
		return clock.ZeroDisplay
	}
	return a.clock.Display()
}

// ActiveSessions returns the last-applied active session list.
func (a *Application) ActiveSessions() []types.MonitoringSession {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	sessions := make([]types.MonitoringSession, len(a.sessions))
	copy(sessions, a.sessions)
	return sessions
}

// Emotion returns the last-applied emotion snapshot, or nil.
func (a *Application) Emotion() *types.EmotionSnapshot {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	if a.emotion == nil {
		return nil
	}
	snapshot := *a.emotion
	return &snapshot
}

// engineListener routes engine results into the application state and
// the video controller. It is built per mount and holds its component
// references directly, so dispatch never touches the mount mutex; the
// engine goroutine can drain while Unmount is waiting for it to stop.
type engineListener struct {
	app   *Application
	video *video.Controller
}

// OnSessions replaces the active session list wholesale.
func (l *engineListener) OnSessions(sessions []types.MonitoringSession) {
	l.app.stateMu.Lock()
	l.app.sessions = sessions
	l.app.stateMu.Unlock()
	if l.app.callbacks.OnSessions != nil {
		l.app.callbacks.OnSessions(sessions)
	}
}

// OnEmotion replaces the emotion snapshot wholesale.
func (l *engineListener) OnEmotion(snapshot *types.EmotionSnapshot) {
	l.app.stateMu.Lock()
	l.app.emotion = snapshot
	l.app.stateMu.Unlock()
	if l.app.callbacks.OnEmotion != nil {
		l.app.callbacks.OnEmotion(snapshot)
	}
}

// OnCamera applies the poll's authoritative camera state.
func (l *engineListener) OnCamera(active bool) {
	l.video.SetCameraActive(active)
}

// OnChannelDown surfaces push channel loss once.
func (l *engineListener) OnChannelDown(err error) {
	zap.S().Warnw("push channel lost, continuing on polls", "error", err)
	l.app.reportError(err)
}

func (a *Application) reportError(err error) {
	if a.callbacks.OnError != nil {
		a.callbacks.OnError(err)
	}
}
