package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"classwatch/pkg/interfaces"
	"classwatch/pkg/types"
)

// resource names the three independently fetched live-data resources.
type resource int

const (
	resourceSessions resource = iota
	resourceCamera
	resourceEmotion
	resourceCount
)

func (r resource) String() string {
	switch r {
	case resourceSessions:
		return "sessions"
	case resourceCamera:
		return "camera"
	case resourceEmotion:
		return "emotion"
	default:
		return "unknown"
	}
}

// Listener consumes applied fetch results. Calls are made from the
// engine's single run goroutine, so they never interleave.
type Listener interface {
	// OnSessions receives the active session list, replaced wholesale.
	OnSessions(sessions []types.MonitoringSession)

	// OnEmotion receives the latest emotion snapshot, replaced wholesale.
	OnEmotion(snapshot *types.EmotionSnapshot)

	// OnCamera receives the authoritative camera state.
	OnCamera(active bool)

	// OnChannelDown reports push channel loss. Fires at most once per
	// engine run; polling keeps the dashboard alive afterwards.
	OnChannelDown(err error)
}

// Intervals sets the three poll cadences.
type Intervals struct {
	SessionList time.Duration
	Camera      time.Duration
	Emotion     time.Duration
}

// fetchResult is one completed fetch, tagged with the sequence number
// assigned when the fetch was issued.
type fetchResult struct {
	resource resource
	seq      uint64
	sessions []types.MonitoringSession
	snapshot *types.EmotionSnapshot
	camera   bool
	err      error
}

// Engine owns every poll timer and the push-notification intake. All
// state it reconciles flows through one run goroutine: fetches execute
// concurrently, but their results are applied strictly in sequence
// order per resource, so a stale poll can never overwrite a fresher
// push-triggered fetch.
type Engine struct {
	backend   interfaces.Backend
	listener  Listener
	intervals Intervals

	invalidateCh  chan resource
	bindCh        chan bool
	channelLossCh chan error
	resultCh      chan fetchResult
	shutdownCh    chan struct{}

	running bool
	mu      sync.RWMutex
	done    chan struct{}
}

// NewEngine creates a stopped engine.
func NewEngine(backend interfaces.Backend, listener Listener, intervals Intervals) *Engine {
	return &Engine{
		backend:       backend,
		listener:      listener,
		intervals:     intervals,
		invalidateCh:  make(chan resource, 16),
		bindCh:        make(chan bool, 4),
		channelLossCh: make(chan error, 1),
		resultCh:      make(chan fetchResult, 64),
		shutdownCh:    make(chan struct{}),
	}
}

// Start launches the run goroutine and issues the initial session-list
// fetch.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrEngineAlreadyRunning
	}
	e.running = true
	e.done = make(chan struct{})
	e.mu.Unlock()

	zap.S().Info("starting synchronization engine")
	go e.run(ctx)
	return nil
}

// Stop shuts the run goroutine down and waits for it to exit. Every
// poll timer dies with it; in-flight fetches resolve into a closed
// drain and are discarded.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrEngineNotRunning
	}
	e.running = false
	done := e.done
	e.mu.Unlock()

	select {
	case <-e.shutdownCh:
	default:
		close(e.shutdownCh)
	}
	<-done

	zap.S().Info("synchronization engine stopped")
	return nil
}

// BindSession gates the camera and emotion polls on. Also triggers an
// immediate fetch of both so the view fills without waiting a tick.
func (e *Engine) BindSession() {
	select {
	case e.bindCh <- true:
	default:
	}
}

// UnbindSession gates the camera and emotion polls off.
func (e *Engine) UnbindSession() {
	select {
	case e.bindCh <- false:
	default:
	}
}

// Invalidate maps a push notification onto an immediate out-of-band
// fetch of the corresponding resource. Unknown types are ignored.
func (e *Engine) Invalidate(notificationType string) {
	var r resource
	switch notificationType {
	case types.NotificationSessionUpdate:
		r = resourceSessions
	case types.NotificationCameraUpdate:
		r = resourceCamera
	case types.NotificationEmotionUpdate:
		r = resourceEmotion
	default:
		zap.S().Debugw("ignoring invalidation for unknown type", "type", notificationType)
		return
	}

	select {
	case e.invalidateCh <- r:
	default:
		// A full queue means a fetch of this resource is already pending.
	}
}

// HandleChannelLoss is wired as the push channel's closed callback.
// Notifications may have been dropped, so every resource is refetched
// once; from here on the poll cadences carry the view.
func (e *Engine) HandleChannelLoss(err error) {
	if err == nil {
		return // deliberate close during unmount, nothing to refresh
	}
	select {
	case e.channelLossCh <- err:
	default:
	}
}

// run is the single goroutine that owns all timers and all state
// application.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	sessionTicker := time.NewTicker(e.intervals.SessionList)
	cameraTicker := time.NewTicker(e.intervals.Camera)
	emotionTicker := time.NewTicker(e.intervals.Emotion)
	defer sessionTicker.Stop()
	defer cameraTicker.Stop()
	defer emotionTicker.Stop()

	var bound bool
	var nextSeq [resourceCount]uint64
	var lastApplied [resourceCount]uint64

	issue := func(r resource) {
		nextSeq[r]++
		seq := nextSeq[r]
		go e.fetch(ctx, r, seq)
	}

	// Populate the session list immediately on mount.
	issue(resourceSessions)

	for {
		select {
		case <-sessionTicker.C:
			issue(resourceSessions)

		case <-cameraTicker.C:
			if bound {
				issue(resourceCamera)
			}

		case <-emotionTicker.C:
			if bound {
				issue(resourceEmotion)
			}

		case r := <-e.invalidateCh:
			// Session-list invalidations always apply; camera and
			// emotion are only meaningful while a session is bound.
			if r == resourceSessions || bound {
				issue(r)
			}

		case nowBound := <-e.bindCh:
			if nowBound && !bound {
				issue(resourceCamera)
				issue(resourceEmotion)
			}
			bound = nowBound

		case err := <-e.channelLossCh:
			zap.S().Warnw("push channel lost, forcing full refresh", "error", err)
			e.listener.OnChannelDown(err)
			issue(resourceSessions)
			if bound {
				issue(resourceCamera)
				issue(resourceEmotion)
			}

		case result := <-e.resultCh:
			e.apply(result, &lastApplied)

		case <-e.shutdownCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

// fetch executes one fetch off the run goroutine and funnels the tagged
// result back. The emotion fetch falls back to the aggregate endpoint
// so a primary failure degrades to slightly coarser data, not an error.
func (e *Engine) fetch(ctx context.Context, r resource, seq uint64) {
	result := fetchResult{resource: r, seq: seq}

	switch r {
	case resourceSessions:
		result.sessions, result.err = e.backend.ListActiveSessions(ctx)

	case resourceCamera:
		var status *types.CameraStatus
		status, result.err = e.backend.CameraStatus(ctx)
		if result.err == nil {
			result.camera = status.Active
		}

	case resourceEmotion:
		result.snapshot, result.err = e.backend.EmotionSnapshot(ctx)
		if result.err != nil {
			zap.S().Debugw("emotion snapshot failed, trying distribution fallback", "error", result.err)
			result.snapshot, result.err = e.backend.EmotionDistribution(ctx)
		}
	}

	select {
	case e.resultCh <- result:
	case <-e.shutdownCh:
	case <-ctx.Done():
	}
}

// apply commits one fetch result. Transport errors are swallowed (the
// next tick retries naturally); results older than the last applied
// for the same resource are dropped silently.
func (e *Engine) apply(result fetchResult, lastApplied *[resourceCount]uint64) {
	if result.err != nil {
		zap.S().Debugw("poll fetch failed",
			"resource", result.resource.String(), "error", result.err)
		return
	}

	if result.seq <= lastApplied[result.resource] {
		zap.S().Debugw("dropping stale fetch result",
			"resource", result.resource.String(),
			"seq", result.seq,
			"lastApplied", lastApplied[result.resource])
		return
	}
	lastApplied[result.resource] = result.seq

	switch result.resource {
	case resourceSessions:
		e.listener.OnSessions(result.sessions)
	case resourceCamera:
		e.listener.OnCamera(result.camera)
	case resourceEmotion:
		e.listener.OnEmotion(result.snapshot)
	}
}
