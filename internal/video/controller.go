package video

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"classwatch/pkg/interfaces"
	"classwatch/pkg/types"
)

// Controller owns the live video feed: camera activation commands, the
// cache-busting stream epoch, and the display-mode state. Camera state
// is authoritative only from backend responses; render failures never
// change it.
type Controller struct {
	backend       interfaces.Backend
	presenter     interfaces.FullscreenPresenter
	epochInterval time.Duration
	onError       func(err error)
	epochNow      func() int64

	mu            sync.Mutex
	cameraActive  bool
	display       types.VideoDisplayState
	cancelRefresh context.CancelFunc
	refreshDone   chan struct{}
}

// NewController creates a controller with the camera off and the
// display in its defaults. onError receives recoverable, user-visible
// failures. The controller resynchronizes its size mode whenever the
// presenter reports an externally triggered presentation change.
func NewController(backend interfaces.Backend, presenter interfaces.FullscreenPresenter, epochInterval time.Duration, onError func(error)) *Controller {
	c := &Controller{
		backend:       backend,
		presenter:     presenter,
		epochInterval: epochInterval,
		onError:       onError,
		epochNow:      func() int64 { return time.Now().UnixMilli() },
		display: types.VideoDisplayState{
			SizeMode:    types.SizeNormal,
			FitMode:     types.FitContain,
			SizePercent: types.SizeAuto,
		},
	}
	if presenter != nil {
		presenter.Subscribe(c.handlePresentationChange)
	}
	return c
}

// SetEpochNowFunc overrides the epoch source. Test hook.
func (c *Controller) SetEpochNowFunc(now func() int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epochNow = now
}

// StartCamera issues the activation command. On success the stream
// epoch is refreshed, Loading is raised for the first load, and the
// keep-alive refresh loop starts. On failure nothing changes.
func (c *Controller) StartCamera(ctx context.Context) error {
	if err := c.backend.StartCamera(ctx); err != nil {
		c.reportError(err)
		return err
	}
	c.activate()
	return nil
}

// StopCamera issues the deactivation command. On failure cameraActive
// is left as is; the status poll remains the authority.
func (c *Controller) StopCamera(ctx context.Context) error {
	if err := c.backend.StopCamera(ctx); err != nil {
		c.reportError(err)
		return err
	}
	c.deactivate()
	return nil
}

// SetCameraActive applies the authoritative state from the status
// poll. A transition to active behaves like a successful StartCamera
// (another client may have switched the camera on); a transition to
// inactive tears the refresh loop down.
func (c *Controller) SetCameraActive(active bool) {
	c.mu.Lock()
	current := c.cameraActive
	c.mu.Unlock()

	if current == active {
		return
	}
	if active {
		c.activate()
	} else {
		c.deactivate()
	}
}

// CameraActive reports the current camera state.
func (c *Controller) CameraActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cameraActive
}

// StreamURL returns the cache-busted stream resource URL, or "" while
// the camera is off (nothing should be rendered then).
func (c *Controller) StreamURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cameraActive {
		return ""
	}
	return c.backend.StreamURL(c.display.StreamEpoch)
}

// DisplayState returns a copy of the current display state.
func (c *Controller) DisplayState() types.VideoDisplayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// HandleStreamLoaded clears the first-load indicator.
func (c *Controller) HandleStreamLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.Loading = false
}

// HandleStreamError surfaces a render failure. A transient render
// problem is not evidence the camera stopped, so camera state is left
// untouched.
func (c *Controller) HandleStreamError(err error) {
	c.mu.Lock()
	c.display.Loading = false
	c.mu.Unlock()

	zap.S().Warnw("stream render failed", "error", err)
	c.reportError(ErrStreamRender)
}

// ToggleCinema flips between normal and large. A fullscreen view is
// left alone; the fullscreen toggle owns that transition.
func (c *Controller) ToggleCinema() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.display.SizeMode {
	case types.SizeNormal:
		c.display.SizeMode = types.SizeLarge
	case types.SizeLarge:
		c.display.SizeMode = types.SizeNormal
	}
}

// EnterFullscreen requests platform fullscreen and records the mode
// only after the presenter accepted.
func (c *Controller) EnterFullscreen() error {
	if err := c.presenter.Enter(); err != nil {
		c.reportError(err)
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.SizeMode = types.SizeFullscreen
	return nil
}

// ExitFullscreen leaves platform fullscreen and returns to normal.
func (c *Controller) ExitFullscreen() error {
	if err := c.presenter.Exit(); err != nil {
		c.reportError(err)
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.SizeMode = types.SizeNormal
	return nil
}

// ToggleFullscreen enters or exits depending on the current mode.
func (c *Controller) ToggleFullscreen() error {
	c.mu.Lock()
	fullscreen := c.display.SizeMode == types.SizeFullscreen
	c.mu.Unlock()

	if fullscreen {
		return c.ExitFullscreen()
	}
	return c.EnterFullscreen()
}

// handlePresentationChange resynchronizes the size mode with the
// platform's actual presentation. An external exit (escape key,
// platform gesture) must land on normal; the displayed mode never
// disagrees with reality.
func (c *Controller) handlePresentationChange(fullscreen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !fullscreen && c.display.SizeMode == types.SizeFullscreen {
		c.display.SizeMode = types.SizeNormal
	} else if fullscreen && c.display.SizeMode != types.SizeFullscreen {
		c.display.SizeMode = types.SizeFullscreen
	}
}

// SetFitMode updates the cosmetic fit mode. Independent of size mode;
// never sent to the backend.
func (c *Controller) SetFitMode(mode types.FitMode) error {
	switch mode {
	case types.FitContain, types.FitCover, types.FitFill, types.FitScaleDown, types.FitNone:
	default:
		return types.ErrInvalidFitMode
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.FitMode = mode
	return nil
}

// SetSizePercent updates the cosmetic size percent.
func (c *Controller) SetSizePercent(size types.SizePercent) error {
	switch size {
	case types.SizeAuto, types.Size25, types.Size50, types.Size75, types.Size100:
	default:
		return types.ErrInvalidSizePercent
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.SizePercent = size
	return nil
}

// Close stops the refresh loop. Called on view unmount.
func (c *Controller) Close() {
	c.stopRefresh()
}

// activate flips the camera on: new epoch, Loading raised for the
// first load only, refresh loop started.
func (c *Controller) activate() {
	c.mu.Lock()
	c.cameraActive = true
	c.bumpEpochLocked()
	c.display.Loading = true
	c.mu.Unlock()

	c.startRefresh()
}

func (c *Controller) deactivate() {
	c.mu.Lock()
	c.cameraActive = false
	c.display.Loading = false
	c.mu.Unlock()

	c.stopRefresh()
}

// startRefresh begins the keep-alive loop: the epoch is refreshed on a
// fixed cadence while active so the underlying connection never goes
// idle. Routine refreshes must not raise Loading — that would flash
// the view once per cadence.
func (c *Controller) startRefresh() {
	c.stopRefresh()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.cancelRefresh = cancel
	c.refreshDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.epochInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				if c.cameraActive {
					c.bumpEpochLocked()
				}
				c.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Controller) stopRefresh() {
	c.mu.Lock()
	cancel := c.cancelRefresh
	done := c.refreshDone
	c.cancelRefresh = nil
	c.refreshDone = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// bumpEpochLocked advances the stream epoch monotonically even when
// the wall clock reports the same millisecond twice.
func (c *Controller) bumpEpochLocked() {
	epoch := c.epochNow()
	if epoch <= c.display.StreamEpoch {
		epoch = c.display.StreamEpoch + 1
	}
	c.display.StreamEpoch = epoch
}

func (c *Controller) reportError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}
