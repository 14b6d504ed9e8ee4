package clock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ZeroDisplay is the reading shown whenever no session is bound.
const ZeroDisplay = "00:00:00"

// Clock is the session duration ticker. Every tick recomputes elapsed
// time from the absolute start instant, so an irregular timer (a
// throttled host, a missed tick) never accumulates drift.
type Clock struct {
	interval time.Duration
	now      func() time.Time
	onChange func(display string)

	mu      sync.Mutex
	display string
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stopped clock. onChange is invoked with the formatted
// display whenever the reading changes, including the reset on Stop.
func New(interval time.Duration, onChange func(display string)) *Clock {
	return &Clock{
		interval: interval,
		now:      time.Now,
		onChange: onChange,
		display:  ZeroDisplay,
	}
}

// SetNowFunc overrides the time source. Test hook.
func (c *Clock) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Start begins ticking against the given start instant. For a newly
// created session that is the creation instant; for an adopted session
// it is the record's original start time, so the display immediately
// shows the already-elapsed duration. A running clock is restarted.
func (c *Clock) Start(start time.Time) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		done := c.done
		c.mu.Unlock()
		<-done
		c.mu.Lock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.update(start)

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.update(start)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the ticker and resets the display to zero.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	c.setDisplay(ZeroDisplay)
}

// Display returns the current formatted reading.
func (c *Clock) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

func (c *Clock) update(start time.Time) {
	c.mu.Lock()
	now := c.now
	c.mu.Unlock()

	elapsed := now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	c.setDisplay(FormatElapsed(elapsed))
}

func (c *Clock) setDisplay(display string) {
	c.mu.Lock()
	changed := display != c.display
	c.display = display
	onChange := c.onChange
	c.mu.Unlock()

	if changed && onChange != nil {
		onChange(display)
	}
}

// FormatElapsed renders a duration as HH:MM:SS.
func FormatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
