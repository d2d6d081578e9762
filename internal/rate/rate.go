// Package rate paces the capture loop. The controller enforces a
// configured FPS ceiling and adapts the cadence to recent activity:
// parameter scrubbing gets the full ceiling, a quiet pipeline drops to
// an idle rate, and a pipeline with no live device drops further still.
package rate

import (
	"sync"
	"time"
)

const (
	// activeWindow is how long after a style/parameter change the
	// controller keeps running at the full ceiling.
	activeWindow = 500 * time.Millisecond

	// recentWindow is the tail period after activity during which the
	// cadence stays elevated before decaying to idle.
	recentWindow = 2 * time.Second

	recentInterval = 33 * time.Millisecond  // ~30 FPS
	idleInterval   = 100 * time.Millisecond // 10 FPS
	noLiveInterval = 200 * time.Millisecond // 5 FPS, synthetic source only
)

// Controller decides when the worker loop may process the next frame.
// Safe for concurrent use; RecordActivity is called from control
// goroutines while ShouldProceed/MarkFrame run on the worker.
type Controller struct {
	mu           sync.Mutex
	ceiling      time.Duration // minimum interval derived from max FPS
	lastFrame    time.Time
	lastActivity time.Time
	live         bool
}

// NewController creates a controller with the given FPS ceiling. A
// non-positive ceiling defaults to 30 FPS.
func NewController(maxFPS int) *Controller {
	if maxFPS <= 0 {
		maxFPS = 30
	}
	return &Controller{
		ceiling: time.Second / time.Duration(maxFPS),
		live:    true,
	}
}

// RecordActivity notes a style or parameter change so the next frames
// run at the responsive cadence.
func (c *Controller) RecordActivity(now time.Time) {
	c.mu.Lock()
	c.lastActivity = now
	c.mu.Unlock()
}

// SetLive tells the controller whether a real capture device is
// feeding the pipeline. Synthetic-only operation is paced slower.
func (c *Controller) SetLive(live bool) {
	c.mu.Lock()
	c.live = live
	c.mu.Unlock()
}

// Interval returns the current target interval between frames.
func (c *Controller) Interval(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intervalLocked(now)
}

func (c *Controller) intervalLocked(now time.Time) time.Duration {
	sinceActivity := now.Sub(c.lastActivity)

	var interval time.Duration
	switch {
	case !c.lastActivity.IsZero() && sinceActivity < activeWindow:
		interval = c.ceiling
	case !c.lastActivity.IsZero() && sinceActivity < recentWindow:
		interval = recentInterval
	case c.live:
		interval = idleInterval
	default:
		interval = noLiveInterval
	}

	// The ceiling always wins: never run faster than configured.
	if interval < c.ceiling {
		interval = c.ceiling
	}
	return interval
}

// ShouldProceed reports whether enough time has passed since the last
// frame for the next one to be processed.
func (c *Controller) ShouldProceed(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastFrame.IsZero() {
		return true
	}
	return now.Sub(c.lastFrame) >= c.intervalLocked(now)
}

// MarkFrame records that a frame was just processed.
func (c *Controller) MarkFrame(now time.Time) {
	c.mu.Lock()
	c.lastFrame = now
	c.mu.Unlock()
}

// Delay returns how long the worker should sleep before re-checking
// ShouldProceed. Bounded below so a spinning loop still yields.
func (c *Controller) Delay(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastFrame.IsZero() {
		return 0
	}
	remaining := c.intervalLocked(now) - now.Sub(c.lastFrame)
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}
	return remaining
}
