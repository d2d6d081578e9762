package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalAfterActivity(t *testing.T) {
	c := NewController(60)
	now := time.Now()

	c.RecordActivity(now)

	// Inside the active window the ceiling interval applies.
	assert.Equal(t, time.Second/60, c.Interval(now.Add(100*time.Millisecond)))

	// After the active window but before decay, the elevated cadence.
	assert.Equal(t, recentInterval, c.Interval(now.Add(time.Second)))

	// Once activity is stale the idle cadence applies.
	assert.Equal(t, idleInterval, c.Interval(now.Add(5*time.Second)))
}

func TestIntervalWithoutDevice(t *testing.T) {
	c := NewController(60)
	c.SetLive(false)
	now := time.Now()

	assert.Equal(t, noLiveInterval, c.Interval(now))

	// Activity still raises the cadence even without a device.
	c.RecordActivity(now)
	assert.Equal(t, time.Second/60, c.Interval(now.Add(100*time.Millisecond)))
}

func TestCeilingAlwaysWins(t *testing.T) {
	c := NewController(5) // 200ms floor
	now := time.Now()

	c.RecordActivity(now)
	assert.Equal(t, 200*time.Millisecond, c.Interval(now))

	// Even the recent cadence cannot exceed the configured ceiling.
	assert.Equal(t, 200*time.Millisecond, c.Interval(now.Add(time.Second)))
}

func TestShouldProceedAndDelay(t *testing.T) {
	c := NewController(30)
	now := time.Now()

	// First frame always proceeds.
	assert.True(t, c.ShouldProceed(now))
	assert.Equal(t, time.Duration(0), c.Delay(now))

	c.MarkFrame(now)
	assert.False(t, c.ShouldProceed(now.Add(10*time.Millisecond)))
	assert.True(t, c.ShouldProceed(now.Add(idleInterval)))

	// Delay never drops below the yield floor.
	d := c.Delay(now.Add(idleInterval))
	assert.Equal(t, time.Millisecond, d)

	d = c.Delay(now.Add(10 * time.Millisecond))
	assert.Equal(t, idleInterval-10*time.Millisecond, d)
}

func TestDefaultCeiling(t *testing.T) {
	c := NewController(0)
	assert.Equal(t, time.Second/30, c.ceiling)
}
