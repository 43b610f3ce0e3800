package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClock_StartStop(t *testing.T) {
	c := NewManualClock()
	assert.False(t, c.Armed())

	c.Start()
	c.Start()
	assert.True(t, c.Armed())

	c.Stop()
	assert.False(t, c.Armed())
}

func TestTickerClock_DeliversTicksWhileArmed(t *testing.T) {
	c := NewTickerClock(5 * time.Millisecond)
	c.Start()
	defer c.Stop()

	select {
	case tick := <-c.Ticks():
		assert.True(t, c.Current(tick))
	case <-time.After(time.Second):
		t.Fatal("expected a tick")
	}
}

func TestTickerClock_StartIsIdempotent(t *testing.T) {
	c := NewTickerClock(5 * time.Millisecond)
	c.Start()
	defer c.Stop()

	tick := <-c.Ticks()
	c.Start()
	assert.True(t, c.Current(tick), "second Start must not open a new generation")
}

func TestTickerClock_StopInvalidatesPendingTick(t *testing.T) {
	c := NewTickerClock(5 * time.Millisecond)
	c.Start()

	// Let a tick land in the buffer, then stop without consuming it.
	require.Eventually(t, func() bool { return len(c.Ticks()) == 1 }, time.Second, time.Millisecond)
	c.Stop()
	assert.False(t, c.Armed())

	tick := <-c.Ticks()
	assert.False(t, c.Current(tick), "tick scheduled before Stop must be rejected")
}

func TestTickerClock_RestartRejectsOldGeneration(t *testing.T) {
	c := NewTickerClock(5 * time.Millisecond)
	c.Start()
	require.Eventually(t, func() bool { return len(c.Ticks()) == 1 }, time.Second, time.Millisecond)
	c.Stop()
	c.Start()
	defer c.Stop()

	stale := <-c.Ticks()
	assert.False(t, c.Current(stale))

	deadline := time.After(time.Second)
	for {
		select {
		case tick := <-c.Ticks():
			if c.Current(tick) {
				return
			}
		case <-deadline:
			t.Fatal("expected a tick from the new generation")
		}
	}
}

func TestTickerClock_NoTicksWhileDisarmed(t *testing.T) {
	c := NewTickerClock(5 * time.Millisecond)

	select {
	case <-c.Ticks():
		t.Fatal("disarmed clock must not tick")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestNewTickerClock_DefaultInterval(t *testing.T) {
	c := NewTickerClock(0)
	assert.Equal(t, time.Second, c.interval)
}
