package timer

import (
	"sync"
	"time"
)

// Clock is the one-second scheduling primitive the controller arms and disarms.
// It owns no business state; ticks are routed to Controller.Tick by whoever
// owns the execution context (see runner.Runner).
type Clock interface {
	// Start arms the clock. No-op if already armed.
	Start()
	// Stop disarms the clock. No tick may affect the controller after Stop returns.
	Stop()
}

// ManualClock is a Clock that never ticks on its own. Tests drive the controller
// by calling Controller.Tick while Armed reports true.
type ManualClock struct {
	armed bool
}

// NewManualClock returns a disarmed manual clock.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) Start() { c.armed = true }
func (c *ManualClock) Stop()  { c.armed = false }

// Armed reports whether the clock is currently armed.
func (c *ManualClock) Armed() bool { return c.armed }

// Tick is one elapsed interval from a TickerClock. Gen identifies the
// Start/Stop cycle that produced it.
type Tick struct {
	Gen uint64
	At  time.Time
}

// TickerClock delivers wall-clock ticks on a channel while armed.
//
// Each Start opens a new generation and each Stop closes it. A tick that was
// already in flight when Stop ran still carries the old generation, so the
// consumer drops it by checking Current.
type TickerClock struct {
	interval time.Duration

	mu   sync.Mutex
	gen  uint64
	stop chan struct{}

	ticks chan Tick
}

// NewTickerClock creates a disarmed clock ticking every interval (1s when <= 0).
func NewTickerClock(interval time.Duration) *TickerClock {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickerClock{
		interval: interval,
		ticks:    make(chan Tick, 1),
	}
}

// Start arms the clock.
func (c *TickerClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.gen++
	c.stop = make(chan struct{})
	go c.run(c.gen, c.stop)
}

// Stop disarms the clock and invalidates any tick already delivered.
func (c *TickerClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return
	}
	close(c.stop)
	c.stop = nil
	c.gen++
}

// Armed reports whether the clock is currently armed.
func (c *TickerClock) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// Ticks returns the channel ticks are delivered on.
func (c *TickerClock) Ticks() <-chan Tick {
	return c.ticks
}

// Current reports whether t belongs to the live generation of an armed clock.
func (c *TickerClock) Current(t Tick) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil && t.Gen == c.gen
}

func (c *TickerClock) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case at := <-ticker.C:
			select {
			case c.ticks <- Tick{Gen: gen, At: at}:
			case <-stop:
				return
			}
		}
	}
}
