// Package runner hosts a timer.Controller on a single goroutine.
//
// The controller is not reentrant and not safe for concurrent use. Runner is
// the cooperative execution context it needs: requests from the TUI, the HTTP
// API and the MCP server are queued and executed one at a time on the run
// loop, interleaved with ticks from a timer.TickerClock. Each request runs to
// completion before the next request or tick is looked at.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/pomo/internal/timer"
)

// ErrStopped is returned by requests made after the run loop has exited.
var ErrStopped = errors.New("runner stopped")

type request struct {
	fn    func(ctx context.Context, c *timer.Controller) error
	reply chan error
}

// Runner owns a controller and its clock.
type Runner struct {
	ctrl   *timer.Controller
	clock  *timer.TickerClock
	logger *slog.Logger

	reqs    chan request
	done    chan struct{}
	started chan struct{}
	once    sync.Once

	mu     sync.Mutex
	subs   map[uint64]chan timer.Event
	nextID uint64
}

type options struct {
	interval time.Duration
	logger   *slog.Logger
	ctrlOpts []timer.Option
}

// Option configures a Runner.
type Option func(*options)

// WithTickInterval overrides the one-second tick interval. Tests use it to run
// whole phases in milliseconds.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithLogger sets the logger for the runner and its controller.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithControllerOptions passes options through to timer.New.
func WithControllerOptions(opts ...timer.Option) Option {
	return func(o *options) { o.ctrlOpts = append(o.ctrlOpts, opts...) }
}

// New creates a runner with an Idle controller. Call Run to start the loop.
func New(cfg timer.Config, log timer.SessionLog, opts ...Option) (*Runner, error) {
	o := options{interval: time.Second, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	clock := timer.NewTickerClock(o.interval)
	ctrlOpts := append([]timer.Option{timer.WithLogger(o.logger)}, o.ctrlOpts...)
	ctrl, err := timer.New(cfg, clock, log, ctrlOpts...)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		ctrl:    ctrl,
		clock:   clock,
		logger:  o.logger,
		reqs:    make(chan request),
		done:    make(chan struct{}),
		started: make(chan struct{}),
		subs:    make(map[uint64]chan timer.Event),
	}
	ctrl.Subscribe(r.broadcast)
	return r, nil
}

// Run executes requests and ticks until ctx is cancelled. On exit the
// controller is reset, the clock disarmed and every subscriber channel closed.
// Run may only be called once.
func (r *Runner) Run(ctx context.Context) error {
	select {
	case <-r.started:
		return errors.New("runner already started")
	default:
	}
	close(r.started)

	defer r.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-r.reqs:
			req.reply <- req.fn(ctx, r.ctrl)
		case tick := <-r.clock.Ticks():
			if !r.clock.Current(tick) {
				continue
			}
			if err := r.ctrl.Tick(ctx); err != nil {
				r.logger.Warn("tick failed", "error", err)
			}
		}
	}
}

func (r *Runner) shutdown() {
	r.once.Do(func() {
		r.ctrl.Reset()
		close(r.done)

		r.mu.Lock()
		subs := r.subs
		r.subs = make(map[uint64]chan timer.Event)
		r.mu.Unlock()

		for _, ch := range subs {
			close(ch)
		}
	})
}

// Done is closed once the run loop has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// do runs fn on the loop goroutine and waits for its result.
func (r *Runner) do(ctx context.Context, fn func(ctx context.Context, c *timer.Controller) error) error {
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case r.reqs <- req:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-r.done:
		return ErrStopped
	}
}

// Start starts or resumes the timer.
func (r *Runner) Start(ctx context.Context) error {
	return r.do(ctx, func(_ context.Context, c *timer.Controller) error {
		return c.Start()
	})
}

// Pause pauses the running phase.
func (r *Runner) Pause(ctx context.Context) error {
	return r.do(ctx, func(_ context.Context, c *timer.Controller) error {
		return c.Pause()
	})
}

// Toggle starts the timer when it is idle or paused and pauses it when running.
func (r *Runner) Toggle(ctx context.Context) error {
	return r.do(ctx, func(_ context.Context, c *timer.Controller) error {
		if c.State().Running() {
			return c.Pause()
		}
		return c.Start()
	})
}

// Reset abandons the current phase.
func (r *Runner) Reset(ctx context.Context) error {
	return r.do(ctx, func(_ context.Context, c *timer.Controller) error {
		c.Reset()
		return nil
	})
}

// UpdateConfig replaces the durations; only valid while idle.
func (r *Runner) UpdateConfig(ctx context.Context, cfg timer.Config) error {
	return r.do(ctx, func(_ context.Context, c *timer.Controller) error {
		return c.UpdateConfig(cfg)
	})
}

// Snapshot returns the controller's current view.
func (r *Runner) Snapshot(ctx context.Context) (timer.Snapshot, error) {
	var snap timer.Snapshot
	err := r.do(ctx, func(_ context.Context, c *timer.Controller) error {
		snap = c.Snapshot()
		return nil
	})
	return snap, err
}

// Subscribe returns a channel receiving every controller event. Events are
// dropped for a subscriber whose buffer is full so a slow reader never stalls
// the timer. The channel is closed when unsubscribe is called or the runner
// stops.
func (r *Runner) Subscribe(buffer int) (<-chan timer.Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan timer.Event, buffer)

	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	r.nextID++
	id := r.nextID
	r.subs[id] = ch
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
}

// broadcast runs on the loop goroutine inside controller operations.
func (r *Runner) broadcast(e timer.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
