package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tvcore/internal/logging"
	"tvcore/internal/services"
)

// State is the gate lifecycle.
type State int

const (
	StateUnknown State = iota
	StatePolling
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StatePolling:
		return "polling"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Signal reports whether the middleware has finished booting.
type Signal interface {
	Ready(ctx context.Context) (bool, error)
}

// SignalFunc adapts a function to Signal.
type SignalFunc func(ctx context.Context) (bool, error)

func (f SignalFunc) Ready(ctx context.Context) (bool, error) { return f(ctx) }

// Options tunes polling. Zero values fall back to one check per second for
// ten cycles.
type Options struct {
	Interval time.Duration
	Cycles   int
	Logger   *slog.Logger
}

type outcome[T any] struct {
	value T
	err   error
}

// Gate admits waiters once the readiness signal is observed and hands each of
// them the value produced by build.
type Gate[T any] struct {
	signal   Signal
	build    func(ctx context.Context) (T, error)
	interval time.Duration
	cycles   int
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	value   T
	err     error
	waiters []chan outcome[T]
}

// NewGate constructs a gate. build runs once, on the poller goroutine, after
// the signal reports ready.
func NewGate[T any](signal Signal, build func(ctx context.Context) (T, error), opts Options) *Gate[T] {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Cycles <= 0 {
		opts.Cycles = 10
	}
	return &Gate[T]{
		signal:   signal,
		build:    build,
		interval: opts.Interval,
		cycles:   opts.Cycles,
		logger:   logging.NewComponentLogger(opts.Logger, "readiness"),
	}
}

// State returns the current lifecycle state.
func (g *Gate[T]) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Await blocks until the gate is ready, the poll budget runs out, or ctx is
// done. The poller is started by the first caller and is not tied to any
// caller's context.
func (g *Gate[T]) Await(ctx context.Context) (T, error) {
	g.mu.Lock()
	switch g.state {
	case StateReady:
		value := g.value
		g.mu.Unlock()
		return value, nil
	case StateFailed:
		err := g.err
		g.mu.Unlock()
		var zero T
		return zero, err
	}
	ch := make(chan outcome[T], 1)
	g.waiters = append(g.waiters, ch)
	if g.state == StateUnknown {
		g.state = StatePolling
		go g.poll()
	}
	g.mu.Unlock()

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		g.drop(ch)
		var zero T
		return zero, services.Wrap(services.ErrTimedOut, "readiness", "await", "caller deadline reached before middleware was ready", ctx.Err())
	}
}

// AwaitTimeout is Await with a deadline relative to now.
func (g *Gate[T]) AwaitTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	if timeout <= 0 {
		return g.Await(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.Await(ctx)
}

func (g *Gate[T]) drop(ch chan outcome[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, w := range g.waiters {
		if w == ch {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
			return
		}
	}
}

func (g *Gate[T]) poll() {
	ctx := context.Background()
	ready := false
	for attempt := 0; attempt <= g.cycles; attempt++ {
		ok, err := g.signal.Ready(ctx)
		if err != nil {
			g.logger.Debug("readiness check failed", logging.Int("attempt", attempt), logging.Error(err))
		}
		if ok {
			ready = true
			break
		}
		if attempt < g.cycles {
			time.Sleep(g.interval)
		}
	}

	if !ready {
		err := services.Wrap(services.ErrTimedOut, "readiness", "poll",
			fmt.Sprintf("middleware not ready after %d checks", g.cycles+1), nil)
		g.mu.Lock()
		waiters := g.waiters
		g.waiters = nil
		g.state = StateUnknown
		g.mu.Unlock()
		logging.WarnWithContext(g.logger, "middleware did not report ready", "readiness_timeout",
			logging.Int("waiters", len(waiters)),
			logging.String(logging.FieldErrorHint, "check that the middleware process is running"),
			logging.String(logging.FieldImpact, "tuning and scanning unavailable until a later attempt succeeds"),
		)
		release(waiters, outcome[T]{err: err})
		return
	}

	value, err := g.build(ctx)

	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	if err != nil {
		g.state = StateFailed
		g.err = err
	} else {
		g.state = StateReady
		g.value = value
	}
	g.mu.Unlock()

	if err != nil {
		logging.ErrorWithContext(g.logger, "middleware manager construction failed", "readiness_build_failed",
			logging.Error(err), logging.Int("waiters", len(waiters)))
	} else {
		g.logger.Info("middleware ready", logging.Int("released_waiters", len(waiters)))
	}
	release(waiters, outcome[T]{value: value, err: err})
}

func release[T any](waiters []chan outcome[T], res outcome[T]) {
	for _, ch := range waiters {
		ch <- res
	}
}
