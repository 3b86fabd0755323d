package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tvcore/internal/config"
	"tvcore/internal/logging"
	"tvcore/internal/manager"
	"tvcore/internal/metrics"
	"tvcore/internal/middleware"
	"tvcore/internal/notifications"
	"tvcore/internal/preflight"
	"tvcore/internal/readiness"
	"tvcore/internal/services"
	"tvcore/internal/store"
)

// Options carries the collaborators the daemon wires into the manager.
// Notifier and Metrics are created when nil.
type Options struct {
	Binding  middleware.Binding
	Store    *store.Store
	Notifier *notifications.Hub
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Daemon coordinates the control plane and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	binding  middleware.Binding
	store    *store.Store
	notifier *notifications.Hub
	metrics  *metrics.Metrics

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	api     *apiServer
	hotplug *hotplugMonitor

	mu      sync.Mutex
	gate    *readiness.Gate[*manager.Manager]
	mgr     *manager.Manager
	lastErr error
	started time.Time
	checks  []preflight.Result
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool               `json:"running"`
	PID             int                `json:"pid"`
	StartedAt       time.Time          `json:"started_at,omitzero"`
	Middleware      string             `json:"middleware"`
	MiddlewareError string             `json:"middleware_error,omitempty"`
	LockPath        string             `json:"lock_path"`
	DatabasePath    string             `json:"database_path"`
	APIAddress      string             `json:"api_address,omitempty"`
	Hotplug         bool               `json:"hotplug"`
	PushEnabled     bool               `json:"push_enabled"`
	Preflight       []preflight.Result `json:"preflight,omitempty"`
	Control         *manager.Status    `json:"control,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil || opts.Store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if opts.Binding.Ready == nil && cfg.Middleware.ReadyProperty == "" {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "new", "no readiness signal: set middleware.ready_property or use a binding with one", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewHub(cfg.Notifications, logger)
	}
	met := opts.Metrics
	if met == nil {
		met = metrics.New()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		binding:  opts.Binding,
		store:    opts.Store,
		notifier: notifier,
		metrics:  met,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

func (d *Daemon) readySignal() readiness.Signal {
	if d.cfg.Middleware.ReadyProperty != "" {
		return readiness.PropertyFile(d.cfg.Middleware.ReadyProperty)
	}
	return d.binding.Ready
}

// Start acquires the daemon lock, starts the API server and hotplug monitor,
// and begins waiting for the middleware in the background.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tvcore daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	checks := preflight.RunAll(runCtx, d.cfg)
	for _, failed := range preflight.Failed(checks) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "fix the path or permissions and restart the daemon"),
			logging.String(logging.FieldImpact, "dependent features may not work"),
		)
	}

	gate := readiness.NewGate(d.readySignal(), d.buildManager(runCtx), readiness.Options{
		Interval: time.Duration(d.cfg.Middleware.PollIntervalMillis) * time.Millisecond,
		Cycles:   d.cfg.Middleware.PollCycles,
		Logger:   d.logger,
	})

	d.mu.Lock()
	d.gate = gate
	d.mgr = nil
	d.lastErr = nil
	d.started = time.Now()
	d.checks = checks
	d.mu.Unlock()
	d.metrics.SetMiddlewareReady(false)

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	if err := api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.api = api

	d.hotplug = newHotplugMonitor(d.cfg, d.logger, d.onHardwareChange)
	if err := d.hotplug.Start(runCtx); err != nil {
		d.logger.Debug("hotplug monitor not started", logging.Error(err))
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.warmup(runCtx, gate)
	}()

	d.running.Store(true)
	d.logger.Info("tvcore daemon started", logging.String("lock", d.lockPath))
	return nil
}

// buildManager returns the gate's build step. A manager finished after the
// daemon stopped is closed instead of published.
func (d *Daemon) buildManager(runCtx context.Context) func(context.Context) (*manager.Manager, error) {
	return func(context.Context) (*manager.Manager, error) {
		if runCtx.Err() != nil {
			return nil, services.Wrap(services.ErrNotReady, "daemon", "build manager", "daemon stopped", runCtx.Err())
		}
		mgr, err := manager.New(runCtx, manager.Deps{
			Config:   d.cfg,
			Binding:  d.binding,
			Store:    d.store,
			Notifier: d.notifier,
			Metrics:  d.metrics,
			Logger:   d.logger,
		})
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		if runCtx.Err() != nil {
			mgr.Close()
			return nil, services.Wrap(services.ErrNotReady, "daemon", "build manager", "daemon stopped", runCtx.Err())
		}
		d.mgr = mgr
		d.lastErr = nil
		d.metrics.SetMiddlewareReady(true)
		return mgr, nil
	}
}

// warmup waits for the gate until it succeeds, fails permanently, or the
// daemon stops. A timeout is reported once and the wait continues.
func (d *Daemon) warmup(ctx context.Context, gate *readiness.Gate[*manager.Manager]) {
	wait := time.Duration(d.cfg.Middleware.WaitTimeoutSeconds) * time.Second
	notified := false
	for {
		_, err := gate.AwaitTimeout(ctx, wait)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			d.logger.Info("control plane available",
				logging.String(logging.FieldEventType, "control_plane_ready"))
			return
		}
		d.setLastErr(err)
		if !errors.Is(err, services.ErrTimedOut) {
			logging.ErrorWithContext(d.logger, "control plane construction failed", "control_plane_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check middleware logs and restart the daemon"),
			)
			return
		}
		logging.WarnWithContext(d.logger, "middleware not ready; still waiting", "middleware_wait_timeout",
			logging.Duration("wait", wait),
			logging.String(logging.FieldErrorHint, "check that the middleware process is running"),
			logging.String(logging.FieldImpact, "tuning, scanning, and EPG unavailable"),
		)
		if !notified {
			notified = true
			_ = d.notifier.Publish(ctx, notifications.Event{
				Type:   notifications.EventMiddlewareTimeout,
				Detail: fmt.Sprintf("no ready signal within %s", wait),
			})
		}
	}
}

// setLastErr records a readiness failure. It is a no-op once the manager
// exists, since a late timeout from an earlier wait is stale.
func (d *Daemon) setLastErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mgr != nil {
		return
	}
	d.lastErr = err
}

func (d *Daemon) onHardwareChange(ctx context.Context, detail string) {
	_ = d.notifier.Publish(ctx, notifications.Event{
		Type:   notifications.EventHardwareChanged,
		Detail: detail,
	})
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.hotplug.Stop()
	d.api.stop()

	d.mu.Lock()
	mgr := d.mgr
	d.mgr = nil
	d.mu.Unlock()
	if mgr != nil {
		mgr.Close()
	}

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start fails"),
		)
	}
	d.metrics.SetMiddlewareReady(false)
	d.running.Store(false)
	d.logger.Info("tvcore daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Manager returns the control plane, or services.ErrNotReady while the
// middleware has not been admitted by the readiness gate.
func (d *Daemon) Manager() (*manager.Manager, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mgr != nil {
		return d.mgr, nil
	}
	state := "stopped"
	if d.gate != nil && d.running.Load() {
		state = d.gate.State().String()
	}
	return nil, services.Wrap(services.ErrNotReady, "daemon", "manager", "middleware "+state, d.lastErr)
}

// AwaitManager blocks until the control plane is built or ctx ends.
func (d *Daemon) AwaitManager(ctx context.Context) (*manager.Manager, error) {
	d.mu.Lock()
	gate := d.gate
	d.mu.Unlock()
	if gate == nil || !d.running.Load() {
		return nil, services.Wrap(services.ErrNotReady, "daemon", "await manager", "daemon not running", nil)
	}
	return gate.Await(ctx)
}

// Metrics returns the daemon's metric set.
func (d *Daemon) Metrics() *metrics.Metrics {
	return d.metrics
}

// Store returns the persistence layer.
func (d *Daemon) Store() *store.Store {
	return d.store
}

// LogPath returns the JSON log file written by the daemon, if any.
func (d *Daemon) LogPath() string {
	return d.cfg.LogPath()
}

// Notifier returns the notification hub.
func (d *Daemon) Notifier() *notifications.Hub {
	return d.notifier
}

// TestNotification publishes a test event through the hub.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if !d.notifier.PushEnabled() {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Test(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	st := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.started,
		Middleware:   "stopped",
		LockPath:     d.lockPath,
		DatabasePath: d.store.Path(),
		Hotplug:      d.hotplug.Running(),
		PushEnabled:  d.notifier.PushEnabled(),
		Preflight:    d.checks,
	}
	if d.gate != nil && st.Running {
		st.Middleware = d.gate.State().String()
	}
	if d.lastErr != nil {
		st.MiddlewareError = d.lastErr.Error()
	}
	mgr := d.mgr
	d.mu.Unlock()

	if d.api != nil {
		st.APIAddress = d.api.address()
	}
	if mgr != nil {
		control := mgr.Status()
		st.Control = &control
	}
	return st
}
