package manager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tvcore/internal/catalog"
	"tvcore/internal/config"
	"tvcore/internal/epg"
	"tvcore/internal/logging"
	"tvcore/internal/metrics"
	"tvcore/internal/middleware"
	"tvcore/internal/notifications"
	"tvcore/internal/routes"
	"tvcore/internal/scan"
	"tvcore/internal/services"
	"tvcore/internal/store"
	"tvcore/internal/tuning"
)

// Deps are the collaborators a Manager is built from. Notifier and Metrics
// are optional.
type Deps struct {
	Config   *config.Config
	Binding  middleware.Binding
	Store    *store.Store
	Notifier *notifications.Hub
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// Now replaces the wall clock for program lookups and EPG freshness.
	Now func() time.Time
}

// Manager is the owned aggregate of control-plane components.
type Manager struct {
	cfg     *config.Config
	binding middleware.Binding
	store   *store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	table   *routes.Table
	catalog *catalog.Catalog
	state   *tuning.ActiveRouteState
	tuner   *tuning.Tuner
	scanner *scan.Scanner
	worker  *epg.Worker

	unsubscribe []func()
	closeOnce   sync.Once
}

// New discovers routes, loads the catalog, and wires the tuner, scanner, and
// EPG worker to the middleware callbacks.
func New(ctx context.Context, deps Deps) (*Manager, error) {
	if deps.Config == nil || deps.Store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "manager", "new", "config and store are required", nil)
	}
	logger := logging.NewComponentLogger(deps.Logger, "manager")
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		cfg:     deps.Config,
		binding: deps.Binding,
		store:   deps.Store,
		metrics: deps.Metrics,
		logger:  logger,
		now:     now,
		state:   &tuning.ActiveRouteState{},
	}

	table, err := routes.Discover(ctx, deps.Binding.Routes, deps.Logger)
	if err != nil {
		return nil, err
	}
	m.table = table

	m.catalog = catalog.New(deps.Store, deps.Binding.Services, table, deps.Config.Channels, deps.Logger)
	if err := m.catalog.Init(ctx); err != nil {
		return nil, err
	}

	var tuneOpts []tuning.Option
	var scanOpts []scan.Option
	var epgOpts []epg.WorkerOption
	if m.metrics != nil {
		m.metrics.SetChannels(m.catalog.Size())
		tuneOpts = append(tuneOpts, tuning.WithObserver(m.metrics.ObserveTune))
		scanOpts = append(scanOpts, scan.WithObserver(func(status scan.Status) {
			m.metrics.ObserveScan(status)
			m.metrics.SetChannels(m.catalog.Size())
		}))
		epgOpts = append(epgOpts, epg.WithObserver(m.metrics.ObserveEPG))
	}
	tuneOpts = append(tuneOpts, tuning.WithClock(now))
	scanOpts = append(scanOpts, scan.WithClock(now))

	m.tuner = tuning.NewTuner(table, deps.Binding, m.state, deps.Config.Display, deps.Logger, tuneOpts...)

	var publisher scan.Publisher
	if deps.Notifier != nil {
		publisher = deps.Notifier
	}
	m.scanner = scan.New(table, deps.Binding, m.state, m.catalog, publisher, deps.Config.Scan, deps.Logger, scanOpts...)
	m.unsubscribe = append(m.unsubscribe, m.scanner.Listen())

	if deps.Config.EPG.Enabled {
		window := time.Duration(deps.Config.EPG.FreshnessWindowSeconds) * time.Second
		sched, err := epg.NewScheduler(ctx, deps.Store, window, epg.WithClock(now))
		if err != nil {
			m.Close()
			return nil, err
		}
		m.worker = epg.NewWorker(deps.Binding.EPG, sched, m.catalog, deps.Store, m.tuner, deps.Config.EPG, deps.Logger, epgOpts...)
		m.unsubscribe = append(m.unsubscribe, m.worker.Listen())
		m.worker.Start(context.WithoutCancel(ctx))
	}

	counts := table.Counts()
	logger.Info("control plane ready",
		logging.Int("frontends", counts.Frontends),
		logging.Int("live_routes", counts.Live),
		logging.Int("channels", m.catalog.Size()),
		logging.Bool("epg", m.worker != nil),
	)
	return m, nil
}

// Close stops the EPG worker, stops playback, and unregisters callbacks.
// It is safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.worker != nil {
			m.worker.Close()
		}
		if m.scanner != nil {
			_ = m.scanner.Stop(context.Background())
		}
		if m.tuner != nil && m.state.LiveRoute() != nil {
			m.tuner.Stop(context.Background())
		}
		for i := len(m.unsubscribe) - 1; i >= 0; i-- {
			m.unsubscribe[i]()
		}
		m.unsubscribe = nil
		m.logger.Info("control plane stopped")
	})
}

// Routes returns the discovered route table.
func (m *Manager) Routes() *routes.Table { return m.table }

// Catalog returns the channel catalog.
func (m *Manager) Catalog() *catalog.Catalog { return m.catalog }

// Tuner returns the tuner.
func (m *Manager) Tuner() *tuning.Tuner { return m.tuner }

// Scanner returns the scanner.
func (m *Manager) Scanner() *scan.Scanner { return m.scanner }

// EPG returns the EPG worker, or nil when acquisition is disabled.
func (m *Manager) EPG() *epg.Worker { return m.worker }

// Store returns the persistence layer.
func (m *Manager) Store() *store.Store { return m.store }
