package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tvcore/internal/config"
	"tvcore/internal/logging"
	"tvcore/internal/middleware"
	"tvcore/internal/notifications"
	"tvcore/internal/routes"
	"tvcore/internal/services"
	"tvcore/internal/tuning"
)

const refreshTimeout = 30 * time.Second

// Priority is the order in which technologies are considered for a scan.
var Priority = []routes.Technology{routes.Cable, routes.Terrestrial, routes.Satellite, routes.IPPrimary}

// Catalog is rebuilt once a scan completes.
type Catalog interface {
	Refresh(ctx context.Context, tech routes.Technology) error
	Size() int
}

// Publisher receives the "channel database updated" broadcast.
type Publisher interface {
	Publish(ctx context.Context, evt notifications.Event) error
}

// Observer is called once per scan with its terminal status.
type Observer func(Status)

// Option customizes a Scanner.
type Option func(*Scanner)

// WithObserver registers a callback for terminal scan status.
func WithObserver(observer Observer) Option {
	return func(s *Scanner) {
		s.observer = observer
	}
}

// WithClock replaces the wall clock used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// Scanner runs one scan at a time on the install route of the highest
// priority technology present.
type Scanner struct {
	table     *routes.Table
	routeCtl  middleware.RouteControl
	scanCtl   middleware.ScanControl
	state     *tuning.ActiveRouteState
	catalog   Catalog
	publisher Publisher
	satellite middleware.SatelliteParams
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time

	mu       sync.Mutex
	status   Status
	route    *routes.Route
	finished bool
	done     chan struct{}
}

// New builds a scanner. Call Listen to start receiving telemetry.
func New(table *routes.Table, binding middleware.Binding, state *tuning.ActiveRouteState, catalog Catalog, publisher Publisher, cfg config.Scan, logger *slog.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		table:     table,
		routeCtl:  binding.Routes,
		scanCtl:   binding.Scan,
		state:     state,
		catalog:   catalog,
		publisher: publisher,
		satellite: SatelliteParams(cfg),
		logger:    logging.NewComponentLogger(logger, "scan"),
		now:       time.Now,
		status:    Status{State: StateIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SatelliteParams converts the configured manual tuning profile.
func SatelliteParams(cfg config.Scan) middleware.SatelliteParams {
	return middleware.SatelliteParams{
		FrequencyKHz: cfg.FrequencyKHz,
		SymbolRate:   cfg.SymbolRate,
		Polarization: cfg.Polarization,
		Modulation:   cfg.Modulation,
		FEC:          cfg.FEC,
		RollOff:      cfg.RollOff,
	}
}

// Listen subscribes the scanner to middleware scan telemetry.
func (s *Scanner) Listen() (unsubscribe func()) {
	return s.scanCtl.SubscribeScan(s.HandleEvent)
}

// Select returns the technology and install route a scan would use.
func (s *Scanner) Select() (routes.Technology, *routes.Route, bool) {
	for _, tech := range Priority {
		if route := s.table.RouteFor(tech, routes.KindInstall); route != nil {
			return tech, route, true
		}
	}
	return 0, nil, false
}

// Status returns a copy of the current scan status.
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.clone()
}

// Start begins a scan. It returns once the middleware has accepted the
// command; progress arrives through HandleEvent.
func (s *Scanner) Start(ctx context.Context) (Status, error) {
	tech, route, ok := s.Select()
	if !ok {
		err := services.Wrap(services.ErrHardwareAbsent, "scan", "start", "no install route present", nil)
		logging.WarnWithContext(s.logger, "scan not started", "scan_no_route",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "connect a tuner and restart tvcore"),
			logging.String(logging.FieldImpact, "channel list cannot be rebuilt"),
		)
		return s.Status(), err
	}

	s.mu.Lock()
	if s.status.State == StateScanning {
		s.mu.Unlock()
		return s.Status(), services.Wrap(services.ErrInvalidOperation, "scan", "start", "scan already running", nil)
	}
	scanID := uuid.NewString()
	s.status = Status{
		ScanID:     scanID,
		State:      StateScanning,
		Technology: tech,
		RouteID:    route.ID,
		StartedAt:  s.now(),
	}
	if tech.IsIP() {
		s.status.State = StateIdle
		s.status.Outcome = OutcomeSkipped
		s.status.FinishedAt = s.status.StartedAt
		s.mu.Unlock()
		s.logger.Info("ip has no generic scan; nothing to do",
			logging.String(logging.FieldTechnology, tech.String()),
		)
		return s.Status(), nil
	}
	s.route = route
	s.finished = false
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.state.SetInstallRoute(route)
	logger := s.logger.With(
		logging.String("scan_id", scanID),
		logging.String(logging.FieldTechnology, tech.String()),
		logging.RouteID(route.ID),
	)

	if err := s.launch(ctx, tech, route); err != nil {
		err = services.Wrap(services.ErrInvalidOperation, "scan", "start", tech.String(), err)
		logging.WarnWithContext(logger, "middleware rejected scan", "scan_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check antenna or satellite settings in [scan]"),
			logging.String(logging.FieldImpact, "channel list was not changed"),
		)
		if s.claimFinish(OutcomeFailed, err.Error()) {
			s.settle()
			s.notifyFailure(tech, scanID, err)
		}
		return s.Status(), err
	}

	logger.Info("scan started")
	return s.Status(), nil
}

func (s *Scanner) launch(ctx context.Context, tech routes.Technology, route *routes.Route) error {
	if tech == routes.Satellite {
		if err := s.scanCtl.SetManualParams(ctx, s.satellite); err != nil {
			return err
		}
		return s.scanCtl.ManualScan(ctx, route.ID)
	}
	if err := s.routeCtl.ConfigureInstallRoute(ctx, route.ID, tech.FrontendType()); err != nil {
		return err
	}
	return s.scanCtl.AutoScan(ctx, route.ID)
}

// Stop aborts a running scan. The partial result is discarded and the
// catalog is left unchanged.
func (s *Scanner) Stop(ctx context.Context) error {
	s.mu.Lock()
	route := s.route
	s.mu.Unlock()
	if route == nil || !s.claimFinish(OutcomeAborted, "") {
		return nil
	}
	err := s.scanCtl.AbortScan(ctx, route.ID)
	if err != nil {
		err = services.Wrap(services.ErrMiddlewareComm, "scan", "abort", "", err)
		logging.WarnWithContext(s.logger, "abort scan failed", "scan_abort_failed",
			logging.RouteID(route.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "middleware may still be scanning"),
		)
	}
	s.settle()
	s.logger.Info("scan aborted", logging.RouteID(route.ID))
	return err
}

// Wait blocks until the current scan, including its catalog refresh, is
// finished or ctx ends.
func (s *Scanner) Wait(ctx context.Context) (Status, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return s.Status(), nil
	}
	select {
	case <-done:
		return s.Status(), nil
	case <-ctx.Done():
		return s.Status(), services.Wrap(services.ErrTimedOut, "scan", "wait", "", ctx.Err())
	}
}

// HandleEvent applies one telemetry callback. It is safe to call from the
// middleware dispatch goroutine.
func (s *Scanner) HandleEvent(evt middleware.ScanEvent) {
	s.mu.Lock()
	if s.status.State != StateScanning || s.finished {
		s.mu.Unlock()
		return
	}
	terminal := OutcomeNone
	switch evt.Kind {
	case middleware.ScanFrequency:
		s.status.Frequency = evt.Value
	case middleware.ScanServiceTV, middleware.ScanServiceRadio, middleware.ScanServiceData:
		s.status.Services = append(s.status.Services, evt.Text)
	case middleware.ScanProgress:
		s.status.Progress = evt.Value
		if evt.Value >= 100 {
			terminal = OutcomeCompleted
		}
	case middleware.ScanSignalLevel:
		s.status.SignalLevel = evt.Value
	case middleware.ScanSignalQuality:
		s.status.SignalQuality = evt.Value
	case middleware.ScanSignalBER:
		s.status.SignalBER = evt.Value
	case middleware.ScanNetworkChanged:
		s.status.NetworkChanged = true
	case middleware.ScanNoServiceSpace:
		terminal = OutcomeNoServiceSpace
	case middleware.ScanFinished:
		terminal = OutcomeCompleted
	}
	if terminal == OutcomeNone {
		s.mu.Unlock()
		s.logger.Debug("scan telemetry",
			logging.String(logging.FieldEventType, "scan_"+evt.Kind.String()),
			logging.Int("value", evt.Value),
			logging.String("text", evt.Text),
		)
		return
	}
	s.finished = true
	s.status.Outcome = terminal
	if terminal == OutcomeCompleted {
		s.status.Progress = 100
	}
	tech := s.status.Technology
	scanID := s.status.ScanID
	s.mu.Unlock()

	s.complete(tech, scanID, terminal)
}

// complete runs once per scan: one catalog refresh, then one broadcast.
func (s *Scanner) complete(tech routes.Technology, scanID string, outcome Outcome) {
	ctx, cancel := context.WithTimeout(services.WithRequestID(context.Background(), scanID), refreshTimeout)
	defer cancel()
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldTechnology, tech.String()))

	if err := s.catalog.Refresh(ctx, tech); err != nil {
		logging.ErrorWithContext(logger, "catalog refresh after scan failed", "scan_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run the scan again"),
		)
		s.mu.Lock()
		s.status.Error = err.Error()
		s.mu.Unlock()
		s.settle()
		return
	}

	evt := notifications.Event{
		Type:       notifications.EventChannelsUpdated,
		Technology: tech.String(),
		Channels:   s.catalog.Size(),
		ScanID:     scanID,
	}
	if outcome == OutcomeNoServiceSpace {
		evt.Type = notifications.EventScanNoSpace
		logging.WarnWithContext(logger, "scan stopped: no service space", "scan_no_service_space",
			logging.Int("channels", evt.Channels),
			logging.String(logging.FieldErrorHint, "remove unused services or rescan a single technology"),
			logging.String(logging.FieldImpact, "some services were not stored"),
		)
	} else {
		logger.Info("scan completed", logging.Int("channels", evt.Channels))
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, evt); err != nil {
			logger.Debug("channel update broadcast not fully delivered", logging.Error(err))
		}
	}
	s.settle()
}

func (s *Scanner) notifyFailure(tech routes.Technology, scanID string, cause error) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(context.Background(), notifications.Event{
		Type:       notifications.EventScanFailed,
		Technology: tech.String(),
		ScanID:     scanID,
		Detail:     cause.Error(),
	})
}

// claimFinish marks the running scan finished with outcome. It reports false
// when another path already finished it.
func (s *Scanner) claimFinish(outcome Outcome, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State != StateScanning || s.finished {
		return false
	}
	s.finished = true
	s.status.Outcome = outcome
	s.status.Error = message
	return true
}

// settle returns the scanner to idle and releases waiters.
func (s *Scanner) settle() {
	s.state.SetInstallRoute(nil)
	s.mu.Lock()
	s.status.State = StateIdle
	s.status.FinishedAt = s.now()
	s.route = nil
	done := s.done
	final := s.status.clone()
	s.mu.Unlock()
	if s.observer != nil {
		s.observer(final)
	}
	if done != nil {
		close(done)
	}
}
