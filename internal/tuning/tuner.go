package tuning

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tvcore/internal/config"
	"tvcore/internal/logging"
	"tvcore/internal/middleware"
	"tvcore/internal/routes"
	"tvcore/internal/services"
	"tvcore/internal/store"
)

// Result reports the outcome of a tune. NoVideo asks the caller to show its
// audio-only affordance.
type Result struct {
	OK      bool          `json:"ok"`
	NoVideo bool          `json:"no_video"`
	Route   *routes.Route `json:"route,omitempty"`
	Err     error         `json:"-"`
}

// Observer receives the outcome of every tune.
type Observer func(ch store.Channel, result Result, elapsed time.Duration)

// Tuner drives the main viewing path.
type Tuner struct {
	table     *routes.Table
	services  middleware.ServiceControl
	display   middleware.DisplayControl
	subtitles middleware.SubtitleControl
	audio     middleware.AudioControl
	mixer     middleware.Mixer
	state     *ActiveRouteState
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time

	demoMode      bool
	demoBroadcast middleware.Rect
	demoIP        middleware.Rect

	// opMu serializes Tune and Stop so commands and state updates stay paired.
	opMu sync.Mutex

	rectMu    sync.RWMutex
	videoRect middleware.Rect
}

// Option customizes a Tuner.
type Option func(*Tuner)

// WithObserver registers a callback invoked after each tune.
func WithObserver(observer Observer) Option {
	return func(t *Tuner) {
		t.observer = observer
	}
}

// WithClock replaces the wall clock used for tune timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tuner) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTuner builds a tuner over the given route table and middleware ports.
func NewTuner(table *routes.Table, binding middleware.Binding, state *ActiveRouteState, display config.Display, logger *slog.Logger, opts ...Option) *Tuner {
	t := &Tuner{
		table:         table,
		services:      binding.Services,
		display:       binding.Display,
		subtitles:     binding.Subtitles,
		audio:         binding.Audio,
		mixer:         binding.Mixer,
		state:         state,
		logger:        logging.NewComponentLogger(logger, "tuning"),
		now:           time.Now,
		demoMode:      display.DemoMode,
		demoBroadcast: middleware.RectFromSlice(display.DemoBroadcastRect),
		demoIP:        middleware.RectFromSlice(display.DemoIPRect),
		videoRect:     middleware.RectFromSlice(display.VideoRect),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State exposes the active route state.
func (t *Tuner) State() *ActiveRouteState {
	return t.state
}

// Channel returns the channel currently playing.
func (t *Tuner) Channel() (store.Channel, bool) {
	return t.state.Channel()
}

// ResolveRoute returns the live route that would carry ch.
func (t *Tuner) ResolveRoute(ch store.Channel) (*routes.Route, error) {
	tech := ch.Technology
	if tech.IsIP() {
		tech = routes.IPPrimary
	}
	if !tech.IsBroadcast() && !tech.IsIP() {
		return nil, services.Wrap(services.ErrInvalidOperation, "tuning", "resolve route", "unsupported technology "+tech.String(), nil)
	}
	route := t.table.RouteFor(tech, routes.KindLive)
	if route == nil {
		return nil, services.Wrap(services.ErrHardwareAbsent, "tuning", "resolve route", "no live route for "+tech.String(), nil)
	}
	return route, nil
}

// Tune starts ch on its technology's live route. When no route exists the
// result is not OK and the active state is left untouched. A command the
// middleware rejects is logged; if a different route had to be stopped first
// the state is cleared, otherwise it is unchanged.
func (t *Tuner) Tune(ctx context.Context, ch store.Channel) Result {
	ctx = services.WithTechnology(services.WithChannelID(services.EnsureRequestID(ctx), ch.ID), ch.Technology.String())
	logger := logging.WithContext(ctx, t.logger)
	start := t.now()

	t.opMu.Lock()
	result := t.tuneLocked(ctx, ch, logger)
	t.opMu.Unlock()

	if t.observer != nil {
		t.observer(ch, result, t.now().Sub(start))
	}
	return result
}

func (t *Tuner) tuneLocked(ctx context.Context, ch store.Channel, logger *slog.Logger) Result {
	route, err := t.ResolveRoute(ch)
	if err != nil {
		logging.WarnWithContext(logger, "channel not tunable", "tune_no_route",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the tuner for this technology is connected"),
			logging.String(logging.FieldImpact, "channel cannot be played"),
		)
		return Result{Err: err}
	}

	if prev := t.state.LiveRoute(); prev != nil && prev.ID != route.ID {
		t.stopRoute(ctx, prev, logger)
		// The old service is gone even if the new start is rejected.
		t.state.clearLive()
	}

	if ch.IsIP() {
		err = t.services.Zap(ctx, route.ID, ch.URL)
	} else {
		err = t.services.StartService(ctx, route.ID, middleware.MasterList, ch.ServiceIndex)
	}
	if err != nil {
		err = services.Wrap(services.ErrInvalidOperation, "tuning", "start", ch.Name, err)
		logging.WarnWithContext(logger, "middleware rejected tune", "tune_rejected",
			logging.RouteID(route.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rescan if the service list is stale"),
			logging.String(logging.FieldImpact, "channel cannot be played"),
		)
		return Result{Route: route, Err: err}
	}

	t.state.swapLive(route, ch, t.now())
	t.scale(ctx, route, ch, logger)

	result := Result{OK: true, NoVideo: ch.ServiceKind.IsRadio(), Route: route}
	logger.Info("channel tuned",
		logging.String("channel", ch.DisplayNumber+" "+ch.Name),
		logging.RouteID(route.ID),
		logging.Bool("no_video", result.NoVideo),
	)
	return result
}

func (t *Tuner) scale(ctx context.Context, route *routes.Route, ch store.Channel, logger *slog.Logger) {
	rect := t.VideoRect()
	if t.demoMode {
		rect = t.demoBroadcast
		if ch.IsIP() {
			rect = t.demoIP
		}
	}
	if err := t.display.ScaleWindow(ctx, route.ID, rect); err != nil {
		logging.WarnWithContext(logger, "video scaling failed", "scale_failed",
			logging.RouteID(route.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "video keeps its previous geometry"),
		)
	}
}

// Stop ends playback on the active live route. Visible subtitles are hidden
// before the service is stopped. Failures are logged, never returned.
func (t *Tuner) Stop(ctx context.Context) {
	logger := logging.WithContext(services.EnsureRequestID(ctx), t.logger)
	t.opMu.Lock()
	defer t.opMu.Unlock()

	route := t.state.clearLive()
	if route == nil {
		logger.Debug("stop requested with nothing playing")
		return
	}
	t.stopRoute(ctx, route, logger)
	logger.Info("playback stopped", logging.RouteID(route.ID))
}

func (t *Tuner) stopRoute(ctx context.Context, route *routes.Route, logger *slog.Logger) {
	active, err := t.subtitles.SubtitleActive(ctx, route.ID)
	if err != nil {
		logger.Debug("subtitle state unavailable", logging.RouteID(route.ID), logging.Error(err))
	}
	if active {
		if err := t.subtitles.HideSubtitles(ctx, route.ID); err != nil {
			logging.WarnWithContext(logger, "hiding subtitles failed", "subtitle_hide_failed",
				logging.RouteID(route.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "subtitle overlay may stay bound after stop"),
			)
		}
	}
	if err := t.services.StopService(ctx, route.ID); err != nil {
		logging.WarnWithContext(logger, "stop service failed", "stop_failed",
			logging.RouteID(route.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "decoder may keep running"),
		)
	}
}

// SetVideoRect records the output rectangle applied by later tunes when demo
// mode is off.
func (t *Tuner) SetVideoRect(rect middleware.Rect) error {
	if rect.Width <= 0 || rect.Height <= 0 {
		return services.Wrap(services.ErrInvalidOperation, "tuning", "set video rect", "width and height must be positive", nil)
	}
	t.rectMu.Lock()
	t.videoRect = rect
	t.rectMu.Unlock()
	t.logger.Debug("video rect updated",
		logging.Int("x", rect.X), logging.Int("y", rect.Y),
		logging.Int("width", rect.Width), logging.Int("height", rect.Height),
	)
	return nil
}

// VideoRect returns the last known output rectangle.
func (t *Tuner) VideoRect() middleware.Rect {
	t.rectMu.RLock()
	defer t.rectMu.RUnlock()
	return t.videoRect
}

// CurrentTransponder returns the frequency of the service playing on the
// live route. IP playback has no transponder.
func (t *Tuner) CurrentTransponder(ctx context.Context) (int, bool) {
	route := t.state.LiveRoute()
	ch, ok := t.state.Channel()
	if route == nil || !ok || ch.IsIP() {
		return 0, false
	}
	svc, active, err := t.services.ActiveService(ctx, route.ID)
	if err == nil && active && svc.Frequency > 0 {
		return svc.Frequency, true
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Debug("active service query failed; using catalog frequency", logging.Error(err))
	}
	return ch.Frequency, ch.Frequency > 0
}
