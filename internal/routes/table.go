package routes

import (
	"context"
	"log/slog"
	"strings"

	"tvcore/internal/logging"
	"tvcore/internal/middleware"
	"tvcore/internal/services"
)

// Counts summarizes discovered hardware and enumerated routes.
type Counts struct {
	Frontends int `json:"frontends"`
	Decoders  int `json:"decoders"`
	Outputs   int `json:"outputs"`
	Storage   int `json:"storage"`
	Install   int `json:"install_routes"`
	Live      int `json:"live_routes"`
	Record    int `json:"record_routes"`
	Playback  int `json:"playback_routes"`
}

// Assignment is one resolved set member, used for status output.
type Assignment struct {
	Technology string `json:"technology"`
	Kind       string `json:"kind"`
	Route      *Route `json:"route"`
}

// Table is the immutable result of route discovery.
type Table struct {
	counts    Counts
	frontends []middleware.Frontend
	byKind    [4][]*Route
	sets      map[Technology]*RouteSet
	playback  [2]*Route
}

// Discover enumerates every route the middleware exposes and assigns
// technology slots. A failed middleware query is returned wrapped in
// services.ErrMiddlewareComm; absent hardware is not an error.
func Discover(ctx context.Context, rc middleware.RouteControl, logger *slog.Logger) (*Table, error) {
	logger = logging.NewComponentLogger(logger, "routes")
	t := &Table{sets: make(map[Technology]*RouteSet, len(Technologies))}
	for _, tech := range Technologies {
		t.sets[tech] = &RouteSet{}
	}

	var err error
	if t.counts.Frontends, err = rc.FrontendCount(ctx); err != nil {
		return nil, commErr("frontend count", err)
	}
	if t.counts.Storage, err = rc.StorageCount(ctx); err != nil {
		return nil, commErr("storage count", err)
	}
	if t.counts.Decoders, err = rc.DecoderCount(ctx); err != nil {
		return nil, commErr("decoder count", err)
	}
	if t.counts.Outputs, err = rc.OutputCount(ctx); err != nil {
		return nil, commErr("output count", err)
	}

	for i := 0; i < t.counts.Frontends; i++ {
		fe, err := rc.Frontend(ctx, i)
		if err != nil {
			return nil, commErr("frontend descriptor", err)
		}
		t.frontends = append(t.frontends, fe)
	}

	if err := t.enumerate(ctx, rc); err != nil {
		return nil, err
	}
	t.classify()
	t.configurePIP(ctx, rc, logger)
	t.logSummary(logger)
	return t, nil
}

func commErr(operation string, err error) error {
	return services.Wrap(services.ErrMiddlewareComm, "routes", operation, "route discovery aborted", err)
}

func (t *Table) enumerate(ctx context.Context, rc middleware.RouteControl) error {
	add := func(id int, r Route) {
		if id == middleware.InvalidRouteID {
			return
		}
		r.ID = id
		r.DemuxID = DemuxID
		t.byKind[r.Kind] = append(t.byKind[r.Kind], &r)
	}

	for _, fe := range t.frontends {
		id, err := rc.InstallRoute(ctx, fe.ID, DemuxID)
		if err != nil {
			return commErr("install route", err)
		}
		add(id, Route{Kind: KindInstall, FrontendID: fe.ID, DecoderID: NotApplicable, OutputID: NotApplicable, StorageID: NotApplicable, FrontendTypes: fe.Types})
	}
	for _, fe := range t.frontends {
		for dec := 0; dec < t.counts.Decoders; dec++ {
			for out := 0; out < t.counts.Outputs; out++ {
				id, err := rc.LiveRoute(ctx, fe.ID, DemuxID, dec, out)
				if err != nil {
					return commErr("live route", err)
				}
				add(id, Route{Kind: KindLive, FrontendID: fe.ID, DecoderID: dec, OutputID: out, StorageID: NotApplicable, FrontendTypes: fe.Types})
			}
		}
	}
	for _, fe := range t.frontends {
		for st := 0; st < t.counts.Storage; st++ {
			id, err := rc.RecordRoute(ctx, fe.ID, DemuxID, st)
			if err != nil {
				return commErr("record route", err)
			}
			add(id, Route{Kind: KindRecord, FrontendID: fe.ID, DecoderID: NotApplicable, OutputID: NotApplicable, StorageID: st, FrontendTypes: fe.Types})
		}
	}
	for st := 0; st < t.counts.Storage; st++ {
		for dec := 0; dec < t.counts.Decoders; dec++ {
			for out := 0; out < t.counts.Outputs; out++ {
				id, err := rc.PlaybackRoute(ctx, st, DemuxID, dec, out)
				if err != nil {
					return commErr("playback route", err)
				}
				add(id, Route{Kind: KindPlayback, FrontendID: NotApplicable, DecoderID: dec, OutputID: out, StorageID: st})
			}
		}
	}

	t.counts.Install = len(t.byKind[KindInstall])
	t.counts.Live = len(t.byKind[KindLive])
	t.counts.Record = len(t.byKind[KindRecord])
	t.counts.Playback = len(t.byKind[KindPlayback])
	return nil
}

// classify walks each kind in enumeration order. Broadcast slots take the
// first matching route; IP takes a primary, then a PIP and a secondary that
// must be distinct from the primary.
func (t *Table) classify() {
	liveDistinct := func(r, primary *Route) bool {
		return r.FrontendID != primary.FrontendID && r.DecoderID != primary.DecoderID
	}
	frontendDistinct := func(r, primary *Route) bool {
		return r.FrontendID != primary.FrontendID
	}
	t.assign(KindInstall, frontendDistinct)
	t.assign(KindLive, liveDistinct)
	t.assign(KindRecord, frontendDistinct)

	for _, r := range t.byKind[KindPlayback] {
		main := t.playback[PlaybackMain]
		switch {
		case main == nil:
			t.playback[PlaybackMain] = r
		case t.playback[PlaybackPIP] == nil && r.DecoderID != main.DecoderID:
			t.playback[PlaybackPIP] = r
		}
	}
}

func (t *Table) assign(kind Kind, distinct func(r, primary *Route) bool) {
	for _, r := range t.byKind[kind] {
		if t.assignBroadcast(r, kind) {
			continue
		}
		if !r.FrontendTypes.Has(middleware.FrontendIP) {
			continue
		}
		primary := t.sets[IPPrimary].Member(kind)
		switch {
		case primary == nil:
			t.sets[IPPrimary].set(kind, r)
		case !distinct(r, primary):
		case t.sets[IPPip].Member(kind) == nil:
			t.sets[IPPip].set(kind, r)
		case t.sets[IPSecondary].Member(kind) == nil:
			t.sets[IPSecondary].set(kind, r)
		}
	}
}

func (t *Table) assignBroadcast(r *Route, kind Kind) bool {
	for _, tech := range broadcast {
		if r.FrontendTypes.Has(tech.FrontendType()) && t.sets[tech].Member(kind) == nil {
			t.sets[tech].set(kind, r)
			return true
		}
	}
	return false
}

func (s *RouteSet) set(kind Kind, r *Route) {
	switch kind {
	case KindLive:
		s.Live = r
	case KindInstall:
		s.Install = r
	case KindRecord:
		s.Record = r
	}
}

// configurePIP restricts a fully resolved picture-in-picture set to video
// only. Failure leaves the route usable with default components.
func (t *Table) configurePIP(ctx context.Context, rc middleware.RouteControl, logger *slog.Logger) {
	pip := t.sets[IPPip]
	if !pip.Complete() {
		return
	}
	settings := middleware.LiveRouteSettings{Components: middleware.ComponentVideo}
	if err := rc.ConfigureLiveRoute(ctx, pip.Live.ID, settings); err != nil {
		logging.WarnWithContext(logger, "pip live route configuration failed", "pip_configure_failed",
			logging.RouteID(pip.Live.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "picture-in-picture will carry all components"),
		)
	}
}

func (t *Table) logSummary(logger *slog.Logger) {
	logger.Info("routes discovered",
		logging.Int("frontends", t.counts.Frontends),
		logging.Int("decoders", t.counts.Decoders),
		logging.Int("outputs", t.counts.Outputs),
		logging.Int("storage", t.counts.Storage),
		logging.Int("install_routes", t.counts.Install),
		logging.Int("live_routes", t.counts.Live),
		logging.Int("record_routes", t.counts.Record),
		logging.Int("playback_routes", t.counts.Playback),
	)
	for _, tech := range Technologies {
		set := t.sets[tech]
		var missing []string
		for _, kind := range []Kind{KindLive, KindInstall, KindRecord} {
			if set.Member(kind) == nil {
				missing = append(missing, kind.String())
			}
		}
		if len(missing) > 0 {
			logger.Info("route set incomplete",
				logging.String(logging.FieldTechnology, tech.String()),
				logging.String("missing", strings.Join(missing, ",")),
			)
		}
	}
	for _, slot := range []PlaybackSlot{PlaybackMain, PlaybackPIP} {
		if t.playback[slot] == nil {
			logger.Debug("playback slot unresolved", logging.String("slot", slot.String()))
		}
	}
}

// Set returns a copy of the RouteSet for tech.
func (t *Table) Set(tech Technology) RouteSet {
	if set, ok := t.sets[tech]; ok {
		return *set
	}
	return RouteSet{}
}

// RouteFor resolves one member of a technology's set; nil means the hardware
// for that technology is absent.
func (t *Table) RouteFor(tech Technology, kind Kind) *Route {
	return t.Set(tech).Member(kind)
}

// Playback returns the playback route for a session slot.
func (t *Table) Playback(slot PlaybackSlot) *Route {
	if slot < PlaybackMain || slot > PlaybackPIP {
		return nil
	}
	return t.playback[slot]
}

// Routes returns every enumerated route of one kind in enumeration order.
func (t *Table) Routes(kind Kind) []*Route {
	if kind < KindInstall || kind > KindPlayback {
		return nil
	}
	return append([]*Route(nil), t.byKind[kind]...)
}

// Counts returns hardware and route totals.
func (t *Table) Counts() Counts {
	return t.counts
}

// Frontends returns the discovered tuner descriptors.
func (t *Table) Frontends() []middleware.Frontend {
	return append([]middleware.Frontend(nil), t.frontends...)
}

// Assignments lists every resolved set member and playback slot.
func (t *Table) Assignments() []Assignment {
	var out []Assignment
	for _, tech := range Technologies {
		set := t.sets[tech]
		for _, kind := range []Kind{KindLive, KindInstall, KindRecord} {
			if r := set.Member(kind); r != nil {
				out = append(out, Assignment{Technology: tech.String(), Kind: kind.String(), Route: r})
			}
		}
	}
	for _, slot := range []PlaybackSlot{PlaybackMain, PlaybackPIP} {
		if r := t.playback[slot]; r != nil {
			out = append(out, Assignment{Technology: "playback_" + slot.String(), Kind: KindPlayback.String(), Route: r})
		}
	}
	return out
}
