package emulator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tvcore/internal/middleware"
)

// ErrRejected is returned for commands the emulated middleware refuses.
var ErrRejected = errors.New("middleware rejected command")

type routeKind int

const (
	routeInstall routeKind = iota
	routeLive
	routeRecord
	routePlayback
)

type routeKey struct {
	kind       routeKind
	a, b, c, d int
}

type routeInfo struct {
	key        routeKey
	frontendID int
	configured middleware.FrontendType
	live       middleware.LiveRouteSettings
	subtitles  bool
	active     *middleware.Service
	url        string
}

// Option adjusts an Emulator at construction.
type Option func(*Emulator)

// WithClock replaces the wall clock used for readiness and EPG synthesis.
func WithClock(now func() time.Time) Option {
	return func(e *Emulator) {
		if now != nil {
			e.now = now
		}
	}
}

// Emulator implements every middleware port in-process.
type Emulator struct {
	profile Profile
	now     func() time.Time
	started time.Time

	mu        sync.Mutex
	frontends []middleware.Frontend
	routeIDs  map[routeKey]int
	routes    []*routeInfo
	installed []middleware.Service
	networks  map[middleware.FrontendType][]ServiceProfile
	satParams middleware.SatelliteParams
	forced    *bool
	faults    map[string]error
	calls     []string

	volume int
	muted  bool

	scanCancel context.CancelFunc
	scanWG     sync.WaitGroup

	lists      map[int]*eventList
	nextHandle int

	listenerMu   sync.Mutex
	nextListener int
	scanSubs     map[int]middleware.ScanListener
	epgSubs      map[int]middleware.EpgListener
}

// New builds an emulator from a profile. Transport stream captures listed in
// the profile are parsed up front.
func New(profile Profile, opts ...Option) (*Emulator, error) {
	if err := profile.validate(); err != nil {
		return nil, err
	}
	e := &Emulator{
		profile:  profile,
		now:      time.Now,
		routeIDs: make(map[routeKey]int),
		networks: make(map[middleware.FrontendType][]ServiceProfile),
		faults:   make(map[string]error),
		volume:   50,
		lists:    make(map[int]*eventList),
		scanSubs: make(map[int]middleware.ScanListener),
		epgSubs:  make(map[int]middleware.EpgListener),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.started = e.now()

	for i, fp := range profile.Frontends {
		name := fp.Name
		if name == "" {
			name = fmt.Sprintf("frontend%d", i)
		}
		e.frontends = append(e.frontends, middleware.Frontend{ID: i, Name: name, Types: fp.flags()})
	}
	for tech, services := range profile.Networks {
		flag, _ := middleware.ParseFrontendType(tech)
		e.networks[flag] = append(e.networks[flag], services...)
	}
	for _, ts := range profile.Streams {
		services, err := servicesFromTransportStream(ts)
		if err != nil {
			return nil, err
		}
		flag, _ := middleware.ParseFrontendType(ts.Technology)
		e.networks[flag] = append(e.networks[flag], services...)
	}
	if profile.Preinstalled {
		for _, flag := range []middleware.FrontendType{middleware.FrontendTerrestrial, middleware.FrontendCable, middleware.FrontendSatellite} {
			e.installLocked(flag, e.networks[flag])
		}
	}
	return e, nil
}

// Binding exposes the emulator through the middleware ports.
func (e *Emulator) Binding() middleware.Binding {
	return middleware.Binding{
		Routes:    e,
		Services:  e,
		Scan:      e,
		EPG:       e,
		Subtitles: e,
		Audio:     e,
		Display:   e,
		Mixer:     e,
		Ready:     e,
	}
}

// Close aborts any running scan and waits for its goroutine.
func (e *Emulator) Close() {
	e.mu.Lock()
	cancel := e.scanCancel
	e.scanCancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.scanWG.Wait()
}

// FailOn makes the named command (the port method name) return err until
// cleared with a nil err.
func (e *Emulator) FailOn(op string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.faults, op)
		return
	}
	e.faults[op] = err
}

// SetReady overrides the boot-delay readiness model.
func (e *Emulator) SetReady(ready bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forced = &ready
}

// Ready implements middleware.ReadySignal.
func (e *Emulator) Ready(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.faults["Ready"]; err != nil {
		return false, err
	}
	if e.forced != nil {
		return *e.forced, nil
	}
	delay := time.Duration(e.profile.BootDelayMillis) * time.Millisecond
	return !e.now().Before(e.started.Add(delay)), nil
}

// Calls returns a copy of the command journal.
func (e *Emulator) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// CallsWithPrefix returns journal entries starting with prefix.
func (e *Emulator) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, call := range e.Calls() {
		if strings.HasPrefix(call, prefix) {
			out = append(out, call)
		}
	}
	return out
}

// ResetCalls clears the command journal.
func (e *Emulator) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

// recordLocked appends a journal entry and returns any injected fault for op.
// Callers hold e.mu.
func (e *Emulator) recordLocked(op string, format string, args ...any) error {
	entry := op
	if format != "" {
		entry += " " + fmt.Sprintf(format, args...)
	}
	e.calls = append(e.calls, entry)
	return e.faults[op]
}

func (e *Emulator) hasIPFrontend() bool {
	for _, fe := range e.frontends {
		if fe.Types.Has(middleware.FrontendIP) {
			return true
		}
	}
	return false
}

func (e *Emulator) route(routeID int) (*routeInfo, error) {
	if routeID < 0 || routeID >= len(e.routes) {
		return nil, fmt.Errorf("%w: unknown route %d", ErrRejected, routeID)
	}
	return e.routes[routeID], nil
}
