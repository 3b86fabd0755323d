package tuning

import (
	"sync"
	"time"

	"tvcore/internal/routes"
	"tvcore/internal/store"
)

// Snapshot is a consistent copy of ActiveRouteState.
type Snapshot struct {
	LiveRoute    *routes.Route  `json:"live_route,omitempty"`
	InstallRoute *routes.Route  `json:"install_route,omitempty"`
	Channel      *store.Channel `json:"channel,omitempty"`
	TunedAt      time.Time      `json:"tuned_at,omitzero"`
}

// ActiveRouteState records the live route, install route, and channel
// currently in use. All access goes through its methods.
type ActiveRouteState struct {
	mu      sync.RWMutex
	live    *routes.Route
	install *routes.Route
	channel *store.Channel
	tunedAt time.Time
}

// Snapshot returns the current state.
func (s *ActiveRouteState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{LiveRoute: s.live, InstallRoute: s.install, TunedAt: s.tunedAt}
	if s.channel != nil {
		ch := *s.channel
		snap.Channel = &ch
	}
	return snap
}

// LiveRoute returns the route of the playing channel, or nil.
func (s *ActiveRouteState) LiveRoute() *routes.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// Channel returns the playing channel.
func (s *ActiveRouteState) Channel() (store.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.channel == nil {
		return store.Channel{}, false
	}
	return *s.channel, true
}

// SetInstallRoute records the install route a scan is running on; nil
// clears it.
func (s *ActiveRouteState) SetInstallRoute(route *routes.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.install = route
}

// InstallRoute returns the install route of the running scan, or nil.
func (s *ActiveRouteState) InstallRoute() *routes.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.install
}

// swapLive records a tune and returns the previously active live route.
func (s *ActiveRouteState) swapLive(route *routes.Route, ch store.Channel, at time.Time) *routes.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.live
	s.live = route
	s.channel = &ch
	s.tunedAt = at
	return prev
}

// clearLive forgets the live route and channel and returns the route that
// was active.
func (s *ActiveRouteState) clearLive() *routes.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.live
	s.live = nil
	s.channel = nil
	s.tunedAt = time.Time{}
	return prev
}
