package routes

import "tvcore/internal/middleware"

// Kind is the purpose of a route.
type Kind int

const (
	KindInstall Kind = iota
	KindLive
	KindRecord
	KindPlayback
)

func (k Kind) String() string {
	switch k {
	case KindInstall:
		return "install"
	case KindLive:
		return "live"
	case KindRecord:
		return "record"
	case KindPlayback:
		return "playback"
	default:
		return "unknown"
	}
}

// DemuxID is the single demultiplexer every route is built on.
const DemuxID = 0

// NotApplicable marks a component a route kind does not use.
const NotApplicable = -1

// Route is one fixed hardware path. Routes are created only by Discover and
// never mutated afterwards.
type Route struct {
	ID            int                     `json:"id"`
	Kind          Kind                    `json:"-"`
	FrontendID    int                     `json:"frontend_id"`
	DemuxID       int                     `json:"demux_id"`
	DecoderID     int                     `json:"decoder_id"`
	OutputID      int                     `json:"output_id"`
	StorageID     int                     `json:"storage_id"`
	FrontendTypes middleware.FrontendType `json:"-"`
}

// RouteSet bundles the routes serving one technology. Any member may be nil.
type RouteSet struct {
	Live    *Route
	Install *Route
	Record  *Route
}

// Member returns the set member for kind. Playback is never part of a set.
func (s RouteSet) Member(kind Kind) *Route {
	switch kind {
	case KindLive:
		return s.Live
	case KindInstall:
		return s.Install
	case KindRecord:
		return s.Record
	default:
		return nil
	}
}

// Complete reports whether live, install, and record are all resolved.
func (s RouteSet) Complete() bool {
	return s.Live != nil && s.Install != nil && s.Record != nil
}

// PlaybackSlot names a concurrent playback session.
type PlaybackSlot int

const (
	PlaybackMain PlaybackSlot = iota
	PlaybackPIP
)

func (p PlaybackSlot) String() string {
	if p == PlaybackPIP {
		return "pip"
	}
	return "main"
}
