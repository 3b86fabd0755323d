package middleware

import (
	"context"
	"time"
)

// RouteControl enumerates hardware components and the routes between them.
// Route queries return InvalidRouteID for unsupported combinations.
type RouteControl interface {
	FrontendCount(ctx context.Context) (int, error)
	DecoderCount(ctx context.Context) (int, error)
	OutputCount(ctx context.Context) (int, error)
	StorageCount(ctx context.Context) (int, error)
	Frontend(ctx context.Context, index int) (Frontend, error)

	InstallRoute(ctx context.Context, frontendID, demuxID int) (int, error)
	LiveRoute(ctx context.Context, frontendID, demuxID, decoderID, outputID int) (int, error)
	RecordRoute(ctx context.Context, frontendID, demuxID, storageID int) (int, error)
	PlaybackRoute(ctx context.Context, storageID, demuxID, decoderID, outputID int) (int, error)

	ConfigureInstallRoute(ctx context.Context, routeID int, types FrontendType) error
	ConfigureLiveRoute(ctx context.Context, routeID int, settings LiveRouteSettings) error
}

// ServiceControl starts and stops services on a route and lists services.
type ServiceControl interface {
	ServiceCount(ctx context.Context, list int) (int, error)
	Service(ctx context.Context, list, index int) (Service, error)
	ActiveService(ctx context.Context, routeID int) (Service, bool, error)
	StartService(ctx context.Context, routeID, list, index int) error
	StopService(ctx context.Context, routeID int) error
	Zap(ctx context.Context, routeID int, url string) error
}

// ScanControl drives vendor scans. Telemetry arrives on registered listeners.
type ScanControl interface {
	AutoScan(ctx context.Context, routeID int) error
	ManualScan(ctx context.Context, routeID int) error
	AbortScan(ctx context.Context, routeID int) error
	SetManualParams(ctx context.Context, params SatelliteParams) error
	SubscribeScan(listener ScanListener) (unsubscribe func())
}

// EpgControl acquires program events through an event-list handle.
type EpgControl interface {
	CreateEventList(ctx context.Context) (int, error)
	ReleaseEventList(ctx context.Context, handle int) error
	SetTimeFilter(ctx context.Context, handle int, start, end time.Time) error
	SetServiceFilter(ctx context.Context, handle int, serviceIndex int) error
	StartAcquisition(ctx context.Context, handle int) error
	StopAcquisition(ctx context.Context, handle int) error
	EventCount(ctx context.Context, handle int) (int, error)
	Event(ctx context.Context, handle, index int) (EpgEvent, error)
	ExtendedDescription(ctx context.Context, handle, index int) (string, error)
	PresentFollowing(ctx context.Context, serviceIndex int) (present, following *EpgEvent, err error)
	// StreamTime is the broadcast clock (TDT) of the tuned stream.
	StreamTime(ctx context.Context) (time.Time, error)
	SubscribeEPG(listener EpgListener) (unsubscribe func())
}

// SubtitleControl manages subtitle overlays on a live route.
type SubtitleControl interface {
	SubtitleTracks(ctx context.Context, routeID int) ([]Track, error)
	SubtitleActive(ctx context.Context, routeID int) (bool, error)
	HideSubtitles(ctx context.Context, routeID int) error
}

// AudioControl lists and selects audio tracks on a live route.
type AudioControl interface {
	AudioTracks(ctx context.Context, routeID int) ([]Track, error)
	SelectAudioTrack(ctx context.Context, routeID, index int) error
}

// DisplayControl positions the video plane for a live route.
type DisplayControl interface {
	ScaleWindow(ctx context.Context, routeID int, rect Rect) error
}

// Mixer is the platform audio mixer.
type Mixer interface {
	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, percent int) error
	Muted(ctx context.Context) (bool, error)
	SetMute(ctx context.Context, muted bool) error
}

// ReadySignal reports whether the middleware process has finished booting.
type ReadySignal interface {
	Ready(ctx context.Context) (bool, error)
}

// Binding bundles every port of one middleware implementation.
type Binding struct {
	Routes    RouteControl
	Services  ServiceControl
	Scan      ScanControl
	EPG       EpgControl
	Subtitles SubtitleControl
	Audio     AudioControl
	Display   DisplayControl
	Mixer     Mixer
	Ready     ReadySignal
}
