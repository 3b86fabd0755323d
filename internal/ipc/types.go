package ipc

import (
	"time"

	"tvcore/internal/daemon"
	"tvcore/internal/epg"
	"tvcore/internal/routes"
	"tvcore/internal/scan"
	"tvcore/internal/store"
	"tvcore/internal/tuning"
)

// StatusRequest requests daemon status.
type StatusRequest struct{}

// StatusResponse carries the daemon status, including the control plane
// snapshot once the middleware is ready.
type StatusResponse struct {
	Status daemon.Status `json:"status"`
}

// ChannelsRequest lists the catalog.
type ChannelsRequest struct{}

// ChannelsResponse lists every catalogued channel in display order.
type ChannelsResponse struct {
	Channels []store.Channel `json:"channels"`
}

// ProgramsRequest selects guide events for a channel. Zero times default to
// now and 24 hours after From.
type ProgramsRequest struct {
	ChannelID int64     `json:"channel_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

// ProgramsResponse lists guide events overlapping the requested range.
type ProgramsResponse struct {
	Channel  store.Channel    `json:"channel"`
	From     time.Time        `json:"from"`
	To       time.Time        `json:"to"`
	Programs []*store.Program `json:"programs"`
}

// NowPlayingRequest asks for the event airing on a channel.
type NowPlayingRequest struct {
	ChannelID int64 `json:"channel_id"`
}

// NowPlayingResponse carries the airing event, if the guide has one.
type NowPlayingResponse struct {
	Program *store.Program `json:"program,omitempty"`
}

// TuneRequest plays a channel by catalog id.
type TuneRequest struct {
	ChannelID int64 `json:"channel_id"`
}

// TuneResponse reports a tune outcome.
type TuneResponse struct {
	Channel store.Channel `json:"channel"`
	Result  tuning.Result `json:"result"`
	Error   string        `json:"error,omitempty"`
}

// StopRequest stops the live route.
type StopRequest struct{}

// StopResponse acknowledges a stop.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ScanRequest starts or aborts a channel scan.
type ScanRequest struct{}

// ScanResponse reports scanner telemetry.
type ScanResponse struct {
	Status scan.Status `json:"status"`
}

// RoutesRequest lists the discovered route table.
type RoutesRequest struct{}

// RoutesResponse summarizes route discovery.
type RoutesResponse struct {
	Counts      routes.Counts       `json:"counts"`
	Assignments []routes.Assignment `json:"assignments"`
}

// EPGRequest reads guide acquisition state and optionally queues a full
// acquisition for the active transponder.
type EPGRequest struct {
	Acquire bool `json:"acquire"`
}

// EPGResponse reports guide acquisition state.
type EPGResponse struct {
	Enabled      bool              `json:"enabled"`
	Queued       bool              `json:"queued"`
	Window       *epg.Window       `json:"window,omitempty"`
	LastRun      *epg.Run          `json:"last_run,omitempty"`
	Acquisitions []epg.Acquisition `json:"acquisitions"`
}

// VolumeRequest reads the mixer and applies any provided changes first.
type VolumeRequest struct {
	Set  *int  `json:"set,omitempty"`
	Mute *bool `json:"mute,omitempty"`
}

// VolumeResponse carries the mixer state after the request was applied.
type VolumeResponse struct {
	Volume tuning.VolumeState `json:"volume"`
}

// TracksRequest lists tracks on the playing route.
type TracksRequest struct{}

// TracksResponse lists audio and subtitle tracks.
type TracksResponse struct {
	Audio     []tuning.TrackInfo `json:"audio"`
	Subtitles []tuning.TrackInfo `json:"subtitles"`
}

// SelectAudioRequest switches the audio track on the playing route.
type SelectAudioRequest struct {
	Index int `json:"index"`
}

// SelectAudioResponse acknowledges a track switch.
type SelectAudioResponse struct {
	Selected bool `json:"selected"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the result of a test notification.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// DatabaseRequest requests store diagnostics.
type DatabaseRequest struct{}

// DatabaseResponse reports store row counts and health.
type DatabaseResponse struct {
	Stats  store.Stats          `json:"stats"`
	Health store.DatabaseHealth `json:"health"`
}

// LogTailRequest reads the daemon log. A negative Offset returns the last
// Lines lines; WaitMillis bounds how long the server waits for new lines.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Lines      int   `json:"lines"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse carries log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
