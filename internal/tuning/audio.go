package tuning

import (
	"context"
	"fmt"

	"tvcore/internal/language"
	"tvcore/internal/logging"
	"tvcore/internal/middleware"
	"tvcore/internal/services"
)

// VolumeState is the platform mixer state.
type VolumeState struct {
	Percent int  `json:"percent"`
	Muted   bool `json:"muted"`
}

// TrackInfo is an audio or subtitle track with a display name.
type TrackInfo struct {
	Index    int    `json:"index"`
	Language string `json:"language"`
	Name     string `json:"name"`
}

// Volume reads the mixer.
func (t *Tuner) Volume(ctx context.Context) (VolumeState, error) {
	percent, err := t.mixer.Volume(ctx)
	if err != nil {
		return VolumeState{}, services.Wrap(services.ErrMiddlewareComm, "tuning", "volume", "", err)
	}
	muted, err := t.mixer.Muted(ctx)
	if err != nil {
		return VolumeState{}, services.Wrap(services.ErrMiddlewareComm, "tuning", "muted", "", err)
	}
	return VolumeState{Percent: percent, Muted: muted}, nil
}

// SetVolume sets the mixer level, unmuting first so the change is audible.
func (t *Tuner) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return services.Wrap(services.ErrInvalidOperation, "tuning", "set volume", fmt.Sprintf("volume %d outside 0-100", percent), nil)
	}
	muted, err := t.mixer.Muted(ctx)
	if err != nil {
		return services.Wrap(services.ErrMiddlewareComm, "tuning", "muted", "", err)
	}
	if muted {
		if err := t.mixer.SetMute(ctx, false); err != nil {
			return services.Wrap(services.ErrMiddlewareComm, "tuning", "unmute", "", err)
		}
	}
	if err := t.mixer.SetVolume(ctx, percent); err != nil {
		return services.Wrap(services.ErrInvalidOperation, "tuning", "set volume", "", err)
	}
	t.logger.Debug("volume set", logging.Int("percent", percent))
	return nil
}

// SetMute sets the mixer mute state. Repeating the current state is a no-op.
func (t *Tuner) SetMute(ctx context.Context, muted bool) error {
	current, err := t.mixer.Muted(ctx)
	if err != nil {
		return services.Wrap(services.ErrMiddlewareComm, "tuning", "muted", "", err)
	}
	if current == muted {
		return nil
	}
	if err := t.mixer.SetMute(ctx, muted); err != nil {
		return services.Wrap(services.ErrInvalidOperation, "tuning", "set mute", "", err)
	}
	t.logger.Debug("mute set", logging.Bool("muted", muted))
	return nil
}

func (t *Tuner) activeRouteID(operation string) (int, error) {
	route := t.state.LiveRoute()
	if route == nil {
		return 0, services.Wrap(services.ErrInvalidOperation, "tuning", operation, "nothing is playing", nil)
	}
	return route.ID, nil
}

func describeTracks(tracks []middleware.Track) []TrackInfo {
	out := make([]TrackInfo, 0, len(tracks))
	for _, tr := range tracks {
		out = append(out, TrackInfo{Index: tr.Index, Language: tr.Language, Name: language.DisplayName(tr.Language)})
	}
	return out
}

// AudioTracks lists audio tracks on the playing route.
func (t *Tuner) AudioTracks(ctx context.Context) ([]TrackInfo, error) {
	routeID, err := t.activeRouteID("audio tracks")
	if err != nil {
		return nil, err
	}
	tracks, err := t.audio.AudioTracks(ctx, routeID)
	if err != nil {
		return nil, services.Wrap(services.ErrMiddlewareComm, "tuning", "audio tracks", "", err)
	}
	return describeTracks(tracks), nil
}

// SelectAudioTrack switches the playing route to the audio track at index.
func (t *Tuner) SelectAudioTrack(ctx context.Context, index int) error {
	routeID, err := t.activeRouteID("select audio track")
	if err != nil {
		return err
	}
	if err := t.audio.SelectAudioTrack(ctx, routeID, index); err != nil {
		return services.Wrap(services.ErrInvalidOperation, "tuning", "select audio track", fmt.Sprintf("track %d", index), err)
	}
	return nil
}

// SubtitleTracks lists subtitle tracks on the playing route.
func (t *Tuner) SubtitleTracks(ctx context.Context) ([]TrackInfo, error) {
	routeID, err := t.activeRouteID("subtitle tracks")
	if err != nil {
		return nil, err
	}
	tracks, err := t.subtitles.SubtitleTracks(ctx, routeID)
	if err != nil {
		return nil, services.Wrap(services.ErrMiddlewareComm, "tuning", "subtitle tracks", "", err)
	}
	return describeTracks(tracks), nil
}
