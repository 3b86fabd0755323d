package emulator

import (
	"context"
	"fmt"

	"tvcore/internal/middleware"
)

func tracksFor(languages []string) []middleware.Track {
	tracks := make([]middleware.Track, 0, len(languages))
	for i, lang := range languages {
		tracks = append(tracks, middleware.Track{Index: i, Language: lang})
	}
	return tracks
}

func (e *Emulator) AudioTracks(_ context.Context, routeID int) ([]middleware.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("AudioTracks", "route=%d", routeID); err != nil {
		return nil, err
	}
	if _, err := e.route(routeID); err != nil {
		return nil, err
	}
	return tracksFor(e.profile.AudioLanguages), nil
}

func (e *Emulator) SelectAudioTrack(_ context.Context, routeID, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("SelectAudioTrack", "route=%d index=%d", routeID, index); err != nil {
		return err
	}
	if _, err := e.route(routeID); err != nil {
		return err
	}
	if index < 0 || index >= len(e.profile.AudioLanguages) {
		return fmt.Errorf("%w: audio track %d out of range", ErrRejected, index)
	}
	return nil
}

func (e *Emulator) SubtitleTracks(_ context.Context, routeID int) ([]middleware.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("SubtitleTracks", "route=%d", routeID); err != nil {
		return nil, err
	}
	if _, err := e.route(routeID); err != nil {
		return nil, err
	}
	return tracksFor(e.profile.SubtitleLangs), nil
}

// ShowSubtitles binds a subtitle overlay to the route, as the UI layer would.
func (e *Emulator) ShowSubtitles(routeID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	info, err := e.route(routeID)
	if err != nil {
		return err
	}
	info.subtitles = true
	return nil
}

func (e *Emulator) SubtitleActive(_ context.Context, routeID int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("SubtitleActive", "route=%d", routeID); err != nil {
		return false, err
	}
	info, err := e.route(routeID)
	if err != nil {
		return false, err
	}
	return info.subtitles, nil
}

func (e *Emulator) HideSubtitles(_ context.Context, routeID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("HideSubtitles", "route=%d", routeID); err != nil {
		return err
	}
	info, err := e.route(routeID)
	if err != nil {
		return err
	}
	info.subtitles = false
	return nil
}

func (e *Emulator) Volume(context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("Volume", ""); err != nil {
		return 0, err
	}
	return e.volume, nil
}

func (e *Emulator) SetVolume(_ context.Context, percent int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("SetVolume", "percent=%d", percent); err != nil {
		return err
	}
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume %d out of range", ErrRejected, percent)
	}
	e.volume = percent
	return nil
}

func (e *Emulator) Muted(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("Muted", ""); err != nil {
		return false, err
	}
	return e.muted, nil
}

func (e *Emulator) SetMute(_ context.Context, muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("SetMute", "muted=%t", muted); err != nil {
		return err
	}
	e.muted = muted
	return nil
}
