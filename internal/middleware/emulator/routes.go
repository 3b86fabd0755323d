package emulator

import (
	"context"
	"fmt"

	"tvcore/internal/middleware"
)

func (e *Emulator) count(op string, n int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked(op, ""); err != nil {
		return 0, err
	}
	return n, nil
}

func (e *Emulator) FrontendCount(context.Context) (int, error) {
	return e.count("FrontendCount", len(e.profile.Frontends))
}

func (e *Emulator) DecoderCount(context.Context) (int, error) {
	return e.count("DecoderCount", e.profile.Decoders)
}

func (e *Emulator) OutputCount(context.Context) (int, error) {
	return e.count("OutputCount", e.profile.Outputs)
}

func (e *Emulator) StorageCount(context.Context) (int, error) {
	return e.count("StorageCount", e.profile.Storage)
}

func (e *Emulator) Frontend(_ context.Context, index int) (middleware.Frontend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("Frontend", "index=%d", index); err != nil {
		return middleware.Frontend{}, err
	}
	if index < 0 || index >= len(e.frontends) {
		return middleware.Frontend{}, fmt.Errorf("%w: frontend %d out of range", ErrRejected, index)
	}
	return e.frontends[index], nil
}

// routeID returns the stable identifier for key, allocating one on first use.
func (e *Emulator) routeID(key routeKey, frontendID int) int {
	if id, ok := e.routeIDs[key]; ok {
		return id
	}
	id := len(e.routes)
	e.routeIDs[key] = id
	e.routes = append(e.routes, &routeInfo{key: key, frontendID: frontendID})
	return id
}

func inRange(v, n int) bool { return v >= 0 && v < n }

func (e *Emulator) InstallRoute(_ context.Context, frontendID, demuxID int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("InstallRoute", "frontend=%d demux=%d", frontendID, demuxID); err != nil {
		return middleware.InvalidRouteID, err
	}
	if !inRange(frontendID, len(e.frontends)) {
		return middleware.InvalidRouteID, nil
	}
	return e.routeID(routeKey{kind: routeInstall, a: frontendID, b: demuxID}, frontendID), nil
}

func (e *Emulator) LiveRoute(_ context.Context, frontendID, demuxID, decoderID, outputID int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("LiveRoute", "frontend=%d demux=%d decoder=%d output=%d", frontendID, demuxID, decoderID, outputID); err != nil {
		return middleware.InvalidRouteID, err
	}
	if !inRange(frontendID, len(e.frontends)) || !inRange(decoderID, e.profile.Decoders) || !inRange(outputID, e.profile.Outputs) {
		return middleware.InvalidRouteID, nil
	}
	return e.routeID(routeKey{kind: routeLive, a: frontendID, b: demuxID, c: decoderID, d: outputID}, frontendID), nil
}

func (e *Emulator) RecordRoute(_ context.Context, frontendID, demuxID, storageID int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("RecordRoute", "frontend=%d demux=%d storage=%d", frontendID, demuxID, storageID); err != nil {
		return middleware.InvalidRouteID, err
	}
	if !inRange(frontendID, len(e.frontends)) || !inRange(storageID, e.profile.Storage) {
		return middleware.InvalidRouteID, nil
	}
	return e.routeID(routeKey{kind: routeRecord, a: frontendID, b: demuxID, c: storageID}, frontendID), nil
}

func (e *Emulator) PlaybackRoute(_ context.Context, storageID, demuxID, decoderID, outputID int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("PlaybackRoute", "storage=%d demux=%d decoder=%d output=%d", storageID, demuxID, decoderID, outputID); err != nil {
		return middleware.InvalidRouteID, err
	}
	if !inRange(storageID, e.profile.Storage) || !inRange(decoderID, e.profile.Decoders) || !inRange(outputID, e.profile.Outputs) {
		return middleware.InvalidRouteID, nil
	}
	return e.routeID(routeKey{kind: routePlayback, a: storageID, b: demuxID, c: decoderID, d: outputID}, -1), nil
}

func (e *Emulator) ConfigureInstallRoute(_ context.Context, routeID int, types middleware.FrontendType) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("ConfigureInstallRoute", "route=%d types=%s", routeID, types); err != nil {
		return err
	}
	info, err := e.route(routeID)
	if err != nil {
		return err
	}
	if info.key.kind != routeInstall {
		return fmt.Errorf("%w: route %d is not an install route", ErrRejected, routeID)
	}
	if !e.frontends[info.frontendID].Types.Has(types) {
		return fmt.Errorf("%w: frontend %d does not support %s", ErrRejected, info.frontendID, types)
	}
	info.configured = types
	return nil
}

func (e *Emulator) ConfigureLiveRoute(_ context.Context, routeID int, settings middleware.LiveRouteSettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("ConfigureLiveRoute", "route=%d components=%d", routeID, settings.Components); err != nil {
		return err
	}
	info, err := e.route(routeID)
	if err != nil {
		return err
	}
	info.live = settings
	return nil
}

func (e *Emulator) ScaleWindow(_ context.Context, routeID int, rect middleware.Rect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("ScaleWindow", "route=%d rect=%d,%d,%d,%d", routeID, rect.X, rect.Y, rect.Width, rect.Height); err != nil {
		return err
	}
	_, err := e.route(routeID)
	return err
}
