package emulator

import (
	"context"
	"fmt"

	"tvcore/internal/middleware"
)

// installLocked replaces every installed service of the given technology with
// the supplied services and renumbers the master list. Callers hold e.mu.
func (e *Emulator) installLocked(flag middleware.FrontendType, services []ServiceProfile) {
	kept := make([]middleware.Service, 0, len(e.installed)+len(services))
	for _, svc := range e.installed {
		if svc.Types != flag {
			kept = append(kept, svc)
		}
	}
	for _, svc := range services {
		kept = append(kept, middleware.Service{
			Name:      svc.Name,
			Kind:      middleware.ParseServiceKind(svc.Kind),
			Frequency: svc.Frequency,
			Types:     flag,
		})
	}
	e.installed = kept
}

// masterListLocked is the installed list with the media playback placeholder
// at index 0 when an IP frontend exists.
func (e *Emulator) masterListLocked() []middleware.Service {
	list := make([]middleware.Service, 0, len(e.installed)+1)
	if e.hasIPFrontend() {
		list = append(list, middleware.Service{Name: "Media playback", Kind: middleware.ServiceMediaPlayback, Types: middleware.FrontendIP})
	}
	list = append(list, e.installed...)
	for i := range list {
		list[i].Index = i
	}
	return list
}

func (e *Emulator) ServiceCount(_ context.Context, list int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("ServiceCount", "list=%d", list); err != nil {
		return 0, err
	}
	if list != middleware.MasterList {
		return 0, nil
	}
	return len(e.masterListLocked()), nil
}

func (e *Emulator) Service(_ context.Context, list, index int) (middleware.Service, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("Service", "list=%d index=%d", list, index); err != nil {
		return middleware.Service{}, err
	}
	return e.serviceLocked(list, index)
}

func (e *Emulator) serviceLocked(list, index int) (middleware.Service, error) {
	master := e.masterListLocked()
	if list != middleware.MasterList || index < 0 || index >= len(master) {
		return middleware.Service{}, fmt.Errorf("%w: no service %d in list %d", ErrRejected, index, list)
	}
	return master[index], nil
}

func (e *Emulator) ActiveService(_ context.Context, routeID int) (middleware.Service, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("ActiveService", "route=%d", routeID); err != nil {
		return middleware.Service{}, false, err
	}
	info, err := e.route(routeID)
	if err != nil {
		return middleware.Service{}, false, err
	}
	if info.active == nil {
		return middleware.Service{}, false, nil
	}
	return *info.active, true, nil
}

func (e *Emulator) StartService(_ context.Context, routeID, list, index int) error {
	e.mu.Lock()
	if err := e.recordLocked("StartService", "route=%d list=%d index=%d", routeID, list, index); err != nil {
		e.mu.Unlock()
		return err
	}
	info, err := e.route(routeID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if info.key.kind != routeLive {
		e.mu.Unlock()
		return fmt.Errorf("%w: route %d is not a live route", ErrRejected, routeID)
	}
	svc, err := e.serviceLocked(list, index)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !e.frontends[info.frontendID].Types.Has(svc.Types) {
		e.mu.Unlock()
		return fmt.Errorf("%w: frontend %d cannot receive %s", ErrRejected, info.frontendID, svc.Types)
	}
	info.active = &svc
	info.url = ""
	autoEPG := e.profile.AutoEPG
	e.mu.Unlock()

	if autoEPG {
		go func() {
			e.EmitEPG(middleware.EpgNotification{Kind: middleware.EpgScheduleAcquired, Frequency: svc.Frequency})
			e.EmitEPG(middleware.EpgNotification{Kind: middleware.EpgPresentFollowingAcquired, Frequency: svc.Frequency})
		}()
	}
	return nil
}

func (e *Emulator) StopService(_ context.Context, routeID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	info, err := e.route(routeID)
	if err != nil {
		_ = e.recordLocked("StopService", "route=%d", routeID)
		return err
	}
	if err := e.recordLocked("StopService", "route=%d subtitles_bound=%t", routeID, info.subtitles); err != nil {
		return err
	}
	info.active = nil
	info.url = ""
	info.subtitles = false
	return nil
}

func (e *Emulator) Zap(_ context.Context, routeID int, url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("Zap", "route=%d url=%s", routeID, url); err != nil {
		return err
	}
	info, err := e.route(routeID)
	if err != nil {
		return err
	}
	if info.frontendID < 0 || !e.frontends[info.frontendID].Types.Has(middleware.FrontendIP) {
		return fmt.Errorf("%w: route %d is not IP capable", ErrRejected, routeID)
	}
	if url == "" {
		return fmt.Errorf("%w: empty url", ErrRejected)
	}
	info.active = nil
	info.url = url
	return nil
}
