package emulator

import (
	"context"
	"fmt"
	"time"

	"tvcore/internal/middleware"
)

func (e *Emulator) SubscribeScan(listener middleware.ScanListener) func() {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.scanSubs[id] = listener
	return func() {
		e.listenerMu.Lock()
		defer e.listenerMu.Unlock()
		delete(e.scanSubs, id)
	}
}

func (e *Emulator) emitScan(event middleware.ScanEvent) {
	e.listenerMu.Lock()
	listeners := make([]middleware.ScanListener, 0, len(e.scanSubs))
	for i := 0; i < e.nextListener; i++ {
		if l, ok := e.scanSubs[i]; ok {
			listeners = append(listeners, l)
		}
	}
	e.listenerMu.Unlock()
	for _, l := range listeners {
		l(event)
	}
}

func (e *Emulator) SetManualParams(_ context.Context, params middleware.SatelliteParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("SetManualParams", "frequency=%d symbol_rate=%d polarization=%s modulation=%s fec=%s roll_off=%s",
		params.FrequencyKHz, params.SymbolRate, params.Polarization, params.Modulation, params.FEC, params.RollOff); err != nil {
		return err
	}
	e.satParams = params
	return nil
}

func (e *Emulator) AutoScan(ctx context.Context, routeID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("AutoScan", "route=%d", routeID); err != nil {
		return err
	}
	info, err := e.route(routeID)
	if err != nil {
		return err
	}
	if info.key.kind != routeInstall {
		return fmt.Errorf("%w: route %d is not an install route", ErrRejected, routeID)
	}
	flag := info.configured
	if flag == 0 {
		flag = firstBroadcastType(e.frontends[info.frontendID].Types)
	}
	if flag == 0 {
		return fmt.Errorf("%w: frontend %d has no broadcast technology", ErrRejected, info.frontendID)
	}
	return e.startScanLocked(routeID, flag, e.networks[flag])
}

func (e *Emulator) ManualScan(ctx context.Context, routeID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("ManualScan", "route=%d", routeID); err != nil {
		return err
	}
	info, err := e.route(routeID)
	if err != nil {
		return err
	}
	if info.key.kind != routeInstall || !e.frontends[info.frontendID].Types.Has(middleware.FrontendSatellite) {
		return fmt.Errorf("%w: route %d cannot run a satellite manual scan", ErrRejected, routeID)
	}
	if e.satParams.FrequencyKHz == 0 {
		return fmt.Errorf("%w: manual tuning parameters not set", ErrRejected)
	}
	var found []ServiceProfile
	for _, svc := range e.networks[middleware.FrontendSatellite] {
		if svc.Frequency == 0 || svc.Frequency == e.satParams.FrequencyKHz {
			found = append(found, svc)
		}
	}
	return e.startScanLocked(routeID, middleware.FrontendSatellite, found)
}

func (e *Emulator) AbortScan(_ context.Context, routeID int) error {
	e.mu.Lock()
	if err := e.recordLocked("AbortScan", "route=%d", routeID); err != nil {
		e.mu.Unlock()
		return err
	}
	cancel := e.scanCancel
	e.scanCancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.scanWG.Wait()
	return nil
}

func firstBroadcastType(types middleware.FrontendType) middleware.FrontendType {
	for _, flag := range []middleware.FrontendType{middleware.FrontendTerrestrial, middleware.FrontendCable, middleware.FrontendSatellite} {
		if types.Has(flag) {
			return flag
		}
	}
	return 0
}

// startScanLocked launches the telemetry goroutine. Callers hold e.mu.
func (e *Emulator) startScanLocked(routeID int, flag middleware.FrontendType, found []ServiceProfile) error {
	if e.scanCancel != nil {
		return fmt.Errorf("%w: scan already running", ErrRejected)
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.scanCancel = cancel
	capacity := e.profile.ServiceCapacity
	existing := 0
	for _, svc := range e.installed {
		if svc.Types != flag {
			existing++
		}
	}
	step := time.Duration(e.profile.ScanStepMillis) * time.Millisecond
	services := append([]ServiceProfile(nil), found...)

	e.scanWG.Add(1)
	go func() {
		defer e.scanWG.Done()
		e.runScan(ctx, routeID, flag, services, capacity, existing, step)
	}()
	return nil
}

func (e *Emulator) runScan(ctx context.Context, routeID int, flag middleware.FrontendType, services []ServiceProfile, capacity, existing int, step time.Duration) {
	defer func() {
		e.mu.Lock()
		e.scanCancel = nil
		e.mu.Unlock()
	}()

	emit := func(kind middleware.ScanEventKind, value int, text string) bool {
		if step > 0 {
			select {
			case <-time.After(step):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			return false
		}
		e.emitScan(middleware.ScanEvent{Kind: kind, RouteID: routeID, Value: value, Text: text})
		return true
	}

	seen := make(map[int]bool)
	accepted := make([]ServiceProfile, 0, len(services))
	for i, svc := range services {
		if !seen[svc.Frequency] {
			seen[svc.Frequency] = true
			if !emit(middleware.ScanFrequency, svc.Frequency, "") ||
				!emit(middleware.ScanSignalLevel, 80, "") ||
				!emit(middleware.ScanSignalQuality, 90, "") ||
				!emit(middleware.ScanSignalBER, 0, "") {
				return
			}
		}
		if capacity > 0 && existing+len(accepted) >= capacity {
			e.commitScan(flag, accepted)
			emit(middleware.ScanNoServiceSpace, len(accepted), "")
			return
		}
		kind := middleware.ScanServiceTV
		switch middleware.ParseServiceKind(svc.Kind) {
		case middleware.ServiceRadio, middleware.ServiceAdvancedCodecRadio:
			kind = middleware.ScanServiceRadio
		case middleware.ServiceData:
			kind = middleware.ScanServiceData
		}
		if !emit(kind, i, svc.Name) {
			return
		}
		accepted = append(accepted, svc)
		if progress := (i + 1) * 100 / len(services); progress < 100 {
			if !emit(middleware.ScanProgress, progress, "") {
				return
			}
		}
	}

	e.commitScan(flag, accepted)
	if !emit(middleware.ScanDatabaseUpdated, len(accepted), "") {
		return
	}
	if emit(middleware.ScanProgress, 100, "") {
		emit(middleware.ScanFinished, len(accepted), "")
	}
}

func (e *Emulator) commitScan(flag middleware.FrontendType, services []ServiceProfile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.installLocked(flag, services)
}
