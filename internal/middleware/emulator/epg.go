package emulator

import (
	"context"
	"fmt"
	"time"

	"tvcore/internal/middleware"
)

type eventList struct {
	start, end time.Time
	service    int
	acquiring  bool
	events     []middleware.EpgEvent
}

var genreCycle = []int{0x1, 0x2, 0x4, 0x5, 0x6, 0x7, 0xA, 0x3, 0x8, 0x9, 0xB}

func (e *Emulator) SubscribeEPG(listener middleware.EpgListener) func() {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.epgSubs[id] = listener
	return func() {
		e.listenerMu.Lock()
		defer e.listenerMu.Unlock()
		delete(e.epgSubs, id)
	}
}

// EmitEPG delivers an EPG notification to every subscriber on the calling
// goroutine.
func (e *Emulator) EmitEPG(n middleware.EpgNotification) {
	e.listenerMu.Lock()
	listeners := make([]middleware.EpgListener, 0, len(e.epgSubs))
	for i := 0; i < e.nextListener; i++ {
		if l, ok := e.epgSubs[i]; ok {
			listeners = append(listeners, l)
		}
	}
	e.listenerMu.Unlock()
	for _, l := range listeners {
		l(n)
	}
}

func (e *Emulator) CreateEventList(context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("CreateEventList", ""); err != nil {
		return 0, err
	}
	e.nextHandle++
	e.lists[e.nextHandle] = &eventList{service: -1}
	return e.nextHandle, nil
}

func (e *Emulator) ReleaseEventList(_ context.Context, handle int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("ReleaseEventList", "handle=%d", handle); err != nil {
		return err
	}
	delete(e.lists, handle)
	return nil
}

func (e *Emulator) list(handle int) (*eventList, error) {
	l, ok := e.lists[handle]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event list %d", ErrRejected, handle)
	}
	return l, nil
}

func (e *Emulator) SetTimeFilter(_ context.Context, handle int, start, end time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("SetTimeFilter", "handle=%d", handle); err != nil {
		return err
	}
	l, err := e.list(handle)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("%w: empty time window", ErrRejected)
	}
	l.start, l.end = start, end
	return nil
}

func (e *Emulator) SetServiceFilter(_ context.Context, handle int, serviceIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("SetServiceFilter", "handle=%d service=%d", handle, serviceIndex); err != nil {
		return err
	}
	l, err := e.list(handle)
	if err != nil {
		return err
	}
	l.service = serviceIndex
	return nil
}

func (e *Emulator) StartAcquisition(_ context.Context, handle int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("StartAcquisition", "handle=%d", handle); err != nil {
		return err
	}
	l, err := e.list(handle)
	if err != nil {
		return err
	}
	if l.service < 0 || l.start.IsZero() {
		return fmt.Errorf("%w: filters not set on event list %d", ErrRejected, handle)
	}
	svc, err := e.serviceLocked(middleware.MasterList, l.service)
	if err != nil {
		return err
	}
	l.events = e.synthesize(svc, l.start, l.end)
	l.acquiring = true
	return nil
}

func (e *Emulator) StopAcquisition(_ context.Context, handle int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("StopAcquisition", "handle=%d", handle); err != nil {
		return err
	}
	l, err := e.list(handle)
	if err != nil {
		return err
	}
	l.acquiring = false
	return nil
}

func (e *Emulator) EventCount(_ context.Context, handle int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("EventCount", "handle=%d", handle); err != nil {
		return 0, err
	}
	l, err := e.list(handle)
	if err != nil {
		return 0, err
	}
	if !l.acquiring {
		return 0, fmt.Errorf("%w: acquisition not started", ErrRejected)
	}
	return len(l.events), nil
}

func (e *Emulator) Event(_ context.Context, handle, index int) (middleware.EpgEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("Event", "handle=%d index=%d", handle, index); err != nil {
		return middleware.EpgEvent{}, err
	}
	l, err := e.list(handle)
	if err != nil {
		return middleware.EpgEvent{}, err
	}
	if index < 0 || index >= len(l.events) {
		return middleware.EpgEvent{}, fmt.Errorf("%w: event %d out of range", ErrRejected, index)
	}
	return l.events[index], nil
}

func (e *Emulator) ExtendedDescription(_ context.Context, handle, index int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("ExtendedDescription", "handle=%d index=%d", handle, index); err != nil {
		return "", err
	}
	l, err := e.list(handle)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(l.events) {
		return "", fmt.Errorf("%w: event %d out of range", ErrRejected, index)
	}
	return "Full listing for " + l.events[index].Name + ".", nil
}

func (e *Emulator) PresentFollowing(_ context.Context, serviceIndex int) (*middleware.EpgEvent, *middleware.EpgEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("PresentFollowing", "service=%d", serviceIndex); err != nil {
		return nil, nil, err
	}
	svc, err := e.serviceLocked(middleware.MasterList, serviceIndex)
	if err != nil {
		return nil, nil, err
	}
	slot := time.Duration(e.profile.EventMinutes) * time.Minute
	now := e.streamNowLocked()
	start := now.Truncate(slot)
	events := e.synthesize(svc, start, start.Add(2*slot))
	if len(events) < 2 {
		return nil, nil, nil
	}
	return &events[0], &events[1], nil
}

func (e *Emulator) StreamTime(context.Context) (time.Time, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.recordLocked("StreamTime", ""); err != nil {
		return time.Time{}, err
	}
	return e.streamNowLocked(), nil
}

func (e *Emulator) streamNowLocked() time.Time {
	return e.now().AddDate(0, 0, e.profile.StreamDayOffset)
}

// synthesize builds back-to-back events of EventMinutes length covering
// [start, end) aligned to the slot grid. Data services and the playback
// placeholder carry no schedule; radio gets hourly shows.
func (e *Emulator) synthesize(svc middleware.Service, start, end time.Time) []middleware.EpgEvent {
	if svc.Kind == middleware.ServiceMediaPlayback || svc.Kind == middleware.ServiceData {
		return nil
	}
	slot := time.Duration(e.profile.EventMinutes) * time.Minute
	if svc.Kind.IsRadio() {
		slot = time.Hour
	}
	var events []middleware.EpgEvent
	for t := start.Truncate(slot); t.Before(end); t = t.Add(slot) {
		n := int(t.Unix() / int64(slot/time.Second))
		events = append(events, middleware.EpgEvent{
			Name:           fmt.Sprintf("%s %s", svc.Name, t.UTC().Format("15:04")),
			Description:    fmt.Sprintf("Programme on %s", svc.Name),
			Start:          t,
			End:            t.Add(slot),
			ParentalRating: n % 19,
			Genre:          genreCycle[n%len(genreCycle)],
		})
	}
	return events
}
