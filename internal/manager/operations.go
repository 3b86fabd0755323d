package manager

import (
	"context"
	"fmt"
	"time"

	"tvcore/internal/epg"
	"tvcore/internal/routes"
	"tvcore/internal/scan"
	"tvcore/internal/services"
	"tvcore/internal/store"
	"tvcore/internal/tuning"
)

// Status summarizes the control plane for the CLI and HTTP API.
type Status struct {
	Channels    int                 `json:"channels"`
	Active      tuning.Snapshot     `json:"active"`
	Scan        scan.Status         `json:"scan"`
	EPGEnabled  bool                `json:"epg_enabled"`
	EPGLastRun  *epg.Run            `json:"epg_last_run,omitempty"`
	Routes      routes.Counts       `json:"routes"`
	Assignments []routes.Assignment `json:"assignments"`
}

// Status returns a snapshot of every component.
func (m *Manager) Status() Status {
	st := Status{
		Channels:    m.catalog.Size(),
		Active:      m.state.Snapshot(),
		Scan:        m.scanner.Status(),
		EPGEnabled:  m.worker != nil,
		Routes:      m.table.Counts(),
		Assignments: m.table.Assignments(),
	}
	if m.worker != nil {
		if run := m.worker.LastRun(); run.Mode != "" {
			st.EPGLastRun = &run
		}
	}
	return st
}

// Channel looks a channel up by catalog id.
func (m *Manager) Channel(id int64) (store.Channel, error) {
	ch, ok := m.catalog.ByID(id)
	if !ok {
		return store.Channel{}, services.Wrap(services.ErrNotFound, "manager", "channel", fmt.Sprintf("channel %d", id), nil)
	}
	return ch, nil
}

// Tune plays the channel with the given catalog id. An unknown id returns
// services.ErrNotFound; every other outcome is carried in the result.
func (m *Manager) Tune(ctx context.Context, id int64) (tuning.Result, error) {
	ch, err := m.Channel(id)
	if err != nil {
		return tuning.Result{Err: err}, err
	}
	return m.tuner.Tune(ctx, ch), nil
}

// Stop ends playback.
func (m *Manager) Stop(ctx context.Context) {
	m.tuner.Stop(ctx)
}

// NowPlaying returns the program airing now on a channel, or nil when the
// guide has nothing for this moment.
func (m *Manager) NowPlaying(ctx context.Context, id int64) (*store.Program, error) {
	if _, err := m.Channel(id); err != nil {
		return nil, err
	}
	return m.store.ProgramAt(ctx, id, m.now())
}

// Programs returns the guide for a channel over [from, to).
func (m *Manager) Programs(ctx context.Context, id int64, from, to time.Time) ([]*store.Program, error) {
	if _, err := m.Channel(id); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, services.Wrap(services.ErrInvalidOperation, "manager", "programs", "empty time range", nil)
	}
	return m.store.ProgramsBetween(ctx, id, from, to)
}

// Acquisitions lists EPG acquisition state per frequency.
func (m *Manager) Acquisitions() []epg.Acquisition {
	if m.worker == nil {
		return nil
	}
	return m.worker.Scheduler().Snapshot()
}

// RequestEPG queues a full acquisition for the active transponder.
func (m *Manager) RequestEPG() error {
	if m.worker == nil {
		return services.Wrap(services.ErrInvalidOperation, "manager", "epg", "epg acquisition is disabled", nil)
	}
	if !m.worker.Enqueue(epg.ModeFull, 0) {
		return services.Wrap(services.ErrInvalidOperation, "manager", "epg", "epg queue is full", nil)
	}
	return nil
}
