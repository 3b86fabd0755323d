package scan

import (
	"time"

	"tvcore/internal/routes"
)

// State is the scanner's coarse lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
)

// Outcome is how the most recent scan ended.
type Outcome string

const (
	OutcomeNone           Outcome = ""
	OutcomeCompleted      Outcome = "completed"
	OutcomeNoServiceSpace Outcome = "no_service_space"
	OutcomeAborted        Outcome = "aborted"
	OutcomeFailed         Outcome = "failed"
	// OutcomeSkipped is reported for IP, where no generic scan exists.
	OutcomeSkipped Outcome = "skipped"
)

// Status is a point-in-time copy of scan telemetry.
type Status struct {
	ScanID         string            `json:"scan_id,omitempty"`
	State          State             `json:"state"`
	Technology     routes.Technology `json:"technology,omitempty"`
	RouteID        int               `json:"route_id"`
	Progress       int               `json:"progress"`
	Frequency      int               `json:"frequency,omitempty"`
	SignalLevel    int               `json:"signal_level"`
	SignalQuality  int               `json:"signal_quality"`
	SignalBER      int               `json:"signal_ber"`
	NetworkChanged bool              `json:"network_changed,omitempty"`
	Services       []string          `json:"services,omitempty"`
	Outcome        Outcome           `json:"outcome,omitempty"`
	Error          string            `json:"error,omitempty"`
	StartedAt      time.Time         `json:"started_at,omitzero"`
	FinishedAt     time.Time         `json:"finished_at,omitzero"`
}

func (s Status) clone() Status {
	s.Services = append([]string(nil), s.Services...)
	return s
}

// Duration is the elapsed scan time, or zero while running.
func (s Status) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
