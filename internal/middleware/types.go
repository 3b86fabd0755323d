package middleware

import (
	"strings"
	"time"
)

// InvalidRouteID is returned by route queries for combinations the hardware
// cannot serve.
const InvalidRouteID = -1

// MasterList addresses the middleware's authoritative service list.
const MasterList = 0

// FrontendType is the set of delivery technologies a tuner advertises. Hybrid
// tuners report more than one flag.
type FrontendType uint8

const (
	FrontendTerrestrial FrontendType = 1 << iota
	FrontendCable
	FrontendSatellite
	FrontendIP
)

// Has reports whether every bit of flag is set.
func (t FrontendType) Has(flag FrontendType) bool {
	return flag != 0 && t&flag == flag
}

func (t FrontendType) String() string {
	names := make([]string, 0, 4)
	if t.Has(FrontendTerrestrial) {
		names = append(names, "terrestrial")
	}
	if t.Has(FrontendCable) {
		names = append(names, "cable")
	}
	if t.Has(FrontendSatellite) {
		names = append(names, "satellite")
	}
	if t.Has(FrontendIP) {
		names = append(names, "ip")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseFrontendType maps a single technology name to its flag.
func ParseFrontendType(name string) (FrontendType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "terrestrial", "ter", "dvb-t":
		return FrontendTerrestrial, true
	case "cable", "cab", "dvb-c":
		return FrontendCable, true
	case "satellite", "sat", "dvb-s":
		return FrontendSatellite, true
	case "ip":
		return FrontendIP, true
	default:
		return 0, false
	}
}

// Frontend describes one physical tuner.
type Frontend struct {
	ID    int
	Name  string
	Types FrontendType
}

// Rect is an output window in screen pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RectFromSlice converts an [x, y, w, h] configuration value.
func RectFromSlice(values []int) Rect {
	if len(values) != 4 {
		return Rect{}
	}
	return Rect{X: values[0], Y: values[1], Width: values[2], Height: values[3]}
}

// Component selects elementary stream types delivered on a live route.
type Component uint8

const (
	ComponentVideo Component = 1 << iota
	ComponentAudio
	ComponentSubtitle

	ComponentAll = ComponentVideo | ComponentAudio | ComponentSubtitle
)

// LiveRouteSettings configures a live route at the hardware level.
type LiveRouteSettings struct {
	Components    Component
	VideoPosition Rect
}

// ServiceKind classifies a broadcast service.
type ServiceKind int

const (
	ServiceTV ServiceKind = iota
	ServiceRadio
	ServiceAdvancedCodecRadio
	ServiceData
	// ServiceMediaPlayback is the placeholder entry the middleware keeps at
	// master index 0 when an IP frontend is present.
	ServiceMediaPlayback
)

// IsRadio reports whether the service carries audio only.
func (k ServiceKind) IsRadio() bool {
	return k == ServiceRadio || k == ServiceAdvancedCodecRadio
}

func (k ServiceKind) String() string {
	switch k {
	case ServiceTV:
		return "tv"
	case ServiceRadio:
		return "radio"
	case ServiceAdvancedCodecRadio:
		return "radio_advanced_codec"
	case ServiceData:
		return "data"
	case ServiceMediaPlayback:
		return "media_playback"
	default:
		return "unknown"
	}
}

func (k ServiceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ServiceKind) UnmarshalText(text []byte) error {
	*k = ParseServiceKind(string(text))
	return nil
}

// ParseServiceKind is the inverse of ServiceKind.String.
func ParseServiceKind(value string) ServiceKind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "radio":
		return ServiceRadio
	case "radio_advanced_codec":
		return ServiceAdvancedCodecRadio
	case "data":
		return ServiceData
	case "media_playback":
		return ServiceMediaPlayback
	default:
		return ServiceTV
	}
}

// Service is one entry of a middleware service list.
type Service struct {
	Index     int
	Name      string
	Kind      ServiceKind
	Frequency int
	Types     FrontendType
}

// SatelliteParams is the fixed manual tuning profile applied before a
// satellite manual scan.
type SatelliteParams struct {
	FrequencyKHz int
	SymbolRate   int
	Polarization string
	Modulation   string
	FEC          string
	RollOff      string
}

// Track is an audio or subtitle track on the active route.
type Track struct {
	Index    int
	Language string
}

// EpgEvent is one program event returned from an acquisition window.
type EpgEvent struct {
	Name           string
	Description    string
	Start          time.Time
	End            time.Time
	ParentalRating int
	// Genre is the DVB content nibble (level 1).
	Genre int
}
