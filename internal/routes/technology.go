package routes

import (
	"fmt"
	"strings"

	"tvcore/internal/middleware"
)

// Technology is the closed set of delivery technologies and IP session slots
// a RouteSet can be attached to.
type Technology int

const (
	Terrestrial Technology = iota + 1
	Cable
	Satellite
	IPPrimary
	IPSecondary
	IPPip
)

// Technologies lists every technology in assignment order.
var Technologies = []Technology{Terrestrial, Cable, Satellite, IPPrimary, IPSecondary, IPPip}

var broadcast = []Technology{Terrestrial, Cable, Satellite}

func (t Technology) String() string {
	switch t {
	case Terrestrial:
		return "terrestrial"
	case Cable:
		return "cable"
	case Satellite:
		return "satellite"
	case IPPrimary:
		return "ip_primary"
	case IPSecondary:
		return "ip_secondary"
	case IPPip:
		return "ip_pip"
	default:
		return "unknown"
	}
}

// ParseTechnology accepts the String form; "ip" is shorthand for IPPrimary.
func ParseTechnology(value string) (Technology, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "terrestrial":
		return Terrestrial, nil
	case "cable":
		return Cable, nil
	case "satellite":
		return Satellite, nil
	case "ip", "ip_primary":
		return IPPrimary, nil
	case "ip_secondary":
		return IPSecondary, nil
	case "ip_pip":
		return IPPip, nil
	default:
		return 0, fmt.Errorf("unknown technology %q", value)
	}
}

func (t Technology) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Technology) UnmarshalText(text []byte) error {
	parsed, err := ParseTechnology(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsBroadcast reports whether the technology is tuned by service index.
func (t Technology) IsBroadcast() bool {
	return t == Terrestrial || t == Cable || t == Satellite
}

// IsIP reports whether the technology is tuned by URL.
func (t Technology) IsIP() bool {
	return t == IPPrimary || t == IPSecondary || t == IPPip
}

// FrontendType is the frontend capability flag a route needs for t.
func (t Technology) FrontendType() middleware.FrontendType {
	switch t {
	case Terrestrial:
		return middleware.FrontendTerrestrial
	case Cable:
		return middleware.FrontendCable
	case Satellite:
		return middleware.FrontendSatellite
	case IPPrimary, IPSecondary, IPPip:
		return middleware.FrontendIP
	default:
		return 0
	}
}

// TechnologyForFrontend maps a single broadcast frontend flag back to its
// technology. IP maps to IPPrimary.
func TechnologyForFrontend(flag middleware.FrontendType) (Technology, bool) {
	switch flag {
	case middleware.FrontendTerrestrial:
		return Terrestrial, true
	case middleware.FrontendCable:
		return Cable, true
	case middleware.FrontendSatellite:
		return Satellite, true
	case middleware.FrontendIP:
		return IPPrimary, true
	default:
		return 0, false
	}
}
