package emulator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tvcore/internal/middleware"
)

// Profile describes the emulated hardware and broadcast environment.
type Profile struct {
	BootDelayMillis int                         `yaml:"boot_delay_ms"`
	Frontends       []FrontendProfile           `yaml:"frontends"`
	Decoders        int                         `yaml:"decoders"`
	Outputs         int                         `yaml:"outputs"`
	Storage         int                         `yaml:"storage"`
	ServiceCapacity int                         `yaml:"service_capacity"`
	Preinstalled    bool                        `yaml:"preinstalled"`
	AutoEPG         bool                        `yaml:"auto_epg"`
	ScanStepMillis  int                         `yaml:"scan_step_ms"`
	EventMinutes    int                         `yaml:"event_minutes"`
	StreamDayOffset int                         `yaml:"stream_day_offset"`
	Networks        map[string][]ServiceProfile `yaml:"networks"`
	Streams         []TransportStreamProfile    `yaml:"transport_streams"`
	AudioLanguages  []string                    `yaml:"audio_languages"`
	SubtitleLangs   []string                    `yaml:"subtitle_languages"`
}

// FrontendProfile is one emulated tuner.
type FrontendProfile struct {
	Name  string   `yaml:"name"`
	Types []string `yaml:"types"`
}

// ServiceProfile is one broadcast service a scan will discover.
type ServiceProfile struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"`
	Frequency int    `yaml:"frequency"`
}

// TransportStreamProfile points at a TS capture whose programs are added to
// the given technology's network at the given frequency.
type TransportStreamProfile struct {
	Path       string `yaml:"path"`
	Technology string `yaml:"technology"`
	Frequency  int    `yaml:"frequency"`
}

// DefaultProfile is a hybrid box: one terrestrial tuner, one IP frontend, a
// single decoder and output, and a small terrestrial network.
func DefaultProfile() Profile {
	return Profile{
		Frontends: []FrontendProfile{
			{Name: "dvb-t0", Types: []string{"terrestrial"}},
			{Name: "ip0", Types: []string{"ip"}},
		},
		Decoders:     1,
		Outputs:      1,
		EventMinutes: 30,
		Networks: map[string][]ServiceProfile{
			"terrestrial": {
				{Name: "News 24", Kind: "tv", Frequency: 474000},
				{Name: "Sport One", Kind: "tv", Frequency: 474000},
				{Name: "Classic FM", Kind: "radio", Frequency: 474000},
				{Name: "Movies HD", Kind: "tv", Frequency: 522000},
			},
		},
		AudioLanguages: []string{"eng", "deu"},
		SubtitleLangs:  []string{"eng"},
	}
}

// LoadProfile reads a YAML profile from disk.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read emulator profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(data []byte) (Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse emulator profile: %w", err)
	}
	if err := profile.validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (p *Profile) validate() error {
	for i, fe := range p.Frontends {
		if len(fe.Types) == 0 {
			return fmt.Errorf("frontend %d: at least one type is required", i)
		}
		for _, name := range fe.Types {
			if _, ok := middleware.ParseFrontendType(name); !ok {
				return fmt.Errorf("frontend %d: unknown type %q", i, name)
			}
		}
	}
	for tech := range p.Networks {
		if _, ok := middleware.ParseFrontendType(tech); !ok {
			return fmt.Errorf("networks: unknown technology %q", tech)
		}
	}
	for i, ts := range p.Streams {
		if strings.TrimSpace(ts.Path) == "" {
			return fmt.Errorf("transport_streams %d: path is required", i)
		}
		if _, ok := middleware.ParseFrontendType(ts.Technology); !ok {
			return fmt.Errorf("transport_streams %d: unknown technology %q", i, ts.Technology)
		}
	}
	if p.Decoders < 0 || p.Outputs < 0 || p.Storage < 0 {
		return fmt.Errorf("component counts must be zero or positive")
	}
	if p.EventMinutes <= 0 {
		p.EventMinutes = 30
	}
	return nil
}

func (fp FrontendProfile) flags() middleware.FrontendType {
	var types middleware.FrontendType
	for _, name := range fp.Types {
		if flag, ok := middleware.ParseFrontendType(name); ok {
			types |= flag
		}
	}
	return types
}

func networkKey(flag middleware.FrontendType) string {
	switch flag {
	case middleware.FrontendTerrestrial:
		return "terrestrial"
	case middleware.FrontendCable:
		return "cable"
	case middleware.FrontendSatellite:
		return "satellite"
	default:
		return "ip"
	}
}
