package config

const (
	defaultConfigPath             = "~/.config/tvcore/config.toml"
	defaultStateDir               = "~/.local/share/tvcore"
	defaultLogDir                 = "~/.local/share/tvcore/logs"
	defaultAPIBind                = "127.0.0.1:7490"
	defaultPollIntervalMillis     = 1000
	defaultPollCycles             = 10
	defaultWaitTimeoutSeconds     = 30
	defaultEPGFreshnessSeconds    = 120
	defaultEPGWindowDays          = 7
	defaultEPGInitialDelaySeconds = 5
	defaultEPGQueueSize           = 16
	defaultNotifyRequestTimeout   = 10
	defaultDVBDeviceDir           = "/dev/dvb"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultSatFrequencyKHz        = 11778000
	defaultSatSymbolRate          = 27500
	defaultSatPolarization        = "vertical"
	defaultSatModulation          = "dvbs2-8psk"
	defaultSatFEC                 = "3/4"
	defaultSatRollOff             = "0.35"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Middleware: Middleware{
			PollIntervalMillis: defaultPollIntervalMillis,
			PollCycles:         defaultPollCycles,
			WaitTimeoutSeconds: defaultWaitTimeoutSeconds,
		},
		Display: Display{
			DemoBroadcastRect: []int{200, 0, 1280, 720},
			DemoIPRect:        []int{0, 200, 640, 480},
			VideoRect:         []int{0, 0, 1920, 1080},
		},
		Scan: Scan{
			FrequencyKHz: defaultSatFrequencyKHz,
			SymbolRate:   defaultSatSymbolRate,
			Polarization: defaultSatPolarization,
			Modulation:   defaultSatModulation,
			FEC:          defaultSatFEC,
			RollOff:      defaultSatRollOff,
		},
		EPG: EPG{
			Enabled:                true,
			FreshnessWindowSeconds: defaultEPGFreshnessSeconds,
			WindowDays:             defaultEPGWindowDays,
			InitialDelaySeconds:    defaultEPGInitialDelaySeconds,
			QueueSize:              defaultEPGQueueSize,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Hardware: Hardware{
			DVBDeviceDir: defaultDVBDeviceDir,
			WatchHotplug: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
