package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMiddleware(); err != nil {
		return err
	}
	if err := c.normalizeChannels(); err != nil {
		return err
	}
	c.normalizeDisplay()
	c.normalizeScan()
	c.normalizeEPG()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("TVCORE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeMiddleware() error {
	var err error
	c.Middleware.ReadyProperty = strings.TrimSpace(c.Middleware.ReadyProperty)
	if c.Middleware.ReadyProperty, err = expandPath(c.Middleware.ReadyProperty); err != nil {
		return fmt.Errorf("middleware.ready_property: %w", err)
	}
	c.Middleware.EmulatorProfile = strings.TrimSpace(c.Middleware.EmulatorProfile)
	if c.Middleware.EmulatorProfile, err = expandPath(c.Middleware.EmulatorProfile); err != nil {
		return fmt.Errorf("middleware.emulator_profile: %w", err)
	}
	if c.Middleware.PollIntervalMillis <= 0 {
		c.Middleware.PollIntervalMillis = defaultPollIntervalMillis
	}
	if c.Middleware.PollCycles <= 0 {
		c.Middleware.PollCycles = defaultPollCycles
	}
	return nil
}

func (c *Config) normalizeChannels() error {
	var err error
	c.Channels.IPSeedFile = strings.TrimSpace(c.Channels.IPSeedFile)
	if c.Channels.IPSeedFile, err = expandPath(c.Channels.IPSeedFile); err != nil {
		return fmt.Errorf("channels.ip_seed_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeDisplay() {
	defaults := Default().Display
	if len(c.Display.DemoBroadcastRect) == 0 {
		c.Display.DemoBroadcastRect = defaults.DemoBroadcastRect
	}
	if len(c.Display.DemoIPRect) == 0 {
		c.Display.DemoIPRect = defaults.DemoIPRect
	}
	if len(c.Display.VideoRect) == 0 {
		c.Display.VideoRect = defaults.VideoRect
	}
}

func (c *Config) normalizeScan() {
	c.Scan.Polarization = strings.ToLower(strings.TrimSpace(c.Scan.Polarization))
	c.Scan.Modulation = strings.ToLower(strings.TrimSpace(c.Scan.Modulation))
	c.Scan.FEC = strings.TrimSpace(c.Scan.FEC)
	c.Scan.RollOff = strings.TrimSpace(c.Scan.RollOff)
}

func (c *Config) normalizeEPG() {
	if c.EPG.FreshnessWindowSeconds <= 0 {
		c.EPG.FreshnessWindowSeconds = defaultEPGFreshnessSeconds
	}
	if c.EPG.WindowDays <= 0 {
		c.EPG.WindowDays = defaultEPGWindowDays
	}
	if c.EPG.InitialDelaySeconds < 0 {
		c.EPG.InitialDelaySeconds = 0
	}
	if c.EPG.QueueSize <= 0 {
		c.EPG.QueueSize = defaultEPGQueueSize
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("TVCORE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
