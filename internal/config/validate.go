package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMiddleware(); err != nil {
		return err
	}
	if err := c.validateDisplay(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if !strings.Contains(c.Paths.APIBind, ":") {
		return fmt.Errorf("paths.api_bind must be host:port, got %q", c.Paths.APIBind)
	}
	return nil
}

func (c *Config) validateMiddleware() error {
	if c.Middleware.WaitTimeoutSeconds < 0 {
		return errors.New("middleware.wait_timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateDisplay() error {
	rects := map[string][]int{
		"display.demo_broadcast_rect": c.Display.DemoBroadcastRect,
		"display.demo_ip_rect":        c.Display.DemoIPRect,
		"display.video_rect":          c.Display.VideoRect,
	}
	for key, rect := range rects {
		if len(rect) != 4 {
			return fmt.Errorf("%s must have 4 values (x, y, width, height), got %d", key, len(rect))
		}
		if rect[2] <= 0 || rect[3] <= 0 {
			return fmt.Errorf("%s width and height must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.FrequencyKHz < 0 || c.Scan.SymbolRate < 0 {
		return errors.New("scan.frequency_khz and scan.symbol_rate must be zero or positive")
	}
	switch c.Scan.Polarization {
	case "", "horizontal", "vertical", "left", "right":
	default:
		return fmt.Errorf("scan.polarization: unsupported value %q", c.Scan.Polarization)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
