package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Middleware contains the readiness rendezvous and binding settings.
type Middleware struct {
	// ReadyProperty is a file whose trimmed content is "1" once the middleware
	// has booted. Empty means the binding's own readiness signal is used.
	ReadyProperty      string `toml:"ready_property"`
	PollIntervalMillis int    `toml:"poll_interval_ms"`
	PollCycles         int    `toml:"poll_cycles"`
	WaitTimeoutSeconds int    `toml:"wait_timeout_seconds"`
	EmulatorProfile    string `toml:"emulator_profile"`
}

// Display contains video geometry settings applied after each tune.
type Display struct {
	DemoMode          bool  `toml:"demo_mode"`
	DemoBroadcastRect []int `toml:"demo_broadcast_rect"`
	DemoIPRect        []int `toml:"demo_ip_rect"`
	VideoRect         []int `toml:"video_rect"`
}

// Channels contains catalog construction settings.
type Channels struct {
	IPSeedEnabled bool   `toml:"ip_seed_enabled"`
	IPSeedFile    string `toml:"ip_seed_file"`
	// SkipRadio drops digital radio services during refresh, for decoder
	// profiles that cannot present audio-only services.
	SkipRadio bool `toml:"skip_radio"`
}

// Scan contains the fixed satellite tuning profile used for manual scans.
type Scan struct {
	FrequencyKHz int    `toml:"frequency_khz"`
	SymbolRate   int    `toml:"symbol_rate"`
	Polarization string `toml:"polarization"`
	Modulation   string `toml:"modulation"`
	FEC          string `toml:"fec"`
	RollOff      string `toml:"roll_off"`
}

// EPG contains program guide acquisition pacing.
type EPG struct {
	Enabled                bool `toml:"enabled"`
	FreshnessWindowSeconds int  `toml:"freshness_window_seconds"`
	WindowDays             int  `toml:"window_days"`
	InitialDelaySeconds    int  `toml:"initial_delay_seconds"`
	QueueSize              int  `toml:"queue_size"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Hardware contains host device settings.
type Hardware struct {
	DVBDeviceDir string `toml:"dvb_device_dir"`
	WatchHotplug bool   `toml:"watch_hotplug"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tvcore.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Middleware: readiness polling and the emulator profile
//   - Display: demo and last-known video rectangles
//   - Channels: IP seed file and radio filtering
//   - Scan: satellite manual tuning profile
//   - EPG: acquisition freshness window and guide horizon
//   - Notifications: ntfy push notification settings
//   - Hardware: DVB device directory and hotplug monitoring
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Middleware    Middleware    `toml:"middleware"`
	Display       Display       `toml:"display"`
	Channels      Channels      `toml:"channels"`
	Scan          Scan          `toml:"scan"`
	EPG           EPG           `toml:"epg"`
	Notifications Notifications `toml:"notifications"`
	Hardware      Hardware      `toml:"hardware"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tvcore.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file holding channels, programs, and EPG
// acquisition timestamps.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "tvcore.db")
}

// LockPath returns the single-instance daemon lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "tvcore.lock")
}

// SocketPath returns the unix socket used by the CLI to reach the daemon.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "tvcore.sock")
}

// PIDPath returns the daemon PID file.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "tvcore.pid")
}

// LogPath returns the JSON log file the daemon appends to. It is empty when
// no log directory is configured.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "tvcore.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
