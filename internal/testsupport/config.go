package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tvcore/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Middleware.PollIntervalMillis = 5
	cfgVal.Middleware.WaitTimeoutSeconds = 2
	cfgVal.EPG.InitialDelaySeconds = 0
	cfgVal.Hardware.DVBDeviceDir = filepath.Join(base, "dvb")
	cfgVal.Hardware.WatchHotplug = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithIPSeed writes content as the IP channel seed file and enables seeding.
func WithIPSeed(content string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "ip_channels.yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			b.t.Fatalf("write ip seed: %v", err)
		}
		b.cfg.Channels.IPSeedEnabled = true
		b.cfg.Channels.IPSeedFile = path
	}
}

// WithDemoMode switches tunes to the fixed demo rectangles.
func WithDemoMode() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Display.DemoMode = true
	}
}

// WithSkipRadio enables the constrained decoder profile.
func WithSkipRadio() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Channels.SkipRadio = true
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
