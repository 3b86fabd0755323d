package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"tvcore/internal/config"
	"tvcore/internal/daemon"
	"tvcore/internal/ipc"
	"tvcore/internal/logging"
	"tvcore/internal/metrics"
	"tvcore/internal/middleware/emulator"
	"tvcore/internal/notifications"
	"tvcore/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the tvcore daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logRuntimeSnapshot(logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	emu, err := newEmulator(cfg)
	if err != nil {
		logger.Error("load emulator profile", logging.Error(err))
		return err
	}
	defer emu.Close()

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, daemon.Options{
		Binding:  emu.Binding(),
		Store:    st,
		Notifier: notifications.NewHub(cfg.Notifications, logger),
		Metrics:  metrics.New(),
		Logger:   logger,
	})
	if err != nil {
		st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that no other tvcore daemon holds the lock file"),
			logging.String(logging.FieldImpact, "the control plane is unavailable"))
		return err
	}

	<-signalCtx.Done()
	logger.Info("tvcore daemon shutting down")
	return nil
}

// newEmulator builds the middleware emulator from the configured profile, or
// the default hybrid box when none is set.
func newEmulator(cfg *config.Config) (*emulator.Emulator, error) {
	profile := emulator.DefaultProfile()
	if path := cfg.Middleware.EmulatorProfile; path != "" {
		loaded, err := emulator.LoadProfile(path)
		if err != nil {
			return nil, err
		}
		profile = loaded
	}
	return emulator.New(profile)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logRuntimeSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	profile := cfg.Middleware.EmulatorProfile
	if profile == "" {
		profile = "default"
	}
	logger.Info("runtime snapshot",
		logging.String(logging.FieldEventType, "runtime_snapshot"),
		logging.String("emulator_profile", profile),
		logging.String("ready_property", cfg.Middleware.ReadyProperty),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_present", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Bool("hotplug", cfg.Hardware.WatchHotplug),
		logging.Bool("epg_enabled", cfg.EPG.Enabled),
		logging.Bool("ip_seed_enabled", cfg.Channels.IPSeedEnabled),
		logging.Bool("ntfy_topic_present", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
