package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"tvcore/internal/config"
	"tvcore/internal/logging"
)

// hotplugMonitor listens for udev netlink events on the dvb subsystem.
// Routes are fixed after discovery, so a change is only reported.
type hotplugMonitor struct {
	logger   *slog.Logger
	onChange func(ctx context.Context, detail string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newHotplugMonitor returns nil when hotplug watching is disabled.
func newHotplugMonitor(cfg *config.Config, logger *slog.Logger, onChange func(ctx context.Context, detail string)) *hotplugMonitor {
	if cfg == nil || !cfg.Hardware.WatchHotplug {
		return nil
	}
	return &hotplugMonitor{
		logger:   logging.NewComponentLogger(logger, "hotplug-monitor"),
		onChange: onChange,
	}
}

// Start begins listening for udev netlink events.
func (m *hotplugMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; hardware changes will not be reported", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "DVB hotplug warnings unavailable"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("hotplug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *hotplugMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("hotplug monitor stopped",
		logging.String(logging.FieldEventType, "hotplug_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *hotplugMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *hotplugMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "hardware changes may go unreported"),
			)
		}
	}
}

// buildMatcher matches SUBSYSTEM=dvb with ACTION=add|remove.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "dvb",
		},
	})
	return rules
}

// handleEvent reports frontend arrivals and removals. Other dvb nodes
// (demux, dvr, net) change together with their frontend and are ignored.
func (m *hotplugMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := deviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if kind := uevent.Env["DVB_DEVICE_TYPE"]; kind != "" && kind != "frontend" {
		return
	}
	if !strings.Contains(devname, "frontend") {
		return
	}

	verb := "added"
	if uevent.Action == netlink.REMOVE {
		verb = "removed"
	}
	detail := fmt.Sprintf("DVB frontend %s: %s", verb, devname)
	logging.WarnWithContext(m.logger, "dvb hardware changed", "dvb_hotplug",
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)),
		logging.String(logging.FieldErrorHint, "restart tvcore to rediscover routes"),
		logging.String(logging.FieldImpact, "route table does not reflect current hardware"),
	)
	if m.onChange != nil {
		m.onChange(ctx, detail)
	}
}

// deviceName gets the device path from a uevent.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	name := parts[len(parts)-1]
	if name == "" {
		return ""
	}
	// dvb0.frontend0 -> /dev/dvb/adapter0/frontend0
	if adapter, node, ok := strings.Cut(name, "."); ok && strings.HasPrefix(adapter, "dvb") {
		return "/dev/dvb/adapter" + strings.TrimPrefix(adapter, "dvb") + "/" + node
	}
	return "/dev/" + name
}
