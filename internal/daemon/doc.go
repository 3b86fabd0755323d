// Package daemon coordinates the long-running tvcore process and its system
// integration points.
//
// It takes a flock-based single-instance lock, waits for the middleware in
// the background through a readiness gate, and builds the control-plane
// manager once the middleware is up. Until then every operation that needs
// the manager fails with services.ErrNotReady while status, metrics, and
// notification tests keep working. The daemon also serves the HTTP API and
// watches udev for DVB hardware changes.
//
// Keep orchestration logic here: tuning, scanning, and EPG behaviour live in
// their own packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
