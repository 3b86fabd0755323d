// Package manager owns the control-plane aggregate built once the middleware
// is ready: the route table, channel catalog, tuner, scanner, and EPG worker.
//
// New is the single construction point. It is meant to run as the build step
// of a readiness gate, so every consumer receives the same Manager by
// reference instead of reaching for process-wide state. A middleware
// communication fault during route discovery aborts construction.
package manager
