// Package routes discovers the hardware signal paths exposed by the middleware
// and assigns them to delivery technologies.
//
// Discovery runs once at start-up: it enumerates install, live, record, and
// playback routes across every frontend/decoder/output/storage combination,
// then assigns per-technology RouteSets with first-match-wins over that exact
// enumeration order. The resulting Table is immutable and safe for concurrent
// reads. Missing set members are logged and left nil; only a failed middleware
// query aborts discovery.
package routes
