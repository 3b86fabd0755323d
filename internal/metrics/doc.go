// Package metrics exposes Prometheus collectors for tunes, scans, EPG runs,
// and the HTTP API. Observer methods match the callback signatures of the
// tuning, scan, and epg packages so the manager can wire them directly.
package metrics
