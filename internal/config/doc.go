// Package config loads, normalizes, and validates tvcore configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TVCORE_NTFY_TOPIC. The Config type centralizes every knob the daemon and CLI
// need: readiness polling, video geometry, satellite scan parameters, and EPG
// pacing are all discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
