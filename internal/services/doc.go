// Package services defines shared utilities consumed by every control-plane
// component.
//
// Key responsibilities:
//   - Context helpers that stamp channel IDs, technology names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so hardware absence,
//     middleware faults, and lookups that miss can be told apart by callers.
//
// Use these helpers when wiring new orchestration logic so operational
// behaviour stays uniform across the daemon.
package services
