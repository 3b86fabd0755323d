// Package logs reads the daemon's JSON log file for `tvcore logs`.
//
// Tail returns either the last N lines or everything written after a byte
// offset, optionally waiting for new lines to arrive. The returned offset is
// fed back on the next call so follow mode never re-reads or skips lines. A
// file that shrank below the offset is treated as rotated and read from the
// start.
package logs
