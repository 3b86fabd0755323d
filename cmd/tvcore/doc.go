// Package main hosts the tvcore CLI entrypoint and command graph.
//
// The Cobra command tree translates terminal invocations into IPC calls
// against the daemon: channel listing and export, tuning, scans, guide
// queries, audio controls, and daemon process management. Configuration
// resolution and socket discovery live in commandContext so subcommands only
// render results.
package main
