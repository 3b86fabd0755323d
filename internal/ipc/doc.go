// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// The server resolves the control plane through the daemon on every call, so
// requests made while the middleware is still booting fail with the daemon's
// not-ready error instead of blocking. Request and response types embed the
// domain types directly to keep the CLI and HTTP API in step.
package ipc
