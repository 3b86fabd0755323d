// Package notifications fans control-plane events out to in-process
// observers and, when a topic is configured, to an ntfy server.
//
// The central event is the "channel database updated" broadcast emitted after
// a scan-triggered catalog refresh. Observers are called synchronously in
// subscription order; the ntfy push follows and its failure is returned to
// the publisher without affecting observers.
package notifications
