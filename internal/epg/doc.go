// Package epg paces program guide acquisition.
//
// Scheduler decides per transponder frequency whether an acquisition is due:
// never while one is running for the same frequency, and otherwise only when
// the last finished acquisition is older than the freshness window. Finish
// timestamps are persisted so the window survives restarts.
//
// Worker owns the single acquisition goroutine. Middleware notifications are
// queued to it: a new schedule triggers a full window sweep over every
// broadcast channel, present/following changes fetch now/next for the active
// channel, and a time/date change re-prepares the window. Faults on a single
// channel or event are logged and skipped so one bad item never aborts a
// sweep.
package epg
