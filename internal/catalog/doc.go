// Package catalog maintains the channel list shown to viewers.
//
// The catalog is rebuilt from the middleware master service list after each
// scan, with statically configured IP channels appended. Entries are
// persisted through internal/store and reloaded so identifiers match the
// database. Lookups are served from memory and never touch the middleware.
package catalog
