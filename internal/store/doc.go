// Package store persists the channel catalog, program guide, and EPG
// acquisition timestamps in SQLite.
//
// Channels are rebuilt wholesale by the catalog; deleting them cascades to
// their programs. Programs are keyed by (channel_id, start_ms, end_ms) and
// inserted with INSERT OR IGNORE so repeated acquisitions never duplicate
// rows. Acquisition timestamps survive catalog rebuilds and process restarts.
//
// The schema version lives in the SQLite user_version header. Schema changes
// bump schemaVersion in schema.go; users delete the database to adopt the
// new schema.
package store
