// schema.go - the on-disk schema for the session-scoped cache.
//
// Licensing Terms: GPLv2
//
// Grounded on rclone's backend/sqlite (CREATE TABLE IF NOT EXISTS bootstrap
// run once against a database/sql handle) and on the session/cache table
// layout spec'd in §6 of the design document.

package cache

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS cache (
	path       TEXT PRIMARY KEY,
	mtime_sec  INTEGER NOT NULL,
	mtime_nano INTEGER NOT NULL,
	session_id INTEGER NOT NULL REFERENCES sessions(session_id),
	item       BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_session ON cache(session_id);
`
