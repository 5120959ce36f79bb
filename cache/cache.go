// cache.go - the durable, session-scoped path -> fingerprint store.
//
// Licensing Terms: GPLv2
//
// Grounded on rclone's backend/sqlite/sqlite_utils.go for the
// database/sql + mattn/go-sqlite3 opening/bootstrap idiom, and on
// original_source's sqlite.rs for the session/rollback semantics.
//
// Package cache is the only package in this tree that knows about SQLite.
// It stores the fingerprint blob produced for each path exactly as handed
// to it: the blob's contents are meaningless to Cache and Session, which
// deal only in []byte, path, mtime and session id.
package cache

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// Cache is a handle on the on-disk SQLite database backing one or more
// walk sessions over time.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) the cache database at path and
// bootstraps its schema.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_journal=WAL&_timeout=5000&_fk=1")
	if err != nil {
		return nil, wrapErr("open", path, err)
	}

	// the cache is driven by a single goroutine for the life of a run; cap
	// the pool at one connection so every statement in a session sees the
	// same SQLite connection (needed for the transient seen-table below).
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, wrapErr("bootstrap", path, err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return wrapErr("close", "", err)
	}
	return nil
}

// RollbackBefore deletes every session with id >= id, and every cache row
// written by one of those sessions. id must be a previously issued session
// id (validation of id <= 0 is the caller's responsibility: it is an input
// error, not a cache error).
func (c *Cache) RollbackBefore(id uint32) error {
	tx, err := c.db.Begin()
	if err != nil {
		return wrapErr("rollback: begin", "", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cache WHERE session_id >= ?`, id); err != nil {
		return wrapErr("rollback: delete cache rows", "", err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE session_id >= ?`, id); err != nil {
		return wrapErr("rollback: delete sessions", "", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("rollback: commit", "", err)
	}
	return nil
}

// StartSession opens a new session: it allocates the next session id,
// records it in the sessions table, and returns a Session bound to the
// transaction that will either commit (on EndSession) or roll back (if
// abandoned) every row touched during the run.
func (c *Cache) StartSession() (*Session, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, wrapErr("start session: begin", "", err)
	}

	var maxID sql.NullInt64
	row := tx.QueryRow(`SELECT MAX(session_id) FROM sessions`)
	if err := row.Scan(&maxID); err != nil {
		tx.Rollback()
		return nil, wrapErr("start session: max", "", err)
	}

	var id uint32 = 1
	if maxID.Valid {
		id = uint32(maxID.Int64) + 1
	}

	if _, err := tx.Exec(`INSERT INTO sessions(session_id) VALUES (?)`, id); err != nil {
		tx.Rollback()
		return nil, wrapErr("start session: insert", "", err)
	}

	// Transient, transaction-scoped table tracking which paths were visited
	// this session; every statement in this Session runs against the same
	// connection because the pool is capped at one (see Open).
	if _, err := tx.Exec(`CREATE TEMP TABLE seen_paths (path TEXT PRIMARY KEY)`); err != nil {
		tx.Rollback()
		return nil, wrapErr("start session: seen table", "", err)
	}

	return &Session{tx: tx, id: id}, nil
}
