// session.go - one walk's transactional view onto the cache.
//
// Licensing Terms: GPLv2
//
// Grounded on original_source's sqlite.rs session/rollback design: a
// Session owns one open transaction for the life of a walk and commits it
// (deleting whatever it never revisited) only on EndSession; an abandoned
// Session rolls everything back, leaving the cache exactly as it was
// before the walk started.
package cache

import (
	"database/sql"
	"errors"
	"time"
)

// Entry is what GetUpdateEntry hands back: the item now on file for a
// path, and the mtime it is stored against.
type Entry struct {
	Item  []byte
	Mtime time.Time
}

// Compute is called by GetUpdateEntry whenever a path's stored mtime does
// not match the mtime observed on disk (including when nothing was
// stored yet, in which case found is false and previous is nil).
type Compute func(previous []byte, found bool) ([]byte, error)

// Session is a single walk's transaction-scoped handle onto the cache.
// It is not safe for concurrent use (the walker that drives it is
// single-threaded by design).
type Session struct {
	tx  *sql.Tx
	id  uint32
	err error // sticky: the first database error poisons the session
}

// ID returns the session id this walk was assigned.
func (s *Session) ID() uint32 { return s.id }

// GetUpdateEntry looks up path. If the stored mtime matches mtime exactly,
// the stored item is returned unchanged and compute is not called. If the
// stored mtime differs, or no row exists yet, compute is invoked with the
// previously stored item (nil, false if none) and its result is written
// back under the new mtime and this session's id. Either way, path is
// marked seen for the remainder of the session.
func (s *Session) GetUpdateEntry(path string, mtime time.Time, compute Compute) (Entry, error) {
	if s.err != nil {
		return Entry{}, wrapErr("get_update_entry", path, s.err)
	}

	sec, nano := mtime.Unix(), int64(mtime.Nanosecond())

	var (
		storedSec, storedNano int64
		item                  []byte
	)
	row := s.tx.QueryRow(
		`SELECT mtime_sec, mtime_nano, item FROM cache WHERE path = ?`, path)
	err := row.Scan(&storedSec, &storedNano, &item)

	switch {
	case err == nil && storedSec == sec && storedNano == nano:
		if markErr := s.markSeen(path); markErr != nil {
			return Entry{}, s.poison(markErr, "seen", path)
		}
		return Entry{Item: item, Mtime: mtime}, nil

	case err == nil:
		// mtime differs: recompute against the previous item.
		next, cerr := compute(item, true)
		if cerr != nil {
			return Entry{}, wrapErr("compute", path, cerr)
		}
		if _, uerr := s.tx.Exec(
			`UPDATE cache SET mtime_sec=?, mtime_nano=?, session_id=?, item=? WHERE path=?`,
			sec, nano, s.id, next, path); uerr != nil {
			return Entry{}, s.poison(uerr, "update", path)
		}
		if markErr := s.markSeen(path); markErr != nil {
			return Entry{}, s.poison(markErr, "seen", path)
		}
		return Entry{Item: next, Mtime: mtime}, nil

	case errors.Is(err, sql.ErrNoRows):
		next, cerr := compute(nil, false)
		if cerr != nil {
			return Entry{}, wrapErr("compute", path, cerr)
		}
		if _, ierr := s.tx.Exec(
			`INSERT INTO cache(path, mtime_sec, mtime_nano, session_id, item) VALUES (?,?,?,?,?)`,
			path, sec, nano, s.id, next); ierr != nil {
			return Entry{}, s.poison(ierr, "insert", path)
		}
		if markErr := s.markSeen(path); markErr != nil {
			return Entry{}, s.poison(markErr, "seen", path)
		}
		return Entry{Item: next, Mtime: mtime}, nil

	default:
		return Entry{}, s.poison(err, "lookup", path)
	}
}

func (s *Session) markSeen(path string) error {
	_, err := s.tx.Exec(`INSERT OR IGNORE INTO seen_paths(path) VALUES (?)`, path)
	return err
}

func (s *Session) poison(err error, op, path string) error {
	s.err = err
	return wrapErr(op, path, err)
}

// EndSession deletes every cache row for this session's database that was
// not visited during the walk (a path present in a prior session but
// absent from this one no longer exists on disk) and commits. Callers
// that abandon a session without calling EndSession should call Abort so
// the transaction rolls back instead of being left open.
func (s *Session) EndSession() error {
	if s.err != nil {
		s.tx.Rollback()
		return wrapErr("end_session", "", s.err)
	}

	if _, err := s.tx.Exec(
		`DELETE FROM cache WHERE path NOT IN (SELECT path FROM seen_paths)`); err != nil {
		s.tx.Rollback()
		return wrapErr("end_session: prune", "", err)
	}

	if _, err := s.tx.Exec(`DROP TABLE seen_paths`); err != nil {
		s.tx.Rollback()
		return wrapErr("end_session: drop seen table", "", err)
	}

	if err := s.tx.Commit(); err != nil {
		return wrapErr("end_session: commit", "", err)
	}
	return nil
}

// Abort rolls back the session's transaction without pruning or
// committing anything. Used when a walk aborts on a fatal error.
func (s *Session) Abort() error {
	if err := s.tx.Rollback(); err != nil {
		return wrapErr("abort", "", err)
	}
	return nil
}
