// cache_test.go -- test harness for cache.go/session.go

package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSessionMissThenHit(t *testing.T) {
	c := openTestCache(t)

	s, err := c.StartSession()
	if err != nil {
		t.Fatalf("start session: %s", err)
	}
	if s.ID() != 1 {
		t.Fatalf("session id = %d, want 1", s.ID())
	}

	mtime := time.Unix(1000, 500)
	calls := 0
	compute := func(prev []byte, found bool) ([]byte, error) {
		calls++
		if found {
			t.Fatalf("expected miss, got found=true")
		}
		return []byte("v1"), nil
	}

	e, err := s.GetUpdateEntry("/a", mtime, compute)
	if err != nil {
		t.Fatalf("get_update_entry: %s", err)
	}
	if string(e.Item) != "v1" {
		t.Fatalf("item = %q, want v1", e.Item)
	}
	if calls != 1 {
		t.Fatalf("compute called %d times, want 1", calls)
	}

	// same mtime again within the same session: compute must not run.
	e, err = s.GetUpdateEntry("/a", mtime, func(prev []byte, found bool) ([]byte, error) {
		t.Fatalf("compute should not be called on mtime match")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("get_update_entry (hit): %s", err)
	}
	if string(e.Item) != "v1" {
		t.Fatalf("item on hit = %q, want v1", e.Item)
	}

	if err := s.EndSession(); err != nil {
		t.Fatalf("end session: %s", err)
	}
}

func TestSessionMtimeChangeRecomputes(t *testing.T) {
	c := openTestCache(t)

	s, _ := c.StartSession()
	mtime1 := time.Unix(1000, 0)
	if _, err := s.GetUpdateEntry("/a", mtime1, func(prev []byte, found bool) ([]byte, error) {
		return []byte("v1"), nil
	}); err != nil {
		t.Fatalf("seed: %s", err)
	}
	if err := s.EndSession(); err != nil {
		t.Fatalf("end session: %s", err)
	}

	s2, _ := c.StartSession()
	if s2.ID() != 2 {
		t.Fatalf("session id = %d, want 2", s2.ID())
	}

	mtime2 := time.Unix(2000, 0)
	var sawPrev []byte
	e, err := s2.GetUpdateEntry("/a", mtime2, func(prev []byte, found bool) ([]byte, error) {
		if !found {
			t.Fatalf("expected found=true on recompute")
		}
		sawPrev = prev
		return []byte("v2"), nil
	})
	if err != nil {
		t.Fatalf("recompute: %s", err)
	}
	if string(sawPrev) != "v1" {
		t.Fatalf("previous = %q, want v1", sawPrev)
	}
	if string(e.Item) != "v2" {
		t.Fatalf("item = %q, want v2", e.Item)
	}
	if err := s2.EndSession(); err != nil {
		t.Fatalf("end session: %s", err)
	}
}

func TestEndSessionPrunesUnvisited(t *testing.T) {
	c := openTestCache(t)

	s, _ := c.StartSession()
	for _, p := range []string{"/a", "/b"} {
		if _, err := s.GetUpdateEntry(p, time.Unix(1, 0), func(prev []byte, found bool) ([]byte, error) {
			return []byte("v"), nil
		}); err != nil {
			t.Fatalf("seed %s: %s", p, err)
		}
	}
	if err := s.EndSession(); err != nil {
		t.Fatalf("end session: %s", err)
	}

	// second session only revisits /a: /b was removed on disk.
	s2, _ := c.StartSession()
	if _, err := s2.GetUpdateEntry("/a", time.Unix(1, 0), func(prev []byte, found bool) ([]byte, error) {
		t.Fatalf("compute should not run: mtime unchanged")
		return nil, nil
	}); err != nil {
		t.Fatalf("revisit /a: %s", err)
	}
	if err := s2.EndSession(); err != nil {
		t.Fatalf("end session 2: %s", err)
	}

	// /b should now be gone: a fresh session sees it as a miss again.
	s3, _ := c.StartSession()
	calls := 0
	if _, err := s3.GetUpdateEntry("/b", time.Unix(1, 0), func(prev []byte, found bool) ([]byte, error) {
		calls++
		if found {
			t.Fatalf("/b should have been pruned")
		}
		return []byte("v"), nil
	}); err != nil {
		t.Fatalf("revisit /b: %s", err)
	}
	if calls != 1 {
		t.Fatalf("compute calls = %d, want 1", calls)
	}
	s3.Abort()
}

func TestRollbackBefore(t *testing.T) {
	c := openTestCache(t)

	for i := 0; i < 3; i++ {
		s, err := c.StartSession()
		if err != nil {
			t.Fatalf("start session %d: %s", i, err)
		}
		if _, err := s.GetUpdateEntry("/a", time.Unix(int64(i), 0), func(prev []byte, found bool) ([]byte, error) {
			return []byte("v"), nil
		}); err != nil {
			t.Fatalf("seed session %d: %s", i, err)
		}
		if err := s.EndSession(); err != nil {
			t.Fatalf("end session %d: %s", i, err)
		}
	}

	// sessions 1,2,3 now exist; roll back everything from 2 onward.
	if err := c.RollbackBefore(2); err != nil {
		t.Fatalf("rollback: %s", err)
	}

	s, err := c.StartSession()
	if err != nil {
		t.Fatalf("start session after rollback: %s", err)
	}
	if s.ID() != 2 {
		t.Fatalf("session id after rollback = %d, want 2", s.ID())
	}
	s.Abort()
}
