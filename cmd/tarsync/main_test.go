// main_test.go -- integration test harness for run(), covering the seed
// scenarios from the design notes (S1-S3).

package main

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencoff/go-logger"

	"github.com/opencoff/go-tarsync/internal/fixture"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(os.DevNull, logger.LOG_INFO, "test", 0)
	if err != nil {
		t.Fatalf("logger: %s", err)
	}
	return log
}

func readTarNames(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %s", path, err)
	}
	defer f.Close()

	var names []string
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar read: %s", err)
		}
		names = append(names, hdr.Name)
	}
	return names
}

func TestRunFirstAndSecondRun(t *testing.T) {
	dir := t.TempDir()
	asset, err := fixture.NewAssetFull(dir, "asset")
	if err != nil {
		t.Fatalf("new asset: %s", err)
	}

	cacheDB := filepath.Join(dir, "cache.db")
	log := testLogger(t)

	tar1 := filepath.Join(dir, "testing-full.tar")
	id1, err := run(log, false, []string{asset + ":asset"}, tar1, cacheDB, 0, false, 6)
	if err != nil {
		t.Fatalf("first run: %s", err)
	}
	if id1 != 1 {
		t.Fatalf("session id = %d, want 1", id1)
	}
	names := readTarNames(t, tar1)
	want := []string{"asset/", "asset/d1/", "asset/d2/", "asset/d2/d3/", "asset/f1", "asset/f2", "asset/d2/f3", "asset/d2/s1"}
	if len(names) != len(want) {
		t.Fatalf("first run entries = %v, want %d entries", names, len(want))
	}

	tar2 := filepath.Join(dir, "testing-empty.tar")
	id2, err := run(log, false, []string{asset + ":asset"}, tar2, cacheDB, 0, false, 6)
	if err != nil {
		t.Fatalf("second run: %s", err)
	}
	if id2 != 2 {
		t.Fatalf("session id = %d, want 2", id2)
	}
	names2 := readTarNames(t, tar2)
	if len(names2) != 0 {
		t.Fatalf("second run entries = %v, want none (nothing changed)", names2)
	}
}

func TestRunDetectsMutationsAndRemoval(t *testing.T) {
	dir := t.TempDir()
	asset, err := fixture.NewAssetFull(dir, "asset")
	if err != nil {
		t.Fatalf("new asset: %s", err)
	}

	cacheDB := filepath.Join(dir, "cache.db")
	log := testLogger(t)

	if _, err := run(log, false, []string{asset + ":asset"}, filepath.Join(dir, "full.tar"), cacheDB, 0, false, 6); err != nil {
		t.Fatalf("first run: %s", err)
	}

	fixture.SleepPastMtimeResolution()
	if err := fixture.UpdateAssetFull1(asset); err != nil {
		t.Fatalf("mutate: %s", err)
	}

	diffTar := filepath.Join(dir, "diff.tar")
	id, err := run(log, false, []string{asset + ":asset"}, diffTar, cacheDB, 0, false, 6)
	if err != nil {
		t.Fatalf("diff run: %s", err)
	}
	if id != 2 {
		t.Fatalf("session id = %d, want 2", id)
	}

	names := readTarNames(t, diffTar)
	has := func(n string) bool {
		for _, got := range names {
			if got == n {
				return true
			}
		}
		return false
	}
	if !has("asset/f4") {
		t.Fatalf("missing asset/f4 (added), got %v", names)
	}
	if !has("asset/f1") {
		t.Fatalf("missing asset/f1 (changed), got %v", names)
	}
	if !has("asset/d2.DELETED") {
		t.Fatalf("missing asset/d2.DELETED tombstone, got %v", names)
	}
	if !has("asset/") {
		t.Fatalf("missing asset/ (folder_changed), got %v", names)
	}
	for _, n := range names {
		if n == "asset/d2/f3" || n == "asset/d2/s1" {
			t.Fatalf("descendant of removed d2/ should not appear, got %s", n)
		}
	}
}

func TestRunRollback(t *testing.T) {
	dir := t.TempDir()
	asset, err := fixture.NewAssetFull(dir, "asset")
	if err != nil {
		t.Fatalf("new asset: %s", err)
	}

	cacheDB := filepath.Join(dir, "cache.db")
	log := testLogger(t)

	for i := 0; i < 2; i++ {
		if _, err := run(log, false, []string{asset + ":asset"}, filepath.Join(dir, "r.tar"), cacheDB, 0, false, 6); err != nil {
			t.Fatalf("run %d: %s", i, err)
		}
		fixture.SleepPastMtimeResolution()
	}

	// sessions 1 and 2 now exist. Roll back to 2 and re-run: the next
	// session must again be assigned id 2.
	rolledTar := filepath.Join(dir, "rolled.tar")
	id, err := run(log, false, []string{asset + ":asset"}, rolledTar, cacheDB, 2, false, 6)
	if err != nil {
		t.Fatalf("rollback run: %s", err)
	}
	if id != 2 {
		t.Fatalf("session id after rollback = %d, want 2", id)
	}

	// a subsequent run with no rollback should now be assigned session 3.
	id, err = run(log, false, []string{asset + ":asset"}, filepath.Join(dir, "after.tar"), cacheDB, 0, false, 6)
	if err != nil {
		t.Fatalf("post-rollback run: %s", err)
	}
	if id != 3 {
		t.Fatalf("session id after rollback run = %d, want 3", id)
	}
}
