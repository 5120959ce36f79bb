// fixture.go - the seed filesystem tree shared by the package test suites.
//
// Licensing Terms: GPLv2
//
// Grounded directly on original_source/tests/common/test_folder.rs
// (new_asset_full / update_asset_full_1): the same directory shape and
// mutation sequence, rebuilt as ordinary Go test helpers instead of the
// original's TempDir-per-suite + rusqlite Connection setup.
package fixture

import (
	"os"
	"path/filepath"
	"time"
)

// NewAssetFull creates the standard seed tree under dir/name: directories
// d1, d2, d2/d3; files f1, f2, d2/f3; and a symlink d2/s1 -> d2/f3. It
// returns the tree's root path.
func NewAssetFull(dir, name string) (string, error) {
	root := filepath.Join(dir, name)

	dirs := []string{root, filepath.Join(root, "d1"), filepath.Join(root, "d2"), filepath.Join(root, "d2", "d3")}
	for _, d := range dirs {
		if err := os.Mkdir(d, 0755); err != nil {
			return "", err
		}
	}

	files := []string{"f1", "f2", filepath.Join("d2", "f3")}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(root, f), nil, 0644); err != nil {
			return "", err
		}
	}

	if err := os.Symlink(filepath.Join(root, "d2", "f3"), filepath.Join(root, "d2", "s1")); err != nil {
		return "", err
	}

	return root, nil
}

// UpdateAssetFull1 applies the standard first mutation round: create f4,
// overwrite f1 with "changed\n", and remove d2/ entirely (S3 in the
// design notes).
func UpdateAssetFull1(root string) error {
	if err := os.WriteFile(filepath.Join(root, "f4"), nil, 0644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(root, "f1"), []byte("changed\n"), 0644); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(root, "d2")); err != nil {
		return err
	}
	return nil
}

// ReplaceFileWithSymlink swaps a file for a symlink of the same name,
// pointing at target (S5: kind change File -> Symlink).
func ReplaceFileWithSymlink(root, name, target string) error {
	p := filepath.Join(root, name)
	if err := os.Remove(p); err != nil {
		return err
	}
	return os.Symlink(target, p)
}

// AddFileTo creates an empty file under root/dirName (S6: an empty folder
// becomes non-empty).
func AddFileTo(root, dirName, fileName string) error {
	return os.WriteFile(filepath.Join(root, dirName, fileName), nil, 0644)
}

// SleepPastMtimeResolution waits long enough that a subsequent mtime
// observation is guaranteed to differ from one taken before this call,
// on filesystems with only second-resolution timestamps. Mirrors the
// "tests sleep 1s between mutations" note in the design document.
func SleepPastMtimeResolution() {
	time.Sleep(1100 * time.Millisecond)
}
