// meta_unix.go - mapping os.FileInfo to the three-valued fsnode.Kind tag.
//
// Licensing Terms: GPLv2
//
// Grounded on the teacher's meta_unix.go mode-dispatch convention (mapping
// os.FileMode bits to a small enumerated kind); trimmed to the ternary
// model this package needs instead of the teacher's five-way Type mask.

package walk

import (
	"os"
	"time"

	"github.com/opencoff/go-tarsync/fsnode"
)

// lstatKind stats path without following a terminal symlink and reduces
// its mode to the ternary fsnode.Kind model. Sockets, devices and FIFOs
// fold into Symlink, per the walker's edge-case rule.
func lstatKind(path string) (fsnode.Kind, time.Time, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return 0, time.Time{}, err
	}

	mode := fi.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return fsnode.Symlink, fi.ModTime(), nil
	case mode.IsDir():
		return fsnode.Folder, fi.ModTime(), nil
	case mode.IsRegular():
		return fsnode.File, fi.ModTime(), nil
	default:
		return fsnode.Symlink, fi.ModTime(), nil
	}
}

// readDirNames returns the direct child basenames of a directory, in no
// particular order (the walker sorts them for deterministic recursion;
// ordering among siblings carries no semantic meaning per spec).
func readDirNames(path string) ([]string, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	names, err := fd.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	return names, nil
}
