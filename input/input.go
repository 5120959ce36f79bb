// input.go - INPUT[:MOUNT] argument dispatch and path canonicalization.
//
// Licensing Terms: GPLv2
//
// The colon-separated "real:mount" grammar is the same shape rclone uses
// for its "remote:path" arguments; this package borrows that split-on-
// first-colon convention (see rclone's remote-argument parsing) rather
// than inventing a new delimiter.
package input

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Spec is one positional CLI argument after splitting on ':'. Mount is
// empty when the caller gave no explicit mount path.
type Spec struct {
	RealPath string
	Mount    string
}

// Target is one tree to hand to the walker: a canonicalized real path and
// the mount path it appears under in the archive.
type Target struct {
	RealPath  string
	MountPath string
}

// Parse splits raw on the first ':' into a real path and an optional
// mount path.
func Parse(raw string) (Spec, error) {
	if len(raw) == 0 {
		return Spec{}, wrapErr("parse", raw, errEmpty)
	}

	real, mount, hasMount := strings.Cut(raw, ":")
	if len(real) == 0 {
		return Spec{}, wrapErr("parse", raw, errEmpty)
	}
	if hasMount && len(mount) == 0 {
		return Spec{}, wrapErr("parse", raw, errEmptyMount)
	}
	return Spec{RealPath: real, Mount: mount}, nil
}

// Resolve canonicalizes spec's real path and expands it into one or more
// walk targets: one target if a mount path is explicit or derivable from
// the real path's own basename, or one target per direct child when the
// real path is a bare root with no basename (e.g. "/").
func (s Spec) Resolve() ([]Target, error) {
	canon, err := Canonicalize(s.RealPath)
	if err != nil {
		return nil, wrapErr("resolve", s.RealPath, err)
	}

	if s.Mount != "" {
		return []Target{{RealPath: canon, MountPath: s.Mount}}, nil
	}

	if base := filepath.Base(canon); base != "/" && base != "." {
		return []Target{{RealPath: canon, MountPath: base}}, nil
	}

	entries, err := os.ReadDir(canon)
	if err != nil {
		return nil, wrapErr("readdir", canon, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	targets := make([]Target, 0, len(names))
	for _, name := range names {
		targets = append(targets, Target{
			RealPath:  filepath.Join(canon, name),
			MountPath: name,
		})
	}
	return targets, nil
}

// Canonicalize resolves symlinks in path's ancestors (never the leaf
// itself, which the walker must lstat, not stat) and returns an absolute,
// cleaned path.
func Canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	if abs == string(filepath.Separator) {
		return abs, nil
	}

	dir := filepath.Dir(abs)
	base := filepath.Base(abs)

	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}
