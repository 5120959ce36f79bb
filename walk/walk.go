// walk.go - single-threaded, memoized file system traversal.
//
// Licensing Terms: GPLv2
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

// Package walk implements the memoized filesystem walker: a recursive,
// single-threaded traversal that consults a cache session per entry and
// drives a Processor on cache miss. There is no internal parallelism by
// design: one walker, one session, one caller thread.
package walk

import (
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/opencoff/go-tarsync/cache"
	"github.com/opencoff/go-tarsync/fsnode"
)

// Processor turns a filesystem observation and its previously stored
// fingerprint into a new fingerprint, performing whatever side effect
// the classification requires (see the processor package for the
// concrete change-classifying implementation).
type Processor interface {
	ProcessFile(realPath, mountPath string, previous *fsnode.Node) (fsnode.Node, error)
	ProcessSymlink(realPath, mountPath string, previous *fsnode.Node) (fsnode.Node, error)
	ProcessFolder(realPath, mountPath string, children map[string]fsnode.Kind, previous *fsnode.Node) (fsnode.Node, error)
}

// Entry is the fingerprint and the disk mtime it was stored against, as
// returned by the session for a given path.
type Entry struct {
	Node  fsnode.Node
	Mtime time.Time
}

// Adder is a single processing batch bound to one cache session. Its
// zero value is not usable; obtain one via Start.
type Adder struct {
	sess *cache.Session
	proc Processor
}

// Start begins a processing batch: every path added through the returned
// Adder is memoized against sess and, on cache miss, handed to proc.
func Start(sess *cache.Session, proc Processor) *Adder {
	return &Adder{sess: sess, proc: proc}
}

// AddPath walks the tree rooted at realPath and memoizes it under
// mountPath, the logical name the tree appears under in the output. It
// returns the root's own fingerprint entry and the maximum mtime observed
// anywhere in the subtree (including realPath itself), so a caller can
// tell "has anything changed under here" without inspecting every leaf.
//
// Any read error anywhere in the subtree aborts this call; the caller
// must treat the whole run as failed and call Abort rather than Finish.
func (a *Adder) AddPath(realPath, mountPath string) (Entry, time.Time, error) {
	return a.walk(realPath, mountPath)
}

func (a *Adder) walk(realPath, mountPath string) (Entry, time.Time, error) {
	kind, mtime, err := lstatKind(realPath)
	if err != nil {
		return Entry{}, time.Time{}, wrapErr("lstat", realPath, err)
	}

	switch kind {
	case fsnode.File:
		return a.leaf(realPath, mountPath, mtime, a.proc.ProcessFile)
	case fsnode.Symlink:
		return a.leaf(realPath, mountPath, mtime, a.proc.ProcessSymlink)
	case fsnode.Folder:
		return a.folder(realPath, mountPath, mtime)
	default:
		return Entry{}, time.Time{}, wrapErr("lstat", realPath, fmt.Errorf("unhandled kind %v", kind))
	}
}

type leafProcessFn func(realPath, mountPath string, previous *fsnode.Node) (fsnode.Node, error)

func (a *Adder) leaf(realPath, mountPath string, mtime time.Time, process leafProcessFn) (Entry, time.Time, error) {
	entry, err := a.sess.GetUpdateEntry(realPath, mtime, func(prev []byte, found bool) ([]byte, error) {
		prevNode, err := decodePrevious(prev, found)
		if err != nil {
			return nil, err
		}
		newNode, err := process(realPath, mountPath, prevNode)
		if err != nil {
			return nil, err
		}
		return newNode.Marshal()
	})
	if err != nil {
		return Entry{}, time.Time{}, wrapErr("process", realPath, err)
	}

	node, _, err := fsnode.Unmarshal(entry.Item)
	if err != nil {
		return Entry{}, time.Time{}, wrapErr("decode", realPath, err)
	}
	return Entry{Node: node, Mtime: entry.Mtime}, mtime, nil
}

func (a *Adder) folder(realPath, mountPath string, ownMtime time.Time) (Entry, time.Time, error) {
	names, err := readDirNames(realPath)
	if err != nil {
		return Entry{}, time.Time{}, wrapErr("readdir", realPath, err)
	}
	sort.Strings(names)

	children := make(map[string]fsnode.Kind, len(names))
	maxMtime := ownMtime

	for _, name := range names {
		childReal := path.Join(realPath, name)
		childMount := path.Join(mountPath, name)

		childEntry, childMax, err := a.walk(childReal, childMount)
		if err != nil {
			return Entry{}, time.Time{}, err
		}

		children[name] = childEntry.Node.Kind
		if childMax.After(maxMtime) {
			maxMtime = childMax
		}
	}

	entry, err := a.sess.GetUpdateEntry(realPath, ownMtime, func(prev []byte, found bool) ([]byte, error) {
		prevNode, err := decodePrevious(prev, found)
		if err != nil {
			return nil, err
		}
		newNode, err := a.proc.ProcessFolder(realPath, mountPath, children, prevNode)
		if err != nil {
			return nil, err
		}
		return newNode.Marshal()
	})
	if err != nil {
		return Entry{}, time.Time{}, wrapErr("process", realPath, err)
	}

	node, _, err := fsnode.Unmarshal(entry.Item)
	if err != nil {
		return Entry{}, time.Time{}, wrapErr("decode", realPath, err)
	}
	return Entry{Node: node, Mtime: entry.Mtime}, maxMtime, nil
}

func decodePrevious(prev []byte, found bool) (*fsnode.Node, error) {
	if !found {
		return nil, nil
	}
	n, _, err := fsnode.Unmarshal(prev)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Finish closes the underlying session, committing every row touched
// during this batch and pruning rows not seen. It returns the session id
// the run was assigned.
func (a *Adder) Finish() (uint32, error) {
	id := a.sess.ID()
	if err := a.sess.EndSession(); err != nil {
		return 0, err
	}
	return id, nil
}

// Abort discards the underlying session's transaction without touching
// the cache. Call this instead of Finish when AddPath returned an error.
func (a *Adder) Abort() error {
	return a.sess.Abort()
}
