// classifier.go - the file/symlink/folder x added/changed/removed table.
//
// Licensing Terms: GPLv2
//
// Grounded directly on original_source's change_watcher.rs: the same
// previous-kind x current-kind decision table, including the folder
// "changed" case that diffs previous_children against new_children and
// emits one removal event per basename present only in the previous set
// before the folder_changed event itself.
package processor

import (
	"path"
	"sort"

	"github.com/opencoff/go-tarsync/fsnode"
)

// ChangeNotifier implements walk.Processor: it classifies every call
// against the fingerprint last stored at that path and drives a Watcher
// with the resulting events, returning the fingerprint the walker should
// now persist.
type ChangeNotifier struct {
	w Watcher
}

// NewChangeNotifier returns a classifier that reports every change to w.
func NewChangeNotifier(w Watcher) *ChangeNotifier {
	return &ChangeNotifier{w: w}
}

func (c *ChangeNotifier) ProcessFile(realPath, mountPath string, previous *fsnode.Node) (fsnode.Node, error) {
	if previous == nil {
		if err := c.w.NotifyFileAdded(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_file_added", realPath, err)
		}
		return fsnode.NewFile(), nil
	}

	switch previous.Kind {
	case fsnode.File:
		if err := c.w.NotifyFileChanged(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_file_changed", realPath, err)
		}
	case fsnode.Symlink:
		if err := c.w.NotifySymlinkRemoved(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_symlink_removed", realPath, err)
		}
		if err := c.w.NotifyFileAdded(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_file_added", realPath, err)
		}
	case fsnode.Folder:
		if err := c.w.NotifyFolderRemoved(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_folder_removed", realPath, err)
		}
		if err := c.w.NotifyFileAdded(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_file_added", realPath, err)
		}
	}
	return fsnode.NewFile(), nil
}

func (c *ChangeNotifier) ProcessSymlink(realPath, mountPath string, previous *fsnode.Node) (fsnode.Node, error) {
	if previous == nil {
		if err := c.w.NotifySymlinkAdded(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_symlink_added", realPath, err)
		}
		return fsnode.NewSymlink(), nil
	}

	switch previous.Kind {
	case fsnode.File:
		if err := c.w.NotifyFileRemoved(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_file_removed", realPath, err)
		}
		if err := c.w.NotifySymlinkAdded(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_symlink_added", realPath, err)
		}
	case fsnode.Symlink:
		if err := c.w.NotifySymlinkChanged(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_symlink_changed", realPath, err)
		}
	case fsnode.Folder:
		if err := c.w.NotifyFolderRemoved(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_folder_removed", realPath, err)
		}
		if err := c.w.NotifySymlinkAdded(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_symlink_added", realPath, err)
		}
	}
	return fsnode.NewSymlink(), nil
}

func (c *ChangeNotifier) ProcessFolder(realPath, mountPath string, children map[string]fsnode.Kind, previous *fsnode.Node) (fsnode.Node, error) {
	if previous == nil {
		if err := c.w.NotifyFolderAdded(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_folder_added", realPath, err)
		}
		return fsnode.NewFolder(children), nil
	}

	switch previous.Kind {
	case fsnode.File:
		if err := c.w.NotifyFileRemoved(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_file_removed", realPath, err)
		}
		if err := c.w.NotifyFolderAdded(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_folder_added", realPath, err)
		}
	case fsnode.Symlink:
		if err := c.w.NotifySymlinkRemoved(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_symlink_removed", realPath, err)
		}
		if err := c.w.NotifyFolderAdded(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_folder_added", realPath, err)
		}
	case fsnode.Folder:
		if err := c.notifyRemovedChildren(realPath, mountPath, previous.Children, children); err != nil {
			return fsnode.Node{}, err
		}
		if err := c.w.NotifyFolderChanged(realPath, mountPath); err != nil {
			return fsnode.Node{}, wrapErr("notify_folder_changed", realPath, err)
		}
	}
	return fsnode.NewFolder(children), nil
}

// notifyRemovedChildren emits one *_removed event per basename present in
// previousChildren but absent from newChildren, using the previous kind
// to pick which removal event to raise. No recursion into the removed
// child's own previous subtree is needed: a folder_removed event is
// interpreted by watchers as removing everything beneath it.
func (c *ChangeNotifier) notifyRemovedChildren(realPath, mountPath string, previousChildren, newChildren map[string]fsnode.Kind) error {
	removed := make([]string, 0, len(previousChildren))
	for basename := range previousChildren {
		if _, ok := newChildren[basename]; !ok {
			removed = append(removed, basename)
		}
	}
	sort.Strings(removed)

	for _, basename := range removed {
		childReal := path.Join(realPath, basename)
		childMount := path.Join(mountPath, basename)

		var err error
		switch previousChildren[basename] {
		case fsnode.File:
			err = c.w.NotifyFileRemoved(childReal, childMount)
		case fsnode.Symlink:
			err = c.w.NotifySymlinkRemoved(childReal, childMount)
		case fsnode.Folder:
			err = c.w.NotifyFolderRemoved(childReal, childMount)
		}
		if err != nil {
			return wrapErr("notify_removed_child", childReal, err)
		}
	}
	return nil
}
