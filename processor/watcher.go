// watcher.go - the nine-method capability a change classifier drives.
//
// Licensing Terms: GPLv2
//
// Grounded on the teacher's capability-interface style (small, single
// purpose interfaces resolved statically rather than by a plugin
// registry): ChangeNotifier is parameterized over a Watcher so the same
// classification logic can drive the tar emitter or a logging consumer
// interchangeably.

// Package processor implements the change-classification table that sits
// between the walker and a pluggable Watcher: it turns (previous
// fingerprint, current observation) into one of the nine
// file/symlink/folder x added/changed/removed events and the fingerprint
// the walker should persist going forward.
package processor

// Watcher receives one notification per classified change. realPath is
// the filesystem path the event concerns; mountPath is its logical
// archive-relative name. Implementations are free to perform I/O (the
// tar emitter writes archive records; a logging watcher just logs).
type Watcher interface {
	NotifyFileAdded(realPath, mountPath string) error
	NotifyFileChanged(realPath, mountPath string) error
	NotifyFileRemoved(realPath, mountPath string) error

	NotifySymlinkAdded(realPath, mountPath string) error
	NotifySymlinkChanged(realPath, mountPath string) error
	NotifySymlinkRemoved(realPath, mountPath string) error

	NotifyFolderAdded(realPath, mountPath string) error
	NotifyFolderChanged(realPath, mountPath string) error
	NotifyFolderRemoved(realPath, mountPath string) error
}

// NullWatcher discards every notification. It is useful in tests that
// only care about the fingerprint a ChangeNotifier returns, and as a
// base to embed when only a few of the nine methods need overriding.
type NullWatcher struct{}

func (NullWatcher) NotifyFileAdded(realPath, mountPath string) error      { return nil }
func (NullWatcher) NotifyFileChanged(realPath, mountPath string) error    { return nil }
func (NullWatcher) NotifyFileRemoved(realPath, mountPath string) error    { return nil }
func (NullWatcher) NotifySymlinkAdded(realPath, mountPath string) error   { return nil }
func (NullWatcher) NotifySymlinkChanged(realPath, mountPath string) error { return nil }
func (NullWatcher) NotifySymlinkRemoved(realPath, mountPath string) error { return nil }
func (NullWatcher) NotifyFolderAdded(realPath, mountPath string) error    { return nil }
func (NullWatcher) NotifyFolderChanged(realPath, mountPath string) error  { return nil }
func (NullWatcher) NotifyFolderRemoved(realPath, mountPath string) error  { return nil }
