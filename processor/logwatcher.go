// logwatcher.go - a Watcher that logs classified events instead of
// archiving them.
//
// Licensing Terms: GPLv2
//
// Grounded on the teacher's testsuite logging convention (env.log.Debug/
// Info, printf-style, via github.com/opencoff/go-logger). Demonstrates
// that the same ChangeNotifier can drive an entirely different consumer
// than the tar emitter without any change to the classification logic.
package processor

import "github.com/opencoff/go-logger"

// LogWatcher logs every classified event at debug level and never
// touches the filesystem or an archive. Useful standalone (e.g. a
// "--dry-run" diagnostic mode) or fanned out alongside the tar emitter.
type LogWatcher struct {
	log logger.Logger
}

// NewLogWatcher returns a Watcher that reports every event to log.
func NewLogWatcher(log logger.Logger) *LogWatcher {
	return &LogWatcher{log: log}
}

func (l *LogWatcher) NotifyFileAdded(realPath, mountPath string) error {
	l.log.Debug("file added: %s -> %s", realPath, mountPath)
	return nil
}

func (l *LogWatcher) NotifyFileChanged(realPath, mountPath string) error {
	l.log.Debug("file changed: %s -> %s", realPath, mountPath)
	return nil
}

func (l *LogWatcher) NotifyFileRemoved(realPath, mountPath string) error {
	l.log.Debug("file removed: %s -> %s", realPath, mountPath)
	return nil
}

func (l *LogWatcher) NotifySymlinkAdded(realPath, mountPath string) error {
	l.log.Debug("symlink added: %s -> %s", realPath, mountPath)
	return nil
}

func (l *LogWatcher) NotifySymlinkChanged(realPath, mountPath string) error {
	l.log.Debug("symlink changed: %s -> %s", realPath, mountPath)
	return nil
}

func (l *LogWatcher) NotifySymlinkRemoved(realPath, mountPath string) error {
	l.log.Debug("symlink removed: %s -> %s", realPath, mountPath)
	return nil
}

func (l *LogWatcher) NotifyFolderAdded(realPath, mountPath string) error {
	l.log.Debug("folder added: %s -> %s", realPath, mountPath)
	return nil
}

func (l *LogWatcher) NotifyFolderChanged(realPath, mountPath string) error {
	l.log.Debug("folder changed: %s -> %s", realPath, mountPath)
	return nil
}

func (l *LogWatcher) NotifyFolderRemoved(realPath, mountPath string) error {
	l.log.Debug("folder removed: %s -> %s", realPath, mountPath)
	return nil
}

// MultiWatcher fans a single notification out to several watchers in
// order, stopping at the first error.
type MultiWatcher struct {
	watchers []Watcher
}

// NewMultiWatcher returns a Watcher that forwards every event to each of
// ws in order.
func NewMultiWatcher(ws ...Watcher) *MultiWatcher {
	return &MultiWatcher{watchers: ws}
}

func (m *MultiWatcher) each(call func(Watcher) error) error {
	for _, w := range m.watchers {
		if err := call(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiWatcher) NotifyFileAdded(realPath, mountPath string) error {
	return m.each(func(w Watcher) error { return w.NotifyFileAdded(realPath, mountPath) })
}
func (m *MultiWatcher) NotifyFileChanged(realPath, mountPath string) error {
	return m.each(func(w Watcher) error { return w.NotifyFileChanged(realPath, mountPath) })
}
func (m *MultiWatcher) NotifyFileRemoved(realPath, mountPath string) error {
	return m.each(func(w Watcher) error { return w.NotifyFileRemoved(realPath, mountPath) })
}
func (m *MultiWatcher) NotifySymlinkAdded(realPath, mountPath string) error {
	return m.each(func(w Watcher) error { return w.NotifySymlinkAdded(realPath, mountPath) })
}
func (m *MultiWatcher) NotifySymlinkChanged(realPath, mountPath string) error {
	return m.each(func(w Watcher) error { return w.NotifySymlinkChanged(realPath, mountPath) })
}
func (m *MultiWatcher) NotifySymlinkRemoved(realPath, mountPath string) error {
	return m.each(func(w Watcher) error { return w.NotifySymlinkRemoved(realPath, mountPath) })
}
func (m *MultiWatcher) NotifyFolderAdded(realPath, mountPath string) error {
	return m.each(func(w Watcher) error { return w.NotifyFolderAdded(realPath, mountPath) })
}
func (m *MultiWatcher) NotifyFolderChanged(realPath, mountPath string) error {
	return m.each(func(w Watcher) error { return w.NotifyFolderChanged(realPath, mountPath) })
}
func (m *MultiWatcher) NotifyFolderRemoved(realPath, mountPath string) error {
	return m.each(func(w Watcher) error { return w.NotifyFolderRemoved(realPath, mountPath) })
}
