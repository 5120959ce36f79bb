// emitter.go - the tar-emitting processor.Watcher.
//
// Licensing Terms: GPLv2
//
// Grounded on mutagen's scripts/build.go ArchiveBuilder (open file, wrap
// in an optional gzip.Writer, wrap that in a tar.Writer, close in the
// reverse order to flush every layer) and on rclone's backend/gzip for
// the "optional compression layer in front of a plain writer" shape.
// Header population uses archive/tar's own FileInfoHeader, which on unix
// already extracts uid/gid/mode/mtime from the os.FileInfo's underlying
// *syscall.Stat_t -- this is "header mode complete" for free, without
// reimplementing what the standard library already does correctly.
package tarout

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"time"
)

// Emitter writes tar records to an underlying writer, optionally gzip
// compressed, and implements processor.Watcher by translating each
// classified event into the tar policy from the design notes.
type Emitter struct {
	tw     *tar.Writer
	gz     *gzip.Writer
	closer io.Closer
}

// New wraps w in a tar writer, optionally compressed at level (0-9) when
// compress is true. w is closed by Close alongside the tar and gzip
// trailers.
func New(w io.WriteCloser, compress bool, level int) (*Emitter, error) {
	e := &Emitter{closer: w}

	dest := io.Writer(w)
	if compress {
		gz, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, wrapErr("new gzip writer", "", err)
		}
		e.gz = gz
		dest = gz
	}

	e.tw = tar.NewWriter(dest)
	return e, nil
}

// Close finalizes the tar trailer, the gzip trailer (if any), and the
// underlying writer, in that order, propagating the first error.
func (e *Emitter) Close() error {
	if err := e.tw.Close(); err != nil {
		e.closeRest()
		return wrapErr("close tar writer", "", err)
	}
	if e.gz != nil {
		if err := e.gz.Close(); err != nil {
			e.closer.Close()
			return wrapErr("close gzip writer", "", err)
		}
	}
	if err := e.closer.Close(); err != nil {
		return wrapErr("close output", "", err)
	}
	return nil
}

func (e *Emitter) closeRest() {
	if e.gz != nil {
		e.gz.Close()
	}
	e.closer.Close()
}

func (e *Emitter) writeFile(realPath, mountPath string) error {
	fi, err := os.Lstat(realPath)
	if err != nil {
		return wrapErr("lstat", realPath, err)
	}

	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return wrapErr("header", realPath, err)
	}
	hdr.Name = mountPath

	f, err := os.Open(realPath)
	if err != nil {
		return wrapErr("open", realPath, err)
	}
	defer f.Close()

	if err := e.tw.WriteHeader(hdr); err != nil {
		return wrapErr("write header", mountPath, err)
	}
	if _, err := io.Copy(e.tw, f); err != nil {
		return wrapErr("write body", realPath, err)
	}
	return nil
}

func (e *Emitter) writeSymlink(realPath, mountPath string) error {
	fi, err := os.Lstat(realPath)
	if err != nil {
		return wrapErr("lstat", realPath, err)
	}

	// entries folded into Symlink for classification (sockets, devices,
	// FIFOs) are not real symlinks: readlink fails for them, and we fall
	// back to an empty link target rather than aborting the whole run.
	target, _ := os.Readlink(realPath)

	hdr, err := tar.FileInfoHeader(fi, target)
	if err != nil {
		return wrapErr("header", realPath, err)
	}
	hdr.Name = mountPath

	if err := e.tw.WriteHeader(hdr); err != nil {
		return wrapErr("write header", mountPath, err)
	}
	return nil
}

func (e *Emitter) writeFolder(realPath, mountPath string) error {
	fi, err := os.Lstat(realPath)
	if err != nil {
		return wrapErr("lstat", realPath, err)
	}

	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return wrapErr("header", realPath, err)
	}
	hdr.Name = mountPath
	if len(hdr.Name) == 0 || hdr.Name[len(hdr.Name)-1] != '/' {
		hdr.Name += "/"
	}

	if err := e.tw.WriteHeader(hdr); err != nil {
		return wrapErr("write header", mountPath, err)
	}
	return nil
}

// writeTombstone appends the zero-byte, .DELETED-suffixed regular-file
// entry used to encode every *_removed event.
func (e *Emitter) writeTombstone(mountPath string) error {
	hdr := &tar.Header{
		Name:     mountPath + ".DELETED",
		Typeflag: tar.TypeReg,
		Size:     0,
		Mode:     0644,
		ModTime:  time.Now(),
	}
	if err := e.tw.WriteHeader(hdr); err != nil {
		return wrapErr("write tombstone", mountPath, err)
	}
	return nil
}

func (e *Emitter) NotifyFileAdded(realPath, mountPath string) error   { return e.writeFile(realPath, mountPath) }
func (e *Emitter) NotifyFileChanged(realPath, mountPath string) error { return e.writeFile(realPath, mountPath) }
func (e *Emitter) NotifyFileRemoved(realPath, mountPath string) error { return e.writeTombstone(mountPath) }

func (e *Emitter) NotifySymlinkAdded(realPath, mountPath string) error {
	return e.writeSymlink(realPath, mountPath)
}
func (e *Emitter) NotifySymlinkChanged(realPath, mountPath string) error {
	return e.writeSymlink(realPath, mountPath)
}
func (e *Emitter) NotifySymlinkRemoved(realPath, mountPath string) error {
	return e.writeTombstone(mountPath)
}

func (e *Emitter) NotifyFolderAdded(realPath, mountPath string) error {
	return e.writeFolder(realPath, mountPath)
}
func (e *Emitter) NotifyFolderChanged(realPath, mountPath string) error {
	return e.writeFolder(realPath, mountPath)
}
func (e *Emitter) NotifyFolderRemoved(realPath, mountPath string) error {
	return e.writeTombstone(mountPath)
}
