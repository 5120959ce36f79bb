// main.go - tarsync CLI entry point.
//
// Licensing Terms: GPLv2
//
// Flag handling follows testsuite/main.go's own idiom: a single
// flag.NewFlagSet, BoolVarP/StringVarP/IntVarP, fs.SetOutput(os.Stdout),
// a usage() banner and a Die() fatal-error helper.
package main

import (
	"fmt"
	"os"
	"path"

	"github.com/opencoff/go-logger"
	flag "github.com/opencoff/pflag"

	"github.com/opencoff/go-tarsync/cache"
	"github.com/opencoff/go-tarsync/input"
	"github.com/opencoff/go-tarsync/processor"
	"github.com/opencoff/go-tarsync/tarout"
	"github.com/opencoff/go-tarsync/walk"
)

var Z = path.Base(os.Args[0])

func main() {
	var (
		help       bool
		verbose    bool
		compress   bool
		outputTar  string
		cacheDB    string
		rollback   int
		compressLv int
	)

	fs := flag.NewFlagSet(Z, flag.ExitOnError)
	fs.BoolVarP(&help, "help", "h", false, "Show help and exit [False]")
	fs.StringVarP(&outputTar, "output-tar", "o", "", "Write archive to `PATH` (required)")
	fs.StringVarP(&cacheDB, "cache-db", "c", "", "Use `PATH` as the session cache (required)")
	fs.IntVarP(&rollback, "rollback", "r", -1, "Roll back to session `ID` before this run [-1=no rollback]")
	fs.BoolVarP(&compress, "compress", "z", false, "Wrap the output archive in gzip [False]")
	fs.IntVarP(&compressLv, "compress-level", "l", 6, "Gzip compression `N` [1-9, 0=none]")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging [False]")

	fs.SetOutput(os.Stdout)

	if err := fs.Parse(os.Args[1:]); err != nil {
		Die("%s", err)
	}
	if help {
		usage(fs)
	}

	args := fs.Args()
	if len(args) == 0 {
		Die("Usage: %s [options] INPUT[:MOUNT] [INPUT[:MOUNT]...]", Z)
	}
	if len(outputTar) == 0 {
		Die("missing required -o/--output-tar")
	}
	if len(cacheDB) == 0 {
		Die("missing required -c/--cache-db")
	}
	if rollback != -1 && rollback <= 0 {
		Die("rollback id must be > 0, got %d", rollback)
	}

	level := logger.LOG_INFO
	if verbose {
		level = logger.LOG_DEBUG
	}
	log, err := logger.NewLogger("STDERR", level, "tarsync", logger.Ldate|logger.Ltime)
	if err != nil {
		Die("logger: %s", err)
	}

	id, err := run(log, verbose, args, outputTar, cacheDB, rollback, compress, compressLv)
	if err != nil {
		Die("%s", err)
	}
	fmt.Printf("session_id %d\n", id)
}

func run(log logger.Logger, verbose bool, args []string, outputTar, cacheDB string, rollback int, compress bool, compressLv int) (uint32, error) {
	targets := make([]input.Target, 0, len(args))
	for _, raw := range args {
		spec, err := input.Parse(raw)
		if err != nil {
			return 0, err
		}
		ts, err := spec.Resolve()
		if err != nil {
			return 0, err
		}
		targets = append(targets, ts...)
	}

	c, err := cache.Open(cacheDB)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	if rollback > 0 {
		log.Debug("rollback_before(%d)", rollback)
		if err := c.RollbackBefore(uint32(rollback)); err != nil {
			return 0, err
		}
	}

	out, err := os.Create(outputTar)
	if err != nil {
		return 0, err
	}

	emitter, err := tarout.New(out, compress, compressLv)
	if err != nil {
		out.Close()
		return 0, err
	}

	var w processor.Watcher = emitter
	if verbose {
		w = processor.NewMultiWatcher(emitter, processor.NewLogWatcher(log))
	}
	notifier := processor.NewChangeNotifier(w)

	sess, err := c.StartSession()
	if err != nil {
		emitter.Close()
		return 0, err
	}
	log.Debug("session %d started", sess.ID())

	adder := walk.Start(sess, notifier)
	for _, t := range targets {
		log.Debug("add_path %s -> %s", t.RealPath, t.MountPath)
		if _, _, err := adder.AddPath(t.RealPath, t.MountPath); err != nil {
			adder.Abort()
			emitter.Close()
			return 0, err
		}
	}

	id, err := adder.Finish()
	if err != nil {
		emitter.Close()
		return 0, err
	}
	log.Debug("session %d committed", id)

	if err := emitter.Close(); err != nil {
		return 0, err
	}

	return id, nil
}

func usage(fs *flag.FlagSet) {
	fmt.Printf(usageStr, Z, Z)
	fs.PrintDefaults()
	os.Exit(1)
}

// Die prints a one-line error to stderr and exits with a non-zero status;
// the partially written output tar, if any, is left in place.
func Die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s: "+format+"\n", append([]any{Z}, args...)...)
	os.Exit(1)
}

var usageStr = `%s - incremental filesystem archive snapshots.

Usage: %s [options] INPUT[:MOUNT] [INPUT[:MOUNT]...]

Options:
`
