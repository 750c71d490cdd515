// Package watch rescans a project when its directories change and on a
// fixed schedule.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron"

	"ivcs-go/internal/ivcs"
)

// Scanner runs one change detection pass over a project.
type Scanner interface {
	ScanAndDetect(ctx context.Context, projectID string) (*ivcs.ScanReport, error)
}

// Target is the project being watched.
type Target struct {
	ProjectID  string
	Dirs       []string
	Extensions []string
}

// Options controls timing and reporting.
type Options struct {
	// Interval between scheduled rescans. The first scan runs on start.
	Interval time.Duration
	// Debounce is the quiet period after a filesystem event before scanning.
	Debounce time.Duration
	// OnReport receives every completed scan. Optional.
	OnReport func(*ivcs.ScanReport)
	// OnError receives scan failures. Optional.
	OnError func(error)
	Logger  ivcs.Logger
}

// Watcher serializes scans of one project. Triggers that arrive while a scan
// is running are coalesced into a single follow-up scan.
type Watcher struct {
	scanner Scanner
	target  Target
	opts    Options
	exts    map[string]bool

	mu      sync.Mutex
	pending atomic.Bool
	scans   atomic.Int64
}

// New validates opts and returns a Watcher. Call Run to start it.
func New(scanner Scanner, target Target, opts Options) (*Watcher, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive")
	}
	if opts.Debounce <= 0 {
		return nil, fmt.Errorf("watch debounce must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = ivcs.NewNopLogger()
	}
	exts := make(map[string]bool, len(target.Extensions))
	for _, e := range target.Extensions {
		exts[e] = true
	}
	return &Watcher{scanner: scanner, target: target, opts: opts, exts: exts}, nil
}

// Scans returns the number of completed scan passes.
func (w *Watcher) Scans() int64 { return w.scans.Load() }

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range w.target.Dirs {
		if err := w.addTree(fsw, dir); err != nil {
			return err
		}
	}

	sched := gocron.NewScheduler(time.UTC)
	sched.SingletonModeAll()
	if _, err := sched.Every(w.opts.Interval).Do(w.Trigger, ctx, "schedule"); err != nil {
		return fmt.Errorf("scheduling rescans: %w", err)
	}
	sched.StartAsync()
	defer sched.Stop()

	w.opts.Logger.Info("watching", "project", w.target.ProjectID, "dirs", len(w.target.Dirs), "interval", w.opts.Interval)

	debounce := time.NewTimer(w.opts.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fsw, ev.Name); err != nil {
						w.opts.Logger.Warn("cannot watch new directory", "path", ev.Name, "error", err)
					}
				}
			}
			if w.relevant(ev) {
				debounce.Reset(w.opts.Debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("watch error", "error", err)
		case <-debounce.C:
			go w.Trigger(ctx, "change")
		}
	}
}

// Trigger runs a scan unless one is in progress, in which case it marks a
// follow-up scan as pending and returns. The pending mark is set before the
// lock is tried, so a scan in progress either covers the trigger or sees the
// mark after it unlocks.
func (w *Watcher) Trigger(ctx context.Context, reason string) {
	w.pending.Store(true)
	for ctx.Err() == nil && w.pending.Load() {
		if !w.mu.TryLock() {
			return
		}
		if w.pending.Swap(false) {
			w.scan(ctx, reason)
		}
		w.mu.Unlock()
		reason = "coalesced"
	}
}

func (w *Watcher) scan(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	w.opts.Logger.Debug("rescanning", "project", w.target.ProjectID, "reason", reason)
	report, err := w.scanner.ScanAndDetect(ctx, w.target.ProjectID)
	w.scans.Add(1)
	if err != nil {
		w.opts.Logger.Error("watch scan failed", "project", w.target.ProjectID, "error", err)
		if w.opts.OnError != nil {
			w.opts.OnError(err)
		}
		return
	}
	if w.opts.OnReport != nil {
		w.opts.OnReport(report)
	}
}

// relevant reports whether an event can change the inventory. Directory
// events always count since they may hide tracked files.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	ext := filepath.Ext(ev.Name)
	if ext == "" || len(w.exts) == 0 || w.exts[ext] {
		return true
	}
	return false
}

// addTree watches dir and every directory below it. fsnotify does not recurse.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			w.opts.Logger.Warn("cannot watch directory", "path", path, "error", err)
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
