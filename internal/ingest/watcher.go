package ingest

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"fileflows/internal/library"
	"fileflows/internal/logging"
)

// Watcher turns filesystem notifications below a library root into
// candidates. File-mode libraries settle each file before offering it;
// directory-mode libraries offer the top-level directory an event touched.
type Watcher struct {
	root    string
	folders bool
	filter  *library.Filter
	offer   func(path string)
	logger  *slog.Logger

	fs      *fsnotify.Watcher
	settle  *settler
	stop    chan struct{}
	wg      sync.WaitGroup
	stopped sync.Once
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// NewWatcher prepares a watcher for lib. offer receives each candidate path.
func NewWatcher(lib library.Library, filter *library.Filter, offer func(string), opts WatcherOptions) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Watcher{
		root:    filepath.Clean(lib.Path),
		folders: lib.Folders,
		filter:  filter,
		offer:   offer,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	w.settle = newSettler(opts.SettleDelay, offer, func(path string, before, after int64) {
		w.logger.Debug("file still growing; waiting for the next write event",
			logging.Path(path),
			logging.Int64("size_before", before),
			logging.Int64("size_after", after),
		)
	})
	return w
}

// Start subscribes to the root and every directory below it.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fs = watcher
	if err := w.watchRecursive(w.root); err != nil {
		watcher.Close()
		return err
	}
	w.wg.Add(1)
	go w.eventLoop()
	w.logger.Info("filesystem watcher started",
		logging.Event("watcher_started"),
		logging.Path(w.root),
	)
	return nil
}

// Stop drops pending settle timers and closes the subscription.
func (w *Watcher) Stop() {
	w.stopped.Do(func() {
		w.settle.Stop()
		close(w.stop)
		if w.fs != nil {
			w.fs.Close()
		}
		w.wg.Wait()
		w.logger.Info("filesystem watcher stopped",
			logging.Event("watcher_stopped"),
			logging.Path(w.root),
		)
	})
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("failed to watch directory",
				logging.Path(path),
				logging.Error(err),
			)
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logging.WarnWithContext(w.logger, "watcher event overflow; events were lost", "watcher_overflow",
					logging.Path(w.root),
					logging.Impact("missed files are picked up by the hourly full scan"),
				)
				continue
			}
			w.logger.Error("watcher error", logging.Error(err))
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		// Renamed away or removed before we looked.
		return
	}
	if info.IsDir() && event.Has(fsnotify.Create) {
		if err := w.watchRecursive(event.Name); err != nil {
			w.logger.Warn("failed to watch new directory",
				logging.Path(event.Name),
				logging.Error(err),
			)
		}
	}

	if w.folders {
		if top, ok := w.filter.TopLevel(event.Name); ok && library.Exists(top, true) {
			w.offer(top)
		}
		return
	}

	if info.IsDir() {
		for _, entry := range library.Files(event.Name) {
			w.settle.Queue(entry.Path)
		}
		return
	}
	w.settle.Queue(event.Name)
}
