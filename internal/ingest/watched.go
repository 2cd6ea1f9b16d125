package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"fileflows/internal/identity"
	"fileflows/internal/library"
	"fileflows/internal/logging"
	"fileflows/internal/store"
)

// Store is the persistence surface ingestion needs.
type Store interface {
	Insert(ctx context.Context, file *store.File) error
	KnownPathsWithCreationTimes(ctx context.Context, libraryName string) (map[string]time.Time, error)
	UpdateLastScanned(ctx context.Context, name string, at time.Time) error
}

// Classifier decides whether a candidate is new, known or a duplicate.
type Classifier interface {
	Classify(ctx context.Context, lib library.Library, entry library.Entry) (identity.Classification, error)
}

// Options tunes the timing of a watched library.
type Options struct {
	ScanTick      time.Duration
	DrainFallback time.Duration
	SettleDelay   time.Duration
	// QueueMessages logs every queue decision at info level instead of debug.
	QueueMessages bool
	// OnAdded, when set, is called after a claimable file is recorded.
	OnAdded func()
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		ScanTick:      10 * time.Second,
		DrainFallback: 5 * time.Second,
		SettleDelay:   20 * time.Second,
	}
}

// FolderRequeueDelay is how long a directory that is still being written to
// waits before it is looked at again.
const FolderRequeueDelay = 2 * time.Second

// WatchedLibrary discovers candidates for one library, through a filesystem
// watcher or periodic scans, and drains them into the record store.
type WatchedLibrary struct {
	store      Store
	classifier Classifier
	logger     *slog.Logger
	opts       Options
	queue      *Queue
	access     accessProbe
	now        func() time.Time

	mu      sync.RWMutex
	lib     library.Library
	filter  *library.Filter
	watcher *Watcher
	running bool

	scanning     atomic.Bool
	scanComplete atomic.Bool
	rescan       chan bool

	outsideSchedule rate.Sometimes
	waitingLog      rate.Sometimes
	pathMissing     rate.Sometimes
}

// NewWatchedLibrary validates lib's patterns and prepares its queue.
func NewWatchedLibrary(lib library.Library, st Store, classifier Classifier, logger *slog.Logger, opts Options) (*WatchedLibrary, error) {
	filter, err := library.NewFilter(lib)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	defaults := DefaultOptions()
	if opts.ScanTick <= 0 {
		opts.ScanTick = defaults.ScanTick
	}
	if opts.DrainFallback <= 0 {
		opts.DrainFallback = defaults.DrainFallback
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = defaults.SettleDelay
	}
	return &WatchedLibrary{
		store:           st,
		classifier:      classifier,
		logger:          logging.NewComponentLogger(logger, "ingest").With(logging.Library(lib.Name)),
		opts:            opts,
		queue:           NewQueue(),
		access:          newAccessProbe(),
		now:             time.Now,
		lib:             lib,
		filter:          filter,
		rescan:          make(chan bool, 1),
		outsideSchedule: rate.Sometimes{Interval: time.Minute},
		waitingLog:      rate.Sometimes{Interval: time.Minute},
		pathMissing:     rate.Sometimes{Interval: 10 * time.Minute},
	}, nil
}

// Library returns the current library definition.
func (w *WatchedLibrary) Library() library.Library {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lib
}

// Queue exposes the candidate queue.
func (w *WatchedLibrary) Queue() *Queue {
	return w.queue
}

// Watching reports whether a filesystem watcher is installed.
func (w *WatchedLibrary) Watching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watcher != nil
}

// ScanComplete reports whether an initial full scan has finished.
func (w *WatchedLibrary) ScanComplete() bool {
	return w.scanComplete.Load()
}

func (w *WatchedLibrary) snapshot() (library.Library, *library.Filter) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lib, w.filter
}

// Run drives the library until ctx is cancelled: an initial scan, the scan
// tick, the drainer and, in watch mode, the filesystem watcher.
func (w *WatchedLibrary) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("library %q already running", w.lib.Name)
	}
	w.running = true
	w.installWatcherLocked()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		stale := w.detachWatcherLocked()
		w.running = false
		w.mu.Unlock()
		stopWatcher(stale)
		w.queue.Close()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.drainLoop(gctx)
		return nil
	})
	g.Go(func() error {
		w.scanLoop(gctx)
		return nil
	})
	return g.Wait()
}

// Rescan asks the scan loop to scan immediately. full bypasses the interval
// and watch-mode checks.
func (w *WatchedLibrary) Rescan(full bool) {
	if full {
		w.scanComplete.Store(false)
	}
	select {
	case w.rescan <- full:
	default:
		if full {
			// Replace a pending partial request with a full one.
			select {
			case <-w.rescan:
			default:
			}
			select {
			case w.rescan <- true:
			default:
			}
		}
	}
}

// UpdateLibrary applies a changed definition. Switching between scan and
// watch mode installs or removes the watcher, a moved root or a changed mode
// reinstalls it, and a last-scanned value before the rescan epoch forces a
// full scan.
func (w *WatchedLibrary) UpdateLibrary(lib library.Library) error {
	filter, err := library.NewFilter(lib)
	if err != nil {
		return err
	}

	var stale *Watcher
	w.mu.Lock()
	prev := w.lib
	w.lib = lib
	w.filter = filter
	if w.running {
		switch {
		case !library.Exists(lib.Path, true):
			if w.watcher != nil {
				w.logger.Warn("library path missing; falling back to scan mode",
					logging.Path(lib.Path))
			}
			stale = w.detachWatcherLocked()
		case lib.Scan && w.watcher != nil:
			w.logger.Info("library switched to scan mode; stopping watcher")
			stale = w.detachWatcherLocked()
		case !lib.Scan && w.watcher == nil:
			w.logger.Info("library switched to watch mode; starting watcher")
			w.installWatcherLocked()
		case w.watcher != nil && (prev.Path != lib.Path || prev.Folders != lib.Folders):
			w.logger.Info("library root changed; reinstalling watcher",
				logging.String("previous_path", prev.Path),
				logging.Path(lib.Path))
			stale = w.detachWatcherLocked()
			w.installWatcherLocked()
		}
	}
	w.mu.Unlock()
	stopWatcher(stale)

	if lib.Enabled && lib.RescanRequested() {
		w.logger.Info("library marked for full scan",
			logging.Event("rescan_requested"))
		w.Rescan(true)
	}
	return nil
}

func (w *WatchedLibrary) installWatcherLocked() {
	if w.lib.Scan || w.watcher != nil || !library.Exists(w.lib.Path, true) {
		return
	}
	watcher := NewWatcher(w.lib, w.filter, w.offerWatched, WatcherOptions{
		SettleDelay: w.opts.SettleDelay,
		Logger:      w.logger,
	})
	if err := watcher.Start(); err != nil {
		logging.WarnWithContext(w.logger, "filesystem watcher unavailable; using scan mode", "watcher_failed",
			logging.Path(w.lib.Path),
			logging.Error(err),
			logging.Impact("new files are found on the scan interval instead of immediately"),
			logging.Hint("raise fs.inotify.max_user_watches or set scan = true"),
		)
		return
	}
	w.watcher = watcher
}

// detachWatcherLocked unhooks the watcher. The caller stops it after
// releasing w.mu because the event loop takes the read lock.
func (w *WatchedLibrary) detachWatcherLocked() *Watcher {
	watcher := w.watcher
	w.watcher = nil
	return watcher
}

func stopWatcher(watcher *Watcher) {
	if watcher != nil {
		watcher.Stop()
	}
}

func (w *WatchedLibrary) offerWatched(path string) {
	_, filter := w.snapshot()
	if !filter.Match(path) {
		return
	}
	if w.queue.Offer(path) {
		w.queueMessage("queued from watcher", logging.Path(path))
	}
}

func (w *WatchedLibrary) queueMessage(msg string, attrs ...logging.Attr) {
	if w.opts.QueueMessages {
		w.logger.Info(msg, logging.Args(attrs...)...)
		return
	}
	w.logger.Debug(msg, logging.Args(attrs...)...)
}
