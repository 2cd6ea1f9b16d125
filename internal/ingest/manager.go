package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"fileflows/internal/library"
	"fileflows/internal/logging"
)

// LibraryStatus summarises one watched library.
type LibraryStatus struct {
	Name         string
	Watching     bool
	ScanComplete bool
	Queued       int
}

type runningLibrary struct {
	watched *WatchedLibrary
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager runs one WatchedLibrary per enabled library.
type Manager struct {
	store      Store
	classifier Classifier
	logger     *slog.Logger
	base       *slog.Logger
	opts       Options

	mu        sync.Mutex
	running   bool
	group     *errgroup.Group
	groupCtx  context.Context
	cancel    context.CancelFunc
	libraries map[string]*runningLibrary
}

// NewManager constructs an ingestion manager.
func NewManager(st Store, classifier Classifier, logger *slog.Logger, opts Options) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:      st,
		classifier: classifier,
		logger:     logging.NewComponentLogger(logger, "ingest"),
		base:       logger,
		opts:       opts,
		libraries:  make(map[string]*runningLibrary),
	}
}

// Start launches a watched library for every enabled entry in libs.
func (m *Manager) Start(ctx context.Context, libs []library.Library) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("ingestion already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.group, m.groupCtx = errgroup.WithContext(runCtx)
	m.cancel = cancel
	m.running = true

	var errs []error
	for _, lib := range libs {
		if !lib.Enabled {
			continue
		}
		if err := m.launchLocked(lib); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop cancels every library and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	group := m.group
	m.running = false
	m.cancel = nil
	m.libraries = make(map[string]*runningLibrary)
	m.mu.Unlock()

	cancel()
	if err := group.Wait(); err != nil {
		m.logger.Warn("ingestion stopped with error", logging.Error(err))
	}
}

// UpdateLibraries reconciles the running set with libs: new enabled
// libraries start, existing ones are reconfigured, and removed or disabled
// ones stop.
func (m *Manager) UpdateLibraries(libs []library.Library) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return errors.New("ingestion not running")
	}

	wanted := make(map[string]library.Library, len(libs))
	for _, lib := range libs {
		if lib.Enabled {
			wanted[lib.Name] = lib
		}
	}

	var (
		errs    []error
		stopped []*runningLibrary
		updates []struct {
			watched *WatchedLibrary
			lib     library.Library
		}
	)
	for name, rl := range m.libraries {
		if _, ok := wanted[name]; !ok {
			stopped = append(stopped, rl)
			delete(m.libraries, name)
		}
	}
	for name, lib := range wanted {
		if rl, ok := m.libraries[name]; ok {
			updates = append(updates, struct {
				watched *WatchedLibrary
				lib     library.Library
			}{rl.watched, lib})
			continue
		}
		if err := m.launchLocked(lib); err != nil {
			errs = append(errs, err)
		}
	}
	m.mu.Unlock()

	for _, rl := range stopped {
		m.logger.Info("library removed; stopping ingestion",
			logging.Library(rl.watched.Library().Name))
		rl.cancel()
		<-rl.done
	}
	for _, u := range updates {
		if err := u.watched.UpdateLibrary(u.lib); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rescan triggers a scan on the named libraries, or on all when names is
// empty. Unknown names are ignored.
func (m *Manager) Rescan(full bool, names ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int
	for name, rl := range m.libraries {
		if len(names) > 0 && !containsName(names, name) {
			continue
		}
		rl.watched.Rescan(full)
		count++
	}
	return count
}

// Status reports each running library sorted by name.
func (m *Manager) Status() []LibraryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LibraryStatus, 0, len(m.libraries))
	for name, rl := range m.libraries {
		out = append(out, LibraryStatus{
			Name:         name,
			Watching:     rl.watched.Watching(),
			ScanComplete: rl.watched.ScanComplete(),
			Queued:       rl.watched.Queue().Pending(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Manager) launchLocked(lib library.Library) error {
	watched, err := NewWatchedLibrary(lib, m.store, m.classifier, m.base, m.opts)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(m.groupCtx)
	rl := &runningLibrary{watched: watched, cancel: cancel, done: make(chan struct{})}
	m.libraries[lib.Name] = rl
	m.group.Go(func() error {
		defer close(rl.done)
		defer cancel()
		return watched.Run(ctx)
	})
	m.logger.Info("library ingestion started",
		logging.Library(lib.Name),
		logging.Path(lib.Path),
		logging.String("mode", lib.Kind()),
		logging.Bool("scan", lib.Scan),
	)
	return nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
