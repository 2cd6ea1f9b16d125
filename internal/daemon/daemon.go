package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"fileflows/internal/config"
	"fileflows/internal/flow"
	"fileflows/internal/identity"
	"fileflows/internal/ingest"
	"fileflows/internal/library"
	"fileflows/internal/logging"
	"fileflows/internal/preflight"
	"fileflows/internal/store"
	"fileflows/internal/workflow"
)

// Daemon coordinates ingestion and processing and enforces single-instance
// execution.
type Daemon struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	store      *store.Store
	libraries  *library.Registry
	catalog    *flow.Catalog
	ingest     *ingest.Manager
	workflow   *workflow.Manager

	lockPath string
	lock     *flock.Flock

	reloadMu sync.Mutex
	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Workflow     workflow.StatusSummary
	Libraries    []ingest.LibraryStatus
	Preflight    []preflight.Result
	Database     store.DatabaseHealth
}

// New constructs a daemon around st. executor runs the flows; configPath is
// re-read by ReloadFromDisk.
func New(cfg *config.Config, configPath string, st *store.Store, logger *slog.Logger, executor flow.Executor) (*Daemon, error) {
	if cfg == nil || st == nil || executor == nil {
		return nil, errors.New("daemon requires config, store, and flow executor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	registry := library.NewRegistry()
	catalog := flow.NewCatalog(cfg.FlowDefinitions()...)
	resolver := identity.NewResolver(st, logger)
	wf := workflow.NewManager(cfg, st, registry, catalog, executor, logger)
	ingestOpts := ingest.Options{
		ScanTick:      cfg.ScanTick(),
		DrainFallback: cfg.DrainFallback(),
		SettleDelay:   cfg.SettleDelay(),
		QueueMessages: cfg.Logging.QueueMessages,
		OnAdded:       wf.Trigger,
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		store:      st,
		libraries:  registry,
		catalog:    catalog,
		ingest:     ingest.NewManager(st, resolver, logger, ingestOpts),
		workflow:   wf,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers files left in processing by an
// earlier run, and launches ingestion and processing.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fileflows daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.start(d.ctx); err != nil {
		d.ingest.Stop()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("fileflows daemon started",
		logging.Event("daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Int("libraries", len(d.libraries.All())),
	)
	return nil
}

func (d *Daemon) start(ctx context.Context) error {
	d.logPreflight(ctx, d.cfg)

	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		return fmt.Errorf("reset stuck files: %w", err)
	}
	if reset > 0 {
		d.logger.Info("files interrupted by an earlier run returned to unprocessed",
			logging.Event("stuck_files_reset"),
			logging.Int64("count", reset),
		)
	}

	libs, err := d.syncLibraries(ctx, d.cfg)
	if err != nil {
		return err
	}
	if err := d.ingest.Start(ctx, libs); err != nil {
		d.logger.Warn("some libraries could not start",
			logging.Error(err),
			logging.Event("library_start_failed"),
			logging.Hint("check the library paths and filters"),
		)
	}
	if err := d.workflow.Start(ctx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ingest.Stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("fileflows daemon stopped", logging.Event("daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Workflow:     d.workflow.Status(ctx),
		Libraries:    d.ingest.Status(),
		Preflight:    preflight.RunAll(ctx, d.currentConfig()),
	}
	health, err := d.store.CheckHealth(ctx)
	if err != nil && health.Error == "" {
		health.Error = err.Error()
	}
	status.Database = health
	return status
}

func (d *Daemon) currentConfig() *config.Config {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()
	return d.cfg
}

func (d *Daemon) logPreflight(ctx context.Context, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.Impact("affected libraries or flows will not run until fixed"),
		)
	}
}

// syncLibraries persists the configured libraries and mirrors them into the
// registry the scheduler reads.
func (d *Daemon) syncLibraries(ctx context.Context, cfg *config.Config) ([]library.Library, error) {
	libs, err := d.store.SyncLibraries(ctx, cfg.LibraryDefinitions())
	if err != nil {
		return nil, fmt.Errorf("sync libraries: %w", err)
	}
	keep := make(map[string]struct{}, len(libs))
	for _, lib := range libs {
		keep[lib.Name] = struct{}{}
		d.libraries.Set(lib)
	}
	for _, lib := range d.libraries.All() {
		if _, ok := keep[lib.Name]; !ok {
			d.libraries.Remove(lib.Name)
		}
	}
	return libs, nil
}
