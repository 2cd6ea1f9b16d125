package daemon

import (
	"context"
	"errors"
	"fmt"

	"fileflows/internal/config"
	"fileflows/internal/ingest"
	"fileflows/internal/logging"
	"fileflows/internal/store"
)

// ListFiles returns library files matching opts.
func (d *Daemon) ListFiles(ctx context.Context, opts store.ListOptions) ([]*store.File, error) {
	return d.store.List(ctx, opts)
}

// GetFile returns one library file.
func (d *Daemon) GetFile(ctx context.Context, id int64) (*store.File, error) {
	return d.store.GetByID(ctx, id)
}

// ListLibraries returns the persisted libraries with their file counts.
func (d *Daemon) ListLibraries(ctx context.Context) ([]store.LibraryState, error) {
	return d.store.ListLibraries(ctx)
}

// Reprocess returns files to unprocessed and wakes the scheduler.
func (d *Daemon) Reprocess(ctx context.Context, ids []int64) (int64, error) {
	n, err := d.store.Reprocess(ctx, ids...)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.logger.Info("files queued for reprocessing",
			logging.Event("files_reprocessed"),
			logging.Int64("count", n),
		)
		d.workflow.Trigger()
	}
	return n, nil
}

// Cancel fails claimable files with the cancelled reason and stops any of
// ids that are currently running.
func (d *Daemon) Cancel(ctx context.Context, ids []int64) (int64, error) {
	n, err := d.store.Cancel(ctx, ids...)
	if err != nil {
		return 0, err
	}
	active := d.workflow.CancelActive(ids...)
	total := n + int64(active)
	if total > 0 {
		d.logger.Info("files cancelled",
			logging.Event("files_cancelled"),
			logging.Int64("queued", n),
			logging.Int("running", active),
		)
	}
	return total, nil
}

// MoveToTop puts ids at the front of the processing order.
func (d *Daemon) MoveToTop(ctx context.Context, ids []int64) error {
	if err := d.store.MoveToTop(ctx, ids...); err != nil {
		return err
	}
	d.workflow.Trigger()
	return nil
}

// Rescan asks the named libraries, or every library when names is empty, to
// scan now. A full rescan also clears the persisted last-scanned time so it
// survives a restart. It returns how many running libraries were signalled.
func (d *Daemon) Rescan(ctx context.Context, full bool, names []string) (int, error) {
	if full {
		if _, err := d.store.MarkForRescan(ctx, names...); err != nil {
			return 0, err
		}
	}
	return d.ingest.Rescan(full, names...), nil
}

// ReloadFromDisk re-reads the configuration file the daemon was started with
// and applies it.
func (d *Daemon) ReloadFromDisk(ctx context.Context) error {
	if d.configPath == "" {
		return errors.New("daemon was started without a configuration file")
	}
	cfg, _, exists, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("reload configuration: %w", err)
	}
	if !exists {
		return fmt.Errorf("configuration file %s no longer exists", d.configPath)
	}
	return d.Reload(ctx, cfg)
}

// Reload applies the library and flow definitions of cfg. Path, logging and
// workflow settings need a restart.
func (d *Daemon) Reload(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("configuration unavailable")
	}
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	next := *d.cfg
	next.Libraries = cfg.Libraries
	next.Flows = cfg.Flows

	d.catalog.Replace(next.FlowDefinitions())
	libs, err := d.syncLibraries(ctx, &next)
	if err != nil {
		return err
	}
	d.cfg = &next

	if d.running.Load() {
		if err := d.ingest.UpdateLibraries(libs); err != nil {
			logging.WarnWithContext(d.logger, "some libraries could not be reconfigured", "library_reload_failed",
				logging.Error(err),
				logging.Hint("check the library paths and filters"),
			)
		}
		d.workflow.Trigger()
	}
	d.logger.Info("configuration reloaded",
		logging.Event("config_reloaded"),
		logging.Int("libraries", len(libs)),
		logging.Int("flows", len(next.Flows)),
	)
	return nil
}

// LibraryActivity reports the ingestion state of the running libraries.
func (d *Daemon) LibraryActivity() []ingest.LibraryStatus {
	return d.ingest.Status()
}
