package ingest

import (
	"context"
	"time"

	"fileflows/internal/library"
	"fileflows/internal/logging"
)

func (w *WatchedLibrary) scanLoop(ctx context.Context) {
	w.Scan(ctx, false)
	ticker := time.NewTicker(w.opts.ScanTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case full := <-w.rescan:
			w.Scan(ctx, full)
		case <-ticker.C:
			w.Scan(ctx, false)
		}
	}
}

// Scan enumerates the library and queues unknown candidates. It returns the
// number of paths queued. A scan already in progress makes this call a no-op.
func (w *WatchedLibrary) Scan(ctx context.Context, full bool) int {
	if !w.scanning.CompareAndSwap(false, true) {
		return 0
	}
	defer w.scanning.Store(false)

	lib, filter := w.snapshot()
	now := w.now()

	if !lib.Enabled {
		return 0
	}
	if !lib.Schedule.Active(now) {
		w.outsideSchedule.Do(func() {
			w.logger.Info("library outside of schedule; scanning skipped",
				logging.Event("scan_out_of_schedule"))
		})
		return 0
	}

	interval := lib.EffectiveScanInterval()
	if !full {
		full = lib.LastScanned.Before(now.Add(-library.FullScanInterval))
	}
	if !full && lib.LastScanned.After(now.Add(-interval)) {
		if lib.Scan {
			w.logger.Debug("scan interval not elapsed",
				logging.Time("next_scan", lib.LastScanned.Add(interval)))
		}
		return 0
	}
	if !full && w.Watching() && w.scanComplete.Load() {
		return 0
	}
	if !library.Exists(lib.Path, true) {
		w.pathMissing.Do(func() {
			logging.WarnWithContext(w.logger, "library path not found; scan skipped", "library_path_missing",
				logging.Path(lib.Path),
				logging.Hint("check the library path or mount"),
			)
		})
		w.logger.Debug("library path not found", logging.Path(lib.Path))
		return 0
	}

	w.logger.Debug("scan started", logging.Path(lib.Path), logging.Bool("full", full))
	var queued int
	if lib.Folders {
		dirs, err := library.Subdirectories(lib.Path)
		if err != nil {
			w.logger.Error("failed scanning for folders", logging.Error(err))
			return 0
		}
		for _, dir := range dirs {
			if w.queue.Offer(dir) {
				queued++
			}
		}
	} else {
		known, err := w.store.KnownPathsWithCreationTimes(ctx, lib.Name)
		if err != nil {
			w.logger.Error("failed loading known files", logging.Error(err))
			return 0
		}
		for _, entry := range library.Files(lib.Path) {
			if !filter.Accept(entry.Path) {
				continue
			}
			if created, ok := known[entry.Path]; ok {
				if !lib.ReprocessRecreatedFiles || !entry.CreationTime.After(created) {
					continue
				}
			}
			if w.queue.Offer(entry.Path) {
				w.queueMessage("queued from scan", logging.Path(entry.Path))
				queued++
			}
		}
	}

	w.queueMessage("scan queued candidates",
		logging.Int("queued", queued),
		logging.Int("pending", w.queue.Pending()),
	)
	if err := w.store.UpdateLastScanned(ctx, lib.Name, now); err != nil {
		w.logger.Warn("failed to persist last scanned time", logging.Error(err))
	}
	w.mu.Lock()
	if w.lib.Name == lib.Name {
		w.lib.LastScanned = now
	}
	w.mu.Unlock()
	w.scanComplete.Store(true)
	return queued
}
