package ingest

import (
	"context"
	"errors"
	"time"

	"fileflows/internal/identity"
	"fileflows/internal/library"
	"fileflows/internal/logging"
	"fileflows/internal/store"
)

func (w *WatchedLibrary) drainLoop(ctx context.Context) {
	ticker := time.NewTicker(w.opts.DrainFallback)
	defer ticker.Stop()
	for {
		w.Drain(ctx)
		select {
		case <-ctx.Done():
			return
		case <-w.queue.Ready():
		case <-ticker.C:
		}
	}
}

// Drain processes queued candidates until the queue is empty or ctx ends.
func (w *WatchedLibrary) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		path, ok := w.queue.TryDequeue()
		if !ok {
			return
		}
		w.processCandidate(ctx, path)
	}
}

// processCandidate runs one candidate through the ingestion checks and
// inserts a record when it qualifies. Failures are logged; nothing here
// stops the drainer.
func (w *WatchedLibrary) processCandidate(ctx context.Context, path string) {
	lib, filter := w.snapshot()
	logger := w.logger.With(logging.Path(path))
	start := w.now()

	if !library.Exists(path, lib.Folders) {
		logger.Debug("candidate no longer exists")
		return
	}
	if filter.ExcludeHidden() && filter.Hidden(path) {
		w.queueMessage("skipping hidden candidate", logging.Path(path))
		return
	}
	if !filter.Accept(path) {
		w.queueMessage("candidate does not match filters or is provisional", logging.Path(path))
		return
	}
	if !filter.Contains(path) {
		logger.Info("candidate no longer belongs to library", logging.String("library_path", lib.Path))
		return
	}

	entry, err := library.Stat(path)
	if err != nil {
		logger.Debug("candidate stat failed", logging.Error(err))
		return
	}
	verdict, err := w.classifier.Classify(ctx, lib, entry)
	if err != nil {
		logger.Warn("candidate classification failed",
			logging.Event("classify_failed"),
			logging.Error(err),
		)
		return
	}
	if verdict.Known {
		w.queueMessage("skipping known candidate", logging.Path(path))
		return
	}

	if lib.Folders && lib.WaitTime > 0 {
		newest, err := library.NewestWrite(path)
		switch {
		case err != nil:
			logger.Info("folder unreadable; will retry", logging.Error(err))
			w.queue.EnqueueAfter(path, FolderRequeueDelay)
			return
		case !newest.IsZero() && w.now().Sub(newest) < lib.WaitTime:
			w.waitingLog.Do(func() {
				logger.Info("changes recently written to folder; waiting before ingest",
					logging.Time("newest_write", newest),
					logging.Duration("wait_time", lib.WaitTime),
				)
			})
			w.queue.EnqueueAfter(path, FolderRequeueDelay)
			return
		}
	}

	logger.Debug("new unknown " + lib.Kind())

	if !lib.Folders && !lib.SkipFileAccessTests {
		if err := w.access.Check(ctx, lib, entry); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.Info("file not ready for ingestion",
				logging.Event("file_not_ready"),
				logging.Error(err),
			)
			return
		}
	}

	file := w.buildRecord(lib, entry, verdict)
	if err := w.store.Insert(ctx, file); err != nil {
		logging.ErrorWithContext(logger, "failed to add library file", "ingest_insert_failed",
			logging.Error(err),
			logging.Duration("elapsed", w.now().Sub(start)),
			logging.Impact("file is retried on the next full scan"),
			logging.Hint("check database access"),
		)
		return
	}
	logger.Info("library file added",
		logging.Event("file_added"),
		logging.FileID(file.ID),
		logging.String("status", string(file.Status)),
		logging.Duration("elapsed", w.now().Sub(start)),
	)
	if file.Status == store.StatusUnprocessed && w.opts.OnAdded != nil {
		w.opts.OnAdded()
	}
}

func (w *WatchedLibrary) buildRecord(lib library.Library, entry library.Entry, verdict identity.Classification) *store.File {
	file := &store.File{
		Path:            entry.Path,
		RelativePath:    lib.RelativePath(entry.Path),
		LibraryName:     lib.Name,
		IsDirectory:     entry.IsDir,
		Fingerprint:     verdict.Fingerprint,
		CreationTime:    entry.CreationTime,
		LastWriteTime:   entry.LastWriteTime,
		Status:          store.StatusUnprocessed,
		ProcessingOrder: store.UnsetOrder,
		HoldUntil:       lib.HoldUntil(w.now()),
	}
	if !entry.IsDir {
		file.OriginalSize = entry.Size
	}
	if verdict.DuplicateOf != nil {
		ref := *verdict.DuplicateOf
		file.Status = store.StatusDuplicate
		file.DuplicateOf = &ref
	}
	return file
}
