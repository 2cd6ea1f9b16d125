package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fileflows/internal/flow"
	"fileflows/internal/library"
	"fileflows/internal/logging"
	"fileflows/internal/store"
)

// Start launches the runners.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.executor == nil {
		m.mu.Unlock()
		return errors.New("workflow executor not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.runners)
	m.mu.Unlock()

	for i := 0; i < m.runners; i++ {
		go m.runLoop(runCtx, i)
	}
	m.logger.Info("workflow started", logging.Int("runners", m.runners))
	return nil
}

// Stop cancels the runners and waits for in-flight runs to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLoop(ctx context.Context, runner int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("runner", runner))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		dispatched, err := m.RunCycle(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			logger.Error("processing cycle failed",
				logging.Error(err),
				logging.Event("cycle_failed"),
				logging.Hint("check database access"),
			)
			m.wait(ctx, m.retryInterval)
			continue
		}
		if dispatched {
			continue
		}
		m.wait(ctx, m.pollInterval)
	}
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-m.trigger:
	case <-timer.C:
	}
}

// RunCycle walks the claimable files once and processes the first one that
// can run now. It reports whether a file was dispatched.
func (m *Manager) RunCycle(ctx context.Context) (bool, error) {
	now := m.now()
	files, err := m.store.QueryUnprocessed(ctx, now)
	if err != nil {
		return false, err
	}
	for _, file := range files {
		lib, ok := m.libraries.Get(file.LibraryName)
		if !ok || !lib.Enabled {
			continue
		}
		logger := m.logger.With(
			logging.Library(lib.Name),
			logging.FileID(file.ID),
		)
		if !lib.Schedule.Active(now) {
			if file.Status == store.StatusUnprocessed {
				if _, err := m.store.MarkOutOfSchedule(ctx, file.ID); err != nil {
					return false, err
				}
				logger.Debug("library outside of schedule; file deferred")
			}
			continue
		}
		if !library.Exists(file.Path, file.IsDirectory) {
			logger.Info("library file missing on disk; skipping",
				logging.Event("file_missing"),
				logging.Path(file.Path),
			)
			continue
		}
		def, ok := m.catalog.Lookup(lib.Flow)
		if !ok {
			logging.ErrorWithContext(logger, "flow definition not found; processing cycle abandoned", "flow_missing",
				logging.String("flow", lib.Flow),
				logging.Impact("no files are processed until the flow is defined"),
				logging.Hint("add the flow to [[flows]] and reload"),
			)
			return false, nil
		}

		requestID := uuid.NewString()
		runCtx, cancel := context.WithCancel(ctx)
		if err := m.claim(ctx, file, def, requestID, cancel); err != nil {
			cancel()
			if errors.Is(err, store.ErrClaimConflict) {
				continue
			}
			return false, err
		}
		m.process(ctx, runCtx, file, lib, def, requestID)
		cancel()
		return true, nil
	}
	return false, nil
}

// claim moves file to processing and registers it as active. The claim and
// the registration happen under m.mu so CancelActive either runs before the
// claim, when the record store still cancels the file, or finds the run.
func (m *Manager) claim(ctx context.Context, file *store.File, def flow.Definition, requestID string, cancel context.CancelFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Claim(ctx, file.ID, def.Name, requestID); err != nil {
		return err
	}
	file.Status = store.StatusProcessing
	file.FlowName = def.Name
	file.RequestID = requestID
	m.active[file.ID] = &activeFile{
		file:      *file,
		flow:      def.Name,
		requestID: requestID,
		started:   m.now(),
		cancel:    cancel,
	}
	return nil
}

// process runs the flow for a claimed file. runCtx is cancelled by
// CancelActive.
func (m *Manager) process(ctx, runCtx context.Context, file *store.File, lib library.Library, def flow.Definition, requestID string) {
	runCtx = logging.WithRequestID(logging.WithLibrary(logging.WithFileID(runCtx, file.ID), lib.Name), requestID)
	logger := logging.WithContext(runCtx, m.logger)
	m.setLastFile(file)

	sink := logger
	logPath, fileLogger, closeLog, err := m.logs.Open(file, requestID)
	if err != nil {
		logger.Warn("per-file log unavailable; flow output goes to the daemon log",
			logging.Error(err),
			logging.Event("file_log_failed"),
		)
	} else {
		defer closeLog()
		sink = logging.TeeLogger(logging.WithContext(runCtx, fileLogger), logger)
		if err := m.store.SetLogPath(ctx, file.ID, logPath); err != nil {
			logger.Warn("failed to record file log path", logging.Error(err))
		}
	}

	logger.Info("processing started",
		logging.Event("processing_started"),
		logging.Path(file.Path),
		logging.String("flow", def.Name),
	)
	start := m.now()
	result, runErr := m.executor.Run(runCtx, flow.Job{
		FileID:       file.ID,
		Path:         file.Path,
		RelativePath: file.RelativePath,
		Library:      lib.Name,
		IsDirectory:  file.IsDirectory,
		RequestID:    requestID,
	}, def, sink)

	m.mu.Lock()
	run := m.active[file.ID]
	cancelled := run != nil && run.cancelled
	delete(m.active, file.ID)
	m.mu.Unlock()

	if !cancelled && ctx.Err() != nil {
		logger.Info("processing interrupted by shutdown; file is reset on next start",
			logging.Event("processing_interrupted"))
		return
	}

	status, reason := outcome(result, runErr, cancelled)
	finalSize := int64(0)
	if status == store.StatusProcessed {
		finalSize = result.OutputSize
	}
	if err := m.store.Complete(context.WithoutCancel(ctx), file.ID, status, reason, finalSize); err != nil {
		m.setLastError(err)
		logger.Error("failed to record processing result",
			logging.Error(err),
			logging.String("status", string(status)),
			logging.Event("complete_failed"),
		)
		return
	}

	attrs := []logging.Attr{
		logging.Event("processing_finished"),
		logging.String("status", string(status)),
		logging.Duration("elapsed", m.now().Sub(start)),
	}
	if status == store.StatusProcessed {
		logger.Info("processing finished", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs, logging.String("reason", reason))
	if runErr != nil && !cancelled {
		m.setLastError(runErr)
	}
	logger.Warn("processing did not succeed", logging.Args(attrs...)...)
}

// outcome maps an executor result onto a terminal status.
func outcome(result flow.Result, err error, cancelled bool) (store.Status, string) {
	switch {
	case cancelled:
		return store.StatusProcessingFailed, store.CancelledReason
	case errors.Is(err, flow.ErrFlowNotFound):
		return store.StatusFlowNotFound, err.Error()
	case err != nil:
		return store.StatusProcessingFailed, err.Error()
	case !result.Succeeded:
		reason := result.FailureReason
		if reason == "" {
			reason = "flow failed"
		}
		return store.StatusProcessingFailed, reason
	default:
		return store.StatusProcessed, ""
	}
}
