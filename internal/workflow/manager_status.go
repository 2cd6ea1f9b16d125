package workflow

import (
	"context"
	"sort"
	"time"

	"fileflows/internal/flow"
	"fileflows/internal/logging"
	"fileflows/internal/store"
)

// ActiveFile describes one in-flight run.
type ActiveFile struct {
	ID        int64
	Path      string
	Library   string
	Flow      string
	RequestID string
	Started   time.Time
}

// StatusSummary represents lightweight scheduler diagnostics.
type StatusSummary struct {
	Running    bool
	Runners    int
	Active     []ActiveFile
	LastError  string
	LastFile   *store.File
	FileStats  map[store.Status]int
	FlowHealth map[string]flow.Health
}

// Status returns the latest scheduler information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running, Runners: m.runners}
	for id, run := range m.active {
		summary.Active = append(summary.Active, ActiveFile{
			ID:        id,
			Path:      run.file.Path,
			Library:   run.file.LibraryName,
			Flow:      run.flow,
			RequestID: run.requestID,
			Started:   run.started,
		})
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastFile != nil {
		copy := *m.lastFile
		summary.LastFile = &copy
	}
	m.mu.RUnlock()
	sort.Slice(summary.Active, func(i, j int) bool { return summary.Active[i].ID < summary.Active[j].ID })

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read library file stats", logging.Error(err))
	}
	summary.FileStats = stats

	defs := m.catalog.All()
	summary.FlowHealth = make(map[string]flow.Health, len(defs))
	for _, def := range defs {
		summary.FlowHealth[def.Name] = m.executor.HealthCheck(ctx, def)
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastFile(file *store.File) {
	m.mu.Lock()
	if file != nil {
		copy := *file
		m.lastFile = &copy
	} else {
		m.lastFile = nil
	}
	m.mu.Unlock()
}
