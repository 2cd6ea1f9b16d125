package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fileflows/internal/config"
	"fileflows/internal/flow"
	"fileflows/internal/library"
	"fileflows/internal/logging"
	"fileflows/internal/store"
)

// Store is the record store surface the scheduler drives.
type Store interface {
	QueryUnprocessed(ctx context.Context, now time.Time) ([]*store.File, error)
	MarkOutOfSchedule(ctx context.Context, id int64) (bool, error)
	Claim(ctx context.Context, id int64, flowName, requestID string) error
	SetLogPath(ctx context.Context, id int64, logPath string) error
	Complete(ctx context.Context, id int64, status store.Status, reason string, finalSize int64) error
	Stats(ctx context.Context) (map[store.Status]int, error)
}

// Manager claims claimable library files and runs their flow. Each runner is
// a single-flight slot; the manager never dispatches more files at once than
// it has runners.
type Manager struct {
	store     Store
	libraries *library.Registry
	catalog   *flow.Catalog
	executor  flow.Executor
	logs      *FileLogger
	logger    *slog.Logger

	runners       int
	pollInterval  time.Duration
	retryInterval time.Duration
	trigger       chan struct{}
	now           func() time.Time

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	active   map[int64]*activeFile
	lastErr  error
	lastFile *store.File
}

type activeFile struct {
	file      store.File
	flow      string
	requestID string
	started   time.Time
	cancel    context.CancelFunc
	cancelled bool
}

// NewManager constructs a scheduler. libraries and catalog are shared with
// the daemon so reloads take effect on the next cycle.
func NewManager(cfg *config.Config, st Store, libraries *library.Registry, catalog *flow.Catalog, executor flow.Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	runners := cfg.Workflow.Runners
	if runners < 1 {
		runners = 1
	}
	return &Manager{
		store:         st,
		libraries:     libraries,
		catalog:       catalog,
		executor:      executor,
		logs:          NewFileLogger(cfg),
		logger:        logging.NewComponentLogger(logger, "workflow"),
		runners:       runners,
		pollInterval:  cfg.PollInterval(),
		retryInterval: cfg.ErrorRetryInterval(),
		trigger:       make(chan struct{}, 1),
		now:           time.Now,
		active:        make(map[int64]*activeFile),
	}
}

// Trigger wakes an idle runner without waiting for the poll interval.
func (m *Manager) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// CancelActive cancels in-flight runs for ids. It returns how many runs were
// signalled; those files end as processing_failed with reason "cancelled".
func (m *Manager) CancelActive(ids ...int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int
	for _, id := range ids {
		run, ok := m.active[id]
		if !ok || run.cancelled {
			continue
		}
		run.cancelled = true
		run.cancel()
		count++
	}
	return count
}

// IsActive reports whether id is currently being processed by this manager.
func (m *Manager) IsActive(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[id]
	return ok
}
