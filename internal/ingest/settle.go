package ingest

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// settler holds file events until a path has been quiet for the settle delay.
// Each event records the size seen at that moment; when the timer fires and
// the file has grown since, another writer is still busy and the event is
// dropped. The next write event starts a fresh wait.
type settler struct {
	mu       sync.Mutex
	pending  map[string]*pendingFile
	delay    time.Duration
	stat     func(path string) (int64, error)
	onSettle func(path string)
	onGrow   func(path string, before, after int64)
	stopping atomic.Bool
}

type pendingFile struct {
	timer *time.Timer
	size  int64
}

func newSettler(delay time.Duration, onSettle func(string), onGrow func(string, int64, int64)) *settler {
	return &settler{
		pending:  make(map[string]*pendingFile),
		delay:    delay,
		stat:     fileSize,
		onSettle: onSettle,
		onGrow:   onGrow,
	}
}

// Queue records an event for path and restarts its settle timer. It returns
// false once the settler is stopping or the file is gone.
func (s *settler) Queue(path string) bool {
	if s.stopping.Load() {
		return false
	}
	size, err := s.stat(path)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping.Load() {
		return false
	}

	if p, ok := s.pending[path]; ok {
		p.size = size
		if p.timer.Reset(s.delay) {
			return true
		}
	}
	s.pending[path] = &pendingFile{
		size:  size,
		timer: time.AfterFunc(s.delay, func() { s.fire(path) }),
	}
	return true
}

func (s *settler) fire(path string) {
	s.mu.Lock()
	p, ok := s.pending[path]
	if ok {
		delete(s.pending, path)
	}
	s.mu.Unlock()
	if !ok || s.stopping.Load() {
		return
	}

	size, err := s.stat(path)
	if err != nil {
		return
	}
	if size > p.size {
		if s.onGrow != nil {
			s.onGrow(path, p.size, size)
		}
		return
	}
	s.onSettle(path)
}

// Stop cancels every pending timer.
func (s *settler) Stop() {
	s.stopping.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		p.timer.Stop()
	}
	s.pending = make(map[string]*pendingFile)
}

// Pending returns the number of paths waiting to settle.
func (s *settler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
