package ingest

import (
	"sync"
	"testing"
	"time"
)

type fakeSizes struct {
	mu    sync.Mutex
	sizes map[string]int64
}

func (f *fakeSizes) set(path string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes[path] = size
}

func (f *fakeSizes) stat(path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sizes[path], nil
}

func TestSettlerOffersStableFile(t *testing.T) {
	sizes := &fakeSizes{sizes: map[string]int64{"/lib/a.mkv": 100}}
	settled := make(chan string, 1)
	s := newSettler(20*time.Millisecond, func(path string) { settled <- path }, nil)
	s.stat = sizes.stat
	defer s.Stop()

	if !s.Queue("/lib/a.mkv") {
		t.Fatal("expected event to be queued")
	}
	select {
	case got := <-settled:
		if got != "/lib/a.mkv" {
			t.Fatalf("unexpected settled path %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("file never settled")
	}
	if s.Pending() != 0 {
		t.Fatalf("expected no pending entries, got %d", s.Pending())
	}
}

func TestSettlerDropsGrowingFile(t *testing.T) {
	sizes := &fakeSizes{sizes: map[string]int64{"/lib/a.mkv": 100}}
	settled := make(chan string, 1)
	grew := make(chan int64, 1)
	s := newSettler(20*time.Millisecond,
		func(path string) { settled <- path },
		func(_ string, _, after int64) { grew <- after },
	)
	s.stat = sizes.stat
	defer s.Stop()

	s.Queue("/lib/a.mkv")
	sizes.set("/lib/a.mkv", 250)

	select {
	case after := <-grew:
		if after != 250 {
			t.Fatalf("unexpected grown size %d", after)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("growth was not detected")
	}
	select {
	case path := <-settled:
		t.Fatalf("growing file must not settle, got %q", path)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSettlerStopDiscardsPending(t *testing.T) {
	sizes := &fakeSizes{sizes: map[string]int64{"/lib/a.mkv": 1}}
	settled := make(chan string, 1)
	s := newSettler(20*time.Millisecond, func(path string) { settled <- path }, nil)
	s.stat = sizes.stat

	s.Queue("/lib/a.mkv")
	s.Stop()
	if s.Queue("/lib/b.mkv") {
		t.Fatal("stopped settler must reject events")
	}
	select {
	case path := <-settled:
		t.Fatalf("unexpected settle after stop: %q", path)
	case <-time.After(60 * time.Millisecond):
	}
}
