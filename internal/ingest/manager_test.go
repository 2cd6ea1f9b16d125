package ingest

import (
	"context"
	"testing"
	"time"

	"fileflows/internal/identity"
	"fileflows/internal/library"
	"fileflows/internal/logging"
	"fileflows/internal/testsupport"
)

func TestManagerReconcilesLibraries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	movies := library.Library{Name: "movies", Path: t.TempDir(), Flow: "copy", Enabled: true, Scan: true}
	shows := library.Library{Name: "shows", Path: t.TempDir(), Flow: "copy", Enabled: false, Scan: true}
	libs := testsupport.MustSyncLibraries(t, st, movies, shows)

	m := NewManager(st, identity.NewResolver(st, logging.NewNop()), logging.NewNop(), Options{ScanTick: time.Hour})
	if err := m.Start(context.Background(), libs); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	if err := m.Start(context.Background(), libs); err == nil {
		t.Fatal("expected second Start to fail")
	}

	status := m.Status()
	if len(status) != 1 || status[0].Name != "movies" || status[0].Watching {
		t.Fatalf("unexpected status: %+v", status)
	}

	shows.Enabled = true
	if err := m.UpdateLibraries([]library.Library{shows}); err != nil {
		t.Fatalf("UpdateLibraries: %v", err)
	}
	status = m.Status()
	if len(status) != 1 || status[0].Name != "shows" {
		t.Fatalf("expected only shows after reload, got %+v", status)
	}
	if n := m.Rescan(true, "shows", "unknown"); n != 1 {
		t.Fatalf("expected rescan of one library, got %d", n)
	}

	broken := shows
	broken.Name = "broken"
	broken.Filter = "["
	if err := m.UpdateLibraries([]library.Library{shows, broken}); err == nil {
		t.Fatal("expected invalid filter to surface an error")
	}
}
