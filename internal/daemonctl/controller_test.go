package daemonctl_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"fileflows/internal/config"
	"fileflows/internal/daemon"
	"fileflows/internal/daemonctl"
	"fileflows/internal/flow"
	"fileflows/internal/ipc"
	"fileflows/internal/logging"
	"fileflows/internal/store"
	"fileflows/internal/testsupport"
)

type okExecutor struct{}

func (okExecutor) Run(context.Context, flow.Job, flow.Definition, *slog.Logger) (flow.Result, error) {
	return flow.Result{Succeeded: true}, nil
}

func (okExecutor) HealthCheck(_ context.Context, def flow.Definition) flow.Health {
	return flow.Healthy(def.Name)
}

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithFlow("copy", "true"),
		testsupport.WithLibrary(config.Library{Name: "movies", Flow: "copy", Scan: true}),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return cfg
}

func TestConnectFallsBackToStore(t *testing.T) {
	cfg := newConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	lib := cfg.Libraries[0].Definition()
	testsupport.MustSyncLibraries(t, st, lib)
	a := testsupport.NewFile(t, st, lib, "a.mkv")
	b := testsupport.NewFile(t, st, lib, "b.mkv")

	ctl, err := daemonctl.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ctl.Close()
	if ctl.Online() {
		t.Fatal("expected offline controller without a daemon")
	}
	ctx := context.Background()

	status, err := ctl.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running || len(status.Libraries) != 1 || status.Libraries[0].Files != 2 {
		t.Fatalf("unexpected offline status %+v", status)
	}
	if len(status.Workflow.FileStats) != 1 || status.Workflow.FileStats[0].Count != 2 {
		t.Fatalf("unexpected file stats %+v", status.Workflow.FileStats)
	}

	if n, err := ctl.MoveToTop(ctx, []int64{b.ID}); err != nil || n != 1 {
		t.Fatalf("MoveToTop = %d, %v", n, err)
	}
	if n, err := ctl.Cancel(ctx, []int64{a.ID}); err != nil || n != 1 {
		t.Fatalf("Cancel = %d, %v", n, err)
	}
	file, err := ctl.File(ctx, a.ID)
	if err != nil || file == nil {
		t.Fatalf("File = %+v, %v", file, err)
	}
	if file.Status != string(store.StatusProcessingFailed) || file.FailureReason != store.CancelledReason {
		t.Fatalf("expected cancelled file, got %+v", file)
	}
	if missing, err := ctl.File(ctx, 9999); err != nil || missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v, %v", missing, err)
	}

	if _, err := ctl.Rescan(ctx, false, nil); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected partial rescan to need the daemon, got %v", err)
	}
	if n, err := ctl.Rescan(ctx, true, []string{"movies"}); err != nil || n != 1 {
		t.Fatalf("Rescan full = %d, %v", n, err)
	}
	if _, err := ctl.Reload(ctx); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected reload to need the daemon, got %v", err)
	}

	files, err := ctl.Files(ctx, daemonctl.FileQuery{Statuses: []string{"unprocessed"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].ID != b.ID || files[0].ProcessingOrder != 1 {
		t.Fatalf("unexpected unprocessed files %+v", files)
	}
}

func TestConnectUsesRunningDaemon(t *testing.T) {
	cfg := newConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, "", st, logging.NewNop(), okExecutor{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	ctl, err := daemonctl.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ctl.Close()
	if !ctl.Online() {
		t.Fatal("expected online controller")
	}
	status, err := ctl.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon status")
	}
	if n, err := ctl.Rescan(context.Background(), false, nil); err != nil || n != 1 {
		t.Fatalf("Rescan = %d, %v", n, err)
	}
	if _, err := ctl.Reload(context.Background()); err == nil {
		t.Fatal("expected reload to fail for a daemon started without a config file")
	}
}

func TestWaitForShutdownWithoutDaemon(t *testing.T) {
	cfg := newConfig(t)
	if err := daemonctl.WaitForShutdown(cfg.SocketPath(), time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
	if _, err := daemonctl.Stop(cfg, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}
