package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fileflows/internal/config"
	"fileflows/internal/daemon"
	"fileflows/internal/flow"
	"fileflows/internal/ipc"
	"fileflows/internal/library"
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

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	library    library.Library
	configPath string
	baseDir    string
}

// setupCLITestEnv writes a config with one scan-mode "movies" library and
// opens its record store. No daemon is started.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	root := filepath.Join(base, "libraries", "movies")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(
		"[paths]\nstate_dir = %q\nlog_dir = %q\n\n[[flows]]\nname = \"copy\"\ncommand = \"true\"\n\n"+
			"[[libraries]]\nname = \"movies\"\npath = %q\nflow = \"copy\"\nscan = true\n",
		filepath.Join(base, "state"),
		filepath.Join(base, "logs"),
		root,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	st := testsupport.MustOpenStore(t, cfg)
	lib := cfg.Libraries[0].Definition()
	testsupport.MustSyncLibraries(t, st, lib)

	return &cliTestEnv{
		cfg:        cfg,
		store:      st,
		library:    lib,
		configPath: configPath,
		baseDir:    base,
	}
}

// startDaemon runs a daemon and its IPC server for the environment.
func (env *cliTestEnv) startDaemon(t *testing.T) {
	t.Helper()
	logger := logging.NewNop()
	d, err := daemon.New(env.cfg, env.configPath, env.store, logger, okExecutor{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}
	srv, err := ipc.NewServer(ctx, env.cfg.SocketPath(), d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI daemon test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func newFile(t *testing.T, env *cliTestEnv, relative string) *store.File {
	t.Helper()
	return testsupport.NewFile(t, env.store, env.library, relative)
}
