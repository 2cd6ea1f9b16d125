package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"fileflows/internal/api"
)

func TestFileCommandsWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	a := newFile(t, env, "a.mkv")
	b := newFile(t, env, "b.mkv")

	out, _, err := runCLI(t, []string{"files"}, env.configPath)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	requireContains(t, out, "a.mkv")
	requireContains(t, out, "b.mkv")
	requireContains(t, out, "Unprocessed")

	out, _, err = runCLI(t, []string{"top", strconv.FormatInt(b.ID, 10)}, env.configPath)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	requireContains(t, out, "1 of 1 file moved to the top")

	out, _, err = runCLI(t, []string{"cancel", strconv.FormatInt(a.ID, 10)}, env.configPath)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "1 of 1 file cancelled")

	out, _, err = runCLI(t, []string{"files", "--status", "processing_failed", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("files --json: %v", err)
	}
	var failed []api.LibraryFile
	if err := json.Unmarshal([]byte(out), &failed); err != nil {
		t.Fatalf("decode files json: %v\n%s", err, out)
	}
	if len(failed) != 1 || failed[0].ID != a.ID {
		t.Fatalf("expected only the cancelled file, got %+v", failed)
	}

	out, _, err = runCLI(t, []string{"files", "show", strconv.FormatInt(a.ID, 10)}, env.configPath)
	if err != nil {
		t.Fatalf("files show: %v", err)
	}
	requireContains(t, out, "Processing Failed")
	requireContains(t, out, "Failure:")
	requireContains(t, out, "cancelled")

	if _, _, err := runCLI(t, []string{"files", "show", "9999"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown file")
	}
	if _, _, err := runCLI(t, []string{"reprocess", "abc"}, env.configPath); err == nil {
		t.Fatal("expected error for invalid id")
	}

	out, _, err = runCLI(t, []string{"reprocess", strconv.FormatInt(a.ID, 10)}, env.configPath)
	if err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	requireContains(t, out, "1 of 1 file reset for reprocessing")

	out, _, err = runCLI(t, []string{"files", "--status", "unprocessed", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("files --limit: %v", err)
	}
	requireContains(t, out, "b.mkv")
}

func TestLibraryCommandsWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	newFile(t, env, "a.mkv")

	out, _, err := runCLI(t, []string{"libraries"}, env.configPath)
	if err != nil {
		t.Fatalf("libraries: %v", err)
	}
	requireContains(t, out, "movies")
	if strings.Contains(out, "Watching") {
		t.Fatalf("offline library table should not show watch state:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"rescan"}, env.configPath); err == nil {
		t.Fatal("expected partial rescan to require the daemon")
	}
	out, _, err = runCLI(t, []string{"rescan", "--full"}, env.configPath)
	if err != nil {
		t.Fatalf("rescan --full: %v", err)
	}
	requireContains(t, out, "1 library marked for a full rescan on next start")

	out, _, err = runCLI(t, []string{"reload"}, env.configPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	requireContains(t, out, "Daemon is not running")

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "Unprocessed")
}

func TestCommandsAgainstDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	env.startDaemon(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running")
	requireContains(t, out, "movies")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status json: %v", err)
	}
	if !status.Running || len(status.Libraries) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	out, _, err = runCLI(t, []string{"libraries"}, env.configPath)
	if err != nil {
		t.Fatalf("libraries: %v", err)
	}
	requireContains(t, out, "Watching")

	out, _, err = runCLI(t, []string{"rescan", "movies"}, env.configPath)
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	requireContains(t, out, "1 library signalled")

	out, _, err = runCLI(t, []string{"reload"}, env.configPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	requireContains(t, out, "reloaded")

	out, _, err = runCLI(t, []string{"start"}, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon already running")
}

func TestStopWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	start := time.Now()
	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
	if time.Since(start) > 5*time.Second {
		t.Fatal("stop without a daemon should return immediately")
	}
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.cfg.DaemonLogPath(), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write daemon log: %v", err)
	}
	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected log tail %q", out)
	}

	file := newFile(t, env, "a.mkv")
	if _, _, err := runCLI(t, []string{"logs", "--file", strconv.FormatInt(file.ID, 10)}, env.configPath); err == nil {
		t.Fatal("expected error for a file without a processing log")
	}
}
