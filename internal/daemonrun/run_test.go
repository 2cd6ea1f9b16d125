package daemonrun

import (
	"os"
	"path/filepath"
	"testing"

	"fileflows/internal/testsupport"
)

func TestPIDFileRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	path := PIDPath(cfg)
	if got := ReadPID(path); got != 0 {
		t.Fatalf("expected 0 without a pid file, got %d", got)
	}
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	if got := ReadPID(path); got != os.Getpid() {
		t.Fatalf("ReadPID = %d, want %d", got, os.Getpid())
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := ReadPID(path); got != 0 {
		t.Fatalf("expected 0 for malformed pid file, got %d", got)
	}
}

func TestEnsureCurrentLogPointerReplacesLink(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "fileflows.log")
	first := filepath.Join(dir, "fileflows-1.log")
	second := filepath.Join(dir, "fileflows-2.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	if err := ensureCurrentLogPointer(current, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(current, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(current)
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "fileflows-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(t.Context(), nil, Options{}); err == nil {
		t.Fatal("expected error without config")
	}
}
