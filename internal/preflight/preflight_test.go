package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fileflows/internal/config"
	"fileflows/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries("transcode-stub"),
		testsupport.WithFlow("transcode", "transcode-stub"),
		testsupport.WithFlow("ghost", "fileflows-missing-binary"),
		testsupport.WithLibrary(config.Library{Name: "movies", Flow: "transcode"}),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Flow ghost" {
		t.Fatalf("expected only the ghost flow to fail, got %+v", failed)
	}
	err := Err(results)
	if err == nil || !strings.Contains(err.Error(), "fileflows-missing-binary") {
		t.Fatalf("expected summary error naming the binary, got %v", err)
	}
	if Err(results[:4]) != nil {
		t.Fatal("expected passing checks to produce no error")
	}
}

func TestRunAllSkipsDisabledLibraries(t *testing.T) {
	disabled := false
	cfg := testsupport.NewConfig(t,
		testsupport.WithLibrary(config.Library{Name: "old", Flow: "x", Enabled: &disabled, Path: filepath.Join(t.TempDir(), "gone")}),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, r := range RunAll(context.Background(), cfg) {
		if strings.HasPrefix(r.Name, "Library") {
			t.Fatalf("disabled library must not be checked: %+v", r)
		}
	}
}
