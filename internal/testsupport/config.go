package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"fileflows/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithFlow registers a flow definition on the test config.
func WithFlow(name, command string, args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Flows = append(b.cfg.Flows, config.Flow{Name: name, Command: command, Args: args})
	}
}

// WithLibrary registers a library rooted under the test base directory. The
// root directory is created.
func WithLibrary(lib config.Library) ConfigOption {
	return func(b *configBuilder) {
		if lib.Path == "" {
			lib.Path = filepath.Join(b.baseDir, "libraries", lib.Name)
		}
		if err := os.MkdirAll(lib.Path, 0o755); err != nil {
			b.t.Fatalf("mkdir library %s: %v", lib.Path, err)
		}
		b.cfg.Libraries = append(b.cfg.Libraries, lib)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. Each stub exits with code 0.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		StubBinary(b.t, filepath.Join(b.baseDir, "bin"), names...)
	}
}

// StubBinary writes shell stubs into dir and prepends dir to PATH for the
// duration of the test.
func StubBinary(t testing.TB, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
