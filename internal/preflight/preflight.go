package preflight

import (
	"context"
	"fmt"
	"strings"

	"fileflows/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks the state and log directories, every enabled library root
// and every flow command.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	for _, lib := range cfg.LibraryDefinitions() {
		if !lib.Enabled {
			continue
		}
		results = append(results, CheckDirectoryAccess("Library "+lib.Name, lib.Path))
	}
	return append(results, CheckFlowCommands(ctx, cfg)...)
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Err summarises failing results as one error, or nil when all passed.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("preflight checks failed: %s", strings.Join(parts, "; "))
}
