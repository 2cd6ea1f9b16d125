package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"fileflows/internal/config"
	"fileflows/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFlowCommands resolves the command of every configured flow. Both the
// daemon and the CLI status command use this.
func CheckFlowCommands(_ context.Context, cfg *config.Config) []Result {
	defs := cfg.FlowDefinitions()
	requirements := make([]deps.Requirement, 0, len(defs))
	for _, def := range defs {
		requirements = append(requirements, deps.Requirement{Name: def.Name, Command: def.Command})
	}
	statuses := deps.Check(requirements)
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: "Flow " + status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}
	return results
}
