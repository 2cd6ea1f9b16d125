// Package deps resolves the external commands flows run.
package deps

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

var (
	// ErrNotConfigured is returned for an empty command.
	ErrNotConfigured = errors.New("command not configured")
	// ErrNotFound is returned when a command does not resolve to an executable.
	ErrNotFound = errors.New("command not found")
)

// Requirement names a command and the flow that needs it.
type Requirement struct {
	Name    string
	Command string
}

// Status reports whether a requirement resolved.
type Status struct {
	Name      string
	Command   string
	Available bool
	Path      string
	Detail    string
}

// Resolve returns the executable path for command. Bare names are looked up
// on PATH; names containing a slash are checked directly.
func Resolve(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", ErrNotConfigured
	}
	path, err := exec.LookPath(command)
	if err == nil {
		return path, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, command)
	}
	return "", fmt.Errorf("resolve %q: %w", command, err)
}

// Check resolves every requirement. Requirements sharing a command are
// resolved once.
func Check(requirements []Requirement) []Status {
	type outcome struct {
		path string
		err  error
	}
	seen := make(map[string]outcome, len(requirements))
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		res, ok := seen[cmd]
		if !ok {
			res.path, res.err = Resolve(cmd)
			seen[cmd] = res
		}
		status := Status{Name: req.Name, Command: cmd, Path: res.path, Available: res.err == nil}
		if res.err != nil {
			status.Detail = res.err.Error()
		}
		results = append(results, status)
	}
	return results
}
