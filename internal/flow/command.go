package flow

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"fileflows/internal/deps"
	"fileflows/internal/logging"
)

// CommandExecutor runs a flow as an external command. Arguments may reference
// {file}, {relative}, {library} and {name}.
type CommandExecutor struct{}

// NewCommandExecutor returns an executor for command-based flows.
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{}
}

// Run executes def for job and streams stdout/stderr lines into sink.
func (CommandExecutor) Run(ctx context.Context, job Job, def Definition, sink *slog.Logger) (Result, error) {
	if sink == nil {
		sink = logging.NewNop()
	}
	binary, err := deps.Resolve(def.Command)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrFlowNotFound, def.Name, err)
	}

	runCtx := ctx
	if def.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, def.Timeout)
		defer cancel()
	}

	args := expandArgs(def.Args, job)
	sink.Info("flow command starting",
		logging.Event("flow_command_start"),
		logging.String("flow", def.Name),
		logging.String("command", binary),
		logging.String("args", strings.Join(args, " ")),
	)

	cmd := exec.CommandContext(runCtx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader, stream string) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxOutputLine)
		scanner.Split(scanOutputLines)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				sink.Info(line, logging.String("stream", stream))
			}
		}
		if err := scanner.Err(); err != nil {
			sink.Warn("flow output unreadable; discarding the rest",
				logging.String("stream", stream),
				logging.Error(err),
			)
		}
		// The child must never block on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
	wg.Add(2)
	go scan(stdout, "stdout")
	go scan(stderr, "stderr")
	wg.Wait()

	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Result{FailureReason: fmt.Sprintf("timed out after %s", def.Timeout)}, nil
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return Result{FailureReason: fmt.Sprintf("exit status %d", exitErr.ExitCode())}, nil
		}
		return Result{}, fmt.Errorf("wait command: %w", waitErr)
	}

	result := Result{Succeeded: true}
	if !job.IsDirectory {
		if info, err := os.Stat(job.Path); err == nil {
			result.OutputSize = info.Size()
		}
	}
	return result, nil
}

// maxOutputLine caps a single logged line of flow output. Longer runs are
// split into chunks of this size.
const maxOutputLine = 1024 * 1024

// scanOutputLines splits on \n and on bare \r so progress meters that redraw a
// single line are logged per update.
func scanOutputLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if len(data) >= maxOutputLine {
		return maxOutputLine, data[:maxOutputLine], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// HealthCheck reports whether the flow command resolves.
func (CommandExecutor) HealthCheck(_ context.Context, def Definition) Health {
	if _, err := deps.Resolve(def.Command); err != nil {
		return Unhealthy(def.Name, err.Error())
	}
	return Healthy(def.Name)
}

func expandArgs(args []string, job Job) []string {
	replacer := strings.NewReplacer(
		"{file}", job.Path,
		"{relative}", job.RelativePath,
		"{library}", job.Library,
		"{name}", filepath.Base(job.Path),
	)
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = replacer.Replace(arg)
	}
	return out
}
