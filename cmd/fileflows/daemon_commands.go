package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fileflows/internal/api"
	"fileflows/internal/daemonctl"
	"fileflows/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fileflows daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				ConfigPath:  ctx.configPath,
				LogLevel:    strings.TrimSpace(logLevel),
				Development: development,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&development, "development", false, "Enable development logging (source locations)")
	return cmd
}

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the fileflows daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			state, err := daemonctl.EnsureStarted(
				ctx.configValue(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath, LogLevel: startLogLevel},
				10*time.Second,
			)
			if err != nil {
				return err
			}
			switch state {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the fileflows daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.configValue(), 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, library and file status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withController(func(ctl daemonctl.Controller) error {
				status, err := ctl.Status(cmd.Context())
				if err != nil {
					return err
				}
				if statusJSON {
					return writeJSON(cmd, status)
				}
				stdout := cmd.OutOrStdout()
				printStatus(stdout, status, shouldColorize(stdout))
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func printStatus(out io.Writer, status api.DaemonStatus, colorize bool) {
	printSection(out, "System Status", colorize)
	if status.Running {
		message := "Running"
		if status.PID > 0 {
			message = fmt.Sprintf("Running (pid %d)", status.PID)
		}
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, message, colorize))
		fmt.Fprintln(out, renderStatusLine("Runners", statusInfo, strconv.Itoa(status.Workflow.Runners), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "Not running (showing stored state)", colorize))
	}
	fmt.Fprintln(out, databaseStatusLine(status.Database, colorize))
	if status.Workflow.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, status.Workflow.LastError, colorize))
	}
	for _, check := range status.Preflight {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	if len(status.Workflow.FlowHealth) > 0 {
		fmt.Fprintln(out)
		printSection(out, "Flows", colorize)
		for _, health := range status.Workflow.FlowHealth {
			kind := statusOK
			detail := health.Detail
			if !health.Ready {
				kind = statusWarn
			}
			if detail == "" {
				detail = "Ready"
			}
			fmt.Fprintln(out, renderStatusLine(health.Name, kind, detail, colorize))
		}
	}

	fmt.Fprintln(out)
	printSection(out, "Libraries", colorize)
	if len(status.Libraries) == 0 {
		fmt.Fprintln(out, "No libraries configured")
	} else {
		fmt.Fprint(out, renderLibraryTable(status.Libraries, status.Running))
	}

	if len(status.Workflow.Active) > 0 {
		fmt.Fprintln(out)
		printSection(out, "Processing", colorize)
		rows := make([][]string, 0, len(status.Workflow.Active))
		for _, active := range status.Workflow.Active {
			rows = append(rows, []string{
				strconv.FormatInt(active.ID, 10),
				active.Library,
				active.Flow,
				active.Path,
				formatAge(active.Started),
			})
		}
		fmt.Fprint(out, renderTable(
			[]string{"ID", "Library", "Flow", "Path", "Started"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}

	fmt.Fprintln(out)
	printSection(out, "File Status", colorize)
	if len(status.Workflow.FileStats) == 0 {
		fmt.Fprintln(out, "No files recorded")
		return
	}
	rows := make([][]string, 0, len(status.Workflow.FileStats))
	for _, stat := range status.Workflow.FileStats {
		rows = append(rows, []string{formatStatusLabel(stat.Status), strconv.Itoa(stat.Count)})
	}
	fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func databaseStatusLine(health api.DatabaseHealth, colorize bool) string {
	switch {
	case health.Error != "":
		return renderStatusLine("Database", statusError, health.Error, colorize)
	case !health.DatabaseExists:
		return renderStatusLine("Database", statusWarn, "Not created yet", colorize)
	case !health.DatabaseReadable:
		return renderStatusLine("Database", statusError, "Unreadable: "+health.DBPath, colorize)
	default:
		return renderStatusLine("Database", statusOK, fmt.Sprintf("%s (schema v%d)", health.DBPath, health.SchemaVersion), colorize)
	}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}
