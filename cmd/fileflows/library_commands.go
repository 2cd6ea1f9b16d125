package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fileflows/internal/api"
	"fileflows/internal/daemonctl"
)

func newLibraryCommands(ctx *commandContext) []*cobra.Command {
	var librariesJSON bool
	librariesCmd := &cobra.Command{
		Use:   "libraries",
		Short: "List configured libraries and their scan state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withController(func(ctl daemonctl.Controller) error {
				libraries, err := ctl.Libraries(cmd.Context())
				if err != nil {
					return err
				}
				if librariesJSON {
					return writeJSON(cmd, libraries)
				}
				out := cmd.OutOrStdout()
				if len(libraries) == 0 {
					fmt.Fprintln(out, "No libraries configured")
					return nil
				}
				fmt.Fprint(out, renderLibraryTable(libraries, ctl.Online()))
				return nil
			})
		},
	}
	librariesCmd.Flags().BoolVar(&librariesJSON, "json", false, "Print libraries as JSON")

	var full bool
	rescanCmd := &cobra.Command{
		Use:   "rescan [library]...",
		Short: "Ask the daemon to rescan libraries",
		Long: "Rescan libraries now. Without arguments every enabled library is rescanned.\n" +
			"--full also forgets the last scan time so every file is re-examined; it is\n" +
			"recorded for the next daemon start when the daemon is not running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withController(func(ctl daemonctl.Controller) error {
				n, err := ctl.Rescan(cmd.Context(), full, args)
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					return fmt.Errorf("%w; start it with `fileflows start` or pass --full", err)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ctl.Online() {
					fmt.Fprintf(out, "%d %s marked for a full rescan on next start\n", n, pluralize(n, "library", "libraries"))
					return nil
				}
				fmt.Fprintf(out, "%d %s signalled\n", n, pluralize(n, "library", "libraries"))
				return nil
			})
		},
	}
	rescanCmd.Flags().BoolVar(&full, "full", false, "Ignore the last scan time and re-examine every file")

	reloadCmd := &cobra.Command{
		Use:   "reload",
		Short: "Reload libraries and flows from the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withController(func(ctl daemonctl.Controller) error {
				message, err := ctl.Reload(cmd.Context())
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running; changes apply on next start")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}

	return []*cobra.Command{librariesCmd, rescanCmd, reloadCmd}
}

func renderLibraryTable(libraries []api.Library, running bool) string {
	headers := []string{"Name", "Path", "Priority", "Enabled", "Files", "Last Scan"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft}
	if running {
		headers = append(headers, "Watching", "Queued")
		aligns = append(aligns, alignLeft, alignRight)
	}
	rows := make([][]string, 0, len(libraries))
	for _, lib := range libraries {
		row := []string{
			lib.Name,
			lib.Path,
			strconv.Itoa(lib.Priority),
			yesNo(lib.Enabled),
			strconv.Itoa(lib.Files),
			formatAge(lib.LastScanned),
		}
		if running {
			row = append(row, yesNo(lib.Watching), strconv.Itoa(lib.Queued))
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns)
}
