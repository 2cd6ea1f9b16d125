package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fileflows/internal/api"
	"fileflows/internal/daemonctl"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	var (
		libraryName string
		statuses    []string
		limit       int
		asJSON      bool
	)
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "List library files, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withController(func(ctl daemonctl.Controller) error {
				files, err := ctl.Files(cmd.Context(), daemonctl.FileQuery{
					Library:  strings.TrimSpace(libraryName),
					Statuses: splitStatuses(statuses),
					Limit:    limit,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, files)
				}
				out := cmd.OutOrStdout()
				if len(files) == 0 {
					fmt.Fprintln(out, "No files found")
					return nil
				}
				fmt.Fprint(out, renderFileTable(files))
				return nil
			})
		},
	}
	filesCmd.Flags().StringVarP(&libraryName, "library", "l", "", "Only list files from this library")
	filesCmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only list files with these statuses (comma separated)")
	filesCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of files to list")
	filesCmd.Flags().BoolVar(&asJSON, "json", false, "Print files as JSON")

	filesCmd.AddCommand(newFileShowCommand(ctx))
	return filesCmd
}

func newFileShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show details for one library file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withController(func(ctl daemonctl.Controller) error {
				file, err := ctl.File(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if file == nil {
					return fmt.Errorf("file %d not found", ids[0])
				}
				if asJSON {
					return writeJSON(cmd, file)
				}
				printFileDetails(cmd.OutOrStdout(), *file)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the file as JSON")
	return cmd
}

func newFileActionCommands(ctx *commandContext) []*cobra.Command {
	reprocessCmd := &cobra.Command{
		Use:   "reprocess <id>...",
		Short: "Queue files to be processed again",
		Args:  cobra.MinimumNArgs(1),
		RunE: idAction(ctx, "reset for reprocessing", func(cmd *cobra.Command, ctl daemonctl.Controller, ids []int64) (int64, error) {
			return ctl.Reprocess(cmd.Context(), ids)
		}),
	}
	cancelCmd := &cobra.Command{
		Use:   "cancel <id>...",
		Short: "Cancel queued or running files",
		Args:  cobra.MinimumNArgs(1),
		RunE: idAction(ctx, "cancelled", func(cmd *cobra.Command, ctl daemonctl.Controller, ids []int64) (int64, error) {
			return ctl.Cancel(cmd.Context(), ids)
		}),
	}
	topCmd := &cobra.Command{
		Use:   "top <id>...",
		Short: "Move files to the front of the processing order",
		Args:  cobra.MinimumNArgs(1),
		RunE: idAction(ctx, "moved to the top", func(cmd *cobra.Command, ctl daemonctl.Controller, ids []int64) (int64, error) {
			return ctl.MoveToTop(cmd.Context(), ids)
		}),
	}
	return []*cobra.Command{reprocessCmd, cancelCmd, topCmd}
}

type idActionFunc func(*cobra.Command, daemonctl.Controller, []int64) (int64, error)

func idAction(ctx *commandContext, verb string, fn idActionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ids, err := parsePositiveIDs(args)
		if err != nil {
			return err
		}
		return ctx.withController(func(ctl daemonctl.Controller) error {
			updated, err := fn(cmd, ctl, ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d %s %s\n", updated, len(ids), pluralize(len(ids), "file", "files"), verb)
			return nil
		})
	}
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid file id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitStatuses(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func renderFileTable(files []api.LibraryFile) string {
	rows := make([][]string, 0, len(files))
	for _, file := range files {
		order := "-"
		if file.ProcessingOrder > 0 {
			order = strconv.Itoa(file.ProcessingOrder)
		}
		rows = append(rows, []string{
			strconv.FormatInt(file.ID, 10),
			order,
			file.Library,
			file.RelativePath,
			formatStatusLabel(file.Status),
			formatSize(file.OriginalSize),
			formatAge(file.UpdatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Order", "Library", "Path", "Status", "Size", "Updated"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func printFileDetails(out io.Writer, file api.LibraryFile) {
	fields := [][2]string{
		{"ID", strconv.FormatInt(file.ID, 10)},
		{"Library", file.Library},
		{"Path", file.Path},
		{"Directory", yesNo(file.IsDirectory)},
		{"Status", formatStatusLabel(file.Status)},
		{"Flow", file.Flow},
		{"Original size", formatSize(file.OriginalSize)},
		{"Final size", formatSize(file.FinalSize)},
		{"Fingerprint", file.Fingerprint},
		{"Duplicate of", file.DuplicateOfPath},
		{"Hold until", file.HoldUntil},
		{"Failure", file.FailureReason},
		{"Request", file.RequestID},
		{"Log", file.LogPath},
		{"Added", formatAge(file.CreatedAt)},
		{"Started", formatAge(file.ProcessingStarted)},
		{"Duration", formatDuration(file.ProcessingStarted, file.ProcessingEnded)},
	}
	for _, field := range fields {
		value := strings.TrimSpace(field[1])
		if value == "" || value == "-" {
			continue
		}
		fmt.Fprintf(out, "%-14s %s\n", field[0]+":", value)
	}
}
