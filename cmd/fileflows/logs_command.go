package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fileflows/internal/daemonctl"
	"fileflows/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		fileID int64
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log or a file's processing log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.DaemonLogPath()
			if fileID != 0 {
				path, err = fileLogPath(cmd.Context(), ctx, fileID)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, path, offset, 500*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().Int64Var(&fileID, "file", 0, "Show the processing log of this file id")
	return cmd
}

func fileLogPath(cmdCtx context.Context, ctx *commandContext, id int64) (string, error) {
	var path string
	err := ctx.withController(func(ctl daemonctl.Controller) error {
		file, err := ctl.File(cmdCtx, id)
		if err != nil {
			return err
		}
		if file == nil {
			return fmt.Errorf("file %d not found", id)
		}
		if file.LogPath == "" {
			return fmt.Errorf("file %d has not been processed yet", id)
		}
		path = file.LogPath
		return nil
	})
	return path, err
}
