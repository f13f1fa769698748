package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"waxoff/internal/logging"
	"waxoff/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines   int
		follow  bool
		list    bool
		raw     bool
		level   string
		jobID   string
		event   string
		runPath string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the log of the most recent run",
		Long: `Logs prints the tail of the newest run log in the configured log directory.
Every process invocation writes its own JSON log with the full ffmpeg output;
use --raw to see the JSON as written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				runs, err := logs.Runs(cfg.Paths.LogDir, logging.RunLogPattern)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						filepath.Base(run.Path),
						run.ModTime.Local().Format("2006-01-02 15:04:05"),
						fmt.Sprintf("%d", run.Size),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run log", "Modified", "Bytes"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			}

			path := strings.TrimSpace(runPath)
			if path == "" {
				run, err := logs.Latest(cfg.Paths.LogDir, logging.RunLogPattern)
				if err != nil {
					return err
				}
				path = run.Path
			}

			filter := logs.Filter{JobID: strings.TrimSpace(jobID), Event: strings.TrimSpace(event)}
			if level != "" {
				if err := filter.MinLevel.UnmarshalText([]byte(level)); err != nil {
					return fmt.Errorf("invalid --level %q", level)
				}
			} else {
				filter.MinLevel = slog.LevelDebug
			}
			emit := func(line string) {
				if raw {
					fmt.Fprintln(out, line)
					return
				}
				if formatted, ok := logs.FormatLine(line, filter); ok {
					fmt.Fprintln(out, formatted)
				}
			}

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				emit(line)
			}
			if !follow {
				return nil
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := logs.Follow(sigCtx, path, offset, emit); err != nil && !errors.Is(err, sigCtx.Err()) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().BoolVar(&list, "list", false, "List run logs instead of printing one")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unformatted")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show records for this job id (prefix match)")
	cmd.Flags().StringVar(&event, "event", "", "Only show records with this event_type")
	cmd.Flags().StringVar(&runPath, "file", "", "Read this log file instead of the newest run")
	return cmd
}
