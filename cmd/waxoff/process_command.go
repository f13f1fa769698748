package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"waxoff/internal/config"
	"waxoff/internal/logging"
	"waxoff/internal/options"
	"waxoff/internal/pipeline"
	"waxoff/internal/presets"
	"waxoff/internal/queue"
)

type processReport struct {
	Jobs     []queue.Job     `json:"jobs"`
	Rejected []rejectedInput `json:"rejected,omitempty"`
	Result   queue.Result    `json:"result"`
	Summary  string          `json:"summary"`
	Preset   string          `json:"preset,omitempty"`
	RunLog   string          `json:"run_log,omitempty"`
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		presetRef  string
		jsonOutput bool
		flags      optionFlags
	)

	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Normalize the loudness of one or more audio files",
		Long: `Process measures each file with ffmpeg's loudnorm filter, then renders a
linear-gain normalized copy beside the input named {stem}-lev-{target}LUFS.

Options come from config.toml, then the selected preset, then --preset, then
individual flags. Files are processed one at a time. Ctrl-C stops the batch
after the current file finishes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			opts, presetName, err := resolveOptions(cmd, ctx, cfg, presetRef, &flags)
			if err != nil {
				return err
			}

			inputs, rejected := collectInputs(args)
			errOut := cmd.ErrOrStderr()
			for _, r := range rejected {
				fmt.Fprintf(errOut, "Skipping %s: %s\n", r.Path, r.Reason)
			}
			if len(inputs) == 0 {
				return errors.New("no processable audio files given")
			}

			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			q := queue.New(runner, logger, queue.WithOptions(opts))
			for _, input := range inputs {
				q.Submit(input)
			}

			var view progressView
			if !jsonOutput {
				view = newProgressView(errOut, q.Jobs(), shouldColorize(errOut))
				unsubscribe := q.Subscribe(view.handle)
				defer unsubscribe()
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := q.StartBatch(sigCtx, opts); err != nil {
				if view != nil {
					view.stop()
				}
				if pipeline.IsEnvironmental(err) {
					return fmt.Errorf("%w (set ffmpeg.binary in config or run `waxoff doctor`)", err)
				}
				return err
			}

			finished := make(chan struct{})
			go func() {
				select {
				case <-sigCtx.Done():
					stop()
					if q.CancelBatch() {
						fmt.Fprintln(errOut, "Stopping after the current file finishes...")
					}
				case <-finished:
				}
			}()
			waitErr := q.Wait(context.Background())
			close(finished)
			if view != nil {
				view.stop()
			}
			if waitErr != nil {
				return waitErr
			}

			result := q.Result()
			result.Skipped += len(rejected)
			report := processReport{
				Jobs:     q.Jobs(),
				Rejected: rejected,
				Result:   result,
				Summary:  result.Summary(),
				Preset:   presetName,
				RunLog:   ctx.runLog,
			}
			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printProcessReport(cmd, report)
			}

			if result.Failed > 0 {
				return fmt.Errorf("%d of %d files failed", result.Failed, result.Success+result.Failed)
			}
			if result.Cancelled {
				logging.NewComponentLogger(logger, "cli").Info("batch cancelled by user",
					logging.String(logging.FieldEventType, "batch_cancelled"),
					logging.Int("skipped", result.Skipped),
				)
				return context.Canceled
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&presetRef, "preset", "p", "", "Preset name or id to start from")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	flags.register(cmd.Flags())
	return cmd
}

// resolveOptions layers config defaults, the selected preset, --preset and
// explicit flags, in that order.
func resolveOptions(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, presetRef string, flags *optionFlags) (options.Options, string, error) {
	opts := cfg.Processing
	var presetName string
	err := ctx.withPresets(func(store *presets.Store) error {
		if ref := strings.TrimSpace(presetRef); ref != "" {
			p, err := store.Resolve(cmd.Context(), ref)
			if err != nil {
				return err
			}
			opts, presetName = p.Options, p.Name
			return nil
		}
		p, ok, err := store.Selected(cmd.Context())
		if err != nil {
			return err
		}
		if ok {
			opts, presetName = p.Options, p.Name
		}
		return nil
	})
	if err != nil {
		return options.Options{}, "", err
	}
	opts, err = flags.apply(cmd, opts)
	if err != nil {
		return options.Options{}, "", err
	}
	return opts, presetName, nil
}

func printProcessReport(cmd *cobra.Command, report processReport) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(report.Jobs))
	for i, job := range report.Jobs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			job.Filename(),
			job.Status.Label(),
			formatMeasured(job),
			formatOutcome(job),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "File", "Status", "Measured", "Result"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintln(out)
	if report.Preset != "" {
		fmt.Fprintf(out, "Preset: %s\n", report.Preset)
	}
	fmt.Fprintln(out, report.Summary)
	if report.Result.OutputDirectory != "" {
		fmt.Fprintf(out, "\nOutputs written to %s\n", report.Result.OutputDirectory)
	}
}

func formatMeasured(job queue.Job) string {
	if job.Measurements == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f LUFS", job.Measurements.InputI)
}

func formatOutcome(job queue.Job) string {
	switch job.Status {
	case queue.StatusFailed:
		return job.ErrorMessage
	case queue.StatusComplete:
		names := make([]string, 0, len(job.OutputPaths))
		for _, path := range job.OutputPaths {
			names = append(names, filepath.Base(path))
		}
		return strings.Join(names, ", ")
	default:
		return "not processed"
	}
}
