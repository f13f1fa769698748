package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"waxoff/internal/options"
	"waxoff/internal/presets"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	presetsCmd := &cobra.Command{
		Use:     "presets",
		Aliases: []string{"preset"},
		Short:   "Manage saved processing presets",
	}

	presetsCmd.AddCommand(newPresetsListCommand(ctx))
	presetsCmd.AddCommand(newPresetsShowCommand(ctx))
	presetsCmd.AddCommand(newPresetsSaveCommand(ctx))
	presetsCmd.AddCommand(newPresetsDeleteCommand(ctx))
	presetsCmd.AddCommand(newPresetsUseCommand(ctx))

	return presetsCmd
}

func newPresetsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List built-in and saved presets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPresets(func(store *presets.Store) error {
				list, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				selected, ok, err := store.Selected(cmd.Context())
				if err != nil {
					return err
				}
				selectedID := ""
				if ok {
					selectedID = selected.ID
				}
				if jsonOutput {
					return writeJSON(cmd, struct {
						Presets  []presets.Preset `json:"presets"`
						Selected string           `json:"selected,omitempty"`
					}{list, selectedID})
				}

				rows := make([][]string, 0, len(list))
				for _, p := range list {
					marker := ""
					if p.ID == selectedID {
						marker = "*"
					}
					kind := "saved"
					if p.BuiltIn {
						kind = "built-in"
					}
					rows = append(rows, []string{
						marker,
						p.Name,
						kind,
						describeOptions(p.Options),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"", "Name", "Type", "Settings"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print presets as JSON")
	return cmd
}

func newPresetsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <name|id>",
		Short: "Show the settings of a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPresets(func(store *presets.Store) error {
				p, err := store.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, p)
				}
				printPreset(cmd, p)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the preset as JSON")
	return cmd
}

func newPresetsSaveCommand(ctx *commandContext) *cobra.Command {
	var (
		flags optionFlags
		from  string
	)
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save the given settings as a new preset",
		Long: `Save starts from the configured processing defaults, or from --from when
given, and applies any option flags before storing the result.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			return ctx.withPresets(func(store *presets.Store) error {
				base := cfg.Processing
				if ref := strings.TrimSpace(from); ref != "" {
					p, err := store.Resolve(cmd.Context(), ref)
					if err != nil {
						return err
					}
					base = p.Options
				}
				opts, err := flags.apply(cmd, base)
				if err != nil {
					return err
				}
				p, err := store.Save(cmd.Context(), name, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved preset %q (%s)\n", p.Name, p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Existing preset to copy settings from")
	flags.register(cmd.Flags())
	return cmd
}

func newPresetsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved preset",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPresets(func(store *presets.Store) error {
				p, err := store.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(cmd.Context(), p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted preset %q\n", p.Name)
				return nil
			})
		},
	}
}

func newPresetsUseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name|id>",
		Short: "Select the preset applied when process runs without --preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPresets(func(store *presets.Store) error {
				p, err := store.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if _, err := store.Select(cmd.Context(), p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Selected preset %q\n", p.Name)
				return nil
			})
		},
	}
}

func describeOptions(opts options.Options) string {
	parts := []string{
		opts.TargetLUFSString() + " LUFS",
		opts.TruePeakString() + " dBTP",
		opts.OutputMode.Label(),
	}
	if opts.WantsMP3() {
		parts = append(parts, opts.MP3BitrateString())
	}
	parts = append(parts, opts.SampleRateDisplay())
	if opts.PhaseRotation {
		parts = append(parts, "phase rotation")
	}
	return strings.Join(parts, ", ")
}

func printPreset(cmd *cobra.Command, p presets.Preset) {
	out := cmd.OutOrStdout()
	opts := p.Options
	fmt.Fprintf(out, "%s\n", p.Name)
	fmt.Fprintf(out, "  ID:              %s\n", p.ID)
	fmt.Fprintf(out, "  Built-in:        %s\n", yesNo(p.BuiltIn))
	fmt.Fprintf(out, "  Target:          %s LUFS\n", opts.TargetLUFSString())
	fmt.Fprintf(out, "  True peak:       %s dBTP\n", opts.TruePeakString())
	fmt.Fprintf(out, "  Loudness range:  %s LU\n", opts.LRAString())
	fmt.Fprintf(out, "  Output:          %s\n", opts.OutputMode.Label())
	if opts.WantsMP3() {
		fmt.Fprintf(out, "  MP3 bitrate:     %s CBR\n", opts.MP3BitrateString())
	}
	fmt.Fprintf(out, "  Sample rate:     %s\n", opts.SampleRateDisplay())
	fmt.Fprintf(out, "  Phase rotation:  %s\n", opts.PhaseRotationDisplay())
}
