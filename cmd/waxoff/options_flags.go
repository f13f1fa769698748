package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"waxoff/internal/options"
)

// optionFlags binds the per-field overrides shared by process and presets save.
type optionFlags struct {
	target        float64
	truePeak      float64
	lra           float64
	mode          string
	bitrate       int
	sampleRate    int
	phaseRotation bool
}

func (f *optionFlags) register(flags *pflag.FlagSet) {
	defaults := options.Default()
	flags.Float64Var(&f.target, "target", defaults.TargetLUFS, fmt.Sprintf("Target integrated loudness in LUFS (%v to %v)", options.MinTargetLUFS, options.MaxTargetLUFS))
	flags.Float64Var(&f.truePeak, "peak", defaults.TruePeak, fmt.Sprintf("True-peak ceiling in dBTP (%v to %v)", options.MinTruePeak, options.MaxTruePeak))
	flags.Float64Var(&f.lra, "lra", defaults.LRA, "Loudness range target in LU")
	flags.StringVar(&f.mode, "mode", string(defaults.OutputMode), "Output files: wav, mp3 or both")
	flags.IntVar(&f.bitrate, "bitrate", defaults.MP3Bitrate, fmt.Sprintf("MP3 bitrate in kbps %v", options.AllowedBitrates()))
	flags.IntVar(&f.sampleRate, "sample-rate", defaults.SampleRate, fmt.Sprintf("Output sample rate in Hz %v", options.AllowedSampleRates()))
	flags.BoolVar(&f.phaseRotation, "phase-rotation", defaults.PhaseRotation, "Apply a 150 Hz all-pass filter before loudness processing")
}

// apply overlays the flags the user actually set onto base.
func (f *optionFlags) apply(cmd *cobra.Command, base options.Options) (options.Options, error) {
	flags := cmd.Flags()
	if flags.Changed("target") {
		base.TargetLUFS = f.target
	}
	if flags.Changed("peak") {
		base.TruePeak = f.truePeak
	}
	if flags.Changed("lra") {
		base.LRA = f.lra
	}
	if flags.Changed("mode") {
		mode, ok := options.ParseOutputMode(f.mode)
		if !ok {
			return base, fmt.Errorf("invalid --mode %q (expected wav, mp3 or both)", f.mode)
		}
		base.OutputMode = mode
	}
	if flags.Changed("bitrate") {
		base.MP3Bitrate = f.bitrate
	}
	if flags.Changed("sample-rate") {
		base.SampleRate = f.sampleRate
	}
	if flags.Changed("phase-rotation") {
		base.PhaseRotation = f.phaseRotation
	}
	if err := base.Validate(); err != nil {
		return base, fmt.Errorf("invalid options: %w", err)
	}
	return base, nil
}
