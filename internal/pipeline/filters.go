package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"waxoff/internal/loudnorm"
	"waxoff/internal/options"
)

var commonArgs = []string{"-hide_banner", "-nostats", "-y"}

func phaseRotationFilter(opts options.Options) string {
	if !opts.PhaseRotation {
		return ""
	}
	return fmt.Sprintf("allpass=f=%d,", options.PhaseRotationHz)
}

func loudnormTargets(opts options.Options) string {
	return fmt.Sprintf("loudnorm=I=%s:TP=%s:LRA=%s",
		opts.TargetLUFSString(), opts.TruePeakString(), opts.LRAString())
}

// AnalysisFilter builds the first-pass filter graph that measures loudness
// and prints the JSON report.
func AnalysisFilter(opts options.Options) string {
	return phaseRotationFilter(opts) + loudnormTargets(opts) + ":print_format=json"
}

// RenderFilter builds the second-pass filter graph: the same targets plus the
// first-pass measurements, applied as one static gain.
func RenderFilter(opts options.Options, m loudnorm.Measurements) string {
	var b strings.Builder
	b.WriteString(phaseRotationFilter(opts))
	b.WriteString(loudnormTargets(opts))
	fmt.Fprintf(&b, ":measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s",
		formatMeasure(m.InputI), formatMeasure(m.InputTP), formatMeasure(m.InputLRA),
		formatMeasure(m.InputThresh), formatMeasure(m.TargetOffset))
	b.WriteString(":linear=true:print_format=summary")
	return b.String()
}

func formatMeasure(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// AnalysisArgs returns the argument vector for the measurement pass. Output
// goes to the null muxer; nothing is written to disk.
func AnalysisArgs(input string, opts options.Options) []string {
	args := append([]string(nil), commonArgs...)
	return append(args, "-i", input, "-af", AnalysisFilter(opts), "-f", "null", "-")
}

// RenderArgs returns the argument vector for the normalization pass, which
// writes 24-bit PCM WAV to output.
func RenderArgs(input, output string, opts options.Options, m loudnorm.Measurements) []string {
	args := append([]string(nil), commonArgs...)
	return append(args,
		"-i", input,
		"-af", RenderFilter(opts, m),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-c:a", "pcm_s24le",
		"-f", "wav",
		output,
	)
}

// EncodeArgs returns the argument vector for the constant-bitrate MP3 encode.
func EncodeArgs(input, output string, opts options.Options) []string {
	args := append([]string(nil), commonArgs...)
	return append(args,
		"-i", input,
		"-c:a", "libmp3lame",
		"-b:a", opts.MP3BitrateString(),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-f", "mp3",
		output,
	)
}
