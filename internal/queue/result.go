package queue

import (
	"fmt"
	"strings"

	"waxoff/internal/options"
)

// Result aggregates the outcome of one batch.
type Result struct {
	// BatchID is logged as correlation_id on every record of the batch.
	BatchID string          `json:"batch_id,omitempty"`
	Success int             `json:"success"`
	Failed  int             `json:"failed"`
	Skipped int             `json:"skipped"`
	Options options.Options `json:"options"`
	// OutputDirectory is the directory of the first successful job, or empty.
	OutputDirectory string `json:"output_directory,omitempty"`
	Cancelled       bool   `json:"cancelled"`
}

// Summary renders the multi-line completion message.
func (r Result) Summary() string {
	var lines []string

	fileWord := "files"
	if r.Success == 1 {
		fileWord = "file"
	}
	status := fmt.Sprintf("%d %s processed successfully", r.Success, fileWord)
	if r.Failed > 0 {
		status += fmt.Sprintf(", %d failed", r.Failed)
	}
	lines = append(lines, status)
	if r.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("%d skipped", r.Skipped))
	}

	opts := r.Options
	lines = append(lines,
		"",
		fmt.Sprintf("Target: %s LUFS (%s dBTP)", opts.TargetLUFSString(), opts.TruePeakString()),
		"Sample rate: "+opts.SampleRateDisplay(),
		"Output: "+opts.OutputMode.Label(),
	)
	if opts.OutputMode != options.OutputWAV {
		lines = append(lines, fmt.Sprintf("MP3: %s CBR", opts.MP3BitrateString()))
	}
	lines = append(lines, "Phase rotation: "+opts.PhaseRotationDisplay())
	return strings.Join(lines, "\n")
}
