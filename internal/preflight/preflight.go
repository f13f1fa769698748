package preflight

import (
	"context"

	"waxoff/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail"`
}

// Resolver finds the encoder and its companion tools. *ffmpeg.Locator
// satisfies it.
type Resolver interface {
	Locate(ctx context.Context) (string, error)
	Sibling(ctx context.Context, name string) (string, error)
}

// RunAll executes every check for cfg. ffprobe is optional unless output
// verification is enabled.
func RunAll(ctx context.Context, cfg *config.Config, resolver Resolver) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	ffmpegResult, ffmpegPath := CheckFFmpeg(ctx, resolver)
	results = append(results, ffmpegResult)
	if ffmpegPath != "" {
		results = append(results, CheckEncoder(ctx, ffmpegPath, mp3Encoder))
	}
	results = append(results, CheckFFprobe(ctx, resolver, cfg.FFprobeBinary(), !cfg.FFmpeg.VerifyOutputs))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
