package pipeline

import (
	"context"
	"fmt"

	"waxoff/internal/ffprobe"
	"waxoff/internal/options"
)

// OutputVerifier performs a deeper check of a promoted output than the
// existence test the Runner always applies.
type OutputVerifier interface {
	Verify(ctx context.Context, path string, opts options.Options) error
}

// ProbeVerifier inspects outputs with ffprobe. The binary is resolved lazily
// so a missing ffprobe only matters when verification is enabled.
type ProbeVerifier struct {
	resolve func(context.Context) (string, error)
	inspect func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// NewProbeVerifier constructs a verifier that runs the binary returned by resolve.
func NewProbeVerifier(resolve func(context.Context) (string, error)) *ProbeVerifier {
	return &ProbeVerifier{resolve: resolve, inspect: ffprobe.Inspect}
}

// Verify requires at least one audio stream at the configured sample rate.
func (v *ProbeVerifier) Verify(ctx context.Context, path string, opts options.Options) error {
	binary := "ffprobe"
	if v.resolve != nil {
		resolved, err := v.resolve(ctx)
		if err != nil {
			return fmt.Errorf("resolve ffprobe: %w", err)
		}
		binary = resolved
	}
	result, err := v.inspect(ctx, binary, path)
	if err != nil {
		return err
	}
	streams := result.AudioStreams()
	if len(streams) == 0 {
		return fmt.Errorf("%s contains no audio stream", path)
	}
	if rate := streams[0].SampleRateHz(); rate != 0 && opts.SampleRate != 0 && rate != opts.SampleRate {
		return fmt.Errorf("%s has sample rate %d Hz, expected %d Hz", path, rate, opts.SampleRate)
	}
	return nil
}
