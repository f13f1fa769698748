package pipeline

import (
	"errors"
	"strings"

	"waxoff/internal/ffmpeg"
)

// DiagnosticTailLimit bounds the encoder output attached to a failure.
const DiagnosticTailLimit = 500

var (
	// ErrToolNotFound is environmental: no job can run without ffmpeg.
	ErrToolNotFound = ffmpeg.ErrNotFound
	// ErrNoMeasurements means the analysis pass printed no usable loudness report.
	ErrNoMeasurements = errors.New("failed to analyze audio: no loudness measurements obtained")
	// ErrRenderFailed means the normalization pass exited non-zero.
	ErrRenderFailed = errors.New("processing failed")
	// ErrEncodeFailed means the MP3 encode exited non-zero.
	ErrEncodeFailed = errors.New("mp3 encoding failed")
	// ErrOutputNotCreated means the encoder reported success but wrote nothing.
	ErrOutputNotCreated = errors.New("output file was not created")
	// ErrVerifyFailed means a promoted output did not pass verification.
	ErrVerifyFailed = errors.New("output verification failed")
)

// StageError attaches the failing phase and a bounded diagnostic excerpt to
// one of the sentinel errors above.
type StageError struct {
	Stage  Phase
	Detail string
	Err    error
}

func (e *StageError) Error() string {
	if e == nil || e.Err == nil {
		return "pipeline error"
	}
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func stageError(stage Phase, sentinel error, detail string) error {
	return &StageError{Stage: stage, Detail: detail, Err: sentinel}
}

// IsEnvironmental reports whether err prevents every job from running, as
// opposed to a failure scoped to one input.
func IsEnvironmental(err error) bool {
	return errors.Is(err, ErrToolNotFound)
}

// Tail returns the last limit characters of text with surrounding whitespace
// removed. Multi-byte characters are never split.
func Tail(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[len(runes)-limit:]))
}
