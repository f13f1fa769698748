package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"waxoff/internal/logging"
)

// PathProvider resolves the executable the Invoker runs.
type PathProvider interface {
	Locate(ctx context.Context) (string, error)
}

// Result is the outcome of one ffmpeg process. ExitCode is -1 when the
// process did not exit normally (for example, killed by a signal).
type Result struct {
	ExitCode int
	Stderr   string
	Elapsed  time.Duration
}

// Success reports whether the process exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Invoker runs ffmpeg as a child process. Standard output is discarded and
// standard error is captured in full while each line is logged at DEBUG.
type Invoker struct {
	paths  PathProvider
	logger *slog.Logger
}

// NewInvoker constructs an Invoker that resolves ffmpeg through paths.
func NewInvoker(paths PathProvider, logger *slog.Logger) *Invoker {
	return &Invoker{paths: paths, logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

// Locate exposes the underlying resolution so callers can fail fast before
// work begins.
func (i *Invoker) Locate(ctx context.Context) (string, error) {
	if i.paths == nil {
		return "", ErrNotFound
	}
	return i.paths.Locate(ctx)
}

// Run spawns exactly one ffmpeg process with args and waits for it to exit.
// A non-zero exit is reported through Result, not as an error; errors are
// reserved for resolution failures (wrapping ErrNotFound) and processes that
// could not be started.
func (i *Invoker) Run(ctx context.Context, args []string) (Result, error) {
	binary, err := i.Locate(ctx)
	if err != nil {
		return Result{}, err
	}

	logger := logging.WithContext(ctx, i.logger)
	logger.Debug("ffmpeg command",
		logging.String("binary", binary),
		logging.String("args", strings.Join(args, " ")),
	)

	var stderr bytes.Buffer
	lines := newLineLogger(func(line string) {
		logger.Debug("ffmpeg output", logging.String("line", line))
	})

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.MultiWriter(&stderr, lines)

	start := time.Now()
	runErr := cmd.Run()
	lines.Flush()
	result := Result{Stderr: stderr.String(), Elapsed: time.Since(start)}

	if runErr == nil {
		logger.Debug("ffmpeg exited", logging.Int("exit_code", 0), logging.Duration("elapsed", result.Elapsed))
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		logger.Debug("ffmpeg exited", logging.Int("exit_code", result.ExitCode), logging.Duration("elapsed", result.Elapsed))
		return result, nil
	}
	return Result{}, fmt.Errorf("start ffmpeg: %w", runErr)
}

// lineLogger splits a byte stream into lines for the debug log. Carriage
// returns are treated as line breaks.
type lineLogger struct {
	mu   sync.Mutex
	emit func(string)
	buf  []byte
}

func newLineLogger(emit func(string)) *lineLogger {
	return &lineLogger{emit: emit}
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.flushLocked()
			continue
		}
		w.buf = append(w.buf, b)
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineLogger) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *lineLogger) flushLocked() {
	line := strings.TrimSpace(string(w.buf))
	w.buf = w.buf[:0]
	if line != "" && w.emit != nil {
		w.emit(line)
	}
}
