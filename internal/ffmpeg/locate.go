package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"waxoff/internal/config"
	"waxoff/internal/fileutil"
	"waxoff/internal/logging"
)

// ErrNotFound reports that no runnable ffmpeg could be resolved.
var ErrNotFound = errors.New("ffmpeg not found; please ensure FFmpeg is installed")

const sandboxLockRetry = 50 * time.Millisecond

// LocatorConfig controls where the Locator looks for ffmpeg.
type LocatorConfig struct {
	// Binary is an explicit ffmpeg path or command name. When set it is the
	// only candidate.
	Binary string
	// BundleDir holds a bundled ffmpeg. Empty means the directory of the
	// running executable.
	BundleDir string
	// SandboxDir receives a runnable copy of a bundled binary that cannot be
	// executed in place. Empty means $TMPDIR/waxoff/bin.
	SandboxDir  string
	SearchPaths []string
}

// LocatorConfigFrom derives locator settings from application config.
func LocatorConfigFrom(cfg *config.Config) LocatorConfig {
	if cfg == nil {
		return LocatorConfig{}
	}
	return LocatorConfig{
		Binary:      cfg.FFmpeg.Binary,
		BundleDir:   cfg.FFmpeg.BundleDir,
		SearchPaths: append([]string(nil), cfg.FFmpeg.SearchPaths...),
	}
}

// Locator resolves the ffmpeg executable. The first successful result is
// cached for the life of the Locator; failures are retried on the next call.
type Locator struct {
	cfg    LocatorConfig
	logger *slog.Logger

	executable func() (string, error)
	lookPath   func(string) (string, error)

	mu   sync.Mutex
	path string
}

// NewLocator constructs a Locator.
func NewLocator(cfg LocatorConfig, logger *slog.Logger) *Locator {
	return &Locator{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "ffmpeg-locator"),
		executable: os.Executable,
		lookPath:   exec.LookPath,
	}
}

// Locate returns an absolute path to a runnable ffmpeg or ErrNotFound.
// Resolution order: configured binary, bundled binary, sandbox copy of the
// bundled binary, configured search paths, then PATH.
func (l *Locator) Locate(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.path != "" {
		return l.path, nil
	}

	path, source, err := l.resolve(ctx)
	if err != nil {
		return "", err
	}
	l.path = path
	l.logger.Info("ffmpeg resolved",
		logging.String("path", path),
		logging.String("source", source),
		logging.String(logging.FieldEventType, "ffmpeg_resolved"),
	)
	return path, nil
}

// Sibling resolves a companion tool such as ffprobe: an explicit path is used
// as-is, otherwise the directory of the resolved ffmpeg is tried before PATH.
func (l *Locator) Sibling(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("companion tool name is empty")
	}
	if strings.ContainsRune(name, filepath.Separator) {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%s is not executable", name)
	}
	if ffmpegPath, err := l.Locate(ctx); err == nil {
		candidate := filepath.Join(filepath.Dir(ffmpegPath), executableName(name))
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	path, err := l.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", name, err)
	}
	return path, nil
}

func (l *Locator) resolve(ctx context.Context) (string, string, error) {
	name := executableName("ffmpeg")

	if binary := strings.TrimSpace(l.cfg.Binary); binary != "" {
		if strings.ContainsRune(binary, filepath.Separator) {
			if isExecutable(binary) {
				return binary, "configured", nil
			}
			return "", "", fmt.Errorf("%w: configured binary %s is not executable", ErrNotFound, binary)
		}
		path, err := l.lookPath(binary)
		if err != nil {
			return "", "", fmt.Errorf("%w: configured binary %q: %v", ErrNotFound, binary, err)
		}
		return path, "configured", nil
	}

	sandbox := l.sandboxDir()
	if bundleDir := l.bundleDir(); bundleDir != "" {
		bundled := filepath.Join(bundleDir, name)
		if isExecutable(bundled) {
			return bundled, "bundled", nil
		}
		sandboxed := filepath.Join(sandbox, name)
		if isExecutable(sandboxed) {
			return sandboxed, "sandbox", nil
		}
		if fileutil.FileExists(bundled) {
			path, err := l.copyToSandbox(ctx, bundled, sandboxed)
			if err == nil {
				return path, "sandbox", nil
			}
			logging.WarnWithContext(l.logger, "bundled ffmpeg copy failed", "ffmpeg_sandbox_failed",
				logging.String("bundled", bundled),
				logging.Error(err),
				logging.String(logging.FieldImpact, "falling back to system ffmpeg"),
				logging.String(logging.FieldErrorHint, "check permissions on the temp directory"),
			)
		}
	} else if sandboxed := filepath.Join(sandbox, name); isExecutable(sandboxed) {
		return sandboxed, "sandbox", nil
	}

	for _, dir := range l.cfg.SearchPaths {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, "search_path", nil
		}
	}

	if path, err := l.lookPath(name); err == nil {
		if abs, absErr := filepath.Abs(path); absErr == nil {
			path = abs
		}
		return path, "path", nil
	}
	return "", "", ErrNotFound
}

func (l *Locator) bundleDir() string {
	if dir := strings.TrimSpace(l.cfg.BundleDir); dir != "" {
		return dir
	}
	if l.executable == nil {
		return ""
	}
	exe, err := l.executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func (l *Locator) sandboxDir() string {
	if dir := strings.TrimSpace(l.cfg.SandboxDir); dir != "" {
		return dir
	}
	return filepath.Join(os.TempDir(), "waxoff", "bin")
}

// copyToSandbox copies the bundled binary into the sandbox with execute
// permission. A file lock keeps concurrent waxoff processes from writing the
// same destination at once.
func (l *Locator) copyToSandbox(ctx context.Context, src, dst string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create sandbox dir: %w", err)
	}
	lock := flock.New(dst + ".lock")
	locked, err := lock.TryLockContext(ctx, sandboxLockRetry)
	if err != nil {
		return "", fmt.Errorf("acquire sandbox lock: %w", err)
	}
	if !locked {
		return "", errors.New("acquire sandbox lock: not acquired")
	}
	defer func() { _ = lock.Unlock() }()

	if isExecutable(dst) {
		return dst, nil
	}
	tmp := dst + ".partial"
	if err := fileutil.CopyFileMode(src, tmp, 0o755); err != nil {
		fileutil.RemoveQuietly(tmp)
		return "", fmt.Errorf("copy bundled ffmpeg: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		fileutil.RemoveQuietly(tmp)
		return "", fmt.Errorf("install sandbox ffmpeg: %w", err)
	}
	l.logger.Debug("bundled ffmpeg copied to sandbox",
		logging.String("source", src),
		logging.String("path", dst),
	)
	return dst, nil
}

func executableName(name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return name + ".exe"
	}
	return name
}
