package config

import (
	"fmt"
	"strings"

	"waxoff/internal/options"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeFFmpeg(); err != nil {
		return err
	}
	c.normalizeProcessing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() error {
	var err error
	if binary := strings.TrimSpace(c.FFmpeg.Binary); binary != "" && strings.ContainsRune(binary, '/') {
		if c.FFmpeg.Binary, err = expandPath(binary); err != nil {
			return fmt.Errorf("ffmpeg.binary: %w", err)
		}
	} else {
		c.FFmpeg.Binary = binary
	}
	if c.FFmpeg.BundleDir, err = expandPath(strings.TrimSpace(c.FFmpeg.BundleDir)); err != nil {
		return fmt.Errorf("ffmpeg.bundle_dir: %w", err)
	}

	paths := make([]string, 0, len(c.FFmpeg.SearchPaths))
	seen := make(map[string]struct{}, len(c.FFmpeg.SearchPaths))
	for _, dir := range c.FFmpeg.SearchPaths {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("ffmpeg.search_paths: %w", err)
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		paths = append(paths, expanded)
	}
	c.FFmpeg.SearchPaths = paths

	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
	return nil
}

func (c *Config) normalizeProcessing() {
	mode := string(c.Processing.OutputMode)
	if strings.TrimSpace(mode) == "" {
		c.Processing.OutputMode = options.Default().OutputMode
		return
	}
	if parsed, ok := options.ParseOutputMode(mode); ok {
		c.Processing.OutputMode = parsed
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
