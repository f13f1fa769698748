package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"waxoff/internal/config"
	"waxoff/internal/ffmpeg"
	"waxoff/internal/logging"
	"waxoff/internal/pipeline"
	"waxoff/internal/presets"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	runLog     string
	loggerErr  error

	locator *ffmpeg.Locator
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// ensureLogger builds the per-invocation logger and prunes old run logs.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, runLog, err := logging.NewFromConfig(cfg, uuid.NewString())
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
		c.runLog = runLog
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: logging.RunLogPattern,
			Exclude: []string{runLog},
		})
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) ffmpegLocator() (*ffmpeg.Locator, error) {
	if c.locator != nil {
		return c.locator, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	c.locator = ffmpeg.NewLocator(ffmpeg.LocatorConfigFrom(cfg), logger)
	return c.locator, nil
}

// newRunner wires the pipeline to the resolved ffmpeg. ffprobe verification
// is attached only when enabled in config.
func (c *commandContext) newRunner() (*pipeline.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	locator, err := c.ffmpegLocator()
	if err != nil {
		return nil, err
	}

	var opts []pipeline.RunnerOption
	if cfg.FFmpeg.VerifyOutputs {
		probe := cfg.FFprobeBinary()
		opts = append(opts, pipeline.WithVerifier(pipeline.NewProbeVerifier(func(ctx context.Context) (string, error) {
			return locator.Sibling(ctx, probe)
		})))
	}
	return pipeline.NewRunner(ffmpeg.NewInvoker(locator, logger), logger, opts...), nil
}

func (c *commandContext) withPresets(fn func(*presets.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := presets.OpenForConfig(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
