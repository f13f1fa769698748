package config

import "waxoff/internal/options"

const (
	defaultConfigPath       = "~/.config/waxoff/config.toml"
	projectConfigName       = "waxoff.toml"
	defaultLogDir           = "~/.local/share/waxoff/logs"
	defaultStateDir         = "~/.local/share/waxoff"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultFFprobeBinary    = "ffprobe"
	presetsDatabaseName     = "presets.db"
)

// defaultSearchPaths are the well-known install locations checked before PATH.
var defaultSearchPaths = []string{
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"/usr/bin",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		FFmpeg: FFmpeg{
			SearchPaths:   append([]string(nil), defaultSearchPaths...),
			FFprobeBinary: defaultFFprobeBinary,
			VerifyOutputs: false,
		},
		Processing: options.Default(),
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
