// Package config loads, normalizes, and validates WaxOff configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from ~/.config/waxoff/config.toml or a
// waxoff.toml in the working directory. The [processing] section seeds the
// loudness options a batch starts with; the [ffmpeg] section tells the
// executable locator where to look.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
