// Package pipeline runs the per-file loudness normalization protocol on top of
// ffmpeg.
//
// A run has up to four phases: analysis (loudnorm measurement to the null
// muxer), processing (linear loudnorm render to 24-bit WAV), MP3 encoding,
// and verification. Every file is written under a hidden ".part" name beside
// the input and renamed into place only after its phase succeeds. A failed
// run removes everything it created.
//
// Failures wrap the sentinel errors in errors.go; StageError carries the last
// DiagnosticTailLimit characters of ffmpeg output for display.
package pipeline
