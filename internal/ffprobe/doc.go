// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The pipeline uses it to confirm that a promoted WAV or MP3 actually
// decodes as audio at the expected sample rate before a job is marked
// complete.
package ffprobe
