// Package ffmpeg resolves and runs the ffmpeg executable.
//
// Locator implements the resolution policy (configured path, bundled copy,
// sandbox copy, well-known directories, PATH) and caches the first hit.
// Invoker runs one process per call and hands back the exit code and the
// complete stderr text; deciding whether a non-zero exit matters is the
// caller's job.
package ffmpeg
