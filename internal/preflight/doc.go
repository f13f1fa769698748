// Package preflight provides readiness checks for the tools and directories
// WaxOff depends on.
//
// The doctor command runs RunAll and renders the results. Batch processing
// does not use these checks; it fails fast on its own when ffmpeg cannot be
// resolved.
package preflight
