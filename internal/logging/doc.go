// Package logging assembles structured slog loggers and formatting helpers used
// across WaxOff.
//
// It owns the console and JSON handlers, the per-run log file, and the run_id
// stamp that ties one invocation's records together. Context helpers let the
// pipeline tag lines with job ids and phase names without threading loggers
// through every call. NewNop gives tests and wiring code a logger that cannot
// fail.
package logging
