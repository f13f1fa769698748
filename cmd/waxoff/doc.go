// Package main hosts the WaxOff CLI entrypoint and command graph.
//
// `waxoff process` queues the named audio files, runs one batch through the
// loudness pipeline and prints a per-file table plus the batch summary.
// Presets, configuration scaffolding, a run-log viewer and an environment
// doctor round out the tree. Commands stay thin: the queue, pipeline and presets packages do the
// work.
package main
