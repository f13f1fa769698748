// Package options defines the processing settings applied to every file in a
// batch: loudness target, true-peak ceiling, loudness range, output formats,
// MP3 bitrate, sample rate, and the phase-rotation pre-filter.
//
// Options is a comparable value type. The queue snapshots it when a batch
// starts, so edits made while a batch is running only affect the next batch.
package options
