// Package queue holds the in-memory list of input files and runs batches over
// it.
//
// A batch snapshots the pending jobs when it starts and hands them to a
// Processor strictly one at a time from a single background goroutine.
// Cancellation is cooperative and only observed between jobs; the job in
// flight always reaches a terminal state. Job state changes and the batch
// completion are published as sequenced Events to subscribers.
//
// Nothing here is persisted. Jobs live for the life of the process.
package queue
