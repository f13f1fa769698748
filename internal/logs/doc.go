// Package logs reads the per-run log files written by the logging package.
//
// It finds the most recent run log, returns its last N lines with bounded
// memory, follows it while another waxoff process appends, and turns the JSON
// records back into one readable line each. `waxoff logs` is built on it.
package logs
