package queue

import (
	"path/filepath"
	"strings"
	"time"

	"waxoff/internal/loudnorm"
	"waxoff/internal/pipeline"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusProcessing Status = "processing"
	StatusEncoding   Status = "encoding"
	StatusVerifying  Status = "verifying"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusAnalyzing,
	StatusProcessing,
	StatusEncoding,
	StatusVerifying,
	StatusComplete,
	StatusFailed,
}

var activeStatuses = map[Status]struct{}{
	StatusAnalyzing:  {},
	StatusProcessing: {},
	StatusEncoding:   {},
	StatusVerifying:  {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsActive reports whether a job with this status is being worked on.
func (s Status) IsActive() bool {
	_, ok := activeStatuses[s]
	return ok
}

// IsTerminal reports whether the status is complete or failed.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Label returns the display text for the status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusAnalyzing:
		return string(pipeline.PhaseAnalyzing)
	case StatusProcessing:
		return string(pipeline.PhaseProcessing)
	case StatusEncoding:
		return string(pipeline.PhaseEncoding)
	case StatusVerifying:
		return string(pipeline.PhaseVerifying)
	case StatusComplete:
		return "Complete"
	case StatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// statusForPhase maps a pipeline phase name onto the job status it implies.
func statusForPhase(phase pipeline.Phase) (Status, bool) {
	switch phase {
	case pipeline.PhaseAnalyzing:
		return StatusAnalyzing, true
	case pipeline.PhaseProcessing:
		return StatusProcessing, true
	case pipeline.PhaseEncoding:
		return StatusEncoding, true
	case pipeline.PhaseVerifying:
		return StatusVerifying, true
	default:
		return "", false
	}
}

// Job is one input file in the queue. Values returned by the Queue are
// snapshots; mutating them has no effect on the queue.
type Job struct {
	ID           string                 `json:"id"`
	InputPath    string                 `json:"input_path"`
	AddedAt      time.Time              `json:"added_at"`
	Status       Status                 `json:"status"`
	Progress     float64                `json:"progress"`
	OutputPaths  []string               `json:"output_paths,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Measurements *loudnorm.Measurements `json:"measurements,omitempty"`
}

// Filename returns the base name of the input.
func (j Job) Filename() string {
	return filepath.Base(j.InputPath)
}

// OutputDirectory is where outputs for this job are written.
func (j Job) OutputDirectory() string {
	return filepath.Dir(j.InputPath)
}

func (j *Job) clone() Job {
	cp := *j
	cp.OutputPaths = append([]string(nil), j.OutputPaths...)
	if j.Measurements != nil {
		m := *j.Measurements
		cp.Measurements = &m
	}
	return cp
}
