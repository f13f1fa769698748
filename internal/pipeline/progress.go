package pipeline

import "waxoff/internal/loudnorm"

// Phase names one step of the per-job protocol. The values double as the
// status labels shown to users.
type Phase string

const (
	PhaseAnalyzing  Phase = "Analyzing"
	PhaseProcessing Phase = "Processing"
	PhaseEncoding   Phase = "Encoding MP3"
	PhaseVerifying  Phase = "Verifying"
)

// Start returns the fraction of overall job progress at which the phase begins.
// Analyzing covers [0, 0.2), Processing [0.2, 0.7), Encoding [0.7, 0.95) and
// Verifying [0.95, 1).
func (p Phase) Start() float64 {
	switch p {
	case PhaseProcessing:
		return 0.2
	case PhaseEncoding:
		return 0.7
	case PhaseVerifying:
		return 0.95
	default:
		return 0
	}
}

// Update is delivered to the caller as the job moves through its phases.
// Measurements is set once, on the first update after analysis succeeds.
type Update struct {
	Phase        Phase
	Progress     float64
	Measurements *loudnorm.Measurements
}
