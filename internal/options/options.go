package options

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// OutputMode selects which files a run produces.
type OutputMode string

const (
	OutputWAV  OutputMode = "wav"
	OutputMP3  OutputMode = "mp3"
	OutputBoth OutputMode = "both"
)

// Ranges accepted by Validate.
const (
	MinTargetLUFS = -24.0
	MaxTargetLUFS = -14.0
	MinTruePeak   = -3.0
	MaxTruePeak   = -0.1
)

// PhaseRotationHz is the all-pass centre frequency used when phase rotation is on.
const PhaseRotationHz = 150

var (
	allowedBitrates    = []int{128, 160, 192}
	allowedSampleRates = []int{44100, 48000}
)

// Options is the per-run processing configuration. It is a plain value:
// copies are independent and two Options compare equal with ==.
type Options struct {
	TargetLUFS    float64    `toml:"target_lufs" json:"target_lufs"`
	TruePeak      float64    `toml:"true_peak" json:"true_peak"`
	LRA           float64    `toml:"lra" json:"lra"`
	OutputMode    OutputMode `toml:"output_mode" json:"output_mode"`
	MP3Bitrate    int        `toml:"mp3_bitrate" json:"mp3_bitrate"`
	SampleRate    int        `toml:"sample_rate" json:"sample_rate"`
	PhaseRotation bool       `toml:"phase_rotation" json:"phase_rotation"`
}

// Default returns the "Podcast Standard" settings.
func Default() Options {
	return Options{
		TargetLUFS:    -18,
		TruePeak:      -1.0,
		LRA:           11.0,
		OutputMode:    OutputBoth,
		MP3Bitrate:    160,
		SampleRate:    44100,
		PhaseRotation: true,
	}
}

// ParseOutputMode converts user input ("WAV", "mp3", "Both") into an OutputMode.
func ParseOutputMode(value string) (OutputMode, bool) {
	switch OutputMode(strings.ToLower(strings.TrimSpace(value))) {
	case OutputWAV:
		return OutputWAV, true
	case OutputMP3:
		return OutputMP3, true
	case OutputBoth:
		return OutputBoth, true
	default:
		return "", false
	}
}

// Label returns the display name of the mode.
func (m OutputMode) Label() string {
	switch m {
	case OutputWAV:
		return "WAV"
	case OutputMP3:
		return "MP3"
	case OutputBoth:
		return "Both"
	default:
		return string(m)
	}
}

// WantsWAV reports whether the lossless render is part of the final output.
func (o Options) WantsWAV() bool {
	return o.OutputMode == OutputWAV || o.OutputMode == OutputBoth
}

// WantsMP3 reports whether the compressed encode stage runs.
func (o Options) WantsMP3() bool {
	return o.OutputMode == OutputMP3 || o.OutputMode == OutputBoth
}

// Validate checks every field independently; there are no cross-field rules.
func (o Options) Validate() error {
	var errs []error
	if !finiteWithin(o.TargetLUFS, MinTargetLUFS, MaxTargetLUFS) {
		errs = append(errs, fmt.Errorf("target loudness %v LUFS outside [%v, %v]", o.TargetLUFS, MinTargetLUFS, MaxTargetLUFS))
	}
	if !finiteWithin(o.TruePeak, MinTruePeak, MaxTruePeak) {
		errs = append(errs, fmt.Errorf("true peak %v dBTP outside [%v, %v]", o.TruePeak, MinTruePeak, MaxTruePeak))
	}
	if math.IsNaN(o.LRA) || math.IsInf(o.LRA, 0) || o.LRA <= 0 {
		errs = append(errs, fmt.Errorf("loudness range %v LU must be positive", o.LRA))
	}
	if _, ok := ParseOutputMode(string(o.OutputMode)); !ok {
		errs = append(errs, fmt.Errorf("unsupported output mode %q", o.OutputMode))
	}
	if !containsInt(allowedBitrates, o.MP3Bitrate) {
		errs = append(errs, fmt.Errorf("mp3 bitrate %d kbps not one of %v", o.MP3Bitrate, allowedBitrates))
	}
	if !containsInt(allowedSampleRates, o.SampleRate) {
		errs = append(errs, fmt.Errorf("sample rate %d Hz not one of %v", o.SampleRate, allowedSampleRates))
	}
	return errors.Join(errs...)
}

// TargetLUFSString renders whole values without a fraction ("-18") and
// everything else with one decimal ("-16.5").
func (o Options) TargetLUFSString() string {
	if o.TargetLUFS == math.Trunc(o.TargetLUFS) {
		return strconv.FormatInt(int64(o.TargetLUFS), 10)
	}
	return strconv.FormatFloat(o.TargetLUFS, 'f', 1, 64)
}

func (o Options) TruePeakString() string {
	return strconv.FormatFloat(o.TruePeak, 'f', 1, 64)
}

func (o Options) LRAString() string {
	return strconv.FormatFloat(o.LRA, 'f', 0, 64)
}

func (o Options) MP3BitrateString() string {
	return strconv.Itoa(o.MP3Bitrate) + "k"
}

func (o Options) SampleRateDisplay() string {
	if o.SampleRate == 44100 {
		return "44.1 kHz"
	}
	return strconv.FormatFloat(float64(o.SampleRate)/1000, 'f', -1, 64) + " kHz"
}

func (o Options) PhaseRotationDisplay() string {
	if o.PhaseRotation {
		return fmt.Sprintf("On (%d Hz)", PhaseRotationHz)
	}
	return "Off"
}

// AllowedBitrates returns the accepted MP3 bitrates in kbps.
func AllowedBitrates() []int {
	return append([]int(nil), allowedBitrates...)
}

// AllowedSampleRates returns the accepted output sample rates in Hz.
func AllowedSampleRates() []int {
	return append([]int(nil), allowedSampleRates...)
}

func finiteWithin(v, lo, hi float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= lo && v <= hi
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
