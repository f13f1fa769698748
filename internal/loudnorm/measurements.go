package loudnorm

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// JSON keys printed by the loudnorm filter with print_format=json.
const (
	keyInputI       = "input_i"
	keyInputTP      = "input_tp"
	keyInputLRA     = "input_lra"
	keyInputThresh  = "input_thresh"
	keyTargetOffset = "target_offset"
)

// Measurements holds the first-pass loudness analysis of one input.
type Measurements struct {
	InputI       float64 `json:"input_i"`
	InputTP      float64 `json:"input_tp"`
	InputLRA     float64 `json:"input_lra"`
	InputThresh  float64 `json:"input_thresh"`
	TargetOffset float64 `json:"target_offset"`
}

// Parse extracts measurements from the encoder's diagnostic text. It decodes
// the last complete JSON object in the text and requires all five fields to be
// present as numbers or numeric strings. Anything else yields ok == false.
func Parse(diagnostics string) (Measurements, bool) {
	payload, ok := lastObject(diagnostics)
	if !ok {
		return Measurements{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return Measurements{}, false
	}

	var m Measurements
	targets := []struct {
		key string
		dst *float64
	}{
		{keyInputI, &m.InputI},
		{keyInputTP, &m.InputTP},
		{keyInputLRA, &m.InputLRA},
		{keyInputThresh, &m.InputThresh},
		{keyTargetOffset, &m.TargetOffset},
	}
	for _, target := range targets {
		raw, present := fields[target.key]
		if !present {
			return Measurements{}, false
		}
		value, ok := parseNumber(raw)
		if !ok {
			return Measurements{}, false
		}
		*target.dst = value
	}
	return m, true
}

// lastObject returns the brace-balanced span ending at the final '}' in text.
func lastObject(text string) (string, bool) {
	end := strings.LastIndexByte(text, '}')
	if end < 0 {
		return "", false
	}
	depth := 0
	for i := end; i >= 0; i-- {
		switch text[i] {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return text[i : end+1], true
			}
		}
	}
	return "", false
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var value float64
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, false
		}
		value = parsed
	} else if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
