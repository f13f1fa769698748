package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"waxoff/internal/logging"
)

const timestampLayout = "2006-01-02 15:04:05"

// Filter narrows which records are shown. Zero values match everything.
type Filter struct {
	MinLevel slog.Level
	JobID    string
	Event    string
}

// Record is one decoded JSON log line.
type Record struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Parse decodes a JSON record. ok is false for lines that are not JSON
// objects, such as console-format logs.
func Parse(line string) (Record, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, false
	}
	rec := Record{Attrs: raw}
	if v, ok := raw[slog.TimeKey].(string); ok {
		rec.Time, _ = time.Parse(time.RFC3339Nano, v)
	}
	if v, ok := raw[slog.LevelKey].(string); ok {
		_ = rec.Level.UnmarshalText([]byte(v))
	}
	if v, ok := raw[slog.MessageKey].(string); ok {
		rec.Message = v
	}
	delete(raw, slog.TimeKey)
	delete(raw, slog.LevelKey)
	delete(raw, slog.MessageKey)
	return rec, true
}

// Match reports whether rec passes f.
func (f Filter) Match(rec Record) bool {
	if rec.Level < f.MinLevel {
		return false
	}
	if f.JobID != "" && !strings.HasPrefix(attrText(rec.Attrs[logging.FieldJobID]), f.JobID) {
		return false
	}
	if f.Event != "" && attrText(rec.Attrs[logging.FieldEventType]) != f.Event {
		return false
	}
	return true
}

// Format renders rec the way the console handler prints live output.
func Format(rec Record) string {
	var b strings.Builder
	if !rec.Time.IsZero() {
		b.WriteString(rec.Time.In(time.Local).Format(timestampLayout))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", levelLabel(rec.Level))
	if component := attrText(rec.Attrs[logging.FieldComponent]); component != "" {
		b.WriteString(component)
		b.WriteByte(' ')
	}
	if subject := subject(rec.Attrs); subject != "" {
		b.WriteString("[" + subject + "] ")
	}
	b.WriteString(rec.Message)

	keys := make([]string, 0, len(rec.Attrs))
	for k := range rec.Attrs {
		switch k {
		case logging.FieldComponent, logging.FieldJobID, logging.FieldStage:
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quoteIfNeeded(attrText(rec.Attrs[k])))
	}
	return b.String()
}

// FormatLine formats a raw line, passing non-JSON lines through unchanged.
// ok is false when the record is filtered out.
func FormatLine(line string, f Filter) (string, bool) {
	rec, parsed := Parse(line)
	if !parsed {
		return line, f == (Filter{})
	}
	if !f.Match(rec) {
		return "", false
	}
	return Format(rec), true
}

func subject(attrs map[string]any) string {
	jobID := attrText(attrs[logging.FieldJobID])
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}
	stage := attrText(attrs[logging.FieldStage])
	switch {
	case jobID != "" && stage != "":
		return jobID + "/" + stage
	case jobID != "":
		return jobID
	default:
		return stage
	}
}

func attrText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
