package logs_test

import (
	"log/slog"
	"strings"
	"testing"

	"waxoff/internal/logs"
)

const sampleRecord = `{"time":"2026-03-01T10:00:00Z","level":"WARN","msg":"job failed","component":"queue","job_id":"0f3c9a4e-1111-2222-3333-444455556666","stage":"Processing","event_type":"job_failed","error":"processing failed: boom"}`

func TestFormatLineRendersRecord(t *testing.T) {
	line, ok := logs.FormatLine(sampleRecord, logs.Filter{})
	if !ok {
		t.Fatal("expected record to pass empty filter")
	}
	if !strings.Contains(line, "WARN  queue [0f3c9a4e/Processing] job failed") {
		t.Fatalf("unexpected prefix: %q", line)
	}
	if !strings.Contains(line, `error="processing failed: boom"`) || !strings.Contains(line, "event_type=job_failed") {
		t.Fatalf("missing attributes: %q", line)
	}
}

func TestFilterMatch(t *testing.T) {
	if _, ok := logs.FormatLine(sampleRecord, logs.Filter{MinLevel: slog.LevelError}); ok {
		t.Fatal("expected warn record to be filtered at error level")
	}
	if _, ok := logs.FormatLine(sampleRecord, logs.Filter{JobID: "0f3c"}); !ok {
		t.Fatal("expected job id prefix to match")
	}
	if _, ok := logs.FormatLine(sampleRecord, logs.Filter{Event: "stage_start"}); ok {
		t.Fatal("expected event filter to reject")
	}
}

func TestFormatLinePassesPlainText(t *testing.T) {
	line, ok := logs.FormatLine("not json", logs.Filter{})
	if !ok || line != "not json" {
		t.Fatalf("expected passthrough, got %q %v", line, ok)
	}
}
