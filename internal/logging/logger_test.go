package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"waxoff/internal/config"
	"waxoff/internal/logging"
)

func TestConsoleLoggerFormatsSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithStage(logging.WithJobID(context.Background(), "3f2a1b4c-aaaa-bbbb-cccc-000000000000"), "Analyzing")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline")).Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("input", "my episode.wav"),
	)
	logger.Debug("hidden")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"INFO", "pipeline [job 3f2a1b4c · Analyzing] stage started", "event_type=stage_start", `input="my episode.wav"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug record leaked at info level: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerFieldNames(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("encoder missing", logging.Error(errors.New("not found")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode json log: %v (%s)", err, content)
	}
	if record["level"] != "warn" || record["msg"] != "encoder missing" || record["error"] != "not found" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Level = "error"

	logger, runLog, err := logging.NewFromConfig(&cfg, "run-42")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if filepath.Dir(runLog) != cfg.Paths.LogDir {
		t.Fatalf("run log %q not in %q", runLog, cfg.Paths.LogDir)
	}
	if matched, _ := filepath.Match(logging.RunLogPattern, filepath.Base(runLog)); !matched {
		t.Fatalf("run log %q does not match %q", runLog, logging.RunLogPattern)
	}

	logger.Debug("ffmpeg stderr line")

	content, err := os.ReadFile(runLog)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(content), "ffmpeg stderr line") {
		t.Fatalf("expected debug record in run log regardless of console level: %s", content)
	}
	if !strings.Contains(string(content), `"run_id":"run-42"`) {
		t.Fatalf("expected run_id in run log: %s", content)
	}
}

func TestRunLogName(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := logging.RunLogName(ts); got != "waxoff-20260304-050607.log" {
		t.Fatalf("RunLogName = %q", got)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := logging.WithRequestID(logging.WithJobID(context.Background(), " job-7 "), "req-1")
	ctx = logging.WithStage(ctx, "")
	if id, ok := logging.JobIDFromContext(ctx); !ok || id != "job-7" {
		t.Fatalf("JobIDFromContext = %q, %v", id, ok)
	}
	if _, ok := logging.StageFromContext(ctx); ok {
		t.Fatal("blank stage should not be stored")
	}
	fields := logging.ContextFields(ctx)
	if len(fields) != 2 || fields[0].Key != logging.FieldJobID || fields[1].Key != logging.FieldCorrelationID {
		t.Fatalf("unexpected context fields %v", fields)
	}
}
