package main

import (
	"strings"
	"testing"

	"waxoff/internal/testsupport"
)

func TestLogsShowsPreviousRun(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{})
	inputs := testsupport.WriteInputs(t, env.mediaDir, "episode.wav")
	if _, _, err := env.run(t, "process", inputs[0]); err != nil {
		t.Fatalf("process: %v", err)
	}

	out, _, err := env.run(t, "logs", "--event", "batch_complete")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Fatalf("expected exactly one batch_complete record, got:\n%s", out)
	}
	requireContains(t, out, "event_type=batch_complete")

	out, _, err = env.run(t, "logs", "--list")
	if err != nil {
		t.Fatalf("logs --list: %v", err)
	}
	requireContains(t, out, "waxoff-")
}

func TestLogsWithoutRuns(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{})
	if _, _, err := env.run(t, "logs"); err == nil {
		t.Fatal("expected error when no run logs exist")
	}
}
