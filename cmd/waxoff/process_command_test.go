package main

import (
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"waxoff/internal/queue"
	"waxoff/internal/testsupport"
)

func TestProcessWritesBothOutputs(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{})
	inputs := testsupport.WriteInputs(t, env.mediaDir, "episode.wav", "interview.flac")

	out, errOut, err := env.run(t, append([]string{"process"}, inputs...)...)
	if err != nil {
		t.Fatalf("process: %v\nstderr: %s", err, errOut)
	}

	for _, stem := range []string{"episode", "interview"} {
		requireExists(t, filepath.Join(env.mediaDir, stem+"-lev--18LUFS.wav"))
		requireExists(t, filepath.Join(env.mediaDir, stem+"-lev--18LUFS.mp3"))
	}
	for _, name := range testsupport.DirNames(t, env.mediaDir) {
		if strings.HasPrefix(name, ".") {
			t.Fatalf("temp file left behind: %s", name)
		}
	}
	requireContains(t, out, "2 files processed successfully")
	requireContains(t, out, "Target: -18 LUFS (-1.0 dBTP)")
	requireContains(t, out, "-27.6 LUFS")
	requireContains(t, errOut, "[1/2] episode.wav: Analyzing")
}

func TestProcessFlagsOverrideDefaults(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{})
	inputs := testsupport.WriteInputs(t, env.mediaDir, "show.wav")

	_, errOut, err := env.run(t, "process", "--mode", "wav", "--target=-16", inputs[0])
	if err != nil {
		t.Fatalf("process: %v\nstderr: %s", err, errOut)
	}
	requireExists(t, filepath.Join(env.mediaDir, "show-lev--16LUFS.wav"))
	requireMissing(t, filepath.Join(env.mediaDir, "show-lev--16LUFS.mp3"))
}

func TestProcessReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{FailRenderFor: "broken"})
	inputs := testsupport.WriteInputs(t, env.mediaDir, "good.wav", "broken.wav")

	out, _, err := env.run(t, append([]string{"process", "--json"}, inputs...)...)
	if err == nil {
		t.Fatal("expected an error when a file fails")
	}
	requireContains(t, err.Error(), "1 of 2 files failed")

	var report processReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if report.Result.Success != 1 || report.Result.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", report.Result)
	}
	if report.Jobs[1].Status != queue.StatusFailed {
		t.Fatalf("expected second job failed, got %s", report.Jobs[1].Status)
	}
	requireContains(t, report.Jobs[1].ErrorMessage, "Cannot allocate memory")

	requireExists(t, filepath.Join(env.mediaDir, "good-lev--18LUFS.mp3"))
	want := []string{"broken.wav", "good-lev--18LUFS.mp3", "good-lev--18LUFS.wav", "good.wav"}
	got := testsupport.DirNames(t, env.mediaDir)
	slices.Sort(got)
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected directory contents %v", got)
	}
}

func TestProcessWithoutMeasurementsLeavesNoFiles(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{NoMeasurements: true})
	inputs := testsupport.WriteInputs(t, env.mediaDir, "silence.wav")

	_, _, err := env.run(t, "process", inputs[0])
	if err == nil {
		t.Fatal("expected failure")
	}
	if names := testsupport.DirNames(t, env.mediaDir); len(names) != 1 {
		t.Fatalf("expected only the input to remain, got %v", names)
	}
}

func TestProcessRejectsUnusableInputs(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{})
	inputs := testsupport.WriteInputs(t, env.mediaDir, "notes.txt")

	_, errOut, err := env.run(t, "process", inputs[0], filepath.Join(env.mediaDir, "missing.wav"))
	if err == nil {
		t.Fatal("expected error when nothing is processable")
	}
	requireContains(t, errOut, "unsupported file type")
	requireContains(t, errOut, "file does not exist")
}

func TestProcessCountsRejectedAsSkipped(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{})
	inputs := testsupport.WriteInputs(t, env.mediaDir, "keep.wav", "readme.md")

	out, _, err := env.run(t, "process", "--json", "--mode", "mp3", inputs[0], inputs[1])
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var report processReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if report.Result.Success != 1 || report.Result.Skipped != 1 {
		t.Fatalf("unexpected counts: %+v", report.Result)
	}
	if len(report.Rejected) != 1 || report.Rejected[0].Path != inputs[1] {
		t.Fatalf("unexpected rejected list: %+v", report.Rejected)
	}
	requireMissing(t, filepath.Join(env.mediaDir, "keep-lev--18LUFS.wav"))
}

func TestProcessInvalidFlag(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{})
	inputs := testsupport.WriteInputs(t, env.mediaDir, "a.wav")

	_, _, err := env.run(t, "process", "--bitrate", "100", inputs[0])
	if err == nil {
		t.Fatal("expected invalid bitrate to be rejected")
	}
	requireContains(t, err.Error(), "invalid options")
	if names := testsupport.DirNames(t, env.mediaDir); len(names) != 1 {
		t.Fatalf("expected no outputs, got %v", names)
	}
}

func TestProcessVerifiesOutputsWithFFprobe(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.FakeFFmpeg{}, testsupport.WithVerifyOutputs(true))
	testsupport.WriteFakeFFprobe(t, env.binDir, 44100)
	inputs := testsupport.WriteInputs(t, env.mediaDir, "checked.wav")

	if _, errOut, err := env.run(t, "process", inputs[0]); err != nil {
		t.Fatalf("process: %v\nstderr: %s", err, errOut)
	}
	requireExists(t, filepath.Join(env.mediaDir, "checked-lev--18LUFS.wav"))

	// The fake ffprobe reports 44.1 kHz, so a 48 kHz run fails verification and
	// its outputs are never promoted.
	out, _, err := env.run(t, "process", "--json", "--sample-rate", "48000", "--target=-20", inputs[0])
	if err == nil {
		t.Fatal("expected verification failure")
	}
	var report processReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	requireContains(t, report.Jobs[0].ErrorMessage, "output verification failed")
	requireMissing(t, filepath.Join(env.mediaDir, "checked-lev--20LUFS.wav"))
	requireMissing(t, filepath.Join(env.mediaDir, "checked-lev--20LUFS.mp3"))
}
