package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"waxoff/internal/config"
)

type stubResolver struct {
	ffmpeg    string
	ffmpegErr error
	siblings  map[string]string
}

func (s stubResolver) Locate(context.Context) (string, error) {
	return s.ffmpeg, s.ffmpegErr
}

func (s stubResolver) Sibling(_ context.Context, name string) (string, error) {
	if path, ok := s.siblings[name]; ok {
		return path, nil
	}
	return "", errors.New(name + " not found")
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestListsEncoder(t *testing.T) {
	output := []byte(`Encoders:
 V..... = Video
 ------
 A....D aac                  AAC (Advanced Audio Coding)
 A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3) (codec mp3)
`)
	if !listsEncoder(output, "libmp3lame") {
		t.Fatal("expected libmp3lame to be listed")
	}
	if listsEncoder(output, "libopus") {
		t.Fatal("libopus is not listed")
	}
}

func TestCheckEncoder(t *testing.T) {
	dir := t.TempDir()
	with := writeScript(t, dir, "ffmpeg-with", "echo ' A....D libmp3lame           libmp3lame MP3'\n")
	without := writeScript(t, dir, "ffmpeg-without", "echo ' A....D aac                  AAC'\n")

	if result := CheckEncoder(context.Background(), with, "libmp3lame"); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := CheckEncoder(context.Background(), without, "libmp3lame"); result.Passed {
		t.Fatal("expected failure when encoder is missing")
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	ffmpegPath := writeScript(t, base, "ffmpeg", "echo ' A....D libmp3lame           libmp3lame MP3'\n")

	results := RunAll(context.Background(), &cfg, stubResolver{ffmpeg: ffmpegPath})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %+v", results)
	}
	if Failed(results) {
		t.Fatalf("only optional checks may fail: %+v", results)
	}
	if results[2].Name != "FFprobe" || results[2].Passed || !results[2].Optional {
		t.Fatalf("unexpected ffprobe result %+v", results[2])
	}

	cfg.FFmpeg.VerifyOutputs = true
	if !Failed(RunAll(context.Background(), &cfg, stubResolver{ffmpeg: ffmpegPath})) {
		t.Fatal("missing ffprobe should fail when verification is on")
	}

	missing := RunAll(context.Background(), &cfg, stubResolver{ffmpegErr: errors.New("ffmpeg not found")})
	if !Failed(missing) || missing[0].Passed {
		t.Fatalf("expected ffmpeg failure: %+v", missing)
	}
	if len(missing) != 4 {
		t.Fatalf("encoder check should be skipped without ffmpeg: %+v", missing)
	}
}
