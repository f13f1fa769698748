package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeFFmpeg describes how the scripted encoder behaves.
type FakeFFmpeg struct {
	// NoMeasurements makes the analysis pass print no loudness report.
	NoMeasurements bool
	// FailRenderFor makes the normalization pass exit 1 for inputs whose
	// path contains this substring.
	FailRenderFor string
	// FailEncode makes the MP3 encode exit 1.
	FailEncode bool
}

const fakeReport = `[Parsed_loudnorm_1 @ 0x5581]
{
	"input_i" : "-27.61",
	"input_tp" : "-4.47",
	"input_lra" : "18.06",
	"input_thresh" : "-39.20",
	"output_i" : "-18.06",
	"output_tp" : "-1.00",
	"output_lra" : "7.90",
	"output_thresh" : "-28.58",
	"normalization_type" : "dynamic",
	"target_offset" : "0.06"
}`

// WriteFakeFFmpeg writes a POSIX shell script named ffmpeg into dir that
// mimics the invocations WaxOff makes (analysis, render, encode and the
// encoder listing) and returns its path. The render and encode passes write
// a few bytes to their last argument.
func WriteFakeFFmpeg(t testing.TB, dir string, behaviour FakeFFmpeg) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("for arg in \"$@\"; do last=\"$arg\"; done\n")
	b.WriteString("echo \"ffmpeg version 7.1 fake\" >&2\n")
	b.WriteString("case \"$*\" in\n")

	b.WriteString("*-encoders*)\n")
	b.WriteString("  echo ' A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3) (codec mp3)'\n  exit 0\n  ;;\n")

	b.WriteString("*print_format=json*)\n")
	if behaviour.NoMeasurements {
		b.WriteString("  echo \"Invalid data found when processing input\" >&2\n  exit 1\n  ;;\n")
	} else {
		b.WriteString("  cat >&2 <<'REPORT'\n" + fakeReport + "\nREPORT\n  exit 0\n  ;;\n")
	}

	b.WriteString("*pcm_s24le*)\n")
	if behaviour.FailRenderFor != "" {
		b.WriteString("  case \"$*\" in *'" + behaviour.FailRenderFor + "'*)\n")
		b.WriteString("    echo \"Error while filtering: Cannot allocate memory\" >&2\n    exit 1\n    ;;\n  esac\n")
	}
	b.WriteString("  printf 'RIFFWAVE' > \"$last\"\n  exit 0\n  ;;\n")

	b.WriteString("*libmp3lame*)\n")
	if behaviour.FailEncode {
		b.WriteString("  echo \"Unknown encoder 'libmp3lame'\" >&2\n  exit 1\n  ;;\n")
	} else {
		b.WriteString("  printf 'ID3' > \"$last\"\n  exit 0\n  ;;\n")
	}

	b.WriteString("esac\n")
	b.WriteString("echo \"unexpected arguments: $*\" >&2\nexit 2\n")

	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

// WriteFakeFFprobe writes an ffprobe script into dir that reports one audio
// stream at sampleRate for any file, and returns its path.
func WriteFakeFFprobe(t testing.TB, dir string, sampleRate int) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	script := fmt.Sprintf(`#!/bin/sh
cat <<'PROBE'
{
  "streams": [
    {"index": 0, "codec_name": "pcm_s24le", "codec_type": "audio", "sample_rate": "%d", "channels": 2}
  ],
  "format": {"format_name": "wav", "duration": "12.500000", "size": "8"}
}
PROBE
`, sampleRate)
	path := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffprobe: %v", err)
	}
	return path
}
