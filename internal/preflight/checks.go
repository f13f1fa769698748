package preflight

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const mp3Encoder = "libmp3lame"

// CheckFFmpeg resolves the encoder and returns its path when found.
func CheckFFmpeg(ctx context.Context, resolver Resolver) (Result, string) {
	const name = "FFmpeg"
	if resolver == nil {
		return Result{Name: name, Detail: "no resolver configured"}, ""
	}
	path, err := resolver.Locate(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}, ""
	}
	return Result{Name: name, Passed: true, Detail: path}, path
}

// CheckFFprobe resolves ffprobe next to ffmpeg or on PATH.
func CheckFFprobe(ctx context.Context, resolver Resolver, binary string, optional bool) Result {
	const name = "FFprobe"
	result := Result{Name: name, Optional: optional}
	if resolver == nil {
		result.Detail = "no resolver configured"
		return result
	}
	path, err := resolver.Sibling(ctx, binary)
	if err != nil {
		result.Detail = err.Error()
		if optional {
			result.Detail += " (only needed when ffmpeg.verify_outputs is on)"
		}
		return result
	}
	result.Passed = true
	result.Detail = path
	return result
}

// CheckEncoder verifies that ffmpeg at binary lists the named audio encoder.
func CheckEncoder(ctx context.Context, binary, encoder string) Result {
	name := "Encoder " + encoder
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(checkCtx, binary, "-hide_banner", "-encoders").Output()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("list encoders: %v", err)}
	}
	if !listsEncoder(out, encoder) {
		return Result{Name: name, Detail: "not available in this ffmpeg build (MP3 output will fail)"}
	}
	return Result{Name: name, Passed: true, Detail: "available"}
}

// listsEncoder scans `ffmpeg -encoders` output, whose rows look like
// " A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3)".
func listsEncoder(output []byte, encoder string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == encoder {
			return true
		}
	}
	return false
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
