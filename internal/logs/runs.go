package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ErrNoRuns is returned when the log directory holds no run logs.
var ErrNoRuns = errors.New("no run logs found")

// Run describes one run log on disk.
type Run struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Runs lists files in dir matching pattern, newest first. Names embed a
// sortable timestamp; ties fall back to modification time.
func Runs(dir, pattern string) ([]Run, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	runs := make([]Run, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		runs = append(runs, Run{Path: path, Size: info.Size(), ModTime: info.ModTime()})
	}
	slices.SortFunc(runs, func(a, b Run) int {
		if c := strings.Compare(filepath.Base(b.Path), filepath.Base(a.Path)); c != 0 {
			return c
		}
		return b.ModTime.Compare(a.ModTime)
	})
	return runs, nil
}

// Latest returns the newest run log in dir.
func Latest(dir, pattern string) (Run, error) {
	runs, err := Runs(dir, pattern)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("%w in %s", ErrNoRuns, dir)
	}
	return runs[0], nil
}
