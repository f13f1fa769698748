package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"waxoff/internal/config"
	"waxoff/internal/pipeline"
)

var audioExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".flac": {},
	".aif":  {},
	".aiff": {},
	".m4a":  {},
	".aac":  {},
	".ogg":  {},
	".opus": {},
	".wma":  {},
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
}

type rejectedInput struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// collectInputs expands and checks the command-line paths. Accepted paths are
// absolute and deduplicated in argument order.
func collectInputs(args []string) (accepted []string, rejected []rejectedInput) {
	seen := make(map[string]struct{}, len(args))
	for _, arg := range args {
		path, err := config.ExpandPath(strings.TrimSpace(arg))
		if err != nil || path == "" {
			rejected = append(rejected, rejectedInput{Path: arg, Reason: "invalid path"})
			continue
		}
		if reason := checkInput(path); reason != "" {
			rejected = append(rejected, rejectedInput{Path: arg, Reason: reason})
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		accepted = append(accepted, path)
	}
	return accepted, rejected
}

func checkInput(path string) string {
	if pipeline.IsTempName(filepath.Base(path)) {
		return "partial output from an interrupted run"
	}
	if _, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
		return fmt.Sprintf("unsupported file type %q", filepath.Ext(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "file does not exist"
		}
		return err.Error()
	}
	if !info.Mode().IsRegular() {
		return "not a regular file"
	}
	return ""
}
