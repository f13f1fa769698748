package pipeline

import (
	"log/slog"

	"waxoff/internal/fileutil"
	"waxoff/internal/logging"
)

// staging tracks every file one run creates so a failed run can remove all
// of them and a successful run leaves only promoted outputs. A promotion that
// replaced an existing output is never rolled back.
type staging struct {
	temps    []string
	promoted []string
}

func (s *staging) track(path string) string {
	s.temps = append(s.temps, path)
	return path
}

func (s *staging) promote(tmp, final string) error {
	existed := fileutil.FileExists(final)
	if err := fileutil.Promote(tmp, final); err != nil {
		return err
	}
	s.forget(tmp)
	if !existed {
		s.promoted = append(s.promoted, final)
	}
	return nil
}

// discard removes an intermediate that is not part of the result. Failures
// are ignored.
func (s *staging) discard(tmp string) {
	fileutil.RemoveQuietly(tmp)
	s.forget(tmp)
}

func (s *staging) forget(tmp string) {
	kept := s.temps[:0]
	for _, path := range s.temps {
		if path != tmp {
			kept = append(kept, path)
		}
	}
	s.temps = kept
}

// rollback deletes every temp file and every output this run created.
func (s *staging) rollback(logger *slog.Logger) {
	for _, path := range append(append([]string(nil), s.temps...), s.promoted...) {
		if fileutil.RemoveQuietly(path) {
			logger.Debug("removed partial output", logging.String("path", path))
		}
	}
	s.temps = nil
	s.promoted = nil
}
