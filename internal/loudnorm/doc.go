// Package loudnorm parses the measurement report that ffmpeg's loudnorm filter
// prints at the end of an analysis pass.
//
// ffmpeg interleaves informational lines and the JSON report on stderr, so
// Parse looks for the last complete JSON object in the stream and decodes the
// five values the second (linear) pass needs. Parsing is all-or-nothing.
package loudnorm
