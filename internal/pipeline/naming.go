package pipeline

import (
	"path/filepath"
	"strings"

	"waxoff/internal/options"
)

// OutputStem returns the base name, without extension, shared by every output
// of input: "{stem}-lev-{target}LUFS".
func OutputStem(input string, opts options.Options) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "-lev-" + opts.TargetLUFSString() + "LUFS"
}

// OutputPath returns the public path for the given extension, beside the input.
func OutputPath(input string, opts options.Options, ext string) string {
	return filepath.Join(filepath.Dir(input), OutputStem(input, opts)+"."+ext)
}

// TempPath returns the hidden staging path for an output. suffix keeps
// concurrent or retried runs from sharing a partial file.
func TempPath(input string, opts options.Options, suffix, ext string) string {
	name := "." + OutputStem(input, opts) + ".part." + suffix + "." + ext
	return filepath.Join(filepath.Dir(input), name)
}

// IsTempName reports whether name follows the staging pattern.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, ".part.")
}
