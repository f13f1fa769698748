package presets

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"waxoff/internal/options"
)

var (
	// ErrNotFound is returned when no preset matches an id or name.
	ErrNotFound = errors.New("preset not found")
	// ErrBuiltIn is returned when deleting one of the shipped presets.
	ErrBuiltIn = errors.New("built-in presets cannot be deleted")
	// ErrDuplicateName is returned when saving a name already in use.
	ErrDuplicateName = errors.New("preset name already exists")
	// ErrEmptyName is returned when saving a preset without a name.
	ErrEmptyName = errors.New("preset name is required")
)

// Preset is a named Options value.
type Preset struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Options   options.Options `json:"options"`
	BuiltIn   bool            `json:"built_in"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

var builtIns = []Preset{
	{
		ID:      "00000000-0000-0000-0000-000000000001",
		Name:    "Podcast Standard",
		Options: options.Default(),
		BuiltIn: true,
	},
	{
		ID:   "00000000-0000-0000-0000-000000000002",
		Name: "Podcast Loud",
		Options: options.Options{
			TargetLUFS:    -16,
			TruePeak:      -1.0,
			LRA:           11.0,
			OutputMode:    options.OutputBoth,
			MP3Bitrate:    192,
			SampleRate:    44100,
			PhaseRotation: true,
		},
		BuiltIn: true,
	},
	{
		ID:   "00000000-0000-0000-0000-000000000003",
		Name: "WAV Only (Mastering)",
		Options: options.Options{
			TargetLUFS:    -18,
			TruePeak:      -1.0,
			LRA:           11.0,
			OutputMode:    options.OutputWAV,
			MP3Bitrate:    160,
			SampleRate:    48000,
			PhaseRotation: true,
		},
		BuiltIn: true,
	},
}

// BuiltIns returns the presets that ship with WaxOff, in display order.
func BuiltIns() []Preset {
	return append([]Preset(nil), builtIns...)
}

// IsBuiltIn reports whether id belongs to a shipped preset.
func IsBuiltIn(id string) bool {
	_, ok := builtInByID(id)
	return ok
}

func builtInByID(id string) (Preset, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range builtIns {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

func builtInByName(name string) (Preset, bool) {
	key := nameKey(name)
	for _, p := range builtIns {
		if nameKey(p.Name) == key {
			return p, true
		}
	}
	return Preset{}, false
}

// nameKey folds case so "podcast loud" and "Podcast Loud" collide.
func nameKey(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}
