// Package presets stores named processing Options.
//
// Three built-in presets are compiled in and always listed first. User
// presets live in a small SQLite database under the state directory along
// with the currently selected preset. Names are unique ignoring case and
// repeated whitespace.
//
// Schema changes bump schemaVersion in store.go; users delete presets.db to
// adopt the new schema.
package presets
