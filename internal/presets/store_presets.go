package presets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"waxoff/internal/options"
)

const presetColumns = "id, name, target_lufs, true_peak, lra, output_mode, mp3_bitrate, sample_rate, phase_rotation, created_at"

func scanPreset(scanner interface{ Scan(dest ...any) error }) (Preset, error) {
	var (
		p          Preset
		mode       string
		phase      int64
		createdRaw sql.NullString
	)
	if err := scanner.Scan(
		&p.ID,
		&p.Name,
		&p.Options.TargetLUFS,
		&p.Options.TruePeak,
		&p.Options.LRA,
		&mode,
		&p.Options.MP3Bitrate,
		&p.Options.SampleRate,
		&phase,
		&createdRaw,
	); err != nil {
		return Preset{}, err
	}
	p.Options.OutputMode = options.OutputMode(mode)
	p.Options.PhaseRotation = phase != 0
	if createdRaw.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, createdRaw.String); err == nil {
			p.CreatedAt = ts
		}
	}
	return p, nil
}

// List returns the built-in presets followed by user presets in creation order.
func (s *Store) List(ctx context.Context) ([]Preset, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+presetColumns+" FROM presets ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	all := BuiltIns()
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		all = append(all, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presets: %w", err)
	}
	return all, nil
}

// Get returns the preset with the given id.
func (s *Store) Get(ctx context.Context, id string) (Preset, error) {
	if p, ok := builtInByID(id); ok {
		return p, nil
	}
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+presetColumns+" FROM presets WHERE id = ?", strings.TrimSpace(id))
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("get preset: %w", err)
	}
	return p, nil
}

// Find returns the preset whose name matches, ignoring case.
func (s *Store) Find(ctx context.Context, name string) (Preset, error) {
	if p, ok := builtInByName(name); ok {
		return p, nil
	}
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+presetColumns+" FROM presets WHERE name_key = ?", nameKey(name))
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, strings.TrimSpace(name))
	}
	if err != nil {
		return Preset{}, fmt.Errorf("find preset: %w", err)
	}
	return p, nil
}

// Resolve accepts either a preset id or a name.
func (s *Store) Resolve(ctx context.Context, ref string) (Preset, error) {
	if _, err := uuid.Parse(strings.TrimSpace(ref)); err == nil {
		p, err := s.Get(ctx, ref)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return p, err
		}
	}
	return s.Find(ctx, ref)
}

// Save stores opts under name as a new user preset.
func (s *Store) Save(ctx context.Context, name string, opts options.Options) (Preset, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return Preset{}, ErrEmptyName
	}
	if err := opts.Validate(); err != nil {
		return Preset{}, fmt.Errorf("invalid options: %w", err)
	}
	if _, ok := builtInByName(name); ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if _, err := s.Find(ctx, name); err == nil {
		return Preset{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	} else if !errors.Is(err, ErrNotFound) {
		return Preset{}, err
	}

	p := Preset{
		ID:        uuid.NewString(),
		Name:      name,
		Options:   opts,
		CreatedAt: s.now().UTC(),
	}
	phase := 0
	if opts.PhaseRotation {
		phase = 1
	}
	_, err := s.exec(ctx,
		`INSERT INTO presets (
            id, name, name_key, target_lufs, true_peak, lra,
            output_mode, mp3_bitrate, sample_rate, phase_rotation, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Name,
		nameKey(p.Name),
		opts.TargetLUFS,
		opts.TruePeak,
		opts.LRA,
		string(opts.OutputMode),
		opts.MP3Bitrate,
		opts.SampleRate,
		phase,
		p.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Preset{}, fmt.Errorf("insert preset: %w", err)
	}
	return p, nil
}

// Delete removes a user preset. Deleting the selected preset clears the
// selection.
func (s *Store) Delete(ctx context.Context, id string) error {
	if IsBuiltIn(id) {
		return ErrBuiltIn
	}
	res, err := s.exec(ctx, "DELETE FROM presets WHERE id = ?", strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := s.exec(ctx, "DELETE FROM selection WHERE preset_id = ?", strings.TrimSpace(id)); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return nil
}

// Select records id as the preset applied when no options are given.
func (s *Store) Select(ctx context.Context, id string) (Preset, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Preset{}, err
	}
	_, err = s.exec(ctx,
		"INSERT INTO selection (slot, preset_id) VALUES (1, ?) ON CONFLICT(slot) DO UPDATE SET preset_id = excluded.preset_id",
		p.ID,
	)
	if err != nil {
		return Preset{}, fmt.Errorf("select preset: %w", err)
	}
	return p, nil
}

// Selected returns the selected preset. ok is false when nothing is selected.
func (s *Store) Selected(ctx context.Context) (p Preset, ok bool, err error) {
	var id string
	err = s.db.QueryRowContext(ensureContext(ctx), "SELECT preset_id FROM selection WHERE slot = 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, false, nil
	}
	if err != nil {
		return Preset{}, false, fmt.Errorf("read selection: %w", err)
	}
	p, err = s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Preset{}, false, nil
	}
	if err != nil {
		return Preset{}, false, err
	}
	return p, true, nil
}
