package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/template"
	"github.com/Strob0t/ReplyForge/internal/domain/tone"
)

// --- Templates ---

const templateColumns = `id, name, content, min_stars, max_stars, active, created_at, updated_at`

func scanTemplate(row scannable) (template.Template, error) {
	var t template.Template
	err := row.Scan(&t.ID, &t.Name, &t.Content, &t.MinStars, &t.MaxStars, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) ListTemplates(ctx context.Context) ([]template.Template, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []template.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return orEmpty(out), rows.Err()
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*template.Template, error) {
	t, err := scanTemplate(s.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get template %s", id)
	}
	return &t, nil
}

func (s *Store) CreateTemplate(ctx context.Context, t *template.Template) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO templates (id, name, content, min_stars, max_stars, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Name, t.Content, t.MinStars, t.MaxStars, t.Active, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// --- Tone profiles ---

const toneColumns = `id, name, settings, is_default, created_at, updated_at`

func scanToneProfile(row scannable) (tone.Profile, error) {
	var (
		p        tone.Profile
		settings []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &settings, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &p.Settings); err != nil {
			return p, fmt.Errorf("unmarshal tone settings: %w", err)
		}
	}
	return p, nil
}

func (s *Store) ListToneProfiles(ctx context.Context) ([]tone.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+toneColumns+` FROM tone_profiles ORDER BY is_default DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list tone profiles: %w", err)
	}
	defer rows.Close()

	var out []tone.Profile
	for rows.Next() {
		p, err := scanToneProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tone profile: %w", err)
		}
		out = append(out, p)
	}
	return orEmpty(out), rows.Err()
}

func (s *Store) GetToneProfile(ctx context.Context, id string) (*tone.Profile, error) {
	p, err := scanToneProfile(s.pool.QueryRow(ctx, `SELECT `+toneColumns+` FROM tone_profiles WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get tone profile %s", id)
	}
	return &p, nil
}

// CreateToneProfile stores p. A second default profile is a conflict.
func (s *Store) CreateToneProfile(ctx context.Context, p *tone.Profile) error {
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("marshal tone settings: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO tone_profiles (id, name, settings, is_default, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, settings, p.IsDefault, p.CreatedAt, p.UpdatedAt)
	if uniqueViolation(err) {
		return fmt.Errorf("create tone profile: a default profile already exists: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create tone profile: %w", err)
	}
	return nil
}
