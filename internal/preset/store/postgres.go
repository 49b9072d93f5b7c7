package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/eklundh/kontoutdrag/internal/mapping"
	"github.com/eklundh/kontoutdrag/internal/preset"
)

// Postgres keeps presets in a single table:
//
//	CREATE TABLE presets (
//	    name       TEXT PRIMARY KEY,
//	    mapping    JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Get(ctx context.Context, name string) (mapping.Mapping, error) {
	query := `SELECT mapping FROM presets WHERE name = $1`

	var raw []byte

	err := s.db.QueryRowContext(ctx, query, name).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return mapping.Mapping{}, fmt.Errorf("%q: %w", name, preset.ErrNotFound)
		}

		return mapping.Mapping{}, fmt.Errorf("getting preset: %w", err)
	}

	var m mapping.Mapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return mapping.Mapping{}, fmt.Errorf("decoding preset %q: %w", name, err)
	}

	return m, nil
}

func (s *Postgres) Put(ctx context.Context, name string, m mapping.Mapping) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding preset: %w", err)
	}

	query := `
		INSERT INTO presets (name, mapping, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET mapping = EXCLUDED.mapping, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, name, raw); err != nil {
		return fmt.Errorf("saving preset: %w", err)
	}

	return nil
}

func (s *Postgres) List(ctx context.Context) ([]preset.Summary, error) {
	query := `SELECT name, updated_at FROM presets ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	defer rows.Close()

	var summaries []preset.Summary

	for rows.Next() {
		var sum preset.Summary
		if err := rows.Scan(&sum.Name, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning preset: %w", err)
		}

		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}
