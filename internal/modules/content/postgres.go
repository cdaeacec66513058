package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectSQL = `SELECT id, key, section, value, created_at, updated_at FROM site_content`

func (r *postgresRepo) List(ctx context.Context, section string) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectSQL+`
		WHERE ($1 = '' OR section = $1)
		ORDER BY section, key`, section)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *postgresRepo) GetByKey(ctx context.Context, key string) (*Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, selectSQL+` WHERE key = $1`, key))
	if err != nil {
		return nil, database.MapError(err, "content")
	}
	return e, nil
}

func (r *postgresRepo) Update(ctx context.Context, id uuid.UUID, value json.RawMessage) (*Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `
		UPDATE site_content SET value = $1, updated_at = $2 WHERE id = $3
		RETURNING id, key, section, value, created_at, updated_at`,
		[]byte(value), time.Now().UTC(), id))
	if err != nil {
		return nil, database.MapError(err, "content")
	}
	return e, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanEntry(s scanner) (*Entry, error) {
	var (
		e   Entry
		raw []byte
	)
	if err := s.Scan(&e.ID, &e.Key, &e.Section, &raw, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Value = json.RawMessage(raw)
	return &e, nil
}
