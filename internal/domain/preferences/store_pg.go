package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsys/clinic/internal/platform/db"
)

type storePG struct{ pool *pgxpool.Pool }

// NewStore returns the table-backed store, scoped by the context owner.
func NewStore(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) Get(ctx context.Context, key string) (string, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return "", err
	}
	var value string
	err = s.pool.QueryRow(ctx,
		`SELECT value FROM preferences WHERE user_id = $1 AND key = $2`, owner, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("preference get %s: %w", key, err)
	}
	return value, nil
}

func (s *storePG) Set(ctx context.Context, key, value string) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO preferences (user_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		owner, key, value)
	if err != nil {
		return fmt.Errorf("preference set %s: %w", key, err)
	}
	return nil
}

func (s *storePG) All(ctx context.Context) (map[string]string, error) {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM preferences WHERE user_id = $1`, owner)
	if err != nil {
		return nil, fmt.Errorf("preference list: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
