package favorites

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

// PostgresStore keeps favorites in the favorites table, one row per (owner, movie).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, owner string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT movie, added_at FROM favorites
		WHERE owner = $1
		ORDER BY added_at DESC, movie_id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var raw []byte
		var e Entry
		if err := rows.Scan(&raw, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Movie); err != nil {
			return nil, fmt.Errorf("decode favorite: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Add(ctx context.Context, owner string, movie tmdb.Movie) (bool, error) {
	raw, err := json.Marshal(movie)
	if err != nil {
		return false, fmt.Errorf("encode favorite: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (owner, movie_id, movie)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner, movie_id) DO NOTHING`, owner, movie.ID, raw)
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) Remove(ctx context.Context, owner string, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE owner = $1 AND movie_id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *PostgresStore) Contains(ctx context.Context, owner string, id int) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE owner = $1 AND movie_id = $2)`, owner, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return ok, nil
}
