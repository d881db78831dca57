package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, provider, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.DisplayName, u.Provider, u.PasswordHash, u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.getOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getOne(ctx, `WHERE email = $1`, email)
}

func (s *PostgresUserStore) getOne(ctx context.Context, where string, arg any) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, provider, password_hash, created_at
		FROM users `+where, arg).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.Provider, &u.PasswordHash, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

func (s *PostgresSessionStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING`, jti, until)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return ok, nil
}

func (s *PostgresSessionStore) Purge(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
