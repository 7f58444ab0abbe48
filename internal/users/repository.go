package users

import (
	"context"
	"database/sql"
	"errors"
)

// Repository is the storage contract for tenant accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Upsert(ctx context.Context, u User) (User, error)
	SetVerified(ctx context.Context, id string, verified bool) error
}

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (User, error) {
	const q = `
SELECT id, email, name, avatar, verified, google_refresh_token, created_at, updated_at
FROM users
WHERE id = $1
`
	return r.scanOne(ctx, q, id)
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT id, email, name, avatar, verified, google_refresh_token, created_at, updated_at
FROM users
WHERE email = $1
`
	return r.scanOne(ctx, q, email)
}

func (r *SQLRepository) Upsert(ctx context.Context, u User) (User, error) {
	const q = `
INSERT INTO users (id, email, name, avatar, verified, google_refresh_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (email) DO UPDATE
SET name = EXCLUDED.name,
    avatar = EXCLUDED.avatar,
    google_refresh_token = EXCLUDED.google_refresh_token,
    updated_at = EXCLUDED.updated_at
RETURNING id, email, name, avatar, verified, google_refresh_token, created_at, updated_at
`
	var out User
	err := r.db.QueryRowContext(ctx, q,
		u.ID, u.Email, u.Name, u.Avatar, u.Verified, u.GoogleRefreshToken, u.CreatedAt,
	).Scan(
		&out.ID, &out.Email, &out.Name, &out.Avatar, &out.Verified,
		&out.GoogleRefreshToken, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return out, nil
}

func (r *SQLRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	const q = `UPDATE users SET verified = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, verified)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) scanOne(ctx context.Context, q string, arg any) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.Avatar, &u.Verified,
		&u.GoogleRefreshToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
