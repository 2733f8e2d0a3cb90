package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Profile(ctx context.Context, id string) (Profile, error)
	UpdateProfile(ctx context.Context, id string, u Update) (Profile, error)
}

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Profile(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, first_name, last_name, role, phone, address, created_at
		FROM users
		WHERE id = $1 AND is_active`, id,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Role, &p.Phone, &p.Address, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (s *Postgres) UpdateProfile(ctx context.Context, id string, u Update) (Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET
			first_name = COALESCE($1, first_name),
			last_name = COALESCE($2, last_name),
			phone = COALESCE($3, phone),
			address = COALESCE($4, address)
		WHERE id = $5
		RETURNING id::text, first_name, last_name, role, phone, address, created_at`,
		u.FirstName, u.LastName, u.Phone, u.Address, id,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Role, &p.Phone, &p.Address, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}
