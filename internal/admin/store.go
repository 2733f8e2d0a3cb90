// Package admin exposes platform statistics and user moderation to admins.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mecanomotors/mecano/internal/session"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Counts are the figures kept in the relational store. Request counts come
// from the tracker so they follow whichever request store is configured.
type Counts struct {
	UsersByRole map[string]int `json:"users_by_role"`
	Mechanics   int            `json:"mechanics"`
	Products    int            `json:"products"`
	Revenue     int64          `json:"revenue"`
}

type Store interface {
	Counts(ctx context.Context) (Counts, error)
	Users(ctx context.Context, role string, limit, offset int) ([]User, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetRole(ctx context.Context, id, role string) error
}

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Counts(ctx context.Context) (Counts, error) {
	out := Counts{UsersByRole: map[string]int{}}
	rows, err := s.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return Counts{}, err
	}
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			rows.Close()
			return Counts{}, err
		}
		out.UsersByRole[role] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Counts{}, err
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM mechanics),
			(SELECT COUNT(*) FROM products),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE status = 'success')`,
	).Scan(&out.Mechanics, &out.Products, &out.Revenue)
	return out, err
}

func (s *Postgres) Users(ctx context.Context, role string, limit, offset int) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, first_name, last_name, email, role, is_active, created_at
		FROM users
		WHERE $1 = '' OR role = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, role, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[User])
}

func (s *Postgres) SetActive(ctx context.Context, id string, active bool) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) SetRole(ctx context.Context, id, role string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	if role == session.RoleMechanic {
		_, err = s.pool.Exec(ctx, `INSERT INTO mechanics (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, id)
	}
	return err
}
