package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mecanomotors/mecano/internal/session"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
	ErrTokenUsed  = errors.New("reset token already used or expired")
)

type Account struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists accounts and single-use password reset tokens. Emails are
// matched case-insensitively.
type Store interface {
	Create(ctx context.Context, a Account) (Account, error)
	ByEmail(ctx context.Context, email string) (Account, error)
	ByID(ctx context.Context, id string) (Account, error)
	SetPassword(ctx context.Context, id, hash string) error
	SetRole(ctx context.Context, email, role string) error
	SaveResetToken(ctx context.Context, tokenHash, userID string, expires time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const accountColumns = `id::text, first_name, last_name, email, password_hash, role, phone, address, is_active, created_at`

// Create inserts the user. Mechanics also get an empty profile row so they
// appear in the directory once they fill it in.
func (s *Postgres) Create(ctx context.Context, a Account) (Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Account{}, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, role, phone, address)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, $7)
		RETURNING `+accountColumns,
		a.FirstName, a.LastName, a.Email, a.PasswordHash, a.Role, a.Phone, a.Address,
	).Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash, &a.Role, &a.Phone, &a.Address, &a.IsActive, &a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Account{}, ErrEmailTaken
	}
	if err != nil {
		return Account{}, fmt.Errorf("insert user: %w", err)
	}

	if a.Role == session.RoleMechanic {
		if _, err := tx.Exec(ctx, `INSERT INTO mechanics (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, a.ID); err != nil {
			return Account{}, fmt.Errorf("create mechanic profile: %w", err)
		}
	}
	return a, tx.Commit(ctx)
}

func (s *Postgres) one(ctx context.Context, where string, arg any) (Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE `+where, arg).
		Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash, &a.Role, &a.Phone, &a.Address, &a.IsActive, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (s *Postgres) ByEmail(ctx context.Context, email string) (Account, error) {
	return s.one(ctx, `email = LOWER($1)`, strings.TrimSpace(email))
}

func (s *Postgres) ByID(ctx context.Context, id string) (Account, error) {
	return s.one(ctx, `id = $1`, id)
}

func (s *Postgres) SetPassword(ctx context.Context, id, hash string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) SetRole(ctx context.Context, email, role string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET role = $1 WHERE email = LOWER($2)`, role, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	if role == session.RoleMechanic {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO mechanics (user_id) SELECT id FROM users WHERE email = LOWER($1) ON CONFLICT DO NOTHING`,
			strings.TrimSpace(email))
	}
	return err
}

func (s *Postgres) SaveResetToken(ctx context.Context, tokenHash, userID string, expires time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		tokenHash, userID, expires)
	return err
}

func (s *Postgres) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var userID string
	err := s.pool.QueryRow(ctx,
		`UPDATE password_resets SET used_at = $2
		 WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		 RETURNING user_id::text`,
		tokenHash, now,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrTokenUsed
	}
	return userID, err
}
