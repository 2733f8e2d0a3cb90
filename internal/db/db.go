package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema exists.
func Init(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	Conn = pool
	zap.L().Info("connected to postgres")

	return EnsureSchema(ctx)
}

// Close releases the pool.
func Close() {
	if Conn != nil {
		Conn.Close()
	}
}

// Ping reports whether the database answers.
func Ping(ctx context.Context) error {
	if Conn == nil {
		return fmt.Errorf("database not initialised")
	}
	return Conn.Ping(ctx)
}

// EnsureSchema creates every table the API relies on. Each statement is
// idempotent so it runs on every boot.
func EnsureSchema(ctx context.Context) error {
	steps := []struct {
		name string
		sql  string
	}{
		{"extensions", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
		{"users", usersTable},
		{"users.is_active", `ALTER TABLE users ADD COLUMN IF NOT EXISTS is_active BOOLEAN NOT NULL DEFAULT TRUE`},
		{"mechanics", mechanicsTable},
		{"products", productsTable},
		{"requests", requestsTable},
		{"requests.cancelled_by", `ALTER TABLE requests ADD COLUMN IF NOT EXISTS cancelled_by TEXT NOT NULL DEFAULT ''`},
		{"requests indexes", `
			CREATE INDEX IF NOT EXISTS requests_owner_idx ON requests (owner_id, kind, created_at DESC);
			CREATE INDEX IF NOT EXISTS requests_target_idx ON requests (target_id, kind, created_at DESC)`},
		{"reviews", reviewsTable},
		{"transactions", transactionsTable},
		{"conversations", conversationsTable},
		{"messages", messagesTable},
		{"notifications", notificationsTable},
		{"password_resets", passwordResetsTable},
	}
	for _, s := range steps {
		if _, err := Conn.Exec(ctx, s.sql); err != nil {
			return fmt.Errorf("ensure %s: %w", s.name, err)
		}
	}
	zap.L().Info("schema ensured", zap.Int("steps", len(steps)))
	return nil
}

const usersTable = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'client' CHECK (role IN ('client', 'mechanic', 'vendor', 'admin')),
	phone TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const mechanicsTable = `
CREATE TABLE IF NOT EXISTS mechanics (
	user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	city TEXT NOT NULL DEFAULT '',
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	specialties TEXT[] NOT NULL DEFAULT '{}',
	experience INTEGER NOT NULL DEFAULT 0,
	hourly_rate BIGINT,
	description TEXT NOT NULL DEFAULT '',
	availability TEXT[] NOT NULL DEFAULT '{}',
	rating NUMERIC(3,2) NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const productsTable = `
CREATE TABLE IF NOT EXISTS products (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	vendor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price BIGINT NOT NULL CHECK (price >= 0),
	category TEXT NOT NULL,
	brand TEXT NOT NULL DEFAULT '',
	stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	rating NUMERIC(3,2) NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const requestsTable = `
CREATE TABLE IF NOT EXISTS requests (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL CHECK (kind IN ('reservation', 'order')),
	owner_id UUID NOT NULL,
	target_id UUID NOT NULL,
	status TEXT NOT NULL CHECK (status IN (
		'pending', 'confirmed', 'completed', 'processing', 'shipped', 'delivered', 'cancelled'
	)),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	items JSONB NOT NULL,
	total BIGINT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	reservation JSONB,
	order_details JSONB,
	cancel_reason TEXT NOT NULL DEFAULT '',
	cancelled_at TIMESTAMPTZ,
	cancelled_from TEXT NOT NULL DEFAULT '',
	cancelled_by TEXT NOT NULL DEFAULT ''
)`

const reviewsTable = `
CREATE TABLE IF NOT EXISTS reviews (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	request_id UUID NOT NULL UNIQUE,
	mechanic_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const transactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	method TEXT NOT NULL,
	amount BIGINT NOT NULL,
	reference TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'success',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const conversationsTable = `
CREATE TABLE IF NOT EXISTS conversations (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	mechanic_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (client_id, mechanic_id)
)`

const messagesTable = `
CREATE TABLE IF NOT EXISTS messages (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	read_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const notificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	reference TEXT,
	read_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const passwordResetsTable = `
CREATE TABLE IF NOT EXISTS password_resets (
	token_hash TEXT PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at TIMESTAMPTZ NOT NULL,
	used_at TIMESTAMPTZ
)`
