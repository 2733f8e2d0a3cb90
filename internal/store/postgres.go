package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mecanomotors/mecano/internal/lifecycle"
)

// Postgres stores requests in the requests table created by db.Init.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const requestColumns = `id::text, kind, owner_id::text, target_id::text, status, created_at, updated_at,
	items, total, notes, reservation, order_details, cancel_reason, cancelled_at, cancelled_from, cancelled_by`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Postgres) Save(ctx context.Context, r lifecycle.Request) error {
	return saveRequest(ctx, s.pool, r)
}

// SaveAll stores the requests in a single transaction.
func (s *Postgres) SaveAll(ctx context.Context, rs []lifecycle.Request) error {
	if len(rs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range rs {
		if err := saveRequest(ctx, tx, r); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func saveRequest(ctx context.Context, db execer, r lifecycle.Request) error {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	reservation, err := marshalOptional(r.Reservation)
	if err != nil {
		return err
	}
	order, err := marshalOptional(r.Order)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, `
		INSERT INTO requests (id, kind, owner_id, target_id, status, created_at, updated_at,
			items, total, notes, reservation, order_details, cancel_reason, cancelled_at, cancelled_from,
			cancelled_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			cancel_reason = EXCLUDED.cancel_reason,
			cancelled_at = EXCLUDED.cancelled_at,
			cancelled_from = EXCLUDED.cancelled_from,
			cancelled_by = EXCLUDED.cancelled_by`,
		r.ID, string(r.Kind), r.OwnerID, r.TargetID, string(r.Status), r.CreatedAt, r.UpdatedAt,
		items, r.Total, r.Notes, reservation, order, r.CancelReason, r.CancelledAt, string(r.CancelledFrom),
		r.CancelledBy,
	)
	if err != nil {
		return fmt.Errorf("save request %s: %w", r.ID, err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (lifecycle.Request, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	r, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return lifecycle.Request{}, lifecycle.ErrNotFound
	}
	return r, err
}

func (s *Postgres) FindByOwner(ctx context.Context, ownerID string, kind lifecycle.Kind) ([]lifecycle.Request, error) {
	return s.query(ctx, `SELECT `+requestColumns+` FROM requests
		WHERE owner_id = $1 AND kind = $2 ORDER BY created_at DESC`, ownerID, string(kind))
}

func (s *Postgres) FindByTarget(ctx context.Context, targetID string, kind lifecycle.Kind) ([]lifecycle.Request, error) {
	return s.query(ctx, `SELECT `+requestColumns+` FROM requests
		WHERE target_id = $1 AND kind = $2 ORDER BY created_at DESC`, targetID, string(kind))
}

func (s *Postgres) List(ctx context.Context, kind lifecycle.Kind) ([]lifecycle.Request, error) {
	return s.query(ctx, `SELECT `+requestColumns+` FROM requests
		WHERE kind = $1 ORDER BY created_at DESC`, string(kind))
}

func (s *Postgres) query(ctx context.Context, sql string, args ...any) ([]lifecycle.Request, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	out := []lifecycle.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row) (lifecycle.Request, error) {
	var (
		r                           lifecycle.Request
		kind, status, cancelledFrom string
		items, reservation, order   []byte
		cancelledAt                 *time.Time
	)
	err := row.Scan(&r.ID, &kind, &r.OwnerID, &r.TargetID, &status, &r.CreatedAt, &r.UpdatedAt,
		&items, &r.Total, &r.Notes, &reservation, &order, &r.CancelReason, &cancelledAt, &cancelledFrom, &r.CancelledBy)
	if err != nil {
		return lifecycle.Request{}, err
	}
	r.Kind = lifecycle.Kind(kind)
	r.Status = lifecycle.Status(status)
	r.CancelledFrom = lifecycle.Status(cancelledFrom)
	r.CancelledAt = cancelledAt

	if err := json.Unmarshal(items, &r.Items); err != nil {
		return lifecycle.Request{}, fmt.Errorf("decode items of %s: %w", r.ID, err)
	}
	if len(reservation) > 0 {
		r.Reservation = &lifecycle.ReservationDetails{}
		if err := json.Unmarshal(reservation, r.Reservation); err != nil {
			return lifecycle.Request{}, fmt.Errorf("decode reservation %s: %w", r.ID, err)
		}
	}
	if len(order) > 0 {
		r.Order = &lifecycle.OrderDetails{}
		if err := json.Unmarshal(order, r.Order); err != nil {
			return lifecycle.Request{}, fmt.Errorf("decode order %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func marshalOptional[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}
	return b, nil
}
