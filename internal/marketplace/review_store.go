package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresReviews struct {
	pool *pgxpool.Pool
}

func NewPostgresReviews(pool *pgxpool.Pool) *PostgresReviews {
	return &PostgresReviews{pool: pool}
}

func (s *PostgresReviews) Create(ctx context.Context, r Review) (Review, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO reviews (request_id, mechanic_id, client_id, rating, comment)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id::text, created_at`,
		r.RequestID, r.MechanicID, r.ClientID, r.Rating, r.Comment,
	).Scan(&r.ID, &r.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Review{}, ErrDuplicateReview
	}
	if err != nil {
		return Review{}, fmt.Errorf("insert review: %w", err)
	}
	return r, nil
}

func (s *PostgresReviews) ForMechanic(ctx context.Context, mechanicID string, limit, offset int) ([]Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id::text, r.request_id::text, r.mechanic_id::text, r.client_id::text,
		        u.first_name || ' ' || u.last_name, r.rating, r.comment, r.created_at
		 FROM reviews r
		 JOIN users u ON u.id = r.client_id
		 WHERE r.mechanic_id = $1
		 ORDER BY r.created_at DESC
		 LIMIT $2 OFFSET $3`,
		mechanicID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Review])
}

func (s *PostgresReviews) Summary(ctx context.Context, mechanicID string) (RatingSummary, error) {
	sum := RatingSummary{MechanicID: mechanicID}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0)::float8 FROM reviews WHERE mechanic_id = $1`,
		mechanicID,
	).Scan(&sum.TotalReviews, &sum.AverageRating)
	if err != nil {
		return RatingSummary{}, fmt.Errorf("rating summary: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE mechanic_id = $1 GROUP BY rating`, mechanicID)
	if err != nil {
		return RatingSummary{}, fmt.Errorf("rating breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return RatingSummary{}, err
		}
		sum.add(rating, count)
	}
	return sum, rows.Err()
}

// MemoryReviews keeps reviews in process.
type MemoryReviews struct {
	mu      sync.Mutex
	reviews []Review
	now     func() time.Time
}

func NewMemoryReviews() *MemoryReviews {
	return &MemoryReviews{now: time.Now}
}

func (s *MemoryReviews) Create(_ context.Context, r Review) (Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reviews {
		if existing.RequestID == r.RequestID {
			return Review{}, ErrDuplicateReview
		}
	}
	r.ID = uuid.NewString()
	r.CreatedAt = s.now()
	s.reviews = append(s.reviews, r)
	return r, nil
}

func (s *MemoryReviews) ForMechanic(_ context.Context, mechanicID string, limit, offset int) ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Review{}
	for _, r := range s.reviews {
		if r.MechanicID == mechanicID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []Review{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryReviews) Summary(_ context.Context, mechanicID string) (RatingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := RatingSummary{MechanicID: mechanicID}
	total := 0
	for _, r := range s.reviews {
		if r.MechanicID != mechanicID {
			continue
		}
		sum.TotalReviews++
		total += r.Rating
		sum.add(r.Rating, 1)
	}
	if sum.TotalReviews > 0 {
		sum.AverageRating = float64(total) / float64(sum.TotalReviews)
	}
	return sum, nil
}
