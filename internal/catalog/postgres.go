package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const mechanicSelect = `
	SELECT u.id::text, u.first_name, u.last_name, u.phone, u.address,
	       m.city, m.latitude, m.longitude, m.specialties, m.experience, m.hourly_rate,
	       m.description, m.availability, m.rating::float8, m.review_count
	FROM mechanics m
	JOIN users u ON u.id = m.user_id
	WHERE u.is_active = TRUE`

const productSelect = `
	SELECT id::text, vendor_id::text, name, description, price, category, brand, stock,
	       rating::float8, review_count
	FROM products`

func scanMechanic(row pgx.Row) (Mechanic, error) {
	var m Mechanic
	err := row.Scan(&m.UserID, &m.FirstName, &m.LastName, &m.Phone, &m.Address,
		&m.City, &m.Latitude, &m.Longitude, &m.Specialties, &m.Experience, &m.HourlyRate,
		&m.Description, &m.Availability, &m.Rating, &m.ReviewCount)
	return m, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Brand, &p.Stock,
		&p.Rating, &p.ReviewCount)
	return p, err
}

func (s *Postgres) Mechanics(ctx context.Context) ([]Mechanic, error) {
	rows, err := s.pool.Query(ctx, mechanicSelect+` ORDER BY u.created_at`)
	if err != nil {
		return nil, fmt.Errorf("query mechanics: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (Mechanic, error) { return scanMechanic(r) })
}

func (s *Postgres) Mechanic(ctx context.Context, id string) (Mechanic, error) {
	m, err := scanMechanic(s.pool.QueryRow(ctx, mechanicSelect+` AND u.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Mechanic{}, ErrNotFound
	}
	return m, err
}

func (s *Postgres) Products(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, productSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (Product, error) { return scanProduct(r) })
}

func (s *Postgres) Product(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, productSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (s *Postgres) VendorProducts(ctx context.Context, vendorID string) ([]Product, error) {
	rows, err := s.pool.Query(ctx, productSelect+` WHERE vendor_id = $1 ORDER BY created_at DESC`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("query vendor products: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (Product, error) { return scanProduct(r) })
}

// SaveMechanic upserts the profile row and the contact fields kept on users.
// Rating aggregates are left untouched.
func (s *Postgres) SaveMechanic(ctx context.Context, m Mechanic) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE users SET phone = $1, address = $2 WHERE id = $3`,
		m.Phone, m.Address, m.UserID); err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO mechanics (user_id, city, latitude, longitude, specialties, experience,
			hourly_rate, description, availability, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			city = EXCLUDED.city,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			specialties = EXCLUDED.specialties,
			experience = EXCLUDED.experience,
			hourly_rate = EXCLUDED.hourly_rate,
			description = EXCLUDED.description,
			availability = EXCLUDED.availability,
			updated_at = NOW()`,
		m.UserID, m.City, m.Latitude, m.Longitude, nonNil(m.Specialties), m.Experience,
		m.HourlyRate, m.Description, nonNil(m.Availability))
	if err != nil {
		return fmt.Errorf("upsert mechanic: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Postgres) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (vendor_id, name, description, price, category, brand, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text`,
		p.VendorID, p.Name, p.Description, p.Price, p.Category, p.Brand, p.Stock,
	).Scan(&p.ID)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *Postgres) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	updated, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, brand = $6, stock = $7
		WHERE id = $1
		RETURNING id::text, vendor_id::text, name, description, price, category, brand, stock,
		          rating::float8, review_count`,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.Brand, p.Stock))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("update product %s: %w", p.ID, err)
	}
	return updated, nil
}

func (s *Postgres) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) RecordRating(ctx context.Context, mechanicID string, rating float64, count int) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE mechanics SET rating = $1, review_count = $2, updated_at = NOW() WHERE user_id = $3`,
		rating, count, mechanicID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
