// Package catalog supplies the mechanics and products that the directory
// ranks and that carts and checkouts price.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/mecanomotors/mecano/internal/directory"
)

var ErrNotFound = errors.New("catalog entry not found")

type Mechanic struct {
	UserID       string   `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Phone        string   `json:"phone"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Specialties  []string `json:"specialties"`
	Experience   int      `json:"experience"`
	HourlyRate   *int64   `json:"hourly_rate,omitempty"`
	Description  string   `json:"description"`
	Availability []string `json:"availability"`
	Rating       float64  `json:"rating"`
	ReviewCount  int      `json:"review_count"`
}

func (m Mechanic) Name() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Entity maps a mechanic onto a directory listing. A coordinate is set only
// when both latitude and longitude are known.
func (m Mechanic) Entity() directory.Entity {
	e := directory.Entity{
		ID:          m.UserID,
		Name:        m.Name(),
		Label:       m.City,
		Categories:  m.Specialties,
		Rating:      m.Rating,
		ReviewCount: m.ReviewCount,
		Price:       m.HourlyRate,
		Experience:  m.Experience,
		Description: m.Description,
	}
	if m.Latitude != nil && m.Longitude != nil {
		e.Coordinate = &directory.Coordinate{Lat: *m.Latitude, Lon: *m.Longitude}
	}
	return e
}

type Product struct {
	ID          string  `json:"id"`
	VendorID    string  `json:"vendor_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       int64   `json:"price"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

func (p Product) Entity() directory.Entity {
	price := p.Price
	e := directory.Entity{
		ID:          p.ID,
		Name:        p.Name,
		Label:       p.Brand,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		Price:       &price,
		Description: p.Description,
	}
	if p.Category != "" {
		e.Categories = []string{p.Category}
	}
	return e
}

// Source is the read side of the catalog.
type Source interface {
	Mechanics(ctx context.Context) ([]Mechanic, error)
	Mechanic(ctx context.Context, id string) (Mechanic, error)
	Products(ctx context.Context) ([]Product, error)
	Product(ctx context.Context, id string) (Product, error)
}

// Store adds the write side used by profile and vendor handlers.
type Store interface {
	Source
	SaveMechanic(ctx context.Context, m Mechanic) error
	CreateProduct(ctx context.Context, p Product) (Product, error)
	// UpdateProduct replaces the editable fields of p.ID. Vendor and rating
	// are kept.
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id string) error
	VendorProducts(ctx context.Context, vendorID string) ([]Product, error)
	RecordRating(ctx context.Context, mechanicID string, rating float64, count int) error
}

// MechanicEntities converts mechanics for ranking and indexes them by id.
func MechanicEntities(ms []Mechanic) ([]directory.Entity, map[string]Mechanic) {
	entities := make([]directory.Entity, 0, len(ms))
	byID := make(map[string]Mechanic, len(ms))
	for _, m := range ms {
		entities = append(entities, m.Entity())
		byID[m.UserID] = m
	}
	return entities, byID
}

// ProductEntities converts products for ranking and indexes them by id.
func ProductEntities(ps []Product) ([]directory.Entity, map[string]Product) {
	entities := make([]directory.Entity, 0, len(ps))
	byID := make(map[string]Product, len(ps))
	for _, p := range ps {
		entities = append(entities, p.Entity())
		byID[p.ID] = p
	}
	return entities, byID
}
