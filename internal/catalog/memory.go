package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process catalog, seeded directly. Used by tests and the
// demo store mode.
type Memory struct {
	mu        sync.RWMutex
	mechanics []Mechanic
	products  []Product
}

func NewMemory(mechanics []Mechanic, products []Product) *Memory {
	return &Memory{
		mechanics: append([]Mechanic(nil), mechanics...),
		products:  append([]Product(nil), products...),
	}
}

func (m *Memory) Mechanics(context.Context) ([]Mechanic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Mechanic(nil), m.mechanics...), nil
}

func (m *Memory) Mechanic(_ context.Context, id string) (Mechanic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mech := range m.mechanics {
		if mech.UserID == id {
			return mech, nil
		}
	}
	return Mechanic{}, ErrNotFound
}

func (m *Memory) Products(context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Product(nil), m.products...), nil
}

func (m *Memory) Product(_ context.Context, id string) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (m *Memory) SaveMechanic(_ context.Context, mech Mechanic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.mechanics {
		if m.mechanics[i].UserID == mech.UserID {
			mech.Rating, mech.ReviewCount = m.mechanics[i].Rating, m.mechanics[i].ReviewCount
			m.mechanics[i] = mech
			return nil
		}
	}
	m.mechanics = append(m.mechanics, mech)
	return nil
}

func (m *Memory) CreateProduct(_ context.Context, p Product) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.products = append(m.products, p)
	return p, nil
}

func (m *Memory) UpdateProduct(_ context.Context, p Product) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == p.ID {
			cur := &m.products[i]
			cur.Name, cur.Description, cur.Price = p.Name, p.Description, p.Price
			cur.Category, cur.Brand, cur.Stock = p.Category, p.Brand, p.Stock
			return *cur, nil
		}
	}
	return Product{}, ErrNotFound
}

func (m *Memory) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) VendorProducts(_ context.Context, vendorID string) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Product{}
	for _, p := range m.products {
		if p.VendorID == vendorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) RecordRating(_ context.Context, mechanicID string, rating float64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.mechanics {
		if m.mechanics[i].UserID == mechanicID {
			m.mechanics[i].Rating = rating
			m.mechanics[i].ReviewCount = count
			return nil
		}
	}
	return ErrNotFound
}
