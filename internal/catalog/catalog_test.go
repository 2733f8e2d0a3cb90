package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestMechanicEntity(t *testing.T) {
	m := Mechanic{
		UserID: "m1", FirstName: "Moussa", LastName: "Ndiaye", City: "Dakar",
		Latitude: f64(14.7645), Longitude: f64(-17.366),
		Specialties: []string{"Freinage"}, Experience: 12, HourlyRate: i64(5000), Rating: 4.8, ReviewCount: 7,
	}
	e := m.Entity()
	assert.Equal(t, "Moussa Ndiaye", e.Name)
	assert.Equal(t, "Dakar", e.Label)
	require.NotNil(t, e.Coordinate)
	assert.Equal(t, 14.7645, e.Coordinate.Lat)
	assert.Equal(t, int64(5000), *e.Price)

	m.Longitude = nil
	assert.Nil(t, m.Entity().Coordinate)
}

func TestProductEntity(t *testing.T) {
	e := Product{ID: "p1", Name: "Filtre à huile premium", Brand: "Bosch", Category: "Filtres", Price: 7500}.Entity()
	assert.Equal(t, "Bosch", e.Label)
	assert.Equal(t, []string{"Filtres"}, e.Categories)
	assert.Equal(t, int64(7500), *e.Price)

	assert.Empty(t, Product{ID: "p2"}.Entity().Categories)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory([]Mechanic{{UserID: "m1", Rating: 4.5, ReviewCount: 2}}, nil)

	require.NoError(t, m.SaveMechanic(ctx, Mechanic{UserID: "m1", City: "Thiès"}))
	got, err := m.Mechanic(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Thiès", got.City)
	assert.Equal(t, 4.5, got.Rating)

	p, err := m.CreateProduct(ctx, Product{VendorID: "v1", Name: "Batterie 70Ah", Price: 45000})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	mine, err := m.VendorProducts(ctx, "v1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = m.Product(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.RecordRating(ctx, "missing", 5, 1), ErrNotFound)
}

func TestMemoryUpdateAndDeleteProduct(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil, []Product{
		{ID: "p1", VendorID: "v1", Name: "Plaquettes", Price: 18000, Stock: 4, Rating: 4.5, ReviewCount: 2},
		{ID: "p2", VendorID: "v1", Name: "Filtre", Price: 7500, Stock: 10},
	})

	got, err := m.UpdateProduct(ctx, Product{ID: "p1", VendorID: "other", Name: "Plaquettes avant", Price: 19500, Stock: 2})
	require.NoError(t, err)
	assert.Equal(t, "v1", got.VendorID)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, int64(19500), got.Price)

	_, err = m.UpdateProduct(ctx, Product{ID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.DeleteProduct(ctx, "p1"))
	assert.ErrorIs(t, m.DeleteProduct(ctx, "p1"), ErrNotFound)
	left, err := m.VendorProducts(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "p2", left[0].ID)
}
