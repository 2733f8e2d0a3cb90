package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mecanomotors/mecano/internal/auth"
	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/session"
)

const sample = `
users:
  - first_name: Moussa
    last_name: Diop
    email: Moussa@Example.com
    role: mechanic
    phone: "+221770001122"
    address: Avenue Blaise Diagne, Dakar
    mechanic:
      city: Dakar
      latitude: 14.6928
      longitude: -17.4467
      specialties: [Moteur, Freinage]
      experience: 12
      hourly_rate: 6000
      description: Spécialiste des moteurs diesel
      availability: [lundi, mardi]
  - first_name: Khady
    last_name: Sow
    email: pieces@example.com
    role: vendor
    password: vendeur-2024
products:
  - vendor: pieces@example.com
    name: Plaquettes de frein
    price: 18000
    category: Freinage
    brand: Brembo
    stock: 10
`

type accounts struct {
	mu   sync.Mutex
	byEm map[string]auth.Account
}

func (a *accounts) Create(_ context.Context, acct auth.Account) (auth.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byEm[acct.Email]; ok {
		return auth.Account{}, auth.ErrEmailTaken
	}
	acct.ID = fmt.Sprintf("user-%d", len(a.byEm)+1)
	a.byEm[acct.Email] = acct
	return acct, nil
}

func (a *accounts) ByEmail(_ context.Context, email string) (auth.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acct, ok := a.byEm[email]
	if !ok {
		return auth.Account{}, auth.ErrNotFound
	}
	return acct, nil
}

func (a *accounts) ByID(context.Context, string) (auth.Account, error) {
	return auth.Account{}, auth.ErrNotFound
}
func (a *accounts) SetPassword(context.Context, string, string) error { return nil }
func (a *accounts) SetRole(context.Context, string, string) error     { return nil }
func (a *accounts) SaveResetToken(context.Context, string, string, time.Time) error {
	return nil
}
func (a *accounts) ConsumeResetToken(context.Context, string, time.Time) (string, error) {
	return "", auth.ErrTokenUsed
}

func TestParseSeed(t *testing.T) {
	s, err := parseSeed(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, s.Users, 2)
	assert.Equal(t, "moussa@example.com", s.Users[0].Email)
	assert.Equal(t, session.RoleMechanic, s.Users[0].Role)
	require.NotNil(t, s.Users[0].Mechanic)
	assert.Equal(t, []string{"Moteur", "Freinage"}, s.Users[0].Mechanic.Specialties)
	require.Len(t, s.Products, 1)
}

func TestParseSeedRejects(t *testing.T) {
	cases := map[string]string{
		"unknown role":      "users:\n  - {first_name: A, email: a@example.com, role: fan}\n",
		"orphan product":    "products:\n  - {vendor: nobody@example.com, name: X, category: Y, price: 1}\n",
		"misplaced profile": "users:\n  - {first_name: A, email: a@example.com, mechanic: {city: Dakar}}\n",
		"unknown field":     "users:\n  - {first_name: A, email: a@example.com, nickname: Z}\n",
		"missing email":     "users:\n  - {first_name: A}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplySeedIsRepeatable(t *testing.T) {
	s, err := parseSeed(strings.NewReader(sample))
	require.NoError(t, err)
	accts := &accounts{byEm: map[string]auth.Account{}}
	cat := catalog.NewMemory(nil, nil)
	ctx := context.Background()

	n, err := applySeed(ctx, s, accts, cat, "mecano2024")
	require.NoError(t, err)
	assert.Equal(t, seedCounts{users: 2, products: 1}, n)

	mech, err := cat.Mechanic(ctx, accts.byEm["moussa@example.com"].ID)
	require.NoError(t, err)
	assert.Equal(t, "Dakar", mech.City)

	vendor := accts.byEm["pieces@example.com"]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(vendor.PasswordHash), []byte("vendeur-2024")))
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(accts.byEm["moussa@example.com"].PasswordHash), []byte("mecano2024")))

	products, err := cat.VendorProducts(ctx, vendor.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(18000), products[0].Price)

	n, err = applySeed(ctx, Seed{Users: s.Users}, accts, cat, "mecano2024")
	require.NoError(t, err)
	assert.Equal(t, 0, n.users)
}
