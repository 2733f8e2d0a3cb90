package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/mecanomotors/mecano/internal/auth"
	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/db"
	"github.com/mecanomotors/mecano/internal/session"
)

type Seed struct {
	Users    []SeedUser    `yaml:"users"`
	Products []SeedProduct `yaml:"products"`
}

type SeedUser struct {
	FirstName string        `yaml:"first_name"`
	LastName  string        `yaml:"last_name"`
	Email     string        `yaml:"email"`
	Password  string        `yaml:"password"`
	Role      string        `yaml:"role"`
	Phone     string        `yaml:"phone"`
	Address   string        `yaml:"address"`
	Mechanic  *SeedMechanic `yaml:"mechanic"`
}

type SeedMechanic struct {
	City         string   `yaml:"city"`
	Latitude     *float64 `yaml:"latitude"`
	Longitude    *float64 `yaml:"longitude"`
	Specialties  []string `yaml:"specialties"`
	Experience   int      `yaml:"experience"`
	HourlyRate   *int64   `yaml:"hourly_rate"`
	Description  string   `yaml:"description"`
	Availability []string `yaml:"availability"`
}

type SeedProduct struct {
	Vendor      string `yaml:"vendor"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       int64  `yaml:"price"`
	Category    string `yaml:"category"`
	Brand       string `yaml:"brand"`
	Stock       int    `yaml:"stock"`
}

// parseSeed decodes and checks a seed file. Products must name a vendor
// declared in the same file.
func parseSeed(r io.Reader) (Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}

	vendors := map[string]bool{}
	for i := range s.Users {
		u := &s.Users[i]
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		if u.Email == "" || u.FirstName == "" {
			return Seed{}, fmt.Errorf("user %d: email and first_name are required", i+1)
		}
		role := session.RoleClient
		if u.Role != "" {
			r, ok := session.NormalizeRole(u.Role)
			if !ok {
				return Seed{}, fmt.Errorf("user %s: unknown role %q", u.Email, u.Role)
			}
			role = r
		}
		u.Role = role
		if u.Mechanic != nil && role != session.RoleMechanic {
			return Seed{}, fmt.Errorf("user %s: mechanic profile on a %s account", u.Email, role)
		}
		if role == session.RoleVendor {
			vendors[u.Email] = true
		}
	}
	for i := range s.Products {
		p := &s.Products[i]
		p.Vendor = strings.ToLower(strings.TrimSpace(p.Vendor))
		if !vendors[p.Vendor] {
			return Seed{}, fmt.Errorf("product %q: vendor %q is not a seeded vendor", p.Name, p.Vendor)
		}
		if p.Name == "" || p.Category == "" || p.Price < 0 || p.Stock < 0 {
			return Seed{}, fmt.Errorf("product %d: name, category and non-negative price and stock are required", i+1)
		}
	}
	return s, nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	if seedFile == "" {
		seedFile = cfg.CatalogFile
	}
	f, err := os.Open(seedFile)
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := parseSeed(f)
	if err != nil {
		return err
	}
	created, err := applySeed(cmd.Context(), s, auth.NewPostgres(db.Conn), catalog.NewPostgres(db.Conn), seedPassword)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d users and %d products from %s.\n", created.users, created.products, seedFile)
	return nil
}

type seedCounts struct {
	users, products int
}

// applySeed creates what is missing. Existing accounts are reused so a seed
// file can be applied more than once.
func applySeed(ctx context.Context, s Seed, accounts auth.Store, cat catalog.Store, defaultPassword string) (seedCounts, error) {
	var n seedCounts
	ids := map[string]string{}
	for _, u := range s.Users {
		pw := u.Password
		if pw == "" {
			pw = defaultPassword
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			return n, err
		}
		acct, err := accounts.Create(ctx, auth.Account{
			FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
			PasswordHash: string(hashed), Role: u.Role, Phone: u.Phone, Address: u.Address, IsActive: true,
		})
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			if acct, err = accounts.ByEmail(ctx, u.Email); err != nil {
				return n, fmt.Errorf("load %s: %w", u.Email, err)
			}
			zap.L().Info("seed user exists", zap.String("email", u.Email))
		case err != nil:
			return n, fmt.Errorf("create %s: %w", u.Email, err)
		default:
			n.users++
		}
		ids[u.Email] = acct.ID

		if m := u.Mechanic; m != nil {
			err := cat.SaveMechanic(ctx, catalog.Mechanic{
				UserID: acct.ID, FirstName: u.FirstName, LastName: u.LastName,
				Phone: u.Phone, Address: u.Address, City: m.City,
				Latitude: m.Latitude, Longitude: m.Longitude,
				Specialties: m.Specialties, Experience: m.Experience, HourlyRate: m.HourlyRate,
				Description: m.Description, Availability: m.Availability,
			})
			if err != nil {
				return n, fmt.Errorf("mechanic profile %s: %w", u.Email, err)
			}
		}
	}

	for _, p := range s.Products {
		_, err := cat.CreateProduct(ctx, catalog.Product{
			VendorID: ids[p.Vendor], Name: p.Name, Description: p.Description,
			Price: p.Price, Category: p.Category, Brand: p.Brand, Stock: p.Stock,
		})
		if err != nil {
			return n, fmt.Errorf("product %q: %w", p.Name, err)
		}
		n.products++
	}
	return n, nil
}
