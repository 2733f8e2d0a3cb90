// Package user serves public profiles and lets users and mechanics edit
// their own.
package user

import (
	"errors"
	"time"

	"github.com/mecanomotors/mecano/internal/catalog"
)

var ErrNotFound = errors.New("user not found")

// Profile is the public view of a user. Email and account state stay private.
type Profile struct {
	ID        string            `json:"id"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Role      string            `json:"role"`
	Phone     string            `json:"phone,omitempty"`
	Address   string            `json:"address,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Mechanic  *catalog.Mechanic `json:"mechanic,omitempty"`
}

// Update carries the optional fields of PATCH /users/profile. Nil leaves the
// stored value unchanged.
type Update struct {
	FirstName *string `json:"first_name" validate:"omitnil,min=1,max=80"`
	LastName  *string `json:"last_name" validate:"omitnil,min=1,max=80"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
}

func (u Update) empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Phone == nil && u.Address == nil
}

// MechanicProfileRequest is the full mechanic profile a mechanic submits.
type MechanicProfileRequest struct {
	Phone        string   `json:"phone" validate:"required"`
	Address      string   `json:"address" validate:"required,min=10"`
	City         string   `json:"city" validate:"required"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Specialties  []string `json:"specialties" validate:"required,min=1,dive,required"`
	Experience   int      `json:"experience" validate:"gte=0,lte=50"`
	Description  string   `json:"description" validate:"required,min=20"`
	HourlyRate   int64    `json:"hourly_rate" validate:"gte=1000,lte=50000"`
	Availability []string `json:"availability" validate:"required,min=1,dive,required"`
}
