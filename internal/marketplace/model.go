package marketplace

import (
	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/lifecycle"
)

// MechanicResult is a mechanic in a ranked listing.
type MechanicResult struct {
	catalog.Mechanic
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// RequestView is a reservation or order as shown to its participants.
type RequestView struct {
	lifecycle.Request
	Badge    string                   `json:"badge"`
	Timeline []lifecycle.TimelineStep `json:"timeline,omitempty"`
}

func view(r lifecycle.Request, withTimeline bool) RequestView {
	v := RequestView{Request: r, Badge: lifecycle.Badge(r.Status)}
	if withTimeline {
		v.Timeline = lifecycle.Timeline(r)
	}
	return v
}

func views(rs []lifecycle.Request) []RequestView {
	out := make([]RequestView, 0, len(rs))
	for _, r := range rs {
		out = append(out, view(r, false))
	}
	return out
}

// CreateReservationRequest is the booking form.
type CreateReservationRequest struct {
	MechanicID        string            `json:"mechanic_id"`
	Service           string            `json:"service"`
	Date              string            `json:"date"`
	Time              string            `json:"time"`
	Mode              string            `json:"mode"`
	Notes             string            `json:"notes"`
	Vehicle           lifecycle.Vehicle `json:"vehicle"`
	EstimatedDuration int               `json:"estimated_duration"`
}

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,min=10"`
	PaymentMethod   string `json:"payment_method" validate:"required,oneof=wave orange-money free-money card cash"`
	Phone           string `json:"phone"`
	Notes           string `json:"notes" validate:"max=1000"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description" validate:"required,min=10"`
	Price       int64  `json:"price" validate:"gte=0"`
	Category    string `json:"category" validate:"required"`
	Brand       string `json:"brand"`
	Stock       int    `json:"stock" validate:"gte=0"`
}
