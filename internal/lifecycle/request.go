// Package lifecycle models reservations and orders as requests moving along a
// fixed per-kind status path.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/mecanomotors/mecano/internal/validation"
)

const (
	ModeImmediate   = "immediate"
	ModeAppointment = "appointment"

	deliveryWindow = 7 * 24 * time.Hour
)

type LineItem struct {
	RefID     string `json:"ref_id,omitempty"`
	Label     string `json:"label" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
}

type Vehicle struct {
	Make  string `json:"make" validate:"required"`
	Model string `json:"model" validate:"required"`
	Year  int    `json:"year" validate:"vehicle_year"`
	Plate string `json:"plate" validate:"required"`
}

type ReservationDetails struct {
	Service           string  `json:"service" validate:"required"`
	Date              string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time              string  `json:"time" validate:"required,datetime=15:04"`
	Mode              string  `json:"mode" validate:"oneof=immediate appointment"`
	Vehicle           Vehicle `json:"vehicle"`
	EstimatedDuration int     `json:"estimated_duration" validate:"gte=30,lte=480"`
}

type OrderDetails struct {
	ShippingAddress   string    `json:"shipping_address" validate:"required,min=10"`
	PaymentMethod     string    `json:"payment_method" validate:"required"`
	TransactionID     string    `json:"transaction_id" validate:"required"`
	TrackingNumber    string    `json:"tracking_number"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

// Details is the client input that creates a request.
type Details struct {
	Kind        Kind                `json:"kind" validate:"required,oneof=reservation order"`
	OwnerID     string              `json:"owner_id" validate:"required"`
	TargetID    string              `json:"target_id" validate:"required"`
	Items       []LineItem          `json:"items" validate:"required,min=1,dive"`
	Notes       string              `json:"notes" validate:"max=1000"`
	Reservation *ReservationDetails `json:"reservation,omitempty" validate:"-"`
	Order       *OrderDetails       `json:"order,omitempty" validate:"-"`
}

type Request struct {
	ID            string              `json:"id"`
	Kind          Kind                `json:"kind"`
	OwnerID       string              `json:"owner_id"`
	TargetID      string              `json:"target_id"`
	Status        Status              `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []LineItem          `json:"items"`
	Total         int64               `json:"total"`
	Notes         string              `json:"notes,omitempty"`
	Reservation   *ReservationDetails `json:"reservation,omitempty"`
	Order         *OrderDetails       `json:"order,omitempty"`
	CancelReason  string              `json:"cancel_reason,omitempty"`
	CancelledBy   string              `json:"cancelled_by,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CancelledFrom Status              `json:"cancelled_from,omitempty"`
}

// TimelineStep is one reached status of a request.
type TimelineStep struct {
	Status    Status    `json:"status"`
	Label     string    `json:"label"`
	Completed bool      `json:"completed"`
	At        time.Time `json:"at"`
}

// Validate checks d and returns a *ValidationError listing every bad field.
func (d Details) Validate() error {
	fields := map[string]string{}
	merge := func(prefix string, err error) {
		for k, v := range validation.Fields(err) {
			fields[prefix+k] = v
		}
	}

	merge("", validation.Struct(d))
	switch d.Kind {
	case KindReservation:
		if d.Reservation == nil {
			fields["reservation"] = "required"
		} else {
			merge("reservation.", validation.Struct(d.Reservation))
		}
	case KindOrder:
		if d.Order == nil {
			fields["order"] = "required"
		} else {
			merge("order.", validation.Struct(d.Order))
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// New builds a pending request from d. Nothing is persisted.
func New(d Details, id string, now time.Time) (Request, error) {
	if d.Reservation != nil && d.Reservation.Mode == "" {
		rd := *d.Reservation
		rd.Mode = ModeAppointment
		d.Reservation = &rd
	}
	if err := d.Validate(); err != nil {
		return Request{}, err
	}

	r := Request{
		ID:        id,
		Kind:      d.Kind,
		OwnerID:   d.OwnerID,
		TargetID:  d.TargetID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Items:     append([]LineItem(nil), d.Items...),
		Total:     Total(d.Items),
		Notes:     strings.TrimSpace(d.Notes),
	}
	switch d.Kind {
	case KindReservation:
		rd := *d.Reservation
		r.Reservation = &rd
	case KindOrder:
		od := *d.Order
		od.TrackingNumber = fmt.Sprintf("MM%d", now.UnixMilli())
		od.EstimatedDelivery = now.Add(deliveryWindow)
		r.Order = &od
	}
	return r, nil
}

// Total sums quantity times unit price over items.
func Total(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += int64(it.Quantity) * it.UnitPrice
	}
	return total
}

// Cancel moves r to cancelled if its current status allows it.
func Cancel(r Request, reason string, now time.Time) (Request, error) {
	if !CanCancel(r.Kind, r.Status) {
		return r, transitionError("cancel", r.Kind, r.Status)
	}
	r.CancelledFrom = r.Status
	r.Status = StatusCancelled
	r.CancelReason = strings.TrimSpace(reason)
	r.CancelledAt = &now
	r.UpdatedAt = now
	return r, nil
}

// Advance moves r to the next status of its kind.
func Advance(r Request, now time.Time) (Request, error) {
	next, ok := Next(r.Kind, r.Status)
	if !ok {
		return r, transitionError("advance", r.Kind, r.Status)
	}
	r.Status = next
	r.UpdatedAt = now
	return r, nil
}

// Timeline walks the status path of r up to its current status, or up to the
// status it was cancelled from. Only the creation time is tracked, so every
// step carries CreatedAt.
func Timeline(r Request) []TimelineStep {
	reached := r.Status
	if reached == StatusCancelled {
		reached = r.CancelledFrom
	}
	seq := sequences[r.Kind]
	if position(r.Kind, reached) < 0 && len(seq) > 0 {
		reached = seq[0]
	}

	var steps []TimelineStep
	for _, s := range seq {
		steps = append(steps, TimelineStep{
			Status:    s,
			Label:     stepLabels[r.Kind][s],
			Completed: true,
			At:        r.CreatedAt,
		})
		if s == reached {
			break
		}
	}
	return steps
}
