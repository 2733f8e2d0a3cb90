package marketplace

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/lifecycle"
	"github.com/mecanomotors/mecano/internal/session"
)

// Hourly rate applied when a mechanic has not published one.
const defaultHourlyRate int64 = 5000

// billedHours rounds a duration in minutes up to whole hours, at least one.
func billedHours(minutes int) int {
	h := (minutes + 59) / 60
	if h < 1 {
		return 1
	}
	return h
}

// reservationDetails prices a booking against the mechanic's hourly rate.
func reservationDetails(clientID string, m catalog.Mechanic, req CreateReservationRequest) lifecycle.Details {
	rate := defaultHourlyRate
	if m.HourlyRate != nil && *m.HourlyRate > 0 {
		rate = *m.HourlyRate
	}
	service := strings.TrimSpace(req.Service)
	return lifecycle.Details{
		Kind:     lifecycle.KindReservation,
		OwnerID:  clientID,
		TargetID: m.UserID,
		Items: []lifecycle.LineItem{{
			RefID:     m.UserID,
			Label:     service,
			Quantity:  billedHours(req.EstimatedDuration),
			UnitPrice: rate,
		}},
		Notes: req.Notes,
		Reservation: &lifecycle.ReservationDetails{
			Service:           service,
			Date:              req.Date,
			Time:              req.Time,
			Mode:              strings.ToLower(strings.TrimSpace(req.Mode)),
			Vehicle:           req.Vehicle,
			EstimatedDuration: req.EstimatedDuration,
		},
	}
}

// CreateReservation books a mechanic for the calling client.
func (h *Handler) CreateReservation(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if strings.TrimSpace(req.MechanicID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": echo.Map{"mechanic_id": "required"}})
	}
	if req.MechanicID == me.UserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot book yourself"})
	}

	ctx := c.Request().Context()
	m, err := h.catalog.Mechanic(ctx, req.MechanicID)
	if errors.Is(err, catalog.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "mechanic not found"})
	}
	if err != nil {
		zap.L().Error("load mechanic", zap.String("id", req.MechanicID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch mechanic"})
	}

	r, err := h.tracker.Create(ctx, reservationDetails(me.UserID, m, req))
	if err != nil {
		return requestError(c, "create reservation", err)
	}
	zap.L().Info("reservation created",
		zap.String("id", r.ID), zap.String("client_id", me.UserID), zap.String("mechanic_id", m.UserID))
	return c.JSON(http.StatusCreated, echo.Map{"reservation": view(r, true)})
}

func (h *Handler) ListReservations(c echo.Context) error {
	return h.list(c, lifecycle.KindReservation, "reservations", false)
}

// MechanicReservations lists the bookings addressed to the calling mechanic.
func (h *Handler) MechanicReservations(c echo.Context) error {
	return h.list(c, lifecycle.KindReservation, "reservations", true)
}

func (h *Handler) GetReservation(c echo.Context) error {
	return h.get(c, lifecycle.KindReservation)
}

func (h *Handler) CancelReservation(c echo.Context) error {
	return h.cancel(c, lifecycle.KindReservation)
}

func (h *Handler) AdvanceReservation(c echo.Context) error {
	return h.advance(c, lifecycle.KindReservation)
}
