package user

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/session"
	"github.com/mecanomotors/mecano/internal/validation"
)

// PATCH /users/profile
func (h *Handler) UpdateProfile(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}

	var req Update
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": validation.Fields(err)})
	}
	if req.empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	p, err := h.store.UpdateProfile(c.Request().Context(), me.UserID, req)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		zap.L().Error("update profile", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}
	return c.JSON(http.StatusOK, p)
}

// PUT /mechanic/profile
func (h *Handler) UpdateMechanicProfile(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}

	var req MechanicProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": validation.Fields(err)})
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "latitude and longitude go together"})
	}

	ctx := c.Request().Context()
	acct, err := h.store.Profile(ctx, me.UserID)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	rate := req.HourlyRate
	m := catalog.Mechanic{
		UserID:       me.UserID,
		FirstName:    acct.FirstName,
		LastName:     acct.LastName,
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		City:         strings.TrimSpace(req.City),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Specialties:  req.Specialties,
		Experience:   req.Experience,
		HourlyRate:   &rate,
		Description:  strings.TrimSpace(req.Description),
		Availability: req.Availability,
	}
	if err := h.catalog.SaveMechanic(ctx, m); err != nil {
		zap.L().Error("save mechanic profile", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	saved, err := h.catalog.Mechanic(ctx, me.UserID)
	if err != nil {
		saved = m
	}
	zap.L().Info("mechanic profile saved", zap.String("user_id", me.UserID), zap.String("city", m.City))
	return c.JSON(http.StatusOK, saved)
}
