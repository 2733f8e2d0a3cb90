package user

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/middleware"
	"github.com/mecanomotors/mecano/internal/session"
)

type Handler struct {
	store   Store
	catalog catalog.Store
}

func NewHandler(store Store, cat catalog.Store) *Handler {
	return &Handler{store: store, catalog: cat}
}

func (h *Handler) Register(pub, authed *echo.Group) {
	pub.GET("/users/:id/profile", h.GetPublicProfile)
	authed.PATCH("/users/profile", h.UpdateProfile)
	authed.PUT("/mechanic/profile", h.UpdateMechanicProfile, middleware.RequireRoles(session.RoleMechanic))
}

// GET /users/:id/profile
func (h *Handler) GetPublicProfile(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.store.Profile(ctx, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		zap.L().Error("load profile", zap.String("user_id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}
	p.Phone, p.Address = "", ""

	if p.Role == session.RoleMechanic {
		m, err := h.catalog.Mechanic(ctx, p.ID)
		switch {
		case err == nil:
			p.Mechanic = &m
		case !errors.Is(err, catalog.ErrNotFound):
			zap.L().Warn("load mechanic profile", zap.String("user_id", p.ID), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, p)
}
