package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/lifecycle"
	"github.com/mecanomotors/mecano/internal/middleware"
	"github.com/mecanomotors/mecano/internal/session"
)

type Handler struct {
	store   Store
	tracker *lifecycle.Tracker
}

func NewHandler(store Store, tracker *lifecycle.Tracker) *Handler {
	return &Handler{store: store, tracker: tracker}
}

// Register mounts the admin routes under g, which must already carry the JWT
// middleware.
func (h *Handler) Register(g *echo.Group) {
	g.Use(middleware.AdminGuard)
	g.GET("/stats", h.Stats)
	g.GET("/users", h.ListUsers)
	g.POST("/users/:id/suspend", h.SuspendUser)
	g.POST("/users/:id/activate", h.ActivateUser)
	g.POST("/users/:id/role", h.ChangeRole)
	g.GET("/requests", h.ListRequests)
}

// GET /admin/users?role=&limit=&offset=
func (h *Handler) ListUsers(c echo.Context) error {
	role := c.QueryParam("role")
	if role != "" {
		r, ok := session.NormalizeRole(role)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
		}
		role = r
	}
	limit, offset := 50, 0
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		offset = v
	}

	users, err := h.store.Users(c.Request().Context(), role, limit, offset)
	if err != nil {
		zap.L().Error("admin list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch users"})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// POST /admin/users/:id/suspend
func (h *Handler) SuspendUser(c echo.Context) error {
	return h.setActive(c, false)
}

// POST /admin/users/:id/activate
func (h *Handler) ActivateUser(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *Handler) setActive(c echo.Context, active bool) error {
	userID := c.Param("id")
	if me, _ := session.CurrentUser(c); me.UserID == userID && !active {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot suspend yourself"})
	}
	err := h.store.SetActive(c.Request().Context(), userID, active)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		zap.L().Error("admin set active", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}

	msg := "user activated"
	if !active {
		msg = "user suspended"
	}
	zap.L().Info(msg, zap.String("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "user_id": userID})
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// POST /admin/users/:id/role
func (h *Handler) ChangeRole(c echo.Context) error {
	userID := c.Param("id")
	req := new(ChangeRoleRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	role, ok := session.NormalizeRole(req.Role)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	err := h.store.SetRole(c.Request().Context(), userID, role)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		zap.L().Error("admin set role", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to change role"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role updated", "user_id": userID, "role": role})
}
